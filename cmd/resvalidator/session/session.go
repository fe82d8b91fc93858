package session

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"resvalidator/cmd/resvalidator/app"

	"github.com/spf13/cobra"
)

// NewLoginCommand creates the login command
func NewLoginCommand(opts *app.Options) *cobra.Command {
	var password string

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Start a hostmaster session",
		Long: `Start a hostmaster session. Hostmasters may submit multi-target batches
and export CSV reports. The session ends after the configured idle timeout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if password == "" {
				fmt.Fprint(os.Stderr, "Password: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}

			if err := a.Session.Login(password); err != nil {
				return err
			}
			fmt.Println("Logged in as hostmaster")
			return nil
		},
	}

	loginCmd.Flags().StringVar(&password, "password", "", "Hostmaster password (prompted when omitted)")
	return loginCmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the hostmaster session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Session.Logout(); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}
