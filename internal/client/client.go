// Package client talks to the external audit backend over HTTP.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"resvalidator/internal/models"
	apperrors "resvalidator/pkg/errors"

	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
)

const (
	ScanPath = "/api/scan"
	ASNPath  = "/api/asn"
)

// AuditService is the backend contract consumed by the orchestrator and the
// ASN expander.
type AuditService interface {
	Scan(ctx context.Context, target string) ([]models.ScanResult, error)
	ExpandASN(ctx context.Context, asn string) (*models.AsnSummary, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a backend client. A zero timeout leaves requests unbounded.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   2,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

type scanRequest struct {
	RawText string `json:"raw_text"`
}

type asnRequest struct {
	ASN string `json:"asn"`
}

// Scan submits one target to the audit endpoint.
func (c *Client) Scan(ctx context.Context, target string) ([]models.ScanResult, error) {
	body, status, err := c.post(ctx, ScanPath, scanRequest{RawText: target})
	if err != nil {
		return nil, err
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", ScanPath, err)
	}

	switch v := payload.(type) {
	case []interface{}:
		if status >= 300 {
			return nil, apperrors.NewBackendError(ScanPath, status, "unexpected status")
		}
		return decodeScanResults(v)
	case map[string]interface{}:
		if msg := errorMessage(v, "error", "detail"); msg != "" {
			return nil, apperrors.NewBackendError(ScanPath, statusIfError(status), msg)
		}
		return nil, apperrors.NewBackendError(ScanPath, statusIfError(status), "unexpected response object")
	default:
		return nil, apperrors.NewBackendError(ScanPath, statusIfError(status), "unexpected response shape")
	}
}

// ExpandASN asks the backend for the ASN's announced prefixes.
func (c *Client) ExpandASN(ctx context.Context, asn string) (*models.AsnSummary, error) {
	body, status, err := c.post(ctx, ASNPath, asnRequest{ASN: asn})
	if err != nil {
		return nil, err
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", ASNPath, err)
	}
	if msg := errorMessage(fields, "detail", "error"); msg != "" {
		return nil, apperrors.NewBackendError(ASNPath, statusIfError(status), msg)
	}
	if status >= 300 {
		return nil, apperrors.NewBackendError(ASNPath, status, "unexpected status")
	}

	var summary models.AsnSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("decode %s summary: %w", ASNPath, err)
	}
	return &summary, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, int, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, 0, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s response: %w", path, err)
	}
	return body, resp.StatusCode, nil
}

func decodeScanResults(items []interface{}) ([]models.ScanResult, error) {
	results := make([]models.ScanResult, 0, len(items))
	for i, item := range items {
		var r models.ScanResult
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &r,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(item); err != nil {
			return nil, fmt.Errorf("decode scan result %d: %w", i, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// errorMessage returns the first non-empty error field among keys, rendered
// as text whatever its JSON type.
func errorMessage(fields map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		switch msg := v.(type) {
		case string:
			if msg != "" {
				return msg
			}
		default:
			raw, err := json.Marshal(msg)
			if err == nil {
				return string(raw)
			}
		}
	}
	return ""
}

func statusIfError(status int) int {
	if status >= 300 {
		return status
	}
	return 0
}
