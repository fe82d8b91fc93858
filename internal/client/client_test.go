package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "resvalidator/pkg/errors"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 0)
}

func TestClient_Scan(t *testing.T) {
	var gotBody map[string]string
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ScanPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"cidr":"1.1.1.0/24","rpki_status":"VALID","rpki_detail":"AS13335 /24","visibility":12,"irr_objects":"AS13335@RADB","ptr_record":null},{"cidr":"1.1.2.0/24"}]`)
	})

	results, err := c.Scan(context.Background(), "1.1.1.0 - 1.1.2.255")
	require.NoError(t, err)

	assert.Equal(t, "1.1.1.0 - 1.1.2.255", gotBody["raw_text"])
	require.Len(t, results, 2)
	assert.Equal(t, "1.1.1.0/24", results[0].CIDR)
	assert.Equal(t, "VALID", results[0].RPKIStatus)
	assert.Equal(t, "12", results[0].Visibility)
	assert.Equal(t, "", results[0].PTRRecord)
	assert.Equal(t, "1.1.2.0/24", results[1].CIDR)
}

func TestClient_ScanErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field", http.StatusOK, `{"error":"whois timeout"}`, "whois timeout"},
		{"detail field", http.StatusBadRequest, `{"detail":"Too many IPs."}`, "Too many IPs."},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, `[{"msg":"field required"}]`},
		{"array with bad status", http.StatusInternalServerError, `[]`, "unexpected status"},
		{"scalar body", http.StatusOK, `"ok"`, "unexpected response shape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.Scan(context.Background(), "1.1.1.0/24")
			require.Error(t, err)

			var backendErr *apperrors.BackendError
			require.ErrorAs(t, err, &backendErr)
			assert.Equal(t, ScanPath, backendErr.Endpoint)
			assert.Equal(t, tt.message, backendErr.Message)
		})
	}
}

func TestClient_ScanMalformedJSON(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>bad gateway</html>`)
	})

	_, err := c.Scan(context.Background(), "1.1.1.0/24")
	assert.Error(t, err)
}

func TestClient_ExpandASN(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ASNPath, r.URL.Path)
		var req map[string]string
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, "AS136115", req["asn"])

		io.WriteString(w, `{"asn":"AS136115","holder":"EXAMPLE-AS","total_v4":2,"total_v6":1,
			"prefixes_v4":["103.10.10.0/24","103.10.11.0/24"],"prefixes_v6":["2001:db8::/32"],"upstreams":["AS1","AS2"]}`)
	})

	summary, err := c.ExpandASN(context.Background(), "AS136115")
	require.NoError(t, err)
	assert.Equal(t, "EXAMPLE-AS", summary.Holder)
	assert.Equal(t, 2, summary.TotalV4)
	assert.Equal(t, []string{"103.10.10.0/24", "103.10.11.0/24", "2001:db8::/32"}, summary.Prefixes())
	assert.Equal(t, []string{"AS1", "AS2"}, summary.Upstreams)
}

func TestClient_ExpandASNDetail(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"Invalid ASN."}`)
	})

	summary, err := c.ExpandASN(context.Background(), "AS1")
	assert.Nil(t, summary)

	var backendErr *apperrors.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "Invalid ASN.", backendErr.Message)
	assert.Equal(t, http.StatusBadRequest, backendErr.StatusCode)
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Scan(ctx, "1.1.1.0/24")
	assert.ErrorIs(t, err, context.Canceled)
}
