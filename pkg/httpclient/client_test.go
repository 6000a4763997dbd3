package httpclient

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	client, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.Timeout)

	cfg := DefaultConfig()
	cfg.Timeout = 0
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.UserAgent = ""
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestClient_UserAgentAndLogging(t *testing.T) {
	var agents []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client, err := New(cfg)
	require.NoError(t, err)

	resp, err := client.Get(server.URL + "/health?token=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom/2.0")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{"citrus/1.0", "custom/2.0"}, agents)
	assert.Contains(t, buf.String(), "status=204")
	assert.Contains(t, buf.String(), "REDACTED")
	assert.NotContains(t, buf.String(), "token=abc")
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com/r?foo=bar", "https://example.com/r?foo=bar"},
		{"https://example.com/r?API_KEY=x&foo=bar", "https://example.com/r?API_KEY=%5BREDACTED%5D&foo=bar"},
		{"https://example.com/r?password=p&user=john", "https://example.com/r?password=%5BREDACTED%5D&user=john"},
		{"https://user:pw@example.com/r", "https://example.com/r"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			u, err := url.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sanitizeURL(u))
		})
	}
	assert.Empty(t, sanitizeURL(nil))
}
