package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/oaustegard/cf-api-gateway/pkg/shared/logging"
	"github.com/stretchr/testify/require"
)

const testToken = "test-proxy-token"

// capturedRequest is what the fake upstream saw
type capturedRequest struct {
	Method        string
	RequestURI    string
	Host          string
	Header        http.Header
	Body          string
	ContentLength int64
}

// fakeUpstream is an httptest server that records requests and replies with a fixed handler
type fakeUpstream struct {
	*httptest.Server
	mu       sync.Mutex
	requests []capturedRequest
}

func newFakeUpstream(t *testing.T, reply http.HandlerFunc) *fakeUpstream {
	t.Helper()
	up := &fakeUpstream{}
	up.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		up.mu.Lock()
		up.requests = append(up.requests, capturedRequest{
			Method:        r.Method,
			RequestURI:    r.RequestURI,
			Host:          r.Host,
			Header:        r.Header.Clone(),
			Body:          string(body),
			ContentLength: r.ContentLength,
		})
		up.mu.Unlock()
		if reply != nil {
			reply(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(up.Close)
	return up
}

func (u *fakeUpstream) Requests() []capturedRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]capturedRequest(nil), u.requests...)
}

func (u *fakeUpstream) Last(t *testing.T) capturedRequest {
	t.Helper()
	reqs := u.Requests()
	require.NotEmpty(t, reqs, "upstream received no request")
	return reqs[len(reqs)-1]
}

// servicesAt returns the reference table with every base URL pointed at baseURL
func servicesAt(t *testing.T, baseURL string) *ServiceTable {
	t.Helper()
	services := DefaultServices()
	for i := range services {
		services[i].BaseURL = baseURL
	}
	table, err := NewServiceTable(services...)
	require.NoError(t, err)
	return table
}

func allSecrets() *ProxySecrets {
	return NewProxySecrets(testToken, map[string]string{
		"GEMINI_API_KEY":    "gemini-key",
		"OPENAI_API_KEY":    "openai-key",
		"ANTHROPIC_API_KEY": "anthropic-key",
	})
}

func newTestHandler(t *testing.T, table *ServiceTable, secrets *ProxySecrets, opts ...Option) (*Handler, *logging.TestLogger) {
	t.Helper()
	logger := logging.NewTestLogger()
	client := &http.Client{Transport: &http.Transport{}}
	t.Cleanup(client.CloseIdleConnections)

	opts = append([]Option{WithLogger(logger), WithHTTPClient(client)}, opts...)
	h, err := New(table, secrets, opts...)
	require.NoError(t, err)
	return h, logger
}
