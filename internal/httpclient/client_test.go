package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		client := New(nil)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
	})

	t.Run("custom config", func(t *testing.T) {
		client := New(&Config{DefaultTimeout: 5 * time.Second, UserAgent: "activity-loader/1.2.3"})
		assert.Equal(t, 5*time.Second, client.defaultTimeout)
		assert.Equal(t, "activity-loader/1.2.3", client.userAgent)
	})
}

func TestDoSetsUserAgentAndCallsHook(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "activity-loader/test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ok"))
	})

	client := New(&Config{UserAgent: "activity-loader/test"})
	t.Cleanup(client.Close)

	var hookStatus int
	client.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, err error) {
		if err == nil {
			hookStatus = resp.StatusCode
		}
	})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "ok", string(body))
	assert.Equal(t, http.StatusOK, hookStatus)
}

func TestDoKeepsExplicitUserAgent(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "custom", r.Header.Get("User-Agent"))
	})

	client := New(nil)
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPut, server.URL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom")
	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
}

func TestDoAppliesDefaultTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	client := New(&Config{DefaultTimeout: 50 * time.Millisecond})
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Do(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDoNilRequest(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Do(nil)
	require.Error(t, err)
}
