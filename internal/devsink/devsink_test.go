package devsink

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/raven/internal/logging"
	"github.com/petrijr/raven/internal/transport"
	"github.com/petrijr/raven/pkg/api"
)

func newTestServer(t *testing.T, cfg Config) (*httptest.Server, *transport.MemoryTransport) {
	t.Helper()
	mem := transport.NewMemoryTransport()
	cfg.Sink = mem
	cfg.Logger = logging.Discard()
	srv := httptest.NewServer(New(cfg).Router())
	t.Cleanup(srv.Close)
	return srv, mem
}

func dsnFor(srv *httptest.Server, key, secret, project string) api.Credential {
	host := strings.TrimPrefix(srv.URL, "http://")
	return api.MustParseDSN("http://" + key + ":" + secret + "@" + host + "/" + project)
}

func TestStore_RoundTripThroughHTTPTransport(t *testing.T) {
	srv, mem := newTestServer(t, Config{})
	cred := dsnFor(srv, "pub", "priv", "12")

	for _, compress := range []bool{false, true} {
		tr := transport.NewHTTPTransport(transport.HTTPConfig{Compress: compress, Logger: logging.Discard()})
		ev := api.NewEvent("devsink", api.LevelError, "over the wire", api.EventOptions{Culprit: "x.go: 1"})
		require.NoError(t, tr.Send(context.Background(), cred, ev))
	}

	require.Equal(t, 2, mem.Len())
	got := mem.Events()[1]
	require.Equal(t, "over the wire", got.Message)
	require.Equal(t, "x.go: 1", got.Culprit)

	stored := mem.Credentials()[0]
	require.Equal(t, "12", stored.ProjectID)
	require.Equal(t, "pub", stored.Key)
	require.Equal(t, "priv", stored.Secret)
}

func TestStore_RejectsWrongKey(t *testing.T) {
	srv, mem := newTestServer(t, Config{Key: "expected", Secret: "s"})
	tr := transport.NewHTTPTransport(transport.HTTPConfig{Logger: logging.Discard()})

	err := tr.Send(context.Background(), dsnFor(srv, "other", "s", "1"), api.NewEvent("d", api.LevelInfo, "m", api.EventOptions{}))
	var se *transport.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusUnauthorized, se.StatusCode)
	require.Zero(t, mem.Len())

	require.NoError(t, tr.Send(context.Background(), dsnFor(srv, "expected", "s", "1"), api.NewEvent("d", api.LevelInfo, "m", api.EventOptions{})))
	require.Equal(t, 1, mem.Len())
}

func TestStore_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	post := func(body string, auth bool) int {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/1/store/", bytes.NewBufferString(body))
		require.NoError(t, err)
		if auth {
			req.Header.Set("X-Sentry-Auth", "Sentry sentry_version=7,sentry_key=k,sentry_secret=s")
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	require.Equal(t, http.StatusUnauthorized, post(`{"event_id":"x"}`, false))
	require.Equal(t, http.StatusBadRequest, post(`not json`, true))
	require.Equal(t, http.StatusBadRequest, post(`{"message":"no id"}`, true))
	require.Equal(t, http.StatusOK, post(`{"event_id":"abc","message":"ok"}`, true))
}

func TestStore_SinkFailure(t *testing.T) {
	srv, mem := newTestServer(t, Config{})
	mem.FailWith(context.DeadlineExceeded)

	tr := transport.NewHTTPTransport(transport.HTTPConfig{Logger: logging.Discard()})
	err := tr.Send(context.Background(), dsnFor(srv, "k", "s", "1"), api.NewEvent("d", api.LevelInfo, "m", api.EventOptions{}))
	var se *transport.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestParseAuthHeader(t *testing.T) {
	cred := api.Credential{Key: "pub", Secret: "priv"}
	key, secret, ok := ParseAuthHeader(cred.AuthHeader(time.Unix(1700000000, 0)))
	require.True(t, ok)
	require.Equal(t, "pub", key)
	require.Equal(t, "priv", secret)

	_, _, ok = ParseAuthHeader("Bearer token")
	require.False(t, ok)
	_, _, ok = ParseAuthHeader("Sentry sentry_version=7")
	require.False(t, ok)
}

func TestStore_RejectsOversizedBodies(t *testing.T) {
	srv, mem := newTestServer(t, Config{})

	post := func(body []byte, gzipped bool) int {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/1/store/", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("X-Sentry-Auth", "Sentry sentry_version=7,sentry_key=k,sentry_secret=s")
		if gzipped {
			req.Header.Set("Content-Encoding", "gzip")
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	// Highly compressible, so the compressed request is tiny.
	bomb, err := transport.Compress(bytes.Repeat([]byte{' '}, 8*maxBody))
	require.NoError(t, err)
	require.Less(t, len(bomb), maxBody)
	require.Equal(t, http.StatusRequestEntityTooLarge, post(bomb, true))

	require.Equal(t, http.StatusRequestEntityTooLarge, post(bytes.Repeat([]byte{' '}, maxBody+1), false))

	// Just under the limit once decompressed is still accepted.
	ok := []byte(`{"event_id":"abc","message":"ok"}`)
	padded := append(bytes.Repeat([]byte{' '}, maxBody-len(ok)), ok...)
	small, err := transport.Compress(padded)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, post(small, true))
	require.Equal(t, 1, mem.Len())
}
