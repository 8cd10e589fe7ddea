package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thorbengrosser/eventheartbeat/internal/broadcast"
	"github.com/thorbengrosser/eventheartbeat/internal/config"
	"github.com/thorbengrosser/eventheartbeat/internal/eventmobi"
	"github.com/thorbengrosser/eventheartbeat/internal/songs"
)

// newTestServer stands up the full HTTP surface against a mocked upstream.
func newTestServer(t *testing.T, upstream http.HandlerFunc) *httptest.Server {
	t.Helper()

	apiServer := httptest.NewServer(upstream)
	t.Cleanup(apiServer.Close)

	cfg := &config.Config{
		Port:                    "0",
		APIBaseURL:              apiServer.URL,
		WebhookBaseURL:          "http://hb.test",
		MaxClientsPerCollection: 4,
		WebhookRateLimit:        1,
	}

	hub := broadcast.NewHub(clockwork.NewRealClock(), cfg.MaxClientsPerCollection)
	t.Cleanup(hub.Stop)

	srv := NewServer(cfg, hub, eventmobi.NewClient(apiServer.URL), songs.NewLibrary(""))

	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)
	return ts
}

func emptyUpstream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"data":[]}`))
}

func getBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestAPI_RequiresCredential(t *testing.T) {
	ts := newTestServer(t, emptyUpstream)

	resp, err := http.Get(ts.URL + "/api/events")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, getBody(t, resp), "missing API key")

	resp, err = http.Get(ts.URL + "/api/events?api_key=test_key")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	getBody(t, resp)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer test_key")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	getBody(t, resp)
}

func TestAPI_MapsUpstreamAuthFailure(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	resp, err := http.Get(ts.URL + "/api/events?api_key=bad_key")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, getBody(t, resp), "invalid API key")
}

func TestCheckinMessage_RequiresCheckinID(t *testing.T) {
	ts := newTestServer(t, emptyUpstream)

	resp, err := http.Get(ts.URL + "/api/event/1/checkin-message?api_key=test_key")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, getBody(t, resp), "checkin_id")
}

func TestWebhook_AlwaysAcknowledges(t *testing.T) {
	ts := newTestServer(t, emptyUpstream)

	resp, err := http.Post(ts.URL+"/webhook/eventmobi", "application/json", strings.NewReader("this is not json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, getBody(t, resp), "received")
}

func TestWebhook_ProbeAnswersRegistrationCheck(t *testing.T) {
	ts := newTestServer(t, emptyUpstream)

	resp, err := http.Get(ts.URL + "/webhook/eventmobi")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, getBody(t, resp), "ok")
}

func TestWebhook_RateLimited(t *testing.T) {
	ts := newTestServer(t, emptyUpstream)

	limited := false
	for i := 0; i < 5; i++ {
		resp, err := http.Post(ts.URL+"/webhook/eventmobi", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
		getBody(t, resp)
	}
	assert.True(t, limited, "burst of deliveries should hit the rate limit")
}

func TestSongs_PublicEndpoints(t *testing.T) {
	ts := newTestServer(t, emptyUpstream)

	resp, err := http.Get(ts.URL + "/api/songs")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []songs.Song
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, "ode_to_joy.abc")

	resp, err = http.Get(ts.URL + "/api/songs/ode_to_joy.abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, getBody(t, resp), "T:")

	resp, err = http.Get(ts.URL + "/api/songs/no_such_tune.abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	getBody(t, resp)

	resp, err = http.Get(ts.URL + "/api/songs/evil.txt")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	getBody(t, resp)
}

func TestHealth_Endpoints(t *testing.T) {
	ts := newTestServer(t, emptyUpstream)

	resp, err := http.Get(ts.URL + "/health/live")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, getBody(t, resp), "uptime")

	resp, err = http.Get(ts.URL + "/health/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, getBody(t, resp), "ready")
}
