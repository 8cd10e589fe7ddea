package eventmobi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
)

func TestEvents_ToleratesNameFieldDrift(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "Bearer test_key", r.Header.Get("Authorization"))
		assert.Equal(t, acceptHeader, r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":1,"title":"Summit"},
			{"id":"2","name":"Expo"},
			{"id":3,"event_name":"Gala"},
			{"id":4,"label":"Meetup"}
		]}`))
	}))
	defer mockServer.Close()

	c := NewClient(mockServer.URL)
	events, err := c.Events(context.Background(), "test_key")

	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, domain.EventInfo{ID: "1", Name: "Summit"}, events[0])
	assert.Equal(t, domain.EventInfo{ID: "2", Name: "Expo"}, events[1])
	assert.Equal(t, domain.EventInfo{ID: "3", Name: "Gala"}, events[2])
	assert.Equal(t, domain.EventInfo{ID: "4", Name: "Meetup"}, events[3])
}

func TestEvents_AcceptsBareArrayResponse(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":5,"name":"Plain"}]`))
	}))
	defer mockServer.Close()

	c := NewClient(mockServer.URL)
	events, err := c.Events(context.Background(), "test_key")

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Plain", events[0].Name)
}

func TestEventDetails_FallsBackToRequestedID(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"name":"No ID In Response"}}`))
	}))
	defer mockServer.Close()

	c := NewClient(mockServer.URL)
	info, err := c.EventDetails(context.Background(), "test_key", "evt-77")

	require.NoError(t, err)
	assert.Equal(t, "evt-77", info.ID)
	assert.Equal(t, "No ID In Response", info.Name)
}

func TestEventStats_CountsFromPaginationMeta(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("page"))

		total := 0
		switch {
		case r.URL.Path == "/events/evt-1/people":
			total = 350
		case r.URL.Query().Get("entity_type") == "events":
			total = 120
		case r.URL.Query().Get("entity_type") == "sessions":
			total = 480
		}

		w.Header().Set("Content-Type", "application/json")
		resp := `{"data":[],"meta":{"pagination":{"total_items_count":` + strconv.Itoa(total) + `}}}`
		w.Write([]byte(resp))
	}))
	defer mockServer.Close()

	c := NewClient(mockServer.URL)
	snap, err := c.EventStats(context.Background(), "test_key", "evt-1")

	require.NoError(t, err)
	assert.Equal(t, 350, snap.TotalAttendees)
	assert.Equal(t, 120, snap.EventCheckins)
	assert.Equal(t, 480, snap.SessionCheckins)
}

func TestAPIError_MapsStatusToSentinels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrInvalidCredential},
		{"forbidden", http.StatusForbidden, domain.ErrInvalidCredential},
		{"not found", http.StatusNotFound, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer mockServer.Close()

			c := NewClient(mockServer.URL)
			_, err := c.Events(context.Background(), "bad_key")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestBreaker_OpensAfterConsecutiveServerErrors(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer mockServer.Close()

	c := NewClient(mockServer.URL)
	ctx := context.Background()

	for i := 0; i < breakerFailureThreshold; i++ {
		_, err := c.Events(ctx, "test_key")
		require.Error(t, err)
	}

	_, err := c.Events(ctx, "test_key")
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreaker_IgnoresCallerErrors(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer mockServer.Close()

	c := NewClient(mockServer.URL)
	ctx := context.Background()

	// Far more caller errors than the failure threshold must still reach
	// upstream instead of tripping the breaker.
	var err error
	for i := 0; i < breakerFailureThreshold+3; i++ {
		_, err = c.Events(ctx, "test_key")
		require.Error(t, err)
	}

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, errors.Is(err, gobreaker.ErrOpenState))
}
