package eventmobi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
)

func TestRawPerson_AttendeeName(t *testing.T) {
	tests := []struct {
		name   string
		person rawPerson
		want   string
	}{
		{"first name wins", rawPerson{FirstName: "Ada", Name: "Ada Lovelace", Email: "ada@example.com"}, "Ada"},
		{"first name trimmed", rawPerson{FirstName: "  Grace  "}, "Grace"},
		{"full name split", rawPerson{Name: "Alan Turing"}, "Alan"},
		{"email local part", rawPerson{Email: "bob@example.com"}, "bob"},
		{"never the full email", rawPerson{Email: "@example.com"}, "Someone"},
		{"nothing known", rawPerson{}, "Someone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.person.attendeeName())
		})
	}
}

func TestCheckinMessage_EventLevel(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/evt-1/checkin", r.URL.Path)
		assert.Equal(t, "chk-100", r.URL.Query().Get("id"))
		assert.Equal(t, "person", r.URL.Query().Get("include"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{
			"entity_type":"events",
			"entity_id":1,
			"change_datetime":"2026-06-01T12:00:00Z",
			"person":{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}
		}]}`))
	}))
	defer mockServer.Close()

	c := NewClient(mockServer.URL)
	msg, err := c.CheckinMessage(context.Background(), "test_key", "evt-1", "chk-100")

	require.NoError(t, err)
	assert.Equal(t, "Ada just checked into your event", msg.Message)
	assert.Equal(t, "Ada", msg.AttendeeName)
	assert.Equal(t, domain.CheckinTypeEvent, msg.CheckinType)
	assert.Equal(t, "your event", msg.LocationName)
	assert.Equal(t, "2026-06-01T12:00:00Z", msg.Timestamp)
	assert.Empty(t, msg.SessionID)
}

func TestCheckinMessage_SessionLevelResolvesSessionName(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/events/evt-2/checkin":
			w.Write([]byte(`{"data":[{
				"entity_type":"sessions",
				"entity_id":9,
				"person":{"first_name":"Grace"}
			}]}`))
		case "/events/evt-2/sessions":
			assert.Equal(t, "9", r.URL.Query().Get("id"))
			w.Write([]byte(`{"data":[{"id":9,"name":"Compiler Workshop"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer mockServer.Close()

	c := NewClient(mockServer.URL)
	msg, err := c.CheckinMessage(context.Background(), "test_key", "evt-2", "chk-200")

	require.NoError(t, err)
	assert.Equal(t, `Grace just checked into session "Compiler Workshop"`, msg.Message)
	assert.Equal(t, domain.CheckinTypeSession, msg.CheckinType)
	assert.Equal(t, "9", msg.SessionID)
	assert.Equal(t, "Compiler Workshop", msg.LocationName)
}

func TestCheckinMessage_SessionLookupFailureFallsBack(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/events/evt-3/checkin":
			w.Write([]byte(`{"data":[{"entity_type":"sessions","entity_id":12,"person":{"first_name":"Alan"}}]}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer mockServer.Close()

	c := NewClient(mockServer.URL)
	msg, err := c.CheckinMessage(context.Background(), "test_key", "evt-3", "chk-300")

	require.NoError(t, err)
	assert.Equal(t, "a session", msg.LocationName)
	assert.Equal(t, `Alan just checked into session "a session"`, msg.Message)
}

func TestCheckinMessage_NotFound(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer mockServer.Close()

	c := NewClient(mockServer.URL)
	_, err := c.CheckinMessage(context.Background(), "test_key", "evt-4", "chk-gone")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckinMessage_CoalescesConcurrentLookups(t *testing.T) {
	var hits atomic.Int32

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"entity_type":"events","person":{"first_name":"Ada"}}]}`))
	}))
	defer mockServer.Close()

	c := NewClient(mockServer.URL)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg, err := c.CheckinMessage(context.Background(), "test_key", "evt-5", "chk-shared")
			assert.NoError(t, err)
			assert.Equal(t, "Ada", msg.AttendeeName)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load(), "concurrent lookups for one id should share a single fetch")
}

func TestDecodeFirstCheckin_ToleratesSingleObject(t *testing.T) {
	checkin, err := decodeFirstCheckin([]byte(`{"entity_type":"events","person":{"first_name":"Ada"}}`))
	require.NoError(t, err)
	require.NotNil(t, checkin)
	assert.Equal(t, "Ada", checkin.Person.FirstName)

	checkin, err = decodeFirstCheckin(nil)
	require.NoError(t, err)
	assert.Nil(t, checkin)

	_, err = decodeFirstCheckin([]byte(`"just a string"`))
	assert.Error(t, err)
}
