package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
)

type fakePublisher struct {
	calls []publishedCall
}

type publishedCall struct {
	collectionID string
	msgType      string
	payload      any
}

func (f *fakePublisher) Broadcast(collectionID, msgType string, payload any) {
	f.calls = append(f.calls, publishedCall{collectionID, msgType, payload})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantPoke bool
		wantErr  bool
	}{
		{
			name:     "valid checkin create",
			body:     `{"type":"checkins","operation":"create","event_id":123,"resource_ids":["a","b"],"change_datetime":"2026-05-01T10:00:00Z"}`,
			wantPoke: true,
		},
		{
			name:     "string event id",
			body:     `{"type":"checkins","operation":"create","event_id":"123","resource_ids":["a"]}`,
			wantPoke: true,
		},
		{
			name:     "field aliases",
			body:     `{"event_type":"checkins","action":"create","event_id":7,"resource_ids":["x"],"timestamp":"t"}`,
			wantPoke: true,
		},
		{
			name: "wrong type ignored",
			body: `{"type":"sessions","operation":"create","event_id":1,"resource_ids":["a"]}`,
		},
		{
			name: "delete operation ignored",
			body: `{"type":"checkins","operation":"delete","event_id":1,"resource_ids":["a"]}`,
		},
		{
			name: "empty resource ids ignored",
			body: `{"type":"checkins","operation":"create","event_id":1,"resource_ids":[]}`,
		},
		{
			name:    "missing event id",
			body:    `{"type":"checkins","operation":"create","resource_ids":["a"]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `{nope`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poke, err := Normalize([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if !tt.wantPoke {
				assert.Nil(t, poke)
				return
			}
			require.NotNil(t, poke)
			assert.NotEmpty(t, poke.EventID)
			assert.NotEmpty(t, poke.ResourceIDs)
		})
	}
}

func TestHandler_ReceivePublishesOnce(t *testing.T) {
	pub := &fakePublisher{}
	h := NewHandler(pub)

	h.Receive([]byte(`{"type":"checkins","operation":"create","event_id":42,"resource_ids":["c1","c2"]}`))

	require.Len(t, pub.calls, 1)
	call := pub.calls[0]
	assert.Equal(t, "42", call.collectionID)
	assert.Equal(t, domain.MsgCheckinPoke, call.msgType)

	poke, ok := call.payload.(*domain.Poke)
	require.True(t, ok)
	assert.Equal(t, []string{"c1", "c2"}, poke.ResourceIDs)
}

func TestHandler_ReceiveNeverPanicsOnGarbage(t *testing.T) {
	pub := &fakePublisher{}
	h := NewHandler(pub)

	h.Receive([]byte(`not json at all`))
	h.Receive([]byte(``))
	h.Receive([]byte(`{"type":"checkouts"}`))

	assert.Empty(t, pub.calls)
}
