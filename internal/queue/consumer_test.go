package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationEventJSONShape(t *testing.T) {
	ev := NotificationEvent{
		Kind:       KindRegistrationConfirmed,
		UserID:     "user-1",
		EventID:    "event-1",
		EventTitle: "GopherCon",
		SectionID:  "section-1",
		Message:    "confirmed",
		OccurredAt: "2026-01-02T15:04:05Z",
	}

	bs, err := json.Marshal(ev)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(bs, &m))
	assert.Equal(t, "registration.confirmed", m["kind"])
	assert.Equal(t, "user-1", m["user_id"])
	assert.Equal(t, "event-1", m["event_id"])
	assert.Equal(t, "section-1", m["section_id"])
}

func TestNotificationEventOmitsEmptyOptionalFields(t *testing.T) {
	bs, err := json.Marshal(NotificationEvent{
		Kind:    KindEventApproved,
		UserID:  "user-1",
		Message: "approved",
	})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(bs, &m))
	_, hasEvent := m["event_id"]
	assert.False(t, hasEvent)
	_, hasSection := m["section_id"]
	assert.False(t, hasSection)
}

func TestHandleMessageRejectsBadPayloads(t *testing.T) {
	// Malformed and incomplete payloads must fail before any storage work,
	// so the consumer can nack them as unprocessable.
	err := handleMessage(nil, []byte("{not json"))
	assert.Error(t, err)

	err = handleMessage(nil, []byte(`{"kind":"event.approved"}`))
	assert.Error(t, err)

	err = handleMessage(nil, []byte(`{"user_id":"u1"}`))
	assert.Error(t, err, "a message without text is useless to the inbox")
}
