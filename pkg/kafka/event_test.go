package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_Fields(t *testing.T) {
	type ReviewData struct {
		SessionID int64   `json:"session_id"`
		Rating    float64 `json:"rating"`
		Comment   string  `json:"comment"`
	}

	data := ReviewData{SessionID: 42, Rating: 8.5, Comment: "great footwork drills"}
	event, err := NewEvent("review.submitted", "42", "review", "review-service", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID, "EventID should be a non-empty UUID")
	assert.Equal(t, "review.submitted", event.EventType)
	assert.Equal(t, "42", event.AggregateID)
	assert.Equal(t, "review", event.AggregateType)
	assert.Equal(t, "review-service", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)
	assert.NotNil(t, event.Metadata)
	assert.NotNil(t, event.Data)

	var roundTripped ReviewData
	require.NoError(t, json.Unmarshal(event.Data, &roundTripped))
	assert.Equal(t, data, roundTripped)
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	a, err := NewEvent("review.submitted", "1", "review", "review-service", nil)
	require.NoError(t, err)
	b, err := NewEvent("review.submitted", "1", "review", "review-service", nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.EventID, b.EventID, "each event must carry its own ID for deduplication")
}

func TestNewEvent_InvalidData(t *testing.T) {
	// Channels are not serializable to JSON.
	_, err := NewEvent("review.submitted", "1", "review", "review-service", make(chan int))
	require.Error(t, err)
}

func TestEvent_Marshal_Unmarshal(t *testing.T) {
	original, err := NewEvent("session.rated", "7", "session", "session-service", map[string]string{"status": "COMPLETED"})
	require.NoError(t, err)
	original.WithCorrelationID("corr-abc").WithMetadata("initiator", "consumer")

	raw, err := original.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, original.EventID, decoded.EventID)
	assert.Equal(t, original.EventType, decoded.EventType)
	assert.Equal(t, original.AggregateID, decoded.AggregateID)
	assert.Equal(t, original.CorrelationID, decoded.CorrelationID)
	assert.Equal(t, "consumer", decoded.Metadata["initiator"])

	var payload map[string]string
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, "COMPLETED", payload["status"])
}

func TestUnmarshalEvent_MalformedPayload(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{not json"))
	require.Error(t, err)
}

func TestEvent_UnmarshalData_TypeMismatch(t *testing.T) {
	event, err := NewEvent("review.submitted", "1", "review", "review-service", map[string]string{"comment": "solid"})
	require.NoError(t, err)

	var wrong []int
	assert.Error(t, event.UnmarshalData(&wrong))
}
