package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	payload, err := Encode(DisputeResolved, "d-1", map[string]string{"resolution": "partial"})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(payload, &env))
	assert.Equal(t, DisputeResolved, env.EventType)
	assert.Equal(t, "d-1", env.DisputeID)
	assert.NotEmpty(t, env.EventID)
	assert.False(t, env.OccurredAt.IsZero())
	assert.Equal(t, map[string]interface{}{"resolution": "partial"}, env.Data)
}

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "topic")
	assert.Error(t, err)

	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "arbitra.dispute-events")
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}
