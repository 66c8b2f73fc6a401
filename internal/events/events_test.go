package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type capturingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *capturingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *capturingWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewWriter(t *testing.T) {
	w := NewWriter("kafka-1:9092,kafka-2:9092", "service_request_events")
	defer w.Close()

	assert.Equal(t, "service_request_events", w.Topic)
	assert.Equal(t, 10*time.Millisecond, w.BatchTimeout)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.False(t, w.Async)
}

func TestKafkaPublisher_KeyAndPayload(t *testing.T) {
	w := &capturingWriter{}
	p := NewKafkaPublisher(w)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), Event{
		Type:      BidAccepted,
		RequestID: "req-1",
		BidID:     "bid-7",
		ActorID:   "client-3",
		Status:    "BID_ACCEPTED",
		At:        at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, []byte("req-1"), msg.Key)
	assert.True(t, at.Equal(msg.Time))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, map[string]any{
		"type":      "bid.accepted",
		"requestId": "req-1",
		"bidId":     "bid-7",
		"actorId":   "client-3",
		"status":    "BID_ACCEPTED",
		"tsUnixMs":  float64(at.UnixMilli()),
	}, payload)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := NewKafkaPublisher(&capturingWriter{err: boom})

	err := p.Publish(context.Background(), Event{Type: RequestCreated, RequestID: "req-1"})
	assert.ErrorIs(t, err, boom)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), Event{Type: RequestExpired, RequestID: "req-9", Status: "CANCELLED"}))
	require.NoError(t, p.Close())

	entries := logs.FilterMessage("event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "request.expired", fields["type"])
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "CANCELLED", fields["status"])
}
