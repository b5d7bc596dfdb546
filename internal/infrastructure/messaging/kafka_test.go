package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/events"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestOutboxPublisher_Handle(t *testing.T) {
	w := &fakeWriter{}
	p := NewOutboxPublisher(w)
	msg := &postgres.OutboxMessage{
		ID:            id.New(),
		AggregateType: events.AggregateWorkOrder,
		AggregateID:   id.New(),
		EventType:     events.WorkOrderCreated,
		Payload:       []byte(`{"number":"RN-1"}`),
		CreatedAt:     time.Now().UTC(),
	}

	require.NoError(t, p.Handle(context.Background(), msg))

	require.Len(t, w.msgs, 1)
	got := w.msgs[0]
	assert.Equal(t, msg.AggregateID.String(), string(got.Key))
	assert.JSONEq(t, `{"number":"RN-1"}`, string(got.Value))
	assert.Equal(t, events.WorkOrderCreated, header(got, HeaderEventType))
	assert.Equal(t, events.AggregateWorkOrder, header(got, HeaderAggregateType))
	assert.Equal(t, msg.ID.String(), header(got, HeaderMessageID))
}

func TestOutboxPublisher_HandleError(t *testing.T) {
	p := NewOutboxPublisher(&fakeWriter{err: errors.New("broker down")})

	err := p.Handle(context.Background(), &postgres.OutboxMessage{EventType: events.WorkOrderDeleted})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "radni-nalozi.events"})
	defer w.Close()

	assert.Equal(t, "radni-nalozi.events", w.Topic)
	assert.Equal(t, 10*time.Millisecond, w.BatchTimeout)
}
