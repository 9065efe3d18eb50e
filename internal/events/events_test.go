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

	"github.com/spec-kit/appointment-service/internal/domain"
)

func TestDispatcher_DeliversToTypedAndWildcardHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var typed, all []EventType

	d.Subscribe(EventInvoiceRequired, func(_ context.Context, e Event) error {
		typed = append(typed, e.Type)
		return nil
	})
	d.SubscribeAll(func(_ context.Context, e Event) error {
		all = append(all, e.Type)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventAppointmentStatusChanged}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventInvoiceRequired}))

	assert.Equal(t, []EventType{EventInvoiceRequired}, typed)
	assert.Equal(t, []EventType{EventAppointmentStatusChanged, EventInvoiceRequired}, all)
}

func TestDispatcher_ContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher()
	called := false
	d.Subscribe(EventReviewSubmitted, func(context.Context, Event) error { return errors.New("boom") })
	d.Subscribe(EventReviewSubmitted, func(context.Context, Event) error {
		called = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventReviewSubmitted})
	assert.EqualError(t, err, "boom")
	assert.True(t, called)
}

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisher_Handle(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w, topicPrefix: "appointments.", logger: zap.NewNop()}

	event := Event{
		ID:            "evt-1",
		Type:          EventAppointmentStatusChanged,
		AppointmentID: "appt-9",
		Actor:         Actor{Role: domain.RoleProvider, ID: "prov-1"},
		Timestamp:     time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
		Payload:       StatusChangedPayload{OldStatus: domain.StatusPending, NewStatus: domain.StatusConfirmed, Trigger: "provider_confirms"},
	}
	require.NoError(t, p.Handle(context.Background(), event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "appointments.appointment_status_changed", msg.Topic)
	assert.Equal(t, "appt-9", string(msg.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "evt-1", decoded["id"])
	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "confirmed", payload["new_status"])
}

func TestKafkaPublisher_AttachForwardsErrors(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, topicPrefix: "", logger: zap.NewNop()}
	d := NewInMemoryDispatcher()
	p.Attach(d)

	err := d.Publish(context.Background(), Event{Type: EventInvoiceRequired, AppointmentID: "a"})
	assert.Error(t, err)
	assert.Equal(t, "invoice_required", w.msgs[0].Topic)
}
