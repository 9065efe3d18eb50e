// Package timeline derives a display-ready chronology of an appointment from
// its lifecycle timestamps when no explicit event log is available.
package timeline

import (
	"time"

	"github.com/spec-kit/appointment-service/internal/domain"
	"github.com/spec-kit/appointment-service/internal/lifecycle"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

// Kind is the timeline vocabulary an event is rendered with.
type Kind string

const (
	KindCreated   Kind = "created"
	KindConfirmed Kind = "confirmed"
	KindStarted   Kind = "started"
	KindCompleted Kind = "completed"
	KindReviewed  Kind = "reviewed"
	KindCancelled Kind = "cancelled"
	KindNoShow    Kind = "no_show"
	KindDisputed  Kind = "disputed"
)

// Event is a read-only projection of a past lifecycle stage.
type Event struct {
	Ordinal     int           `json:"ordinal"`
	Kind        Kind          `json:"kind"`
	Status      domain.Status `json:"status"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Color       string        `json:"color"`
	Timestamp   time.Time     `json:"timestamp"`
	Completed   bool          `json:"completed"`
	Inferred    bool          `json:"inferred"`
}

type copyText struct {
	title       string
	description string
	icon        string
	color       string
}

var vocabulary = map[Kind]copyText{
	KindCreated:   {"Booking created", "The appointment request was submitted.", "calendar-plus", "gray"},
	KindConfirmed: {"Booking confirmed", "The provider confirmed the appointment.", "check-circle", "blue"},
	KindStarted:   {"Service started", "The provider started the service.", "play-circle", "indigo"},
	KindCompleted: {"Service completed", "The provider marked the service as done.", "check-double", "green"},
	KindReviewed:  {"Review submitted", "The client rated the provider.", "star", "purple"},
	KindCancelled: {"Booking cancelled", "The appointment was cancelled.", "x-circle", "red"},
	KindNoShow:    {"Client did not attend", "The client did not appear at the scheduled time.", "user-x", "red"},
	KindDisputed:  {"Dispute raised", "A dispute was raised on this appointment.", "alert-triangle", "rose"},
}

// stageKinds maps success-path statuses that have timeline vocabulary.
var stageKinds = map[domain.Status]Kind{
	domain.StatusPending:    KindCreated,
	domain.StatusConfirmed:  KindConfirmed,
	domain.StatusInProgress: KindStarted,
	domain.StatusCompleted:  KindCompleted,
}

// InferencePolicy fills in timestamps the record does not carry.
type InferencePolicy struct {
	// ConfirmationDelay estimates confirmation time as CreatedAt plus this delay.
	ConfirmationDelay time.Duration
}

// DefaultPolicy estimates confirmation two hours after creation.
var DefaultPolicy = InferencePolicy{ConfirmationDelay: 2 * time.Hour}

// Reconstructor builds timelines under a fixed inference policy.
type Reconstructor struct {
	Policy InferencePolicy
}

// NewReconstructor returns a reconstructor using policy.
func NewReconstructor(policy InferencePolicy) Reconstructor {
	return Reconstructor{Policy: policy}
}

// Reconstruct builds the timeline for appt with DefaultPolicy.
func Reconstruct(appt domain.Appointment, now time.Time) ([]Event, error) {
	return NewReconstructor(DefaultPolicy).Reconstruct(appt, now)
}

// Reconstruct returns the ordered lifecycle events for appt. Timestamps that
// are absent are inferred and flagged; inferred timestamps never precede the
// previous event. now stands in for stages with no better estimate.
func (r Reconstructor) Reconstruct(appt domain.Appointment, now time.Time) ([]Event, error) {
	if err := validate(appt); err != nil {
		return nil, err
	}

	b := builder{}
	b.add(KindCreated, domain.StatusPending, appt.CreatedAt, false, "")

	if lifecycle.Rank(appt.Status) < 0 {
		r.addTerminal(&b, appt, now)
		return b.settle(), nil
	}

	for _, status := range lifecycle.SuccessPath()[1:] {
		if lifecycle.Rank(status) > lifecycle.Rank(appt.Status) {
			break
		}
		kind, ok := stageKinds[status]
		if !ok {
			continue
		}
		ts, inferred := r.stageTime(kind, appt, b.last(), now)
		b.add(kind, status, ts, inferred, "")
	}

	if appt.ProviderRating != nil && lifecycle.Reached(appt.Status, domain.StatusCompleted) {
		ts, inferred := pick(appt.ReviewedAt, now)
		b.add(KindReviewed, domain.StatusReviewed, ts, inferred, "")
	}
	return b.settle(), nil
}

func (r Reconstructor) stageTime(kind Kind, appt domain.Appointment, previous, now time.Time) (time.Time, bool) {
	switch kind {
	case KindConfirmed:
		return pick(appt.ConfirmedAt, appt.CreatedAt.Add(r.Policy.ConfirmationDelay))
	case KindStarted:
		if appt.ScheduledAt.IsZero() {
			return pick(appt.StartedAt, previous)
		}
		return pick(appt.StartedAt, appt.ScheduledAt)
	default:
		return pick(appt.CompletedAt, now)
	}
}

func (r Reconstructor) addTerminal(b *builder, appt domain.Appointment, now time.Time) {
	switch {
	case lifecycle.IsCancelled(appt.Status):
		ts, inferred := pick(appt.CancelledAt, now)
		b.add(KindCancelled, appt.Status, ts, inferred, appt.CancellationReason)
	case appt.Status == domain.StatusNoShow:
		ts, inferred := pick(appt.CancelledAt, now)
		b.add(KindNoShow, appt.Status, ts, inferred, "")
	case appt.Status == domain.StatusDisputed:
		b.add(KindDisputed, appt.Status, now, true, "")
	}
}

func pick(actual *time.Time, fallback time.Time) (time.Time, bool) {
	if actual != nil && !actual.IsZero() {
		return *actual, false
	}
	return fallback, true
}

type builder struct {
	events []Event
}

func (b *builder) last() time.Time {
	if len(b.events) == 0 {
		return time.Time{}
	}
	return b.events[len(b.events)-1].Timestamp
}

func (b *builder) add(kind Kind, status domain.Status, ts time.Time, inferred bool, description string) {
	if inferred && ts.Before(b.last()) {
		ts = b.last()
	}
	text := vocabulary[kind]
	if description == "" {
		description = text.description
	}
	b.events = append(b.events, Event{
		Ordinal:     len(b.events) + 1,
		Kind:        kind,
		Status:      status,
		Title:       text.title,
		Description: description,
		Icon:        text.icon,
		Color:       text.color,
		Timestamp:   ts,
		Completed:   true,
		Inferred:    inferred,
	})
}

// settle pulls inferred timestamps back so none lands after a later
// authoritative one.
func (b *builder) settle() []Event {
	for i := len(b.events) - 2; i >= 0; i-- {
		next := b.events[i+1].Timestamp
		if b.events[i].Inferred && b.events[i].Timestamp.After(next) {
			b.events[i].Timestamp = next
		}
	}
	return b.events
}

// validate rejects records the inference policy cannot repair.
func validate(appt domain.Appointment) error {
	details := map[string]any{"appointment_id": appt.ID}
	if appt.Status == "" {
		return apperrors.NewMalformedAppointment("appointment status missing", details)
	}
	if !lifecycle.Valid(appt.Status) {
		details["status"] = appt.Status
		return apperrors.NewMalformedAppointment("appointment status unknown", details)
	}
	if appt.CreatedAt.IsZero() {
		return apperrors.NewMalformedAppointment("appointment creation time missing", details)
	}

	previous := appt.CreatedAt
	ordered := []struct {
		field string
		value *time.Time
	}{
		{"confirmed_at", appt.ConfirmedAt},
		{"started_at", appt.StartedAt},
		{"completed_at", appt.CompletedAt},
		{"reviewed_at", appt.ReviewedAt},
	}
	for _, stage := range ordered {
		if stage.value == nil || stage.value.IsZero() {
			continue
		}
		if stage.value.Before(previous) {
			details["field"] = stage.field
			return apperrors.NewMalformedAppointment("lifecycle timestamps out of order", details)
		}
		previous = *stage.value
	}
	if appt.CancelledAt != nil && appt.CancelledAt.Before(appt.CreatedAt) {
		details["field"] = "cancelled_at"
		return apperrors.NewMalformedAppointment("lifecycle timestamps out of order", details)
	}
	return nil
}
