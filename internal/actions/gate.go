// Package actions computes which user-facing operations are permitted for an
// appointment given its status, the viewer's role and the current time.
package actions

import (
	"time"

	"github.com/spec-kit/appointment-service/internal/domain"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

// Action is a user-facing operation gated by status and role.
type Action string

const (
	Pay               Action = "pay"
	Review            Action = "review"
	EditDetails       Action = "editDetails"
	RequestReschedule Action = "requestReschedule"
	Cancel            Action = "cancel"
	CompleteService   Action = "completeService"
	Print             Action = "print"
)

// DefaultCancellationWindow is how far ahead of the scheduled start a
// cancellation must be requested.
const DefaultCancellationWindow = 24 * time.Hour

// ordered fixes the iteration order of a Set.
var ordered = []Action{Pay, Review, EditDetails, RequestReschedule, Cancel, CompleteService, Print}

// Gate evaluates action eligibility. The zero value uses DefaultCancellationWindow.
type Gate struct {
	CancellationWindow time.Duration
}

// NewGate builds a gate with the given cancellation window.
func NewGate(window time.Duration) Gate {
	return Gate{CancellationWindow: window}
}

func (g Gate) window() time.Duration {
	if g.CancellationWindow <= 0 {
		return DefaultCancellationWindow
	}
	return g.CancellationWindow
}

// Available returns every action the viewer may take on appt at now.
func Available(appt domain.Appointment, viewer domain.Viewer, now time.Time) Set {
	return Gate{}.Available(appt, viewer, now)
}

// Authorize checks a single action using the default gate.
func Authorize(appt domain.Appointment, viewer domain.Viewer, action Action, now time.Time) error {
	return Gate{}.Authorize(appt, viewer, action, now)
}

// Available returns every action the viewer may take on appt at now.
func (g Gate) Available(appt domain.Appointment, viewer domain.Viewer, now time.Time) Set {
	set := Set{}
	for _, action := range ordered {
		if g.reason(appt, viewer, action, now) == nil {
			set[action] = struct{}{}
		}
	}
	return set
}

// Authorize returns nil when action is permitted, otherwise an
// ACTION_NOT_PERMITTED or CANCELLATION_WINDOW_CLOSED error.
func (g Gate) Authorize(appt domain.Appointment, viewer domain.Viewer, action Action, now time.Time) error {
	return g.reason(appt, viewer, action, now)
}

func (g Gate) reason(appt domain.Appointment, viewer domain.Viewer, action Action, now time.Time) error {
	status := appt.Status
	denied := func() error {
		return apperrors.NewActionNotPermitted(string(action), string(status), nil)
	}

	switch action {
	case Print:
		return nil
	case Pay:
		if viewer.Role != domain.RoleClient || !appt.HasUnpaidInvoice() {
			return denied()
		}
		if status != domain.StatusInvoiceSent && status != domain.StatusPaymentPending {
			return denied()
		}
		return nil
	case Review:
		if viewer.Role != domain.RoleClient || appt.ProviderRating != nil {
			return denied()
		}
		if status != domain.StatusCompleted && status != domain.StatusPaid {
			return denied()
		}
		return nil
	case EditDetails:
		if viewer.Role != domain.RoleClient || status != domain.StatusPending {
			return denied()
		}
		if viewer.ID == "" || viewer.ID != appt.ClientID {
			return denied()
		}
		return nil
	case RequestReschedule:
		if viewer.Role != domain.RoleClient || status != domain.StatusConfirmed {
			return denied()
		}
		return nil
	case Cancel:
		if viewer.Role != domain.RoleClient && viewer.Role != domain.RoleProvider {
			return denied()
		}
		if status != domain.StatusPending && status != domain.StatusConfirmed {
			return denied()
		}
		remaining := appt.ScheduledAt.Sub(now)
		if remaining <= g.window() {
			return apperrors.NewCancellationWindowClosed(map[string]any{
				"scheduled_at":   appt.ScheduledAt,
				"window_hours":   g.window().Hours(),
				"remaining_mins": int64(remaining / time.Minute),
			}, nil)
		}
		return nil
	case CompleteService:
		if viewer.Role != domain.RoleProvider || status != domain.StatusInProgress {
			return denied()
		}
		return nil
	default:
		return denied()
	}
}
