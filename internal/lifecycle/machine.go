package lifecycle

import (
	"fmt"
	"strings"

	"github.com/spec-kit/appointment-service/internal/domain"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

// Trigger names the event that drives a status transition.
type Trigger string

const (
	TriggerProviderConfirms       Trigger = "provider_confirms"
	TriggerClientCancels          Trigger = "client_cancels"
	TriggerProviderCancels        Trigger = "provider_cancels"
	TriggerClientNoShow           Trigger = "client_no_show"
	TriggerProviderStarts         Trigger = "provider_starts"
	TriggerProviderCompletes      Trigger = "provider_completes"
	TriggerInvoiceSent            Trigger = "invoice_sent"
	TriggerClientInitiatesPayment Trigger = "client_initiates_payment"
	TriggerPaymentConfirmed       Trigger = "payment_confirmed"
	TriggerClientReviews          Trigger = "client_reviews"
	TriggerFinalize               Trigger = "finalize"
	TriggerDisputeRaised          Trigger = "dispute_raised"
)

// triggerTargets binds each trigger to the single status it moves an appointment into.
var triggerTargets = map[Trigger]domain.Status{
	TriggerProviderConfirms:       domain.StatusConfirmed,
	TriggerClientCancels:          domain.StatusCancelledByClient,
	TriggerProviderCancels:        domain.StatusCancelledByProvider,
	TriggerClientNoShow:           domain.StatusNoShow,
	TriggerProviderStarts:         domain.StatusInProgress,
	TriggerProviderCompletes:      domain.StatusCompleted,
	TriggerInvoiceSent:            domain.StatusInvoiceSent,
	TriggerClientInitiatesPayment: domain.StatusPaymentPending,
	TriggerPaymentConfirmed:       domain.StatusPaid,
	TriggerClientReviews:          domain.StatusReviewed,
	TriggerFinalize:               domain.StatusClosed,
	TriggerDisputeRaised:          domain.StatusDisputed,
}

// allowedTransitions lists explicit edges. The dispute edge from every
// non-terminal status is handled in CanTransition.
var allowedTransitions = map[domain.Status][]domain.Status{
	domain.StatusPending:             {domain.StatusConfirmed, domain.StatusCancelledByClient, domain.StatusCancelledByProvider, domain.StatusNoShow},
	domain.StatusConfirmed:           {domain.StatusInProgress, domain.StatusCancelledByClient, domain.StatusCancelledByProvider},
	domain.StatusInProgress:          {domain.StatusCompleted},
	domain.StatusCompleted:           {domain.StatusInvoiceSent},
	domain.StatusInvoiceSent:         {domain.StatusPaymentPending},
	domain.StatusPaymentPending:      {domain.StatusPaid},
	domain.StatusPaid:                {domain.StatusReviewed},
	domain.StatusReviewed:            {domain.StatusClosed},
	domain.StatusClosed:              {},
	domain.StatusCancelledByClient:   {},
	domain.StatusCancelledByProvider: {},
	domain.StatusNoShow:              {},
	domain.StatusDisputed:            {},
}

// Triggers returns every known trigger in declaration order.
func Triggers() []Trigger {
	return []Trigger{
		TriggerProviderConfirms,
		TriggerClientCancels,
		TriggerProviderCancels,
		TriggerClientNoShow,
		TriggerProviderStarts,
		TriggerProviderCompletes,
		TriggerInvoiceSent,
		TriggerClientInitiatesPayment,
		TriggerPaymentConfirmed,
		TriggerClientReviews,
		TriggerFinalize,
		TriggerDisputeRaised,
	}
}

// Target returns the status a trigger moves an appointment into.
func Target(trigger Trigger) (domain.Status, bool) {
	status, ok := triggerTargets[trigger]
	return status, ok
}

// ParseTrigger converts wire input into a Trigger.
func ParseTrigger(raw string) (Trigger, error) {
	trigger := Trigger(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := triggerTargets[trigger]; !ok {
		return "", fmt.Errorf("unknown trigger %q", raw)
	}
	return trigger, nil
}

// CanTransition reports whether the transition table permits from -> to.
func CanTransition(from, to domain.Status) bool {
	if to == domain.StatusDisputed {
		return Valid(from) && !IsTerminal(from) && from != domain.StatusDisputed
	}
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Next returns the statuses reachable from from in one transition.
func Next(from domain.Status) []domain.Status {
	next := append([]domain.Status{}, allowedTransitions[from]...)
	if CanTransition(from, domain.StatusDisputed) {
		next = append(next, domain.StatusDisputed)
	}
	return next
}

// Effect is a side effect the caller must carry out for a committed transition.
type Effect string

const (
	// EffectIssueInvoice must be completed before the transition is committed.
	EffectIssueInvoice  Effect = "issue_invoice"
	EffectNotifyParties Effect = "notify_parties"
)

// Outcome is the decision returned for a permitted transition.
type Outcome struct {
	From    domain.Status
	To      domain.Status
	Trigger Trigger
	Effects []Effect
}

// RequiresInvoice reports whether the caller must create and dispatch an invoice.
func (o Outcome) RequiresInvoice() bool {
	return o.Has(EffectIssueInvoice)
}

// Has reports whether effect is part of the outcome.
func (o Outcome) Has(effect Effect) bool {
	for _, e := range o.Effects {
		if e == effect {
			return true
		}
	}
	return false
}

// InvalidTransitionError carries the rejected transition for diagnostics.
type InvalidTransitionError struct {
	Current   domain.Status
	Attempted domain.Status
	Trigger   Trigger
}

func (e *InvalidTransitionError) Error() string {
	if e.Attempted == "" {
		return fmt.Sprintf("unknown trigger %q from %s", e.Trigger, e.Current)
	}
	return fmt.Sprintf("cannot move from %s to %s via %s", e.Current, e.Attempted, e.Trigger)
}

// Transition decides the next status for current under trigger. It performs
// no side effects; callers apply the outcome to their own record.
func Transition(current domain.Status, trigger Trigger) (Outcome, error) {
	target, ok := triggerTargets[trigger]
	if !ok || !CanTransition(current, target) {
		cause := &InvalidTransitionError{Current: current, Attempted: target, Trigger: trigger}
		return Outcome{}, apperrors.NewInvalidTransition(string(current), string(target), string(trigger), cause)
	}

	outcome := Outcome{From: current, To: target, Trigger: trigger}
	if current == domain.StatusCompleted && target == domain.StatusInvoiceSent {
		outcome.Effects = append(outcome.Effects, EffectIssueInvoice)
	}
	outcome.Effects = append(outcome.Effects, EffectNotifyParties)
	return outcome, nil
}
