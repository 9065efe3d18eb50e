package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/appointment-service/internal/domain"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

type edge struct {
	from    domain.Status
	trigger Trigger
	to      domain.Status
}

var validEdges = []edge{
	{domain.StatusPending, TriggerProviderConfirms, domain.StatusConfirmed},
	{domain.StatusPending, TriggerClientCancels, domain.StatusCancelledByClient},
	{domain.StatusPending, TriggerProviderCancels, domain.StatusCancelledByProvider},
	{domain.StatusPending, TriggerClientNoShow, domain.StatusNoShow},
	{domain.StatusConfirmed, TriggerProviderStarts, domain.StatusInProgress},
	{domain.StatusConfirmed, TriggerClientCancels, domain.StatusCancelledByClient},
	{domain.StatusConfirmed, TriggerProviderCancels, domain.StatusCancelledByProvider},
	{domain.StatusInProgress, TriggerProviderCompletes, domain.StatusCompleted},
	{domain.StatusCompleted, TriggerInvoiceSent, domain.StatusInvoiceSent},
	{domain.StatusInvoiceSent, TriggerClientInitiatesPayment, domain.StatusPaymentPending},
	{domain.StatusPaymentPending, TriggerPaymentConfirmed, domain.StatusPaid},
	{domain.StatusPaid, TriggerClientReviews, domain.StatusReviewed},
	{domain.StatusReviewed, TriggerFinalize, domain.StatusClosed},
}

func init() {
	for _, status := range Statuses() {
		if !IsTerminal(status) && status != domain.StatusDisputed {
			validEdges = append(validEdges, edge{status, TriggerDisputeRaised, domain.StatusDisputed})
		}
	}
}

func isValidEdge(from domain.Status, trigger Trigger) bool {
	for _, e := range validEdges {
		if e.from == from && e.trigger == trigger {
			return true
		}
	}
	return false
}

func TestTransition_ValidEdges(t *testing.T) {
	for _, e := range validEdges {
		t.Run(string(e.from)+"/"+string(e.trigger), func(t *testing.T) {
			outcome, err := Transition(e.from, e.trigger)
			require.NoError(t, err)
			assert.Equal(t, e.from, outcome.From)
			assert.Equal(t, e.to, outcome.To)
			assert.Equal(t, e.trigger, outcome.Trigger)
			assert.True(t, outcome.Has(EffectNotifyParties))
		})
	}
}

func TestTransition_EveryOtherPairIsRejected(t *testing.T) {
	for _, status := range Statuses() {
		for _, trigger := range Triggers() {
			if isValidEdge(status, trigger) {
				continue
			}
			_, err := Transition(status, trigger)
			require.Error(t, err, "%s via %s", status, trigger)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

			var invalid *InvalidTransitionError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, status, invalid.Current)
			assert.Equal(t, trigger, invalid.Trigger)
		}
	}
}

func TestTransition_CompletedCannotBeConfirmed(t *testing.T) {
	_, err := Transition(domain.StatusCompleted, TriggerProviderConfirms)

	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, domain.StatusCompleted, invalid.Current)
	assert.Equal(t, domain.StatusConfirmed, invalid.Attempted)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "completed", domainErr.Details["current"])
	assert.Equal(t, "confirmed", domainErr.Details["attempted"])
	assert.Equal(t, 409, domainErr.HTTPStatus)
}

func TestTransition_UnknownTrigger(t *testing.T) {
	_, err := Transition(domain.StatusPending, Trigger("teleport"))

	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Empty(t, invalid.Attempted)
}

func TestTransition_InvoiceEffect(t *testing.T) {
	outcome, err := Transition(domain.StatusCompleted, TriggerInvoiceSent)
	require.NoError(t, err)
	assert.True(t, outcome.RequiresInvoice())
	assert.Equal(t, []Effect{EffectIssueInvoice, EffectNotifyParties}, outcome.Effects)

	outcome, err = Transition(domain.StatusInvoiceSent, TriggerClientInitiatesPayment)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentPending, outcome.To)
	assert.False(t, outcome.RequiresInvoice())
}

func TestConfirmedNoShowIsNotModeled(t *testing.T) {
	assert.False(t, CanTransition(domain.StatusConfirmed, domain.StatusNoShow))
	_, err := Transition(domain.StatusConfirmed, TriggerClientNoShow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, status := range []domain.Status{
		domain.StatusClosed,
		domain.StatusCancelledByClient,
		domain.StatusCancelledByProvider,
		domain.StatusNoShow,
	} {
		assert.True(t, IsTerminal(status))
		assert.Empty(t, Next(status), string(status))
	}
	assert.False(t, IsTerminal(domain.StatusDisputed))
	assert.Empty(t, Next(domain.StatusDisputed))
}

func TestNext(t *testing.T) {
	assert.Equal(t, []domain.Status{
		domain.StatusConfirmed,
		domain.StatusCancelledByClient,
		domain.StatusCancelledByProvider,
		domain.StatusNoShow,
		domain.StatusDisputed,
	}, Next(domain.StatusPending))
	assert.Equal(t, []domain.Status{domain.StatusClosed, domain.StatusDisputed}, Next(domain.StatusReviewed))
}

func TestParse(t *testing.T) {
	status, err := ParseStatus(" In_Progress ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, status)

	_, err = ParseStatus("archived")
	assert.Error(t, err)

	trigger, err := ParseTrigger("PAYMENT_CONFIRMED")
	require.NoError(t, err)
	assert.Equal(t, TriggerPaymentConfirmed, trigger)

	_, err = ParseTrigger("")
	assert.Error(t, err)
}

func TestRankAndReached(t *testing.T) {
	assert.Equal(t, 0, Rank(domain.StatusPending))
	assert.Equal(t, 8, Rank(domain.StatusClosed))
	assert.Equal(t, -1, Rank(domain.StatusNoShow))

	assert.True(t, Reached(domain.StatusPaid, domain.StatusCompleted))
	assert.False(t, Reached(domain.StatusInProgress, domain.StatusCompleted))
	assert.False(t, Reached(domain.StatusDisputed, domain.StatusPending))
}

func TestDescribe(t *testing.T) {
	for _, status := range Statuses() {
		p := Describe(status)
		assert.NotEmpty(t, p.Label, string(status))
		assert.NotEqual(t, "help-circle", p.Icon, string(status))
	}
	assert.Equal(t, Presentation{Label: "mystery", Icon: "help-circle", Color: "gray"}, Describe("mystery"))
}
