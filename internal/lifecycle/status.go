// Package lifecycle defines the appointment status vocabulary, the transitions
// permitted between statuses, and the trigger that drives each transition.
//
// Every function in this package is pure and safe for concurrent use.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/spec-kit/appointment-service/internal/domain"
)

// successPath is the canonical order of statuses for an appointment that runs to completion.
var successPath = []domain.Status{
	domain.StatusPending,
	domain.StatusConfirmed,
	domain.StatusInProgress,
	domain.StatusCompleted,
	domain.StatusInvoiceSent,
	domain.StatusPaymentPending,
	domain.StatusPaid,
	domain.StatusReviewed,
	domain.StatusClosed,
}

var allStatuses = append(append([]domain.Status{}, successPath...),
	domain.StatusCancelledByClient,
	domain.StatusCancelledByProvider,
	domain.StatusNoShow,
	domain.StatusDisputed,
)

var terminal = map[domain.Status]bool{
	domain.StatusClosed:              true,
	domain.StatusCancelledByClient:   true,
	domain.StatusCancelledByProvider: true,
	domain.StatusNoShow:              true,
}

// Initial is the status every appointment is created with.
const Initial = domain.StatusPending

// Statuses returns every known status, success path first.
func Statuses() []domain.Status {
	return append([]domain.Status{}, allStatuses...)
}

// SuccessPath returns the ordered statuses from pending to closed.
func SuccessPath() []domain.Status {
	return append([]domain.Status{}, successPath...)
}

// Rank returns the position of status on the success path, or -1 when the
// status is not on it (cancelled variants, no_show, disputed).
func Rank(status domain.Status) int {
	for i, s := range successPath {
		if s == status {
			return i
		}
	}
	return -1
}

// Reached reports whether status is on the success path at or beyond milestone.
func Reached(status, milestone domain.Status) bool {
	r := Rank(status)
	return r >= 0 && r >= Rank(milestone)
}

// Valid reports whether status belongs to the vocabulary.
func Valid(status domain.Status) bool {
	for _, s := range allStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status has no outbound transitions.
func IsTerminal(status domain.Status) bool {
	return terminal[status]
}

// IsCancelled reports whether status is one of the cancelled variants.
func IsCancelled(status domain.Status) bool {
	return status == domain.StatusCancelledByClient || status == domain.StatusCancelledByProvider
}

// ParseStatus converts wire input into a Status.
func ParseStatus(raw string) (domain.Status, error) {
	status := domain.Status(strings.ToLower(strings.TrimSpace(raw)))
	if !Valid(status) {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return status, nil
}

// Presentation is the badge vocabulary rendered for a status.
type Presentation struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var presentations = map[domain.Status]Presentation{
	domain.StatusPending:             {Label: "Pending", Icon: "clock", Color: "amber"},
	domain.StatusConfirmed:           {Label: "Confirmed", Icon: "check-circle", Color: "blue"},
	domain.StatusInProgress:          {Label: "In progress", Icon: "play-circle", Color: "indigo"},
	domain.StatusCompleted:           {Label: "Completed", Icon: "check-double", Color: "green"},
	domain.StatusInvoiceSent:         {Label: "Invoice sent", Icon: "file-invoice", Color: "teal"},
	domain.StatusPaymentPending:      {Label: "Payment pending", Icon: "hourglass", Color: "orange"},
	domain.StatusPaid:                {Label: "Paid", Icon: "credit-card", Color: "green"},
	domain.StatusReviewed:            {Label: "Reviewed", Icon: "star", Color: "purple"},
	domain.StatusClosed:              {Label: "Closed", Icon: "archive", Color: "gray"},
	domain.StatusCancelledByClient:   {Label: "Cancelled by client", Icon: "x-circle", Color: "red"},
	domain.StatusCancelledByProvider: {Label: "Cancelled by provider", Icon: "x-circle", Color: "red"},
	domain.StatusNoShow:              {Label: "No-show", Icon: "user-x", Color: "red"},
	domain.StatusDisputed:            {Label: "Disputed", Icon: "alert-triangle", Color: "rose"},
}

// Describe returns the badge presentation for status. Unknown statuses render
// as a neutral badge carrying the raw value.
func Describe(status domain.Status) Presentation {
	if p, ok := presentations[status]; ok {
		return p
	}
	return Presentation{Label: string(status), Icon: "help-circle", Color: "gray"}
}
