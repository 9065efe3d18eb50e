package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/appointment-service/internal/actions"
	"github.com/spec-kit/appointment-service/internal/cache"
	"github.com/spec-kit/appointment-service/internal/domain"
	"github.com/spec-kit/appointment-service/internal/events"
	"github.com/spec-kit/appointment-service/internal/lifecycle"
	"github.com/spec-kit/appointment-service/internal/observability"
	"github.com/spec-kit/appointment-service/internal/repository"
	"github.com/spec-kit/appointment-service/internal/timeline"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

// AppointmentService coordinates lifecycle workflows around the pure engine.
type AppointmentService struct {
	appointments repository.AppointmentRepository
	history      repository.AppointmentHistoryRepository
	invoices     InvoiceIssuer
	cache        cache.AppointmentCache
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
	gate         actions.Gate
	timeline     timeline.Reconstructor
	now          func() time.Time
}

// AppointmentDependencies bundles collaborators for the appointment service.
type AppointmentDependencies struct {
	AppointmentRepo repository.AppointmentRepository
	HistoryRepo     repository.AppointmentHistoryRepository
	Invoices        InvoiceIssuer
	Cache           cache.AppointmentCache
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	Gate            actions.Gate
	Timeline        timeline.Reconstructor
	// Now overrides the wall clock, mainly for tests.
	Now func() time.Time
}

// AppointmentView is an appointment decorated for display to one viewer.
type AppointmentView struct {
	Appointment domain.Appointment
	Badge       lifecycle.Presentation
	Actions     actions.Set
	Next        []domain.Status
}

// AppointmentListFilter describes listing filters accepted from callers.
type AppointmentListFilter struct {
	Statuses      []domain.Status
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	Limit         int
	Offset        int
}

// TransitionInput carries a trigger request.
type TransitionInput struct {
	Trigger string
	Reason  string
}

// ReviewInput carries a client's rating of the provider.
type ReviewInput struct {
	Rating  int
	Comment string
}

// triggerActors lists who may fire each trigger.
var triggerActors = map[lifecycle.Trigger][]domain.Role{
	lifecycle.TriggerProviderConfirms:       {domain.RoleProvider, domain.RoleStaff},
	lifecycle.TriggerClientCancels:          {domain.RoleClient},
	lifecycle.TriggerProviderCancels:        {domain.RoleProvider},
	lifecycle.TriggerClientNoShow:           {domain.RoleProvider, domain.RoleStaff},
	lifecycle.TriggerProviderStarts:         {domain.RoleProvider},
	lifecycle.TriggerProviderCompletes:      {domain.RoleProvider},
	lifecycle.TriggerInvoiceSent:            {domain.RoleProvider, domain.RoleStaff},
	lifecycle.TriggerClientInitiatesPayment: {domain.RoleClient},
	lifecycle.TriggerPaymentConfirmed:       {domain.RoleStaff},
	lifecycle.TriggerClientReviews:          {domain.RoleClient},
	lifecycle.TriggerFinalize:               {domain.RoleStaff},
	lifecycle.TriggerDisputeRaised:          {domain.RoleClient, domain.RoleProvider, domain.RoleStaff},
}

// gatedTriggers are triggers that must also pass the action gate.
var gatedTriggers = map[lifecycle.Trigger]actions.Action{
	lifecycle.TriggerClientCancels:          actions.Cancel,
	lifecycle.TriggerProviderCancels:        actions.Cancel,
	lifecycle.TriggerProviderCompletes:      actions.CompleteService,
	lifecycle.TriggerClientInitiatesPayment: actions.Pay,
}

// NewAppointmentService constructs the service.
func NewAppointmentService(deps AppointmentDependencies) *AppointmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	appointmentCache := deps.Cache
	if appointmentCache == nil {
		appointmentCache = cache.NewRedisAppointmentCache(nil, 0)
	}
	reconstructor := deps.Timeline
	if reconstructor.Policy.ConfirmationDelay <= 0 {
		reconstructor = timeline.NewReconstructor(timeline.DefaultPolicy)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AppointmentService{
		appointments: deps.AppointmentRepo,
		history:      deps.HistoryRepo,
		invoices:     deps.Invoices,
		cache:        appointmentCache,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       logger,
		gate:         deps.Gate,
		timeline:     reconstructor,
		now:          now,
	}
}

// Get returns the appointment with its badge and the viewer's available actions.
func (s *AppointmentService) Get(ctx context.Context, viewer domain.Viewer, id string) (*AppointmentView, error) {
	appt, err := s.loadForViewer(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return s.view(*appt, viewer), nil
}

// List returns appointments visible to the viewer. Clients and providers only
// see their own bookings.
func (s *AppointmentService) List(ctx context.Context, viewer domain.Viewer, filter AppointmentListFilter) ([]AppointmentView, error) {
	repoFilter := repository.AppointmentFilter{
		Statuses:      filter.Statuses,
		ScheduledFrom: filter.ScheduledFrom,
		ScheduledTo:   filter.ScheduledTo,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	}
	switch viewer.Role {
	case domain.RoleClient:
		repoFilter.ClientID = &viewer.ID
	case domain.RoleProvider:
		repoFilter.ProviderID = &viewer.ID
	case domain.RoleStaff:
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}
	appts, err := s.appointments.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	views := make([]AppointmentView, 0, len(appts))
	for _, appt := range appts {
		views = append(views, *s.view(appt, viewer))
	}
	return views, nil
}

// Actions returns the actions the viewer may currently take.
func (s *AppointmentService) Actions(ctx context.Context, viewer domain.Viewer, id string) (actions.Set, error) {
	appt, err := s.loadForViewer(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return s.gate.Available(*appt, viewer, s.now()), nil
}

// Timeline reconstructs the appointment's lifecycle events.
func (s *AppointmentService) Timeline(ctx context.Context, viewer domain.Viewer, id string) ([]timeline.Event, error) {
	appt, err := s.loadForViewer(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return s.timeline.Reconstruct(*appt, s.now())
}

// History returns the audit trail. Staff only.
func (s *AppointmentService) History(ctx context.Context, viewer domain.Viewer, id string, limit, offset int) ([]domain.AppointmentHistory, error) {
	if viewer.Role != domain.RoleStaff {
		return nil, apperrors.NewForbidden("history is restricted to staff")
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.AppointmentHistory{}, nil
	}
	return s.history.ListByAppointment(ctx, id, limit, offset)
}

// Transition fires a trigger on behalf of the viewer and commits the outcome.
func (s *AppointmentService) Transition(ctx context.Context, viewer domain.Viewer, id string, input TransitionInput) (*AppointmentView, error) {
	appt, err := s.loadForViewer(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	trigger := lifecycle.Trigger(strings.ToLower(strings.TrimSpace(input.Trigger)))
	outcome, err := lifecycle.Transition(appt.Status, trigger)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.authorizeTrigger(*appt, viewer, trigger, now); err != nil {
		return nil, err
	}

	updated, err := s.commit(ctx, viewer, *appt, outcome, strings.TrimSpace(input.Reason), now)
	if err != nil {
		return nil, err
	}
	return s.view(*updated, viewer), nil
}

// SubmitReview stores the client's rating. A paid appointment also moves to reviewed.
func (s *AppointmentService) SubmitReview(ctx context.Context, viewer domain.Viewer, id string, input ReviewInput) (*AppointmentView, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": input.Rating})
	}
	appt, err := s.loadForViewer(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.gate.Authorize(*appt, viewer, actions.Review, now); err != nil {
		return nil, err
	}

	reviewed := *appt
	rating := input.Rating
	reviewed.ProviderRating = &rating
	reviewed.ReviewedAt = &now

	var updated *domain.Appointment
	if appt.Status == domain.StatusPaid {
		outcome, err := lifecycle.Transition(appt.Status, lifecycle.TriggerClientReviews)
		if err != nil {
			return nil, err
		}
		updated, err = s.commit(ctx, viewer, reviewed, outcome, strings.TrimSpace(input.Comment), now)
		if err != nil {
			return nil, err
		}
	} else {
		if err := s.save(ctx, &reviewed, appt.Status); err != nil {
			return nil, err
		}
		updated = &reviewed
	}

	s.publishEvent(ctx, events.Event{
		Type:          events.EventReviewSubmitted,
		AppointmentID: updated.ID,
		Actor:         actorFor(viewer),
		Payload: events.ReviewSubmittedPayload{
			Rating:     rating,
			ProviderID: updated.ProviderID,
		},
	})
	return s.view(*updated, viewer), nil
}

func (s *AppointmentService) authorizeTrigger(appt domain.Appointment, viewer domain.Viewer, trigger lifecycle.Trigger, now time.Time) error {
	if !hasRole(triggerActors[trigger], viewer.Role) {
		return apperrors.NewActionNotPermitted(string(trigger), string(appt.Status), nil)
	}
	if action, ok := gatedTriggers[trigger]; ok {
		if err := s.gate.Authorize(appt, viewer, action, now); err != nil {
			return err
		}
	}
	if trigger == lifecycle.TriggerClientReviews && appt.ProviderRating == nil {
		return apperrors.NewValidationError("a rating must be submitted before reviewing", nil)
	}
	return nil
}

// commit applies outcome to appt, runs pre-commit effects and persists it
// guarded by the status the outcome was computed from.
func (s *AppointmentService) commit(ctx context.Context, viewer domain.Viewer, appt domain.Appointment, outcome lifecycle.Outcome, comment string, now time.Time) (*domain.Appointment, error) {
	updated := appt
	updated.Status = outcome.To
	stampLifecycle(&updated, outcome.To, now)
	if lifecycle.IsCancelled(outcome.To) && comment != "" {
		updated.CancellationReason = comment
	}

	if outcome.RequiresInvoice() {
		if s.invoices == nil {
			return nil, apperrors.NewInternalError(errors.New("invoice issuer not configured"))
		}
		invoice, err := s.invoices.Issue(ctx, updated, now)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		updated.Invoice = invoice
	}
	if outcome.To == domain.StatusPaid && s.invoices != nil && updated.Invoice != nil {
		if err := s.invoices.MarkPaid(ctx, updated.ID, now); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		invoice := *updated.Invoice
		invoice.PaymentStatus = domain.PaymentStatusPaid
		invoice.PaidAt = &now
		updated.Invoice = &invoice
	}

	if err := s.save(ctx, &updated, outcome.From); err != nil {
		return nil, err
	}

	if err := s.recordStatusChange(ctx, viewer, updated.ID, outcome, comment); err != nil {
		s.logger.Error("record appointment history", zap.String("appointment_id", updated.ID), zap.Error(err))
	}
	s.metrics.RecordTransition(string(outcome.From), string(outcome.To), string(outcome.Trigger))
	s.logger.Info("appointment transition committed",
		zap.String("appointment_id", updated.ID),
		zap.String("from", string(outcome.From)),
		zap.String("to", string(outcome.To)),
		zap.String("trigger", string(outcome.Trigger)),
		zap.String("actor_role", string(viewer.Role)))

	effects := make([]string, 0, len(outcome.Effects))
	for _, effect := range outcome.Effects {
		effects = append(effects, string(effect))
	}
	s.publishEvent(ctx, events.Event{
		Type:          events.EventAppointmentStatusChanged,
		AppointmentID: updated.ID,
		Actor:         actorFor(viewer),
		Payload: events.StatusChangedPayload{
			OldStatus: outcome.From,
			NewStatus: outcome.To,
			Trigger:   string(outcome.Trigger),
			Effects:   effects,
			Comment:   comment,
		},
	})
	if outcome.RequiresInvoice() && updated.Invoice != nil {
		s.publishEvent(ctx, events.Event{
			Type:          events.EventInvoiceRequired,
			AppointmentID: updated.ID,
			Actor:         actorFor(viewer),
			Payload: events.InvoiceRequiredPayload{
				InvoiceID:   updated.Invoice.ID,
				AmountCents: updated.Invoice.AmountCents,
				Currency:    updated.Invoice.Currency,
				ClientID:    updated.ClientID,
				ProviderID:  updated.ProviderID,
			},
		})
	}
	return &updated, nil
}

func (s *AppointmentService) save(ctx context.Context, appt *domain.Appointment, expected domain.Status) error {
	if err := s.appointments.UpdateLifecycle(ctx, appt, expected); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return apperrors.NewConflict("appointment status changed concurrently", map[string]any{
				"expected": expected,
			})
		}
		return apperrors.MapError(err)
	}
	if err := s.cache.Invalidate(ctx, appt.ID); err != nil {
		s.logger.Warn("invalidate appointment cache", zap.String("appointment_id", appt.ID), zap.Error(err))
	}
	return nil
}

func (s *AppointmentService) loadForViewer(ctx context.Context, viewer domain.Viewer, id string) (*domain.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(viewer, appt) {
		return nil, apperrors.NewForbidden("appointment not accessible")
	}
	return appt, nil
}

func (s *AppointmentService) load(ctx context.Context, id string) (*domain.Appointment, error) {
	if cached, ok, err := s.cache.Get(ctx, id); err != nil {
		s.logger.Warn("read appointment cache", zap.String("appointment_id", id), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsCode(apperrors.MapError(err), apperrors.CodeNotFound) {
			return nil, apperrors.NewNotFound("appointment", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.cache.Set(ctx, appt); err != nil {
		s.logger.Warn("write appointment cache", zap.String("appointment_id", id), zap.Error(err))
	}
	return appt, nil
}

func (s *AppointmentService) view(appt domain.Appointment, viewer domain.Viewer) *AppointmentView {
	return &AppointmentView{
		Appointment: appt,
		Badge:       lifecycle.Describe(appt.Status),
		Actions:     s.gate.Available(appt, viewer, s.now()),
		Next:        lifecycle.Next(appt.Status),
	}
}

func (s *AppointmentService) recordStatusChange(ctx context.Context, viewer domain.Viewer, appointmentID string, outcome lifecycle.Outcome, comment string) error {
	if s.history == nil {
		return nil
	}
	entry := &domain.AppointmentHistory{
		AppointmentID: appointmentID,
		ChangedByRole: viewer.Role,
		FromStatus:    outcome.From,
		ToStatus:      outcome.To,
		Trigger:       string(outcome.Trigger),
		Comment:       comment,
	}
	if viewer.ID != "" {
		id := viewer.ID
		entry.ChangedByID = &id
	}
	return s.history.Create(ctx, entry)
}

func (s *AppointmentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("appointment_id", event.AppointmentID),
			zap.Error(err))
	}
}

// stampLifecycle records when the appointment entered status, keeping any
// timestamp already present.
func stampLifecycle(appt *domain.Appointment, status domain.Status, now time.Time) {
	set := func(field **time.Time) {
		if *field == nil {
			ts := now
			*field = &ts
		}
	}
	switch status {
	case domain.StatusConfirmed:
		set(&appt.ConfirmedAt)
	case domain.StatusInProgress:
		set(&appt.StartedAt)
	case domain.StatusCompleted:
		set(&appt.CompletedAt)
	case domain.StatusCancelledByClient, domain.StatusCancelledByProvider, domain.StatusNoShow:
		set(&appt.CancelledAt)
	case domain.StatusReviewed:
		set(&appt.ReviewedAt)
	}
}

func canAccess(viewer domain.Viewer, appt *domain.Appointment) bool {
	switch viewer.Role {
	case domain.RoleStaff:
		return true
	case domain.RoleClient:
		return viewer.ID != "" && viewer.ID == appt.ClientID
	case domain.RoleProvider:
		return viewer.ID != "" && viewer.ID == appt.ProviderID
	default:
		return false
	}
}

func hasRole(roles []domain.Role, role domain.Role) bool {
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}

func actorFor(viewer domain.Viewer) events.Actor {
	return events.Actor{Role: viewer.Role, ID: viewer.ID}
}
