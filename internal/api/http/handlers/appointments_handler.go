package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/appointment-service/internal/actions"
	"github.com/spec-kit/appointment-service/internal/api/dto"
	"github.com/spec-kit/appointment-service/internal/auth"
	"github.com/spec-kit/appointment-service/internal/domain"
	"github.com/spec-kit/appointment-service/internal/lifecycle"
	"github.com/spec-kit/appointment-service/internal/service"
	"github.com/spec-kit/appointment-service/internal/timeline"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

// AppointmentService is the subset of service.AppointmentService used over HTTP.
type AppointmentService interface {
	Get(ctx context.Context, viewer domain.Viewer, id string) (*service.AppointmentView, error)
	List(ctx context.Context, viewer domain.Viewer, filter service.AppointmentListFilter) ([]service.AppointmentView, error)
	Actions(ctx context.Context, viewer domain.Viewer, id string) (actions.Set, error)
	Timeline(ctx context.Context, viewer domain.Viewer, id string) ([]timeline.Event, error)
	History(ctx context.Context, viewer domain.Viewer, id string, limit, offset int) ([]domain.AppointmentHistory, error)
	Transition(ctx context.Context, viewer domain.Viewer, id string, input service.TransitionInput) (*service.AppointmentView, error)
	SubmitReview(ctx context.Context, viewer domain.Viewer, id string, input service.ReviewInput) (*service.AppointmentView, error)
}

// AppointmentsHandler serves appointment lifecycle endpoints.
type AppointmentsHandler struct {
	service AppointmentService
}

// NewAppointmentsHandler constructs handler.
func NewAppointmentsHandler(appointmentService AppointmentService) *AppointmentsHandler {
	return &AppointmentsHandler{service: appointmentService}
}

// List GET /appointments.
func (h *AppointmentsHandler) List(c *fiber.Ctx) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return err
	}
	filter, err := parseAppointmentQuery(c)
	if err != nil {
		return err
	}
	views, err := h.service.List(c.UserContext(), viewer, filter)
	if err != nil {
		return err
	}
	items := make([]dto.AppointmentResponse, 0, len(views))
	for i := range views {
		items = append(items, appointmentResponse(&views[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /appointments/:id.
func (h *AppointmentsHandler) Get(c *fiber.Ctx) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return err
	}
	view, err := h.service.Get(c.UserContext(), viewer, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": appointmentResponse(view)})
}

// Actions GET /appointments/:id/actions.
func (h *AppointmentsHandler) Actions(c *fiber.Ctx) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return err
	}
	set, err := h.service.Actions(c.UserContext(), viewer, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": set})
}

// Timeline GET /appointments/:id/timeline.
func (h *AppointmentsHandler) Timeline(c *fiber.Ctx) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return err
	}
	evts, err := h.service.Timeline(c.UserContext(), viewer, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": evts})
}

// History GET /appointments/:id/history.
func (h *AppointmentsHandler) History(c *fiber.Ctx) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	entries, err := h.service.History(c.UserContext(), viewer, c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.HistoryEntryResponse{
			ID:          entry.ID,
			FromStatus:  entry.FromStatus,
			ToStatus:    entry.ToStatus,
			Trigger:     entry.Trigger,
			ChangedBy:   entry.ChangedByRole,
			ChangedByID: entry.ChangedByID,
			Comment:     entry.Comment,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Transition POST /appointments/:id/transitions.
func (h *AppointmentsHandler) Transition(c *fiber.Ctx) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Trigger) == "" {
		return apperrors.NewValidationError("trigger required", nil)
	}
	view, err := h.service.Transition(c.UserContext(), viewer, c.Params("id"), service.TransitionInput{
		Trigger: req.Trigger,
		Reason:  req.Reason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": appointmentResponse(view)})
}

// Review POST /appointments/:id/review.
func (h *AppointmentsHandler) Review(c *fiber.Ctx) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return err
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.SubmitReview(c.UserContext(), viewer, c.Params("id"), service.ReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": appointmentResponse(view)})
}

func viewerFrom(c *fiber.Ctx) (domain.Viewer, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return domain.Viewer{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Viewer(), nil
}

func parseAppointmentQuery(c *fiber.Ctx) (service.AppointmentListFilter, error) {
	filter := service.AppointmentListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status, err := lifecycle.ParseStatus(part)
			if err != nil {
				return filter, apperrors.NewValidationError("unknown status filter", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	filter.ScheduledFrom = parseTime(c.Query("scheduled_from"))
	filter.ScheduledTo = parseTime(c.Query("scheduled_to"))
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func appointmentResponse(view *service.AppointmentView) dto.AppointmentResponse {
	appt := view.Appointment
	resp := dto.AppointmentResponse{
		ID:                 appt.ID,
		ClientID:           appt.ClientID,
		ProviderID:         appt.ProviderID,
		ServiceName:        appt.ServiceName,
		PriceCents:         appt.PriceCents,
		Status:             appt.Status,
		Badge:              view.Badge,
		ScheduledAt:        appt.ScheduledAt,
		CreatedAt:          appt.CreatedAt,
		UpdatedAt:          appt.UpdatedAt,
		ConfirmedAt:        appt.ConfirmedAt,
		StartedAt:          appt.StartedAt,
		CompletedAt:        appt.CompletedAt,
		CancelledAt:        appt.CancelledAt,
		ReviewedAt:         appt.ReviewedAt,
		CancellationReason: appt.CancellationReason,
		ProviderRating:     appt.ProviderRating,
		QuoteID:            appt.QuoteID,
		Actions:            view.Actions,
		NextStatuses:       view.Next,
	}
	if resp.NextStatuses == nil {
		resp.NextStatuses = []domain.Status{}
	}
	if appt.Invoice != nil {
		resp.Invoice = &dto.InvoiceResponse{
			ID:            appt.Invoice.ID,
			PaymentStatus: appt.Invoice.PaymentStatus,
			AmountCents:   appt.Invoice.AmountCents,
			Currency:      appt.Invoice.Currency,
			IssuedAt:      appt.Invoice.IssuedAt,
			PaidAt:        appt.Invoice.PaidAt,
		}
	}
	return resp
}
