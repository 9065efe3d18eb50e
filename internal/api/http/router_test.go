package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/appointment-service/internal/actions"
	"github.com/spec-kit/appointment-service/internal/api/http/handlers"
	"github.com/spec-kit/appointment-service/internal/auth"
	"github.com/spec-kit/appointment-service/internal/domain"
	"github.com/spec-kit/appointment-service/internal/lifecycle"
	"github.com/spec-kit/appointment-service/internal/observability"
	"github.com/spec-kit/appointment-service/internal/service"
	"github.com/spec-kit/appointment-service/internal/timeline"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

type stubAppointments struct {
	transitionErr error
	lastInput     service.TransitionInput
}

func (s *stubAppointments) view(viewer domain.Viewer, status domain.Status) *service.AppointmentView {
	appt := domain.Appointment{ID: "appt-1", ClientID: "client-1", ProviderID: "provider-1", Status: status}
	return &service.AppointmentView{
		Appointment: appt,
		Badge:       lifecycle.Describe(status),
		Actions:     actions.NewSet(actions.Cancel, actions.Print),
		Next:        lifecycle.Next(status),
	}
}

func (s *stubAppointments) Get(_ context.Context, viewer domain.Viewer, id string) (*service.AppointmentView, error) {
	if id != "appt-1" {
		return nil, apperrors.NewNotFound("appointment", map[string]any{"id": id})
	}
	return s.view(viewer, domain.StatusPending), nil
}

func (s *stubAppointments) List(_ context.Context, viewer domain.Viewer, _ service.AppointmentListFilter) ([]service.AppointmentView, error) {
	return []service.AppointmentView{*s.view(viewer, domain.StatusPending)}, nil
}

func (s *stubAppointments) Actions(context.Context, domain.Viewer, string) (actions.Set, error) {
	return actions.NewSet(actions.Print, actions.Cancel), nil
}

func (s *stubAppointments) Timeline(context.Context, domain.Viewer, string) ([]timeline.Event, error) {
	return []timeline.Event{{Ordinal: 1, Kind: timeline.KindCreated, Status: domain.StatusPending}}, nil
}

func (s *stubAppointments) History(context.Context, domain.Viewer, string, int, int) ([]domain.AppointmentHistory, error) {
	return []domain.AppointmentHistory{{ID: "h1", FromStatus: domain.StatusPending, ToStatus: domain.StatusConfirmed}}, nil
}

func (s *stubAppointments) Transition(_ context.Context, viewer domain.Viewer, _ string, input service.TransitionInput) (*service.AppointmentView, error) {
	s.lastInput = input
	if s.transitionErr != nil {
		return nil, s.transitionErr
	}
	return s.view(viewer, domain.StatusConfirmed), nil
}

func (s *stubAppointments) SubmitReview(_ context.Context, viewer domain.Viewer, _ string, _ service.ReviewInput) (*service.AppointmentView, error) {
	return s.view(viewer, domain.StatusCompleted), nil
}

type stubAuthenticator struct{}

func (stubAuthenticator) Login(_ context.Context, email, password string) (*service.LoginResult, error) {
	if password != "right" {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return &service.LoginResult{
		Account:   &domain.Account{ID: "client-1", Email: email, Role: domain.RoleClient},
		Token:     "token",
		ExpiresAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// headerAuth authenticates requests from X-Test-Role and X-Test-ID headers.
func headerAuth(c *fiber.Ctx) error {
	role := c.Get("X-Test-Role")
	if role == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}
	auth.WithPrincipal(c, &auth.Principal{Account: &domain.Account{ID: c.Get("X-Test-ID"), Role: domain.Role(role)}})
	return c.Next()
}

func newTestApp(appointments *stubAppointments, redisErr error) *fiber.App {
	logger := zap.NewNop()
	metrics := observability.NewMetrics("router_test")
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("appointment-service", "test",
			handlers.DependencyCheck{Name: "postgres", Pinger: stubPinger{}},
			handlers.DependencyCheck{Name: "redis", Pinger: stubPinger{err: redisErr}},
		),
		Auth:           handlers.NewAuthHandler(stubAuthenticator{}),
		Appointments:   handlers.NewAppointmentsHandler(appointments),
		AuthMiddleware: headerAuth,
		Metrics:        metrics,
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, role, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
		req.Header.Set("X-Test-ID", role+"-1")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decoded := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestGetAppointment(t *testing.T) {
	app := newTestApp(&stubAppointments{}, nil)

	status, body := do(t, app, fiber.MethodGet, "/appointments/appt-1", "client", "")
	require.Equal(t, fiber.StatusOK, status)

	data := body["data"].(map[string]any)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, []any{"cancel", "print"}, data["actions"])
	badge := data["badge"].(map[string]any)
	assert.Equal(t, "Pending", badge["label"])
}

func TestGetAppointment_NotFound(t *testing.T) {
	app := newTestApp(&stubAppointments{}, nil)

	status, body := do(t, app, fiber.MethodGet, "/appointments/missing", "client", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(body))
}

func TestRequiresAuthentication(t *testing.T) {
	app := newTestApp(&stubAppointments{}, nil)

	status, body := do(t, app, fiber.MethodGet, "/appointments/appt-1", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(body))
}

func TestTransition_PassesTriggerAndReason(t *testing.T) {
	stub := &stubAppointments{}
	app := newTestApp(stub, nil)

	status, body := do(t, app, fiber.MethodPost, "/appointments/appt-1/transitions", "provider",
		`{"trigger":"provider_confirms","reason":"see you then"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "confirmed", body["data"].(map[string]any)["status"])
	assert.Equal(t, "provider_confirms", stub.lastInput.Trigger)
	assert.Equal(t, "see you then", stub.lastInput.Reason)
}

func TestTransition_InvalidTransitionIsConflict(t *testing.T) {
	stub := &stubAppointments{transitionErr: apperrors.NewInvalidTransition("completed", "confirmed", "provider_confirms", nil)}
	app := newTestApp(stub, nil)

	status, body := do(t, app, fiber.MethodPost, "/appointments/appt-1/transitions", "provider", `{"trigger":"provider_confirms"}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, apperrors.CodeInvalidTransition, errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "completed", details["current"])
	assert.Equal(t, "confirmed", details["attempted"])
}

func TestTransition_WindowClosedIsUnprocessable(t *testing.T) {
	stub := &stubAppointments{transitionErr: apperrors.NewCancellationWindowClosed(map[string]any{"window_hours": 24}, nil)}
	app := newTestApp(stub, nil)

	status, body := do(t, app, fiber.MethodPost, "/appointments/appt-1/transitions", "client", `{"trigger":"client_cancels"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, apperrors.CodeCancellationWindowClosed, errorCode(body))
}

func TestTransition_MissingTrigger(t *testing.T) {
	app := newTestApp(&stubAppointments{}, nil)

	status, body := do(t, app, fiber.MethodPost, "/appointments/appt-1/transitions", "provider", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidationFailed, errorCode(body))
}

func TestTransition_UnexpectedErrorIsInternal(t *testing.T) {
	stub := &stubAppointments{transitionErr: errors.New("boom")}
	app := newTestApp(stub, nil)

	status, body := do(t, app, fiber.MethodPost, "/appointments/appt-1/transitions", "provider", `{"trigger":"provider_starts"}`)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodeInternal, errorCode(body))
}

func TestHistory_StaffOnlyRoute(t *testing.T) {
	app := newTestApp(&stubAppointments{}, nil)

	status, body := do(t, app, fiber.MethodGet, "/appointments/appt-1/history", "client", "")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeForbidden, errorCode(body))

	status, body = do(t, app, fiber.MethodGet, "/appointments/appt-1/history", "staff", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)
}

func TestTimelineAndActions(t *testing.T) {
	app := newTestApp(&stubAppointments{}, nil)

	status, body := do(t, app, fiber.MethodGet, "/appointments/appt-1/timeline", "client", "")
	require.Equal(t, fiber.StatusOK, status)
	events := body["data"].([]any)
	require.Len(t, events, 1)
	assert.Equal(t, "created", events[0].(map[string]any)["kind"])

	status, body = do(t, app, fiber.MethodGet, "/appointments/appt-1/actions", "client", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{"cancel", "print"}, body["data"])
}

func TestListRejectsUnknownStatus(t *testing.T) {
	app := newTestApp(&stubAppointments{}, nil)

	status, _ := do(t, app, fiber.MethodGet, "/appointments?status=pending,confirmed", "client", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, body := do(t, app, fiber.MethodGet, "/appointments?status=teleported", "client", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidationFailed, errorCode(body))
}

func TestLogin(t *testing.T) {
	app := newTestApp(&stubAppointments{}, nil)

	status, body := do(t, app, fiber.MethodPost, "/auth/login", "", `{"email":"a@example.com","password":"right"}`)
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "token", data["token"])
	assert.Equal(t, "client", data["role"])

	status, body = do(t, app, fiber.MethodPost, "/auth/login", "", `{"email":"a@example.com","password":"wrong"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(body))
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(&stubAppointments{}, errors.New("redis down"))

	status, body := do(t, app, fiber.MethodGet, "/health/live", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = do(t, app, fiber.MethodGet, "/health/ready", "", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(body))

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "router_test_http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(&stubAppointments{}, nil)

	status, body := do(t, app, fiber.MethodGet, "/nowhere", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(body))
}
