/*
handlers.go - HTTP API handlers for the equipment checkout portal

PURPOSE:
  Exposes the checkout engine and the session manager via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic. The engine itself knows nothing about HTTP.

ENDPOINTS:
  Session:
    POST   /api/session/register       Register a student
    POST   /api/session/login          Log in (becomes current user)
    POST   /api/session/logout         Clear current user
    GET    /api/session                Current user, password omitted

  Equipment:
    GET    /api/equipment              Catalog
    GET    /api/equipment/summary      Per-category totals
    POST   /api/equipment/{id}/issue   Issue an item

  Issues:
    GET    /api/issues                 Outstanding records with countdowns
    GET    /api/issues/history         Returned records, newest first
    POST   /api/issues/{id}/return     Return an item
    POST   /api/issues/refresh         Run the late fee accrual pass
    GET    /api/issues/countdown       Websocket countdown feed

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: No logged-in user, bad credentials
  - 404: Unknown equipment or issue id
  - 409: Cap exceeded, item unavailable, already returned, duplicate user
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - countdown.go: Websocket feed
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/sports-checkout/checkout"
	"github.com/warp/sports-checkout/equipment"
	"github.com/warp/sports-checkout/session"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter wipes every stored collection. Both stores implement it.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine   *checkout.Engine
	Sessions *session.Manager
	Store    Resetter
	Metrics  *Metrics
	Logger   *zap.Logger

	// TickInterval paces the countdown feed.
	TickInterval time.Duration

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. The engine's Users should be sessions so
// issuing requires a login.
func NewHandler(engine *checkout.Engine, sessions *session.Manager, store Resetter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Engine:       engine,
		Sessions:     sessions,
		Store:        store,
		Metrics:      NewMetrics(),
		Logger:       logger,
		TickInterval: time.Second,
	}
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var u session.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if err := h.Sessions.Register(r.Context(), u); err != nil {
		h.writeDomainError(w, "Registration failed", err)
		return
	}

	h.Logger.Info("user registered", zap.String("enrollment_number", u.EnrollmentNumber))
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	u, err := h.Sessions.Login(r.Context(), req.EnrollmentNumber, req.Password)
	if err != nil {
		h.writeDomainError(w, "Login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, SessionDTO{LoggedIn: true, User: ptr(toUserDTO(*u))})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Logout failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionDTO{})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	u, err := h.Sessions.CurrentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read session", err)
		return
	}
	if u == nil {
		writeJSON(w, http.StatusOK, SessionDTO{})
		return
	}
	writeJSON(w, http.StatusOK, SessionDTO{LoggedIn: true, User: ptr(toUserDTO(*u))})
}

// =============================================================================
// EQUIPMENT HANDLERS
// =============================================================================

// ListEquipment returns the catalog after a load pass, so a fresh database
// answers with the seeded catalog.
func (h *Handler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	snap, err := h.load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load catalog", err)
		return
	}

	items := snap.Catalog
	if s := r.URL.Query().Get("type"); s != "" {
		sport, err := equipment.ParseSport(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid type filter", err)
			return
		}
		filtered := []equipment.Item{}
		for _, it := range items {
			if it.Sport == sport {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	writeJSON(w, http.StatusOK, CatalogDTO{Items: items})
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := h.load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{Categories: equipment.Summarize(snap.Catalog)})
}

func (h *Handler) IssueEquipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := h.Engine.Issue(r.Context(), id)
	if err != nil {
		h.Metrics.ObserveRejection(err)
		h.writeDomainError(w, "Issue rejected", err)
		return
	}
	h.Metrics.ObserveIssue(res.Record)

	msg := fmt.Sprintf("%s issued, due back by %s", res.Record.EquipmentName, res.Record.DueAt)
	writeJSON(w, http.StatusCreated, IssueResponseDTO{
		Record:   res.Record,
		Advisory: res.Advisory,
		Message:  msg,
	})
}

// =============================================================================
// ISSUE HANDLERS
// =============================================================================

func (h *Handler) ListOutstanding(w http.ResponseWriter, r *http.Request) {
	snap, err := h.load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load issues", err)
		return
	}

	policy := h.Engine.Policy
	dtos := make([]OutstandingIssueDTO, len(snap.Outstanding))
	for i, rec := range snap.Outstanding {
		dtos[i] = OutstandingIssueDTO{
			IssueRecord: rec,
			Countdown:   policy.TimeRemaining(rec.DueAt.Time, snap.AsOf),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Engine.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) ReturnEquipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := h.Engine.Return(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Return rejected", err)
		return
	}
	h.Metrics.ObserveReturn(res.Record)

	msg := res.Record.EquipmentName + " returned"
	if res.FeeDue > 0 {
		msg = fmt.Sprintf("%s returned, late fee due: ₹%d", res.Record.EquipmentName, res.FeeDue)
	}
	writeJSON(w, http.StatusOK, ReturnResponseDTO{Record: res.Record, FeeDue: res.FeeDue, Message: msg})
}

func (h *Handler) RefreshFees(w http.ResponseWriter, r *http.Request) {
	n, err := h.Engine.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Accrual pass failed", err)
		return
	}
	h.Metrics.ObserveAccrual(n)
	writeJSON(w, http.StatusOK, RefreshResponseDTO{Updated: n})
}

// =============================================================================
// HELPERS
// =============================================================================

// load runs the engine's load pass and keeps the outstanding gauge current.
func (h *Handler) load(ctx context.Context) (*checkout.Snapshot, error) {
	snap, err := h.Engine.Load(ctx)
	if err != nil {
		return nil, err
	}
	h.Metrics.SetOutstanding(len(snap.Outstanding))
	return snap, nil
}

// writeDomainError maps engine and session errors onto status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
		writeError(w, status, message, err)
		return
	}

	resp := ErrorResponse{Error: err.Error(), Code: code}

	var limitErr *checkout.LimitExceededError
	var validErr *session.ValidationError
	switch {
	case errors.As(err, &limitErr):
		resp.Details = LimitDetailsDTO{
			Sport:   string(limitErr.Sport),
			SubKind: string(limitErr.SubKind),
			Held:    limitErr.Held,
			Cap:     limitErr.Cap,
		}
	case errors.As(err, &validErr):
		resp.Details = validErr.Fields
	}

	writeJSON(w, status, resp)
}

func statusFor(err error) (int, string) {
	var validErr *session.ValidationError
	switch {
	case errors.Is(err, checkout.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, checkout.ErrLimitExceeded):
		return http.StatusConflict, "limit_exceeded"
	case errors.Is(err, checkout.ErrAlreadyReturned):
		return http.StatusConflict, "already_returned"
	case errors.Is(err, checkout.ErrUnavailable):
		return http.StatusConflict, "unavailable"
	case errors.Is(err, session.ErrUserExists):
		return http.StatusConflict, "user_exists"
	case errors.Is(err, checkout.ErrNoSession):
		return http.StatusUnauthorized, "no_session"
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.As(err, &validErr):
		return http.StatusBadRequest, "validation"
	default:
		return http.StatusInternalServerError, ""
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func ptr[T any](v T) *T {
	return &v
}
