package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civreg/internal/audit"
	"civreg/internal/event/integrity"
	"civreg/internal/event/models"
	eventservice "civreg/internal/event/service"
	"civreg/internal/platform/middleware"
	"civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/httputil"
	"civreg/pkg/requestcontext"
)

// Service defines the workflow operations the handler exposes.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Event, error)
	Get(ctx context.Context, eventID domain.EventID) (*models.Event, error)
	GetByRegistrationID(ctx context.Context, registrationID string) (*models.Event, error)
	ListMine(ctx context.Context) ([]*models.Event, error)
	ListByStatus(ctx context.Context, status models.EventStatus) ([]*models.Event, error)
	Update(ctx context.Context, eventID domain.EventID, data models.Data) (*models.Event, error)
	Submit(ctx context.Context, eventID domain.EventID) (*models.Event, error)
	Approve(ctx context.Context, eventID domain.EventID) (*models.Event, error)
	Reject(ctx context.Context, eventID domain.EventID, reason string) (*models.Event, error)
	Delete(ctx context.Context, eventID domain.EventID) error
	RequestCorrection(ctx context.Context, eventID domain.EventID, details string) (*models.Event, error)
	ResolveCorrection(ctx context.Context, eventID domain.EventID, correctionID domain.CorrectionID, approve bool, response string) (*models.Event, error)
	RequestCertificate(ctx context.Context, eventID domain.EventID, input CertificateInput) (*models.Event, error)
	ResolveCertificate(ctx context.Context, eventID domain.EventID, requestID domain.CertificateRequestID, approve bool, reason string) (*models.Event, error)
	NextFreeRegistrationID(ctx context.Context) (int64, error)
	CheckIDNumber(ctx context.Context, idNumber, name string) (*integrity.Advisory, error)
}

// RegisterInput and CertificateInput alias the service types so the concrete
// service satisfies the interface without an adapter.
type (
	RegisterInput    = eventservice.RegisterInput
	CertificateInput = eventservice.CertificateInput
)

type Handler struct {
	logger       *slog.Logger
	events       Service
	audit        *audit.Service
	jwtValidator middleware.JWTValidator
}

func New(events Service, auditReader *audit.Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		events:       events,
		audit:        auditReader,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the event workflow routes. Review and audit routes are
// manager-gated; everything else is authenticated and authorized in the
// service layer.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Post("/events", h.handleRegister)
	router.Get("/events/mine", h.handleListMine)
	router.Get("/events/{id}", h.handleGet)
	router.Put("/events/{id}", h.handleUpdate)
	router.Delete("/events/{id}", h.handleDelete)
	router.Post("/events/{id}/submit", h.handleSubmit)

	router.Post("/events/{id}/corrections", h.handleRequestCorrection)
	router.Post("/events/{id}/certificates", h.handleRequestCertificate)

	router.Group(func(mr chi.Router) {
		mr.Use(middleware.RequireRole(domain.RoleManager))
		mr.Get("/events/status/{status}", h.handleListByStatus)
		mr.Post("/events/{id}/approve", h.handleApprove)
		mr.Post("/events/{id}/reject", h.handleReject)
		mr.Post("/events/{id}/corrections/{correctionID}/approve", h.handleCorrectionDecision(true))
		mr.Post("/events/{id}/corrections/{correctionID}/reject", h.handleCorrectionDecision(false))
		mr.Post("/events/{id}/certificates/{requestID}/approve", h.handleCertificateDecision(true))
		mr.Post("/events/{id}/certificates/{requestID}/reject", h.handleCertificateDecision(false))
		mr.Get("/events/{id}/audit", h.handleAuditTrail)
	})

	router.Get("/registrations/next-free", h.handleNextFree)
	router.Get("/registrations/{registrationID}", h.handleGetByRegistrationID)
	router.Get("/id-numbers/check", h.handleCheckIDNumber)

	r.Mount("/", router)
}

type registerRequest struct {
	Type           string      `json:"type"`
	RegistrationID string      `json:"registrationId,omitempty"`
	Data           models.Data `json:"data"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	eventType, err := models.ParseEventType(req.Type)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	event, err := h.events.Register(ctx, RegisterInput{
		Type:           eventType,
		RegistrationID: req.RegistrationID,
		Data:           req.Data,
	})
	if err != nil {
		h.logWorkflowErr(ctx, "register", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	eventID, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	event, err := h.events.Get(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleGetByRegistrationID(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetByRegistrationID(r.Context(), chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListMine(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEventList(w, events)
}

func (h *Handler) handleListByStatus(w http.ResponseWriter, r *http.Request) {
	status := models.EventStatus(chi.URLParam(r, "status"))
	switch status {
	case models.StatusDraft, models.StatusPending, models.StatusApproved, models.StatusRejected:
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown status"))
		return
	}
	events, err := h.events.ListByStatus(r.Context(), status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEventList(w, events)
}

type updateRequest struct {
	Data models.Data `json:"data"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	event, err := h.events.Update(ctx, eventID, req.Data)
	if err != nil {
		h.logWorkflowErr(ctx, "update", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	event, err := h.events.Submit(ctx, eventID)
	if err != nil {
		h.logWorkflowErr(ctx, "submit", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	event, err := h.events.Approve(ctx, eventID)
	if err != nil {
		h.logWorkflowErr(ctx, "approve", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	event, err := h.events.Reject(ctx, eventID, req.Reason)
	if err != nil {
		h.logWorkflowErr(ctx, "reject", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.events.Delete(ctx, eventID); err != nil {
		h.logWorkflowErr(ctx, "delete", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type correctionRequest struct {
	Details  string `json:"details,omitempty"`
	Response string `json:"response,omitempty"`
}

func (h *Handler) handleRequestCorrection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req correctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	event, err := h.events.RequestCorrection(ctx, eventID, req.Details)
	if err != nil {
		h.logWorkflowErr(ctx, "request correction", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleCorrectionDecision(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		eventID, err := domain.ParseEventID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		correctionID, err := domain.ParseCorrectionID(chi.URLParam(r, "correctionID"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		var req correctionRequest
		if r.Body != nil {
			// A missing or empty body is fine for approvals.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		event, err := h.events.ResolveCorrection(ctx, eventID, correctionID, approve, req.Response)
		if err != nil {
			h.logWorkflowErr(ctx, "resolve correction", err)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, event)
	}
}

type certificateRequest struct {
	RequesterName     string `json:"requesterName"`
	RequesterIDNumber string `json:"requesterIdNumber"`
	RequesterRelation string `json:"requesterRelation,omitempty"`
	Reason            string `json:"reason,omitempty"`
}

func (h *Handler) handleRequestCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req certificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	event, err := h.events.RequestCertificate(ctx, eventID, CertificateInput{
		RequesterName:     req.RequesterName,
		RequesterIDNumber: req.RequesterIDNumber,
		RequesterRelation: req.RequesterRelation,
	})
	if err != nil {
		h.logWorkflowErr(ctx, "request certificate", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleCertificateDecision(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		eventID, err := domain.ParseEventID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		requestID, err := domain.ParseCertificateRequestID(chi.URLParam(r, "requestID"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		var req certificateRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		event, err := h.events.ResolveCertificate(ctx, eventID, requestID, approve, req.Reason)
		if err != nil {
			h.logWorkflowErr(ctx, "resolve certificate", err)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, event)
	}
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	eventID, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.audit.ListByEvent(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleNextFree(w http.ResponseWriter, r *http.Request) {
	next, err := h.events.NextFreeRegistrationID(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"nextFree": next})
}

func (h *Handler) handleCheckIDNumber(w http.ResponseWriter, r *http.Request) {
	advisory, err := h.events.CheckIDNumber(r.Context(),
		r.URL.Query().Get("idNumber"), r.URL.Query().Get("name"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, advisory)
}

func writeEventList(w http.ResponseWriter, events []*models.Event) {
	if events == nil {
		events = []*models.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

// logWorkflowErr logs unexpected failures at error level and expected domain
// rejections at debug, keeping noisy 4xx out of the error stream.
func (h *Handler) logWorkflowErr(ctx context.Context, operation string, err error) {
	code := dErrors.GetCode(err)
	if code == dErrors.CodeInternal || code == dErrors.CodeDownstream || code == dErrors.CodeUnavailable {
		h.logger.ErrorContext(ctx, "workflow operation failed",
			"operation", operation,
			"request_id", requestcontext.RequestID(ctx),
			"error", err)
		return
	}
	h.logger.DebugContext(ctx, "workflow operation rejected",
		"operation", operation,
		"code", string(code),
		"request_id", requestcontext.RequestID(ctx))
}
