package events

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewall/pulsewall/internal/domain"
	"github.com/pulsewall/pulsewall/internal/infrastructure/auth"
	"github.com/pulsewall/pulsewall/internal/infrastructure/json"
	"github.com/pulsewall/pulsewall/internal/presentation/utils"
)

// auditTrailLimit caps how many audit entries one request can page through.
const auditTrailLimit = 100

type Handler struct {
	eventRepository domain.EventRepository
	auditRepository domain.AuditRepository
	verifier        *auth.Verifier
}

func NewHandler(eventRepository domain.EventRepository, auditRepository domain.AuditRepository, verifier *auth.Verifier) *Handler {
	return &Handler{
		eventRepository: eventRepository,
		auditRepository: auditRepository,
		verifier:        verifier,
	}
}

// CreateEventHandler creates the parent entity polls and messages hang off.
// Organizer only.
func (h *Handler) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	identity := utils.IdentityFromRequest(r, h.verifier)
	if identity == nil {
		json.WriteError(w, http.StatusUnauthorized, errors.New("unauthorized"), "Missing or invalid authentication")
		return
	}
	if !identity.IsOrganizer() {
		json.WriteError(w, http.StatusForbidden, errors.New("forbidden"), "Only organizers can create events")
		return
	}

	newEvent, err := domain.NewEvent(req.Name, req.Description, req.Date, identity.UserID, req.RequiresApproval)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := h.eventRepository.Create(r.Context(), newEvent); err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusCreated, newEvent)
}

func (h *Handler) GetEventHandler(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		json.WriteValidationError(w, errors.New("event ID is missing"))
		return
	}

	event, err := h.eventRepository.GetByID(r.Context(), eventID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEventNotFound):
			json.WriteError(w, http.StatusNotFound, err, "Event not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	json.Write(w, http.StatusOK, event)
}

// GetAuditTrailHandler returns the event's most recent audit entries, newest
// first. Organizer only.
func (h *Handler) GetAuditTrailHandler(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		json.WriteValidationError(w, errors.New("event ID is missing"))
		return
	}

	identity := utils.IdentityFromRequest(r, h.verifier)
	if identity == nil {
		json.WriteError(w, http.StatusUnauthorized, errors.New("unauthorized"), "Missing or invalid authentication")
		return
	}
	if !identity.IsOrganizer() {
		json.WriteError(w, http.StatusForbidden, errors.New("forbidden"), "Only organizers can read the audit trail")
		return
	}

	if _, err := h.eventRepository.GetByID(r.Context(), eventID); err != nil {
		switch {
		case errors.Is(err, domain.ErrEventNotFound):
			json.WriteError(w, http.StatusNotFound, err, "Event not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	limit := auditTrailLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > auditTrailLimit {
			json.WriteValidationError(w, errors.New("limit must be between 1 and 100"))
			return
		}
		limit = parsed
	}

	logs, err := h.auditRepository.GetByEvent(r.Context(), eventID, limit)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}
	if logs == nil {
		logs = []domain.AuditLog{}
	}

	json.Write(w, http.StatusOK, logs)
}

func (h *Handler) ListEventsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventRepository.List(r.Context())
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, events)
}
