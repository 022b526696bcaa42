package messages

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewall/pulsewall/internal/domain"
	"github.com/pulsewall/pulsewall/internal/infrastructure/auth"
	"github.com/pulsewall/pulsewall/internal/infrastructure/events"
	"github.com/pulsewall/pulsewall/internal/infrastructure/json"
	"github.com/pulsewall/pulsewall/internal/infrastructure/profanity"
	"github.com/pulsewall/pulsewall/internal/infrastructure/ws"
	"github.com/pulsewall/pulsewall/internal/presentation/utils"
)

type Handler struct {
	messageRepository domain.MessageRepository
	eventRepository   domain.EventRepository
	core              *ws.Core
	filter            *profanity.Filter
	messagePublisher  *events.MessagePublisher
	verifier          *auth.Verifier
}

func NewHandler(
	messageRepository domain.MessageRepository,
	eventRepository domain.EventRepository,
	core *ws.Core,
	filter *profanity.Filter,
	messagePublisher *events.MessagePublisher,
	verifier *auth.Verifier,
) *Handler {
	return &Handler{
		messageRepository: messageRepository,
		eventRepository:   eventRepository,
		core:              core,
		filter:            filter,
		messagePublisher:  messagePublisher,
		verifier:          verifier,
	}
}

// CreateMessageHandler posts a message to the event wall. Identity is
// optional; anonymous authors show up under the default display name.
func (h *Handler) CreateMessageHandler(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		json.WriteValidationError(w, errors.New("event ID is missing"))
		return
	}

	var req createMessageRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if h.filter.Contains(req.Content) {
		json.WriteBadRequestError(w, "Message contains inappropriate language")
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

	authorID := ""
	if identity := utils.IdentityFromRequest(r, h.verifier); identity != nil {
		authorID = identity.UserID
	}

	message, err := domain.NewMessage(eventID, req.Content, authorID, req.Name, req.ReplyTo, !event.RequiresApproval)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := h.messageRepository.Create(r.Context(), message); err != nil {
		json.WriteInternalError(w, err)
		return
	}

	// Unapproved messages wait for the organizer; only approved ones fan out.
	if message.Approved {
		h.core.Publish(ws.NewMessagePosted(message))
	}

	if h.messagePublisher != nil {
		if err := h.messagePublisher.MessagePosted(r.Context(), message); err != nil {
			log.Printf("Error publishing message posted: %v", err)
		}
	}

	json.Write(w, http.StatusCreated, message)
}

func (h *Handler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		json.WriteValidationError(w, errors.New("event ID is missing"))
		return
	}

	wallMessages, err := h.messageRepository.GetByEvent(r.Context(), eventID)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, wallMessages)
}

// DeleteMessageHandler removes a message from the wall. Organizer only.
func (h *Handler) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageId")
	if messageID == "" {
		json.WriteValidationError(w, errors.New("message ID is missing"))
		return
	}

	identity := utils.IdentityFromRequest(r, h.verifier)
	if identity == nil {
		json.WriteError(w, http.StatusUnauthorized, errors.New("unauthorized"), "Missing or invalid authentication")
		return
	}
	if !identity.IsOrganizer() {
		json.WriteError(w, http.StatusForbidden, errors.New("forbidden"), "Only organizers can delete messages")
		return
	}

	message, err := h.messageRepository.GetByID(r.Context(), messageID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMessageNotFound):
			json.WriteError(w, http.StatusNotFound, err, "Message not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	if err := h.messageRepository.Delete(r.Context(), messageID); err != nil {
		json.WriteInternalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)

	h.core.Publish(ws.NewMessageRemoved(message.EventID, message.ID))
}

// ReactHandler records a thumbs-up or thumbs-down. One reaction per identity
// per message, enforced by the store in a single atomic update.
func (h *Handler) ReactHandler(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageId")
	if messageID == "" {
		json.WriteValidationError(w, errors.New("message ID is missing"))
		return
	}

	var req reactRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if !domain.ValidReaction(req.Reaction) {
		json.WriteBadRequestError(w, "Reaction must be thumbsUp or thumbsDown")
		return
	}

	userID := utils.VoterKey(r, h.verifier)

	updated, err := h.messageRepository.React(r.Context(), messageID, req.Reaction, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMessageNotFound):
			json.WriteError(w, http.StatusNotFound, err, "Message not found")
		case errors.Is(err, domain.ErrDuplicateReaction):
			json.WriteConflictError(w, err, "You have already reacted to this message")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	json.Write(w, http.StatusOK, updated)

	h.core.Publish(ws.NewMessageReacted(updated))
}
