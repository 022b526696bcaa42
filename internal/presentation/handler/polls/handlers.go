package polls

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewall/pulsewall/internal/domain"
	"github.com/pulsewall/pulsewall/internal/infrastructure/auth"
	"github.com/pulsewall/pulsewall/internal/infrastructure/json"
	"github.com/pulsewall/pulsewall/internal/poll"
	"github.com/pulsewall/pulsewall/internal/presentation/utils"
)

// Engine is the slice of the poll service the handlers need.
type Engine interface {
	Create(ctx context.Context, eventID string, in poll.CreateInput, identity *auth.Identity) (*domain.Poll, error)
	Active(ctx context.Context, eventID string) (*domain.Poll, error)
	History(ctx context.Context, eventID string) ([]domain.Poll, error)
	Vote(ctx context.Context, pollID string, optionIndex int, voterID string) (*domain.Poll, error)
	End(ctx context.Context, pollID string, identity *auth.Identity) (*domain.Poll, error)
	Ballot(ctx context.Context, pollID, voterID string) (domain.Ballot, bool, error)
}

type Handler struct {
	engine          Engine
	verifier        *auth.Verifier
	defaultDuration time.Duration
}

func NewHandler(engine Engine, verifier *auth.Verifier, defaultDuration time.Duration) *Handler {
	return &Handler{
		engine:          engine,
		verifier:        verifier,
		defaultDuration: defaultDuration,
	}
}

// CreatePollHandler starts a poll for the event. Organizer only; at most one
// active poll per event.
func (h *Handler) CreatePollHandler(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if eventID == "" {
		json.WriteValidationError(w, errors.New("event ID is missing"))
		return
	}

	var req createPollRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	kind := req.Type
	if kind == "" {
		kind = domain.PollKindCustom
	}

	duration := time.Duration(req.Duration) * time.Second
	if req.Duration == 0 {
		duration = h.defaultDuration
	}

	identity := utils.IdentityFromRequest(r, h.verifier)

	created, err := h.engine.Create(r.Context(), eventID, poll.CreateInput{
		Question: req.Question,
		Kind:     kind,
		Options:  req.Options,
		Duration: duration,
	}, identity)
	if err != nil {
		writePollError(w, err)
		return
	}

	json.Write(w, http.StatusCreated, created)
}

// GetActivePollHandler returns the event's active poll, or a null activePoll
// when none is running.
func (h *Handler) GetActivePollHandler(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if eventID == "" {
		json.WriteValidationError(w, errors.New("event ID is missing"))
		return
	}

	activePoll, err := h.engine.Active(r.Context(), eventID)
	if err != nil {
		writePollError(w, err)
		return
	}

	json.Write(w, http.StatusOK, activePollResponse{ActivePoll: activePoll})
}

// GetPollHistoryHandler returns all polls for the event, newest first.
func (h *Handler) GetPollHistoryHandler(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if eventID == "" {
		json.WriteValidationError(w, errors.New("event ID is missing"))
		return
	}

	history, err := h.engine.History(r.Context(), eventID)
	if err != nil {
		writePollError(w, err)
		return
	}

	json.Write(w, http.StatusOK, history)
}

// VoteHandler records one ballot for the caller's identity.
func (h *Handler) VoteHandler(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "id")
	if pollID == "" {
		json.WriteValidationError(w, errors.New("poll ID is missing"))
		return
	}

	var req voteRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	voterID := utils.VoterKey(r, h.verifier)

	updated, err := h.engine.Vote(r.Context(), pollID, req.OptionIndex, voterID)
	if err != nil {
		writePollError(w, err)
		return
	}

	json.Write(w, http.StatusOK, updated)
}

// EndPollHandler terminates the poll early. Organizer only; ending an
// already-ended poll returns its current state.
func (h *Handler) EndPollHandler(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "id")
	if pollID == "" {
		json.WriteValidationError(w, errors.New("poll ID is missing"))
		return
	}

	identity := utils.IdentityFromRequest(r, h.verifier)

	ended, err := h.engine.End(r.Context(), pollID, identity)
	if err != nil {
		writePollError(w, err)
		return
	}

	json.Write(w, http.StatusOK, ended)
}

// GetUserVoteHandler reports whether the caller already voted in the poll.
func (h *Handler) GetUserVoteHandler(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "id")
	if pollID == "" {
		json.WriteValidationError(w, errors.New("poll ID is missing"))
		return
	}

	voterID := utils.VoterKey(r, h.verifier)

	ballot, hasVoted, err := h.engine.Ballot(r.Context(), pollID, voterID)
	if err != nil {
		writePollError(w, err)
		return
	}

	resp := userVoteResponse{HasVoted: hasVoted}
	if hasVoted {
		optionIndex := ballot.OptionIndex
		resp.OptionIndex = &optionIndex
	}

	json.Write(w, http.StatusOK, resp)
}

func writePollError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, poll.ErrValidation):
		json.WriteValidationError(w, err)
	case errors.Is(err, poll.ErrUnauthorized):
		json.WriteError(w, http.StatusUnauthorized, err, "Missing or invalid authentication")
	case errors.Is(err, poll.ErrForbidden):
		json.WriteError(w, http.StatusForbidden, err, "Only the organizer can do this")
	case errors.Is(err, domain.ErrPollNotFound):
		json.WriteError(w, http.StatusNotFound, err, "Poll not found")
	case errors.Is(err, domain.ErrEventNotFound):
		json.WriteError(w, http.StatusNotFound, err, "Event not found")
	case errors.Is(err, domain.ErrActivePollExists):
		json.WriteConflictError(w, err, "An active poll already exists for this event")
	case errors.Is(err, domain.ErrDuplicateVote):
		json.WriteConflictError(w, err, "You have already voted in this poll")
	case errors.Is(err, domain.ErrPollNotActive):
		json.WriteBadRequestError(w, "This poll has ended")
	case errors.Is(err, domain.ErrInvalidOption):
		json.WriteBadRequestError(w, "Invalid option index")
	default:
		json.WriteInternalError(w, err)
	}
}
