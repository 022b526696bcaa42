// Package poll owns the poll state machine: creation, vote application,
// scheduled expiry, manual termination and the delayed removal broadcast.
//
// Timers are process-local. If the process restarts while a poll is active
// its expiry timer is lost; RecoverPending re-arms timers for polls that are
// still active in the store, which closes the gap on clean restarts.
package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pulsewall/pulsewall/internal/domain"
	"github.com/pulsewall/pulsewall/internal/infrastructure/auth"
	"github.com/pulsewall/pulsewall/internal/infrastructure/logging"
	"github.com/pulsewall/pulsewall/internal/infrastructure/metrics"
	"github.com/pulsewall/pulsewall/internal/infrastructure/ws"
)

var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("organizer role required")
	ErrValidation   = errors.New("invalid poll")
)

const storeTimeout = 10 * time.Second

// Publisher fans a message out to the poll's event room.
type Publisher interface {
	Publish(msg *ws.WSMessage)
}

// Sink receives lifecycle events for out-of-process consumers (audit trail).
// Implementations must not block for long; failures are logged, not surfaced.
type Sink interface {
	PollCreated(ctx context.Context, poll *domain.Poll) error
	PollEnded(ctx context.Context, poll *domain.Poll) error
	VoteCast(ctx context.Context, poll *domain.Poll, optionIndex int) error
}

type CreateInput struct {
	Question string
	Kind     string
	Options  []string
	Duration time.Duration
}

type Service struct {
	polls  domain.PollRepository
	events domain.EventRepository
	pub    Publisher
	sink   Sink
	logger logging.Logger

	removalDelay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func NewService(
	polls domain.PollRepository,
	events domain.EventRepository,
	pub Publisher,
	sink Sink,
	logger logging.Logger,
	removalDelay time.Duration,
) *Service {
	return &Service{
		polls:        polls,
		events:       events,
		pub:          pub,
		sink:         sink,
		logger:       logger,
		removalDelay: removalDelay,
		timers:       make(map[string]*time.Timer),
	}
}

// Create starts a new poll for the event. At most one poll per event may be
// active; a second create is rejected with domain.ErrActivePollExists.
func (s *Service) Create(ctx context.Context, eventID string, in CreateInput, identity *auth.Identity) (*domain.Poll, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}
	if !identity.IsOrganizer() {
		return nil, ErrForbidden
	}

	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	if _, err := s.polls.GetActiveByEvent(ctx, eventID); err == nil {
		return nil, domain.ErrActivePollExists
	} else if !errors.Is(err, domain.ErrPollNotFound) {
		return nil, err
	}

	newPoll, err := domain.NewPoll(eventID, identity.UserID, in.Question, in.Kind, in.Options, in.Duration)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	// The partial unique index on active polls backstops the check above
	// under concurrent creates.
	if err := s.polls.Create(ctx, newPoll); err != nil {
		return nil, err
	}

	s.scheduleExpiry(newPoll.ID, time.Until(newPoll.EndTime))

	s.pub.Publish(ws.NewPollCreated(newPoll))
	metrics.PollsCreated.Inc()

	if s.sink != nil {
		if err := s.sink.PollCreated(ctx, newPoll); err != nil {
			s.logger.Warn(logging.Poll, logging.Lifecycle, "failed to publish poll created event", map[logging.ExtraKey]any{
				logging.PollID:       newPoll.ID,
				logging.ErrorMessage: err.Error(),
			})
		}
	}

	return newPoll, nil
}

// Active returns the event's active poll, or nil when there is none.
func (s *Service) Active(ctx context.Context, eventID string) (*domain.Poll, error) {
	activePoll, err := s.polls.GetActiveByEvent(ctx, eventID)
	if errors.Is(err, domain.ErrPollNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return activePoll, nil
}

// History returns all polls for the event, newest first. Ended polls are
// soft-marked and retained, so they show up here.
func (s *Service) History(ctx context.Context, eventID string) ([]domain.Poll, error) {
	return s.polls.GetByEvent(ctx, eventID)
}

// Vote applies one ballot. The store performs the tally increment and the
// ballot append as a single atomic document update, so concurrent voters
// cannot lose votes and sum(votes) always equals the ballot count.
func (s *Service) Vote(ctx context.Context, pollID string, optionIndex int, voterID string) (*domain.Poll, error) {
	if voterID == "" {
		return nil, ErrUnauthorized
	}

	updated, err := s.polls.RecordVote(ctx, pollID, optionIndex, voterID)
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ws.NewPollUpdated(updated))
	metrics.VotesCast.Inc()

	if s.sink != nil {
		if err := s.sink.VoteCast(ctx, updated, optionIndex); err != nil {
			s.logger.Warn(logging.Poll, logging.Voting, "failed to publish vote event", map[logging.ExtraKey]any{
				logging.PollID:       updated.ID,
				logging.ErrorMessage: err.Error(),
			})
		}
	}

	return updated, nil
}

// End terminates the poll early. Ending an already-ended poll is a no-op that
// returns the current state; the expiry timer and manual end race benignly
// because only the caller that actually flips isActive emits broadcasts.
func (s *Service) End(ctx context.Context, pollID string, identity *auth.Identity) (*domain.Poll, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}
	if !identity.IsOrganizer() {
		return nil, ErrForbidden
	}

	endedPoll, flipped, err := s.polls.MarkEnded(ctx, pollID)
	if err != nil {
		return nil, err
	}

	if flipped {
		s.finish(ctx, endedPoll)
	}

	return endedPoll, nil
}

// Ballot reports whether the identity already voted, and for which option.
func (s *Service) Ballot(ctx context.Context, pollID, voterID string) (domain.Ballot, bool, error) {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return domain.Ballot{}, false, err
	}

	ballot, ok := p.BallotOf(voterID)
	return ballot, ok, nil
}

// RecoverPending re-arms expiry timers for polls still active in the store.
// Polls whose end time already passed are expired immediately.
func (s *Service) RecoverPending(ctx context.Context) error {
	active, err := s.polls.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, p := range active {
		s.scheduleExpiry(p.ID, time.Until(p.EndTime))
	}

	if len(active) > 0 {
		s.logger.Info(logging.Poll, logging.Expiry, "recovered pending poll timers", map[logging.ExtraKey]any{
			"count": len(active),
		})
	}

	return nil
}

// Stop cancels all pending timers. In-flight store operations finish on
// their own; no new broadcasts are scheduled after Stop returns.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// expire is the timer-driven end transition. Store failures are logged and
// swallowed: there is no caller to report to, and the poll simply stays
// active until the next trigger.
func (s *Service) expire(pollID string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	expiredPoll, flipped, err := s.polls.MarkEnded(ctx, pollID)
	if err != nil {
		if !errors.Is(err, domain.ErrPollNotFound) {
			s.logger.Error(logging.Poll, logging.Expiry, "poll expiry failed", map[logging.ExtraKey]any{
				logging.PollID:       pollID,
				logging.ErrorMessage: err.Error(),
			})
		}
		return
	}

	// Already ended by a manual End; never emit a second "ended" broadcast.
	if !flipped {
		return
	}

	s.finish(ctx, expiredPoll)
}

// finish runs the post-flip side effects exactly once per poll: the caller
// must only invoke it when its MarkEnded call performed the flip.
func (s *Service) finish(ctx context.Context, endedPoll *domain.Poll) {
	s.cancelTimer(expiryKey(endedPoll.ID))

	s.pub.Publish(ws.NewPollEnded(endedPoll))
	metrics.PollsEnded.Inc()

	s.scheduleRemoval(endedPoll.EventID, endedPoll.ID)

	if s.sink != nil {
		if err := s.sink.PollEnded(ctx, endedPoll); err != nil {
			s.logger.Warn(logging.Poll, logging.Lifecycle, "failed to publish poll ended event", map[logging.ExtraKey]any{
				logging.PollID:       endedPoll.ID,
				logging.ErrorMessage: err.Error(),
			})
		}
	}
}

func (s *Service) scheduleExpiry(pollID string, in time.Duration) {
	if in < 0 {
		in = 0
	}
	s.schedule(expiryKey(pollID), in, func() {
		s.expire(pollID)
	})
}

func (s *Service) scheduleRemoval(eventID, pollID string) {
	s.schedule(removalKey(pollID), s.removalDelay, func() {
		s.pub.Publish(ws.NewPollRemoved(eventID, pollID))
	})
}

func (s *Service) schedule(key string, in time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.timers[key] = time.AfterFunc(in, func() {
		s.cancelTimer(key)
		fn()
	})
}

func (s *Service) cancelTimer(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

func expiryKey(pollID string) string  { return pollID + "/expiry" }
func removalKey(pollID string) string { return pollID + "/removal" }
