package poll

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsewall/pulsewall/internal/domain"
	"github.com/pulsewall/pulsewall/internal/infrastructure/auth"
	"github.com/pulsewall/pulsewall/internal/infrastructure/logging"
	"github.com/pulsewall/pulsewall/internal/infrastructure/ws"
)

type fakePollRepo struct {
	mu    sync.Mutex
	polls map[string]*domain.Poll
}

func newFakePollRepo() *fakePollRepo {
	return &fakePollRepo{polls: make(map[string]*domain.Poll)}
}

func (r *fakePollRepo) Create(_ context.Context, p *domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.polls {
		if existing.EventID == p.EventID && existing.IsActive {
			return domain.ErrActivePollExists
		}
	}

	clone := *p
	r.polls[p.ID] = &clone
	return nil
}

func (r *fakePollRepo) GetByID(_ context.Context, id string) (*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakePollRepo) GetActiveByEvent(_ context.Context, eventID string) (*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.polls {
		if p.EventID == eventID && p.IsActive {
			clone := *p
			return &clone, nil
		}
	}
	return nil, domain.ErrPollNotFound
}

func (r *fakePollRepo) GetByEvent(_ context.Context, eventID string) ([]domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Poll
	for _, p := range r.polls {
		if p.EventID == eventID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePollRepo) ListActive(_ context.Context) ([]domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Poll
	for _, p := range r.polls {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePollRepo) RecordVote(_ context.Context, pollID string, optionIndex int, voterID string) (*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.polls[pollID]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	if !p.IsActive {
		return nil, domain.ErrPollNotActive
	}
	if !p.ValidOptionIndex(optionIndex) {
		return nil, domain.ErrInvalidOption
	}
	if _, voted := p.BallotOf(voterID); voted {
		return nil, domain.ErrDuplicateVote
	}

	p.Options[optionIndex].Votes++
	p.Voters = append(p.Voters, domain.Ballot{VoterID: voterID, OptionIndex: optionIndex})

	clone := *p
	return &clone, nil
}

func (r *fakePollRepo) MarkEnded(_ context.Context, pollID string) (*domain.Poll, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.polls[pollID]
	if !ok {
		return nil, false, domain.ErrPollNotFound
	}
	if !p.IsActive {
		clone := *p
		return &clone, false, nil
	}

	p.IsActive = false
	clone := *p
	return &clone, true, nil
}

func (r *fakePollRepo) EnsureIndexes(context.Context) error { return nil }

type fakeEventRepo struct {
	events map[string]*domain.Event
}

func newFakeEventRepo(ids ...string) *fakeEventRepo {
	r := &fakeEventRepo{events: make(map[string]*domain.Event)}
	for _, id := range ids {
		r.events[id] = &domain.Event{ID: id, Name: "event " + id}
	}
	return r
}

func (r *fakeEventRepo) Create(_ context.Context, e *domain.Event) error {
	r.events[e.ID] = e
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return e, nil
}

func (r *fakeEventRepo) List(context.Context) ([]domain.Event, error) { return nil, nil }
func (r *fakeEventRepo) EnsureIndexes(context.Context) error          { return nil }

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*ws.WSMessage
}

func (p *fakePublisher) Publish(msg *ws.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func (p *fakePublisher) ofType(msgType string) []*ws.WSMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*ws.WSMessage
	for _, m := range p.msgs {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// waitFor polls until at least n messages of the type arrived, or fails.
func (p *fakePublisher) waitFor(t *testing.T, msgType string, n int, timeout time.Duration) []*ws.WSMessage {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got := p.ofType(msgType); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %d %q messages, got %d", n, msgType, len(p.ofType(msgType)))
	return nil
}

func organizer() *auth.Identity {
	return &auth.Identity{UserID: "org-1", Role: auth.RoleOrganizer}
}

func newTestService(t *testing.T, events *fakeEventRepo, removalDelay time.Duration) (*Service, *fakePollRepo, *fakePublisher) {
	t.Helper()

	repo := newFakePollRepo()
	pub := &fakePublisher{}
	logger := logging.NewLogger(&logging.LoggerConfig{Logger: "zerolog", Level: "error"})
	logger.Init()

	svc := NewService(repo, events, pub, nil, logger, removalDelay)
	t.Cleanup(svc.Stop)

	return svc, repo, pub
}

func defaultInput() CreateInput {
	return CreateInput{
		Question: "Best talk so far?",
		Kind:     domain.PollKindCustom,
		Options:  []string{"Keynote", "Workshop A", "Workshop B"},
		Duration: time.Hour,
	}
}

func TestCreateAuthorization(t *testing.T) {
	tests := []struct {
		name     string
		identity *auth.Identity
		wantErr  error
	}{
		{name: "anonymous", identity: nil, wantErr: ErrUnauthorized},
		{name: "attendee", identity: &auth.Identity{UserID: "u1", Role: "attendee"}, wantErr: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

			_, err := svc.Create(context.Background(), "ev1", defaultInput(), tt.identity)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateUnknownEvent(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeEventRepo(), time.Minute)

	_, err := svc.Create(context.Background(), "missing", defaultInput(), organizer())
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	in := defaultInput()
	in.Question = ""

	_, err := svc.Create(context.Background(), "ev1", in, organizer())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateRejectsSecondActivePoll(t *testing.T) {
	svc, _, pub := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	first, err := svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	require.NoError(t, err)
	require.True(t, first.IsActive)

	_, err = svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	assert.ErrorIs(t, err, domain.ErrActivePollExists)

	assert.Len(t, pub.ofType(ws.NewPoll), 1)
}

func TestCreateAllowedAfterEnd(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	first, err := svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	require.NoError(t, err)

	_, err = svc.End(context.Background(), first.ID, organizer())
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestVoteBroadcastsUpdate(t *testing.T) {
	svc, _, pub := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	created, err := svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	require.NoError(t, err)

	updated, err := svc.Vote(context.Background(), created.ID, 1, "voter-1")
	require.NoError(t, err)

	assert.Equal(t, 1, updated.Options[1].Votes)
	assert.Len(t, pub.ofType(ws.PollUpdate), 1)
}

func TestVoteErrors(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	created, err := svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	require.NoError(t, err)

	_, err = svc.Vote(context.Background(), created.ID, 0, "voter-1")
	require.NoError(t, err)

	tests := []struct {
		name        string
		pollID      string
		optionIndex int
		voterID     string
		wantErr     error
	}{
		{name: "duplicate vote", pollID: created.ID, optionIndex: 1, voterID: "voter-1", wantErr: domain.ErrDuplicateVote},
		{name: "invalid option", pollID: created.ID, optionIndex: 99, voterID: "voter-2", wantErr: domain.ErrInvalidOption},
		{name: "negative option", pollID: created.ID, optionIndex: -1, voterID: "voter-3", wantErr: domain.ErrInvalidOption},
		{name: "unknown poll", pollID: "nope", optionIndex: 0, voterID: "voter-4", wantErr: domain.ErrPollNotFound},
		{name: "anonymous without identity", pollID: created.ID, optionIndex: 0, voterID: "", wantErr: ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Vote(context.Background(), tt.pollID, tt.optionIndex, tt.voterID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVoteOnEndedPoll(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	created, err := svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	require.NoError(t, err)

	_, err = svc.End(context.Background(), created.ID, organizer())
	require.NoError(t, err)

	_, err = svc.Vote(context.Background(), created.ID, 0, "late-voter")
	assert.ErrorIs(t, err, domain.ErrPollNotActive)
}

// Concurrent voters must never lose votes: the option tallies add up to the
// number of recorded ballots, one per distinct identity.
func TestVoteConservationUnderConcurrency(t *testing.T) {
	svc, repo, _ := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	created, err := svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	require.NoError(t, err)

	const voters = 50

	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			voterID := fmt.Sprintf("voter-%d", n)
			_, _ = svc.Vote(context.Background(), created.ID, n%len(created.Options), voterID)
			// Second attempt from the same identity must not count twice.
			_, _ = svc.Vote(context.Background(), created.ID, (n+1)%len(created.Options), voterID)
		}(i)
	}
	wg.Wait()

	final, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, voters, final.TotalVotes())
	assert.Len(t, final.Voters, voters)
}

func TestEndAuthorization(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	created, err := svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	require.NoError(t, err)

	_, err = svc.End(context.Background(), created.ID, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.End(context.Background(), created.ID, &auth.Identity{UserID: "u1", Role: "attendee"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEndIsIdempotent(t *testing.T) {
	svc, _, pub := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	created, err := svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	require.NoError(t, err)

	ended, err := svc.End(context.Background(), created.ID, organizer())
	require.NoError(t, err)
	assert.False(t, ended.IsActive)

	again, err := svc.End(context.Background(), created.ID, organizer())
	require.NoError(t, err)
	assert.False(t, again.IsActive)

	assert.Len(t, pub.ofType(ws.PollEnded), 1)
}

// Natural expiry and a near-simultaneous manual End must produce exactly one
// "poll ended" broadcast between them.
func TestExpiryEndRaceEmitsEndedOnce(t *testing.T) {
	svc, _, pub := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	in := defaultInput()
	in.Duration = 20 * time.Millisecond

	created, err := svc.Create(context.Background(), "ev1", in, organizer())
	require.NoError(t, err)

	_, err = svc.End(context.Background(), created.ID, organizer())
	require.NoError(t, err)

	// Give the expiry timer time to fire into the already-ended poll.
	time.Sleep(60 * time.Millisecond)

	assert.Len(t, pub.ofType(ws.PollEnded), 1)
}

func TestNaturalExpiryEndsPoll(t *testing.T) {
	svc, repo, pub := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	in := defaultInput()
	in.Duration = 20 * time.Millisecond

	startedAt := time.Now()
	created, err := svc.Create(context.Background(), "ev1", in, organizer())
	require.NoError(t, err)

	pub.waitFor(t, ws.PollEnded, 1, time.Second)

	// The poll runs for its full duration; expiry never fires early.
	assert.GreaterOrEqual(t, time.Since(startedAt), in.Duration)

	final, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, final.IsActive)
}

func TestRemovalBroadcastIsDelayed(t *testing.T) {
	const removalDelay = 50 * time.Millisecond

	svc, _, pub := newTestService(t, newFakeEventRepo("ev1"), removalDelay)

	created, err := svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	require.NoError(t, err)

	endedAt := time.Now()
	_, err = svc.End(context.Background(), created.ID, organizer())
	require.NoError(t, err)

	assert.Empty(t, pub.ofType(ws.PollRemoved), "removal must not broadcast immediately")

	removed := pub.waitFor(t, ws.PollRemoved, 1, time.Second)
	assert.GreaterOrEqual(t, time.Since(endedAt), removalDelay)

	payload, ok := removed[0].Data.(ws.PollRemovedPayload)
	require.True(t, ok)
	assert.Equal(t, created.ID, payload.PollID)
	assert.Equal(t, "ev1", removed[0].EventID)
}

func TestActiveReturnsNilWhenNone(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	active, err := svc.Active(context.Background(), "ev1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestBallotLookup(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeEventRepo("ev1"), time.Minute)

	created, err := svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	require.NoError(t, err)

	_, err = svc.Vote(context.Background(), created.ID, 2, "voter-1")
	require.NoError(t, err)

	ballot, voted, err := svc.Ballot(context.Background(), created.ID, "voter-1")
	require.NoError(t, err)
	assert.True(t, voted)
	assert.Equal(t, 2, ballot.OptionIndex)

	_, voted, err = svc.Ballot(context.Background(), created.ID, "someone-else")
	require.NoError(t, err)
	assert.False(t, voted)
}

func TestRecoverPendingExpiresOverduePolls(t *testing.T) {
	events := newFakeEventRepo("ev1")
	repo := newFakePollRepo()
	pub := &fakePublisher{}
	logger := logging.NewLogger(&logging.LoggerConfig{Logger: "zerolog", Level: "error"})
	logger.Init()

	// A poll left active by a previous process whose end time already passed.
	overdue, err := domain.NewPoll("ev1", "org-1", "Leftover?", domain.PollKindYesNo, nil, time.Hour)
	require.NoError(t, err)
	overdue.EndTime = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(context.Background(), overdue))

	svc := NewService(repo, events, pub, nil, logger, 20*time.Millisecond)
	t.Cleanup(svc.Stop)

	require.NoError(t, svc.RecoverPending(context.Background()))

	pub.waitFor(t, ws.PollEnded, 1, time.Second)
	pub.waitFor(t, ws.PollRemoved, 1, time.Second)

	final, err := repo.GetByID(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.False(t, final.IsActive)
}

func TestStopCancelsPendingBroadcasts(t *testing.T) {
	svc, _, pub := newTestService(t, newFakeEventRepo("ev1"), time.Hour)

	created, err := svc.Create(context.Background(), "ev1", defaultInput(), organizer())
	require.NoError(t, err)

	_, err = svc.End(context.Background(), created.ID, organizer())
	require.NoError(t, err)

	svc.Stop()
	time.Sleep(20 * time.Millisecond)

	assert.Empty(t, pub.ofType(ws.PollRemoved))
}
