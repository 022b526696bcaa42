package domain

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pulsewall/pulsewall/internal/infrastructure/validate"
)

const (
	minPollOptions = 2
	maxPollOptions = 5
)

var (
	ErrPollNotFound     = errors.New("poll not found")
	ErrPollNotActive    = errors.New("poll is not active")
	ErrActivePollExists = errors.New("an active poll already exists for this event")
	ErrInvalidOption    = errors.New("invalid option index")
	ErrDuplicateVote    = errors.New("already voted in this poll")
)

// Poll kinds accepted at creation. Presets expand to a fixed option list.
const (
	PollKindCustom = "custom"
	PollKindYesNo  = "yes-no"
	PollKindRating = "rating"
)

type PollOption struct {
	Text  string `bson:"text" json:"text"`
	Votes int    `bson:"votes" json:"votes"`
}

// Ballot records one identity's vote. VoterID is an authenticated user id or,
// for anonymous voters, the originating network address.
type Ballot struct {
	VoterID     string `bson:"voter_id" json:"voterId"`
	OptionIndex int    `bson:"option_index" json:"optionIndex"`
}

type Poll struct {
	ID        string       `bson:"_id" json:"id"`
	EventID   string       `bson:"event_id" json:"eventId"`
	Question  string       `bson:"question" json:"question"`
	Options   []PollOption `bson:"options" json:"options"`
	CreatedBy string       `bson:"created_by" json:"createdBy"`
	Duration  int          `bson:"duration" json:"duration"` // seconds
	IsActive  bool         `bson:"is_active" json:"isActive"`
	CreatedAt time.Time    `bson:"created_at" json:"createdAt"`
	EndTime   time.Time    `bson:"end_time" json:"endTime"`
	Voters    []Ballot     `bson:"voters" json:"voters"`
}

type PollRepository interface {
	Create(ctx context.Context, poll *Poll) error
	GetByID(ctx context.Context, id string) (*Poll, error)
	// GetActiveByEvent returns ErrPollNotFound when the event has no active poll.
	GetActiveByEvent(ctx context.Context, eventID string) (*Poll, error)
	GetByEvent(ctx context.Context, eventID string) ([]Poll, error)
	ListActive(ctx context.Context) ([]Poll, error)
	// RecordVote appends the ballot and increments the option tally as one
	// atomic document update. It distinguishes ErrPollNotFound,
	// ErrPollNotActive and ErrDuplicateVote on failure.
	RecordVote(ctx context.Context, pollID string, optionIndex int, voterID string) (*Poll, error)
	// MarkEnded flips isActive to false. The boolean reports whether this
	// call performed the flip; false means the poll was already ended.
	MarkEnded(ctx context.Context, pollID string) (*Poll, bool, error)
	EnsureIndexes(ctx context.Context) error
}

func NewPoll(eventID, createdBy, question, kind string, options []string, duration time.Duration) (*Poll, error) {
	validateQuestion := validate.Field("question",
		validate.Required(),
		validate.MaxLength(280),
	)
	if err := validateQuestion(question); err != nil {
		return nil, err
	}

	validateKind := validate.Field("type",
		validate.OneOf(PollKindCustom, PollKindYesNo, PollKindRating),
	)
	if err := validateKind(kind); err != nil {
		return nil, err
	}

	if duration <= 0 {
		return nil, errors.New("duration must be a positive number of seconds")
	}

	pollOptions, err := expandOptions(kind, options)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	return &Poll{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Question:  question,
		Options:   pollOptions,
		CreatedBy: createdBy,
		Duration:  int(duration.Seconds()),
		IsActive:  true,
		CreatedAt: now,
		EndTime:   now.Add(duration),
		Voters:    []Ballot{},
	}, nil
}

func expandOptions(kind string, options []string) ([]PollOption, error) {
	switch kind {
	case PollKindYesNo:
		return []PollOption{{Text: "Yes"}, {Text: "No"}}, nil
	case PollKindRating:
		opts := make([]PollOption, 0, 5)
		for i := 1; i <= 5; i++ {
			opts = append(opts, PollOption{Text: strconv.Itoa(i)})
		}
		return opts, nil
	}

	if len(options) < minPollOptions || len(options) > maxPollOptions {
		return nil, errors.New("options must contain between 2 and 5 entries")
	}

	validateOption := validate.Field("option",
		validate.Required(),
		validate.MaxLength(100),
	)

	opts := make([]PollOption, 0, len(options))
	for _, text := range options {
		if err := validateOption(text); err != nil {
			return nil, err
		}
		opts = append(opts, PollOption{Text: text})
	}

	return opts, nil
}

// BallotOf returns the recorded ballot for the given identity, if any.
func (p *Poll) BallotOf(voterID string) (Ballot, bool) {
	for _, b := range p.Voters {
		if b.VoterID == voterID {
			return b, true
		}
	}
	return Ballot{}, false
}

func (p *Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}

func (p *Poll) ValidOptionIndex(i int) bool {
	return i >= 0 && i < len(p.Options)
}
