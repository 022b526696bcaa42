package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPollValidation(t *testing.T) {
	tests := []struct {
		name     string
		question string
		kind     string
		options  []string
		duration time.Duration
		wantErr  bool
	}{
		{
			name:     "valid custom poll",
			question: "Lunch?",
			kind:     PollKindCustom,
			options:  []string{"Pizza", "Sushi"},
			duration: time.Minute,
		},
		{
			name:     "empty question",
			question: "",
			kind:     PollKindCustom,
			options:  []string{"A", "B"},
			duration: time.Minute,
			wantErr:  true,
		},
		{
			name:     "question too long",
			question: strings.Repeat("q", 281),
			kind:     PollKindCustom,
			options:  []string{"A", "B"},
			duration: time.Minute,
			wantErr:  true,
		},
		{
			name:     "unknown kind",
			question: "Lunch?",
			kind:     "ranked-choice",
			options:  []string{"A", "B"},
			duration: time.Minute,
			wantErr:  true,
		},
		{
			name:     "too few options",
			question: "Lunch?",
			kind:     PollKindCustom,
			options:  []string{"A"},
			duration: time.Minute,
			wantErr:  true,
		},
		{
			name:     "too many options",
			question: "Lunch?",
			kind:     PollKindCustom,
			options:  []string{"A", "B", "C", "D", "E", "F"},
			duration: time.Minute,
			wantErr:  true,
		},
		{
			name:     "empty option text",
			question: "Lunch?",
			kind:     PollKindCustom,
			options:  []string{"A", " "},
			duration: time.Minute,
			wantErr:  true,
		},
		{
			name:     "zero duration",
			question: "Lunch?",
			kind:     PollKindCustom,
			options:  []string{"A", "B"},
			duration: 0,
			wantErr:  true,
		},
		{
			name:     "negative duration",
			question: "Lunch?",
			kind:     PollKindCustom,
			options:  []string{"A", "B"},
			duration: -time.Second,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPoll("ev1", "org-1", tt.question, tt.kind, tt.options, tt.duration)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, p.ID)
			assert.True(t, p.IsActive)
			assert.Equal(t, int(tt.duration.Seconds()), p.Duration)
			assert.Len(t, p.Options, len(tt.options))
			assert.Empty(t, p.Voters)
			assert.WithinDuration(t, p.CreatedAt.Add(tt.duration), p.EndTime, time.Second)
		})
	}
}

func TestNewPollPresets(t *testing.T) {
	yesNo, err := NewPoll("ev1", "org-1", "Continue?", PollKindYesNo, nil, time.Minute)
	require.NoError(t, err)
	require.Len(t, yesNo.Options, 2)
	assert.Equal(t, "Yes", yesNo.Options[0].Text)
	assert.Equal(t, "No", yesNo.Options[1].Text)

	rating, err := NewPoll("ev1", "org-1", "Rate the talk", PollKindRating, nil, time.Minute)
	require.NoError(t, err)
	require.Len(t, rating.Options, 5)
	assert.Equal(t, "1", rating.Options[0].Text)
	assert.Equal(t, "5", rating.Options[4].Text)

	// Presets ignore caller options entirely.
	yesNo2, err := NewPoll("ev1", "org-1", "Continue?", PollKindYesNo, []string{"Maybe"}, time.Minute)
	require.NoError(t, err)
	assert.Len(t, yesNo2.Options, 2)
}

func TestBallotOf(t *testing.T) {
	p, err := NewPoll("ev1", "org-1", "Lunch?", PollKindCustom, []string{"A", "B"}, time.Minute)
	require.NoError(t, err)

	p.Voters = append(p.Voters, Ballot{VoterID: "voter-1", OptionIndex: 1})

	ballot, ok := p.BallotOf("voter-1")
	assert.True(t, ok)
	assert.Equal(t, 1, ballot.OptionIndex)

	_, ok = p.BallotOf("voter-2")
	assert.False(t, ok)
}

func TestTotalVotes(t *testing.T) {
	p, err := NewPoll("ev1", "org-1", "Lunch?", PollKindCustom, []string{"A", "B", "C"}, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 0, p.TotalVotes())

	p.Options[0].Votes = 3
	p.Options[2].Votes = 2
	assert.Equal(t, 5, p.TotalVotes())
}

func TestValidOptionIndex(t *testing.T) {
	p, err := NewPoll("ev1", "org-1", "Lunch?", PollKindCustom, []string{"A", "B"}, time.Minute)
	require.NoError(t, err)

	assert.True(t, p.ValidOptionIndex(0))
	assert.True(t, p.ValidOptionIndex(1))
	assert.False(t, p.ValidOptionIndex(2))
	assert.False(t, p.ValidOptionIndex(-1))
}
