package polls

import "github.com/pulsewall/pulsewall/internal/domain"

// createPollRequest is the body of POST /api/polls/{eventId}.
type createPollRequest struct {
	Question string   `json:"question"`
	Type     string   `json:"type"`     // custom (default), yes-no, rating
	Options  []string `json:"options"`  // ignored for preset types
	Duration int      `json:"duration"` // seconds; 0 uses the server default
}

// activePollResponse wraps the active poll so a missing one is an explicit
// {"activePoll": null} rather than a bare null body.
type activePollResponse struct {
	ActivePoll *domain.Poll `json:"activePoll"`
}

type voteRequest struct {
	OptionIndex int `json:"optionIndex"`
}

// userVoteResponse reports whether the caller's identity already voted.
type userVoteResponse struct {
	HasVoted    bool `json:"hasVoted"`
	OptionIndex *int `json:"optionIndex,omitempty"`
}
