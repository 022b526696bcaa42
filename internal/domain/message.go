package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pulsewall/pulsewall/internal/infrastructure/validate"
)

var (
	ErrMessageNotFound   = errors.New("message not found")
	ErrDuplicateReaction = errors.New("already reacted to this message")
	ErrInvalidReaction   = errors.New("invalid reaction")
)

const (
	ReactionThumbsUp   = "thumbsUp"
	ReactionThumbsDown = "thumbsDown"

	anonymousName = "Anonymous"
)

type Reactions struct {
	ThumbsUp   int `bson:"thumbs_up" json:"thumbsUp"`
	ThumbsDown int `bson:"thumbs_down" json:"thumbsDown"`
}

// UserReaction mirrors Ballot: one reaction per identity per message.
type UserReaction struct {
	UserID   string `bson:"user_id" json:"userId"`
	Reaction string `bson:"reaction" json:"reaction"`
}

type Message struct {
	ID            string         `bson:"_id" json:"id"`
	EventID       string         `bson:"event_id" json:"eventId"`
	Content       string         `bson:"content" json:"content"`
	AuthorID      string         `bson:"author_id,omitempty" json:"authorId,omitempty"`
	AuthorName    string         `bson:"author_name" json:"authorName"`
	Approved      bool           `bson:"approved" json:"approved"`
	ReplyTo       string         `bson:"reply_to,omitempty" json:"replyTo,omitempty"`
	Reactions     Reactions      `bson:"reactions" json:"reactions"`
	UserReactions []UserReaction `bson:"user_reactions" json:"-"`
	CreatedAt     time.Time      `bson:"created_at" json:"createdAt"`
}

type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	GetByEvent(ctx context.Context, eventID string) ([]Message, error)
	Delete(ctx context.Context, id string) error
	// React applies the reaction tally increment and the per-user reaction
	// record as one atomic document update.
	React(ctx context.Context, messageID, reaction, userID string) (*Message, error)
	EnsureIndexes(ctx context.Context) error
}

func NewMessage(eventID, content, authorID, authorName, replyTo string, approved bool) (*Message, error) {
	validateContent := validate.Field("content",
		validate.Required(),
		validate.MaxLength(5000),
	)
	if err := validateContent(content); err != nil {
		return nil, err
	}

	if authorName == "" {
		authorName = anonymousName
	}
	if err := validate.Field("name", validate.MaxLength(64))(authorName); err != nil {
		return nil, err
	}

	return &Message{
		ID:            uuid.NewString(),
		EventID:       eventID,
		Content:       content,
		AuthorID:      authorID,
		AuthorName:    authorName,
		Approved:      approved,
		ReplyTo:       replyTo,
		UserReactions: []UserReaction{},
		CreatedAt:     time.Now(),
	}, nil
}

func ValidReaction(r string) bool {
	return r == ReactionThumbsUp || r == ReactionThumbsDown
}
