package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pulsewall/pulsewall/internal/domain"
	"github.com/pulsewall/pulsewall/internal/persistence/db"
)

type pollRepository struct {
	db *mongo.Database
}

func NewPollRepository(database *mongo.Database) domain.PollRepository {
	return &pollRepository{
		db: database,
	}
}

func (r *pollRepository) collection() *mongo.Collection {
	return r.db.Collection(db.PollsCollection)
}

func (r *pollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	_, err := r.collection().InsertOne(ctx, poll)
	if mongo.IsDuplicateKeyError(err) {
		// Partial unique index on active polls per event.
		return domain.ErrActivePollExists
	}
	return err
}

func (r *pollRepository) GetByID(ctx context.Context, id string) (*domain.Poll, error) {
	var poll domain.Poll
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&poll)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *pollRepository) GetActiveByEvent(ctx context.Context, eventID string) (*domain.Poll, error) {
	filter := bson.M{"event_id": eventID, "is_active": true}

	var poll domain.Poll
	err := r.collection().FindOne(ctx, filter).Decode(&poll)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *pollRepository) GetByEvent(ctx context.Context, eventID string) ([]domain.Poll, error) {
	filter := bson.M{"event_id": eventID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var polls []domain.Poll
	if err := cursor.All(ctx, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

func (r *pollRepository) ListActive(ctx context.Context) ([]domain.Poll, error) {
	cursor, err := r.collection().Find(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var polls []domain.Poll
	if err := cursor.All(ctx, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

// RecordVote is a single conditional document update: the ballot append and
// the tally increment land together or not at all. The filter only matches
// when the poll is active, the identity has not voted, and the option index
// exists, so concurrent voters cannot double-count.
func (r *pollRepository) RecordVote(ctx context.Context, pollID string, optionIndex int, voterID string) (*domain.Poll, error) {
	optionField := fmt.Sprintf("options.%d", optionIndex)

	filter := bson.M{
		"_id":             pollID,
		"is_active":       true,
		"voters.voter_id": bson.M{"$ne": voterID},
		optionField:       bson.M{"$exists": true},
	}
	update := bson.M{
		"$inc":  bson.M{optionField + ".votes": 1},
		"$push": bson.M{"voters": domain.Ballot{VoterID: voterID, OptionIndex: optionIndex}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Poll
	err := r.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// The update matched nothing; fetch once to say why.
	current, getErr := r.GetByID(ctx, pollID)
	if getErr != nil {
		return nil, getErr
	}

	switch {
	case !current.IsActive:
		return nil, domain.ErrPollNotActive
	case !current.ValidOptionIndex(optionIndex):
		return nil, domain.ErrInvalidOption
	default:
		if _, voted := current.BallotOf(voterID); voted {
			return nil, domain.ErrDuplicateVote
		}
		// Poll ended between the update and the fetch.
		return nil, domain.ErrPollNotActive
	}
}

// MarkEnded conditionally flips isActive. The document update is the
// linearization point for the manual-end / expiry race: only one caller
// observes flipped == true.
func (r *pollRepository) MarkEnded(ctx context.Context, pollID string) (*domain.Poll, bool, error) {
	filter := bson.M{"_id": pollID, "is_active": true}
	update := bson.M{"$set": bson.M{"is_active": false}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ended domain.Poll
	err := r.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&ended)
	if err == nil {
		return &ended, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	// Not active anymore (or never existed).
	current, getErr := r.GetByID(ctx, pollID)
	if getErr != nil {
		return nil, false, getErr
	}
	return current, false, nil
}

func (r *pollRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			// At most one active poll per event, enforced at the store.
			Keys: bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_active": true}),
		},
		{
			Keys: bson.D{
				{Key: "event_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}

	_, err := r.collection().Indexes().CreateMany(ctx, indexes)
	return err
}
