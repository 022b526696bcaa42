package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pulsewall/pulsewall/internal/domain"
	"github.com/pulsewall/pulsewall/internal/persistence/db"
)

type messageRepository struct {
	db *mongo.Database
}

func NewMessageRepository(database *mongo.Database) domain.MessageRepository {
	return &messageRepository{
		db: database,
	}
}

func (r *messageRepository) collection() *mongo.Collection {
	return r.db.Collection(db.MessagesCollection)
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	_, err := r.collection().InsertOne(ctx, message)
	return err
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var message domain.Message
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) GetByEvent(ctx context.Context, eventID string) ([]domain.Message, error) {
	filter := bson.M{"event_id": eventID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []domain.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// React mirrors the poll vote update: one conditional document update that
// increments the tally and records the per-user reaction together.
func (r *messageRepository) React(ctx context.Context, messageID, reaction, userID string) (*domain.Message, error) {
	if !domain.ValidReaction(reaction) {
		return nil, domain.ErrInvalidReaction
	}

	tallyField := "reactions.thumbs_up"
	if reaction == domain.ReactionThumbsDown {
		tallyField = "reactions.thumbs_down"
	}

	filter := bson.M{
		"_id":                    messageID,
		"user_reactions.user_id": bson.M{"$ne": userID},
	}
	update := bson.M{
		"$inc":  bson.M{tallyField: 1},
		"$push": bson.M{"user_reactions": domain.UserReaction{UserID: userID, Reaction: reaction}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Message
	err := r.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	if _, getErr := r.GetByID(ctx, messageID); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrDuplicateReaction
}

func (r *messageRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "event_id", Value: 1},
				{Key: "created_at", Value: 1},
			},
		},
	}

	_, err := r.collection().Indexes().CreateMany(ctx, indexes)
	return err
}
