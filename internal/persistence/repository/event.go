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

type eventRepository struct {
	db *mongo.Database
}

func NewEventRepository(database *mongo.Database) domain.EventRepository {
	return &eventRepository{
		db: database,
	}
}

func (r *eventRepository) collection() *mongo.Collection {
	return r.db.Collection(db.EventsCollection)
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	_, err := r.collection().InsertOne(ctx, event)
	return err
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var event domain.Event
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) List(ctx context.Context) ([]domain.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []domain.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "organizer_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "date", Value: 1}},
		},
	}

	_, err := r.collection().Indexes().CreateMany(ctx, indexes)
	return err
}
