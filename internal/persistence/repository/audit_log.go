package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pulsewall/pulsewall/internal/domain"
	"github.com/pulsewall/pulsewall/internal/persistence/db"
)

type auditLogRepository struct {
	db *mongo.Database
}

func NewAuditLogRepository(database *mongo.Database) domain.AuditRepository {
	return &auditLogRepository{
		db: database,
	}
}

func (r *auditLogRepository) collection() *mongo.Collection {
	return r.db.Collection(db.AuditLogsCollection)
}

func (r *auditLogRepository) Log(ctx context.Context, log *domain.AuditLog) error {
	_, err := r.collection().InsertOne(ctx, log)
	return err
}

func (r *auditLogRepository) GetByEvent(ctx context.Context, eventID string, limit int) ([]domain.AuditLog, error) {
	filter := bson.M{"event_id": eventID}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.AuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *auditLogRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "event_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(7776000), // 90 days TTL
		},
	}

	_, err := r.collection().Indexes().CreateMany(ctx, indexes)
	return err
}
