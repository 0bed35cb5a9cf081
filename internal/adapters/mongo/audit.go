package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/workshop-bookings/internal/observability"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID          string    `bson:"_id"`
	Action      string    `bson:"action"`
	AggregateID uuid.UUID `bson:"aggregate_id"`
	Timestamp   time.Time `bson:"timestamp"`
	Data        bson.M    `bson:"data"`
}

// EnsureIndexes creates the lookup index used by support tooling.
func (a *AuditLogger) EnsureIndexes(ctx context.Context) error {
	_, err := a.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "aggregate_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return err
}

// LogEvent stores one audit entry. messageID makes redelivered messages a
// no-op; an empty messageID always inserts.
func (a *AuditLogger) LogEvent(ctx context.Context, messageID, action string, aggregateID uuid.UUID, data map[string]interface{}) error {
	if messageID == "" {
		messageID = uuid.NewString()
	}
	log := AuditLog{
		ID:          messageID,
		Action:      action,
		AggregateID: aggregateID,
		Timestamp:   time.Now(),
		Data:        bson.M(data),
	}
	_, err := a.coll.UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$setOnInsert": log},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		a.logger.WithError(err).WithField("action", action).Error("failed to insert audit log")
		return err
	}
	return nil
}

func (a *AuditLogger) History(ctx context.Context, aggregateID uuid.UUID) ([]AuditLog, error) {
	cur, err := a.coll.Find(ctx, bson.M{"aggregate_id": aggregateID}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var logs []AuditLog
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
