package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
	"github.com/wmweemba/ioss-compliance-reporter/internal/infrastructure/repository/entity"
	"github.com/wmweemba/ioss-compliance-reporter/internal/ports"
)

// MongoOrderRepository implements OrderRepository using MongoDB
type MongoOrderRepository struct {
	collection *mongo.Collection
}

// NewMongoOrderRepository creates a new MongoDB order repository
func NewMongoOrderRepository(db *mongo.Database) ports.OrderRepository {
	return &MongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

func (r *MongoOrderRepository) ensureIndexes(ctx context.Context) {
	// The unique index guards the (connectionId, remoteId) upsert key
	// against concurrent writers; the second one serves watermark lookups
	// and report windows. CreateMany is a no-op once they exist.
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "connectionId", Value: 1}, {Key: "remoteId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "connectionId", Value: 1}, {Key: "remoteCreatedAt", Value: 1}},
		},
	}
	_, _ = r.collection.Indexes().CreateMany(ctx, indexes)
}

// BulkUpsert persists a batch of orders keyed by (connectionId, remoteId).
// The write is unordered so one rejected record does not abort the batch;
// on partial failure the stats cover whatever the server applied.
func (r *MongoOrderRepository) BulkUpsert(ctx context.Context, orders []*domain.Order) (*ports.UpsertStats, error) {
	if len(orders) == 0 {
		return &ports.UpsertStats{}, nil
	}

	r.ensureIndexes(ctx)

	models := make([]mongo.WriteModel, 0, len(orders))
	for _, order := range orders {
		doc := entity.MongoOrderDocFromDomain(order)
		doc.ID = primitive.NilObjectID // _id is immutable, omit it from $set

		filter := bson.M{"connectionId": order.ConnectionID, "remoteId": order.RemoteID}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}

	opts := options.BulkWrite().SetOrdered(false)
	result, err := r.collection.BulkWrite(ctx, models, opts)

	stats := &ports.UpsertStats{}
	if result != nil {
		stats.Created = result.UpsertedCount
		stats.Updated = result.MatchedCount
	}
	if err != nil {
		return stats, fmt.Errorf("failed to bulk upsert orders: %w", err)
	}

	return stats, nil
}

// CountByConnection returns how many orders are persisted for a connection
func (r *MongoOrderRepository) CountByConnection(ctx context.Context, connectionID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"connectionId": connectionID})
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// MaxRemoteCreatedAt returns the newest remote creation timestamp persisted
// for the connection, or nil when no orders exist yet
func (r *MongoOrderRepository) MaxRemoteCreatedAt(ctx context.Context, connectionID string) (*time.Time, error) {
	findOpts := options.FindOne().
		SetSort(bson.D{{Key: "remoteCreatedAt", Value: -1}}).
		SetProjection(bson.M{"remoteCreatedAt": 1})

	var doc struct {
		RemoteCreatedAt time.Time `bson:"remoteCreatedAt"`
	}
	err := r.collection.FindOne(ctx, bson.M{"connectionId": connectionID}, findOpts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get newest order timestamp: %w", err)
	}

	return &doc.RemoteCreatedAt, nil
}

// ListByConnection retrieves orders for a connection, optionally windowed by
// remote creation time, oldest first
func (r *MongoOrderRepository) ListByConnection(ctx context.Context, connectionID string, from, to *time.Time) ([]*domain.Order, error) {
	filter := bson.M{"connectionId": connectionID}
	if from != nil || to != nil {
		window := bson.M{}
		if from != nil {
			window["$gte"] = *from
		}
		if to != nil {
			window["$lte"] = *to
		}
		filter["remoteCreatedAt"] = window
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "remoteCreatedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	for cursor.Next(ctx) {
		var doc entity.MongoOrderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		orders = append(orders, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return orders, nil
}
