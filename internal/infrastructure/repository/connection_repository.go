package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
	"github.com/wmweemba/ioss-compliance-reporter/internal/infrastructure/repository/entity"
	"github.com/wmweemba/ioss-compliance-reporter/internal/ports"
)

// MongoConnectionRepository implements ConnectionRepository using MongoDB
type MongoConnectionRepository struct {
	collection *mongo.Collection
}

// NewMongoConnectionRepository creates a new MongoDB connection repository
func NewMongoConnectionRepository(db *mongo.Database) ports.ConnectionRepository {
	return &MongoConnectionRepository{
		collection: db.Collection("connections"),
	}
}

// Create inserts a new connection and returns it with its assigned ID
func (r *MongoConnectionRepository) Create(ctx context.Context, connection *domain.Connection) (*domain.Connection, error) {
	doc := entity.MongoConnectionDocFromDomain(connection)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	// Index lookups by store domain; domains are not unique here because
	// disconnected connections keep an empty domain.
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "storeDomain", Value: 1}},
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	return doc.ToDomain(), nil
}

// GetByID retrieves a connection by its ID
func (r *MongoConnectionRepository) GetByID(ctx context.Context, id string) (*domain.Connection, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed ID cannot match any document.
		return nil, nil
	}

	var doc entity.MongoConnectionDoc
	filter := bson.M{"_id": objID}

	err = r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return doc.ToDomain(), nil
}

// GetByStoreDomain retrieves the connection currently holding a store domain
func (r *MongoConnectionRepository) GetByStoreDomain(ctx context.Context, storeDomain string) (*domain.Connection, error) {
	var doc entity.MongoConnectionDoc
	filter := bson.M{"storeDomain": storeDomain}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return doc.ToDomain(), nil
}

// Update overwrites a connection's stored state
func (r *MongoConnectionRepository) Update(ctx context.Context, connection *domain.Connection) error {
	objID, err := primitive.ObjectIDFromHex(connection.ID)
	if err != nil {
		return fmt.Errorf("invalid connection id %q: %w", connection.ID, err)
	}

	doc := entity.MongoConnectionDocFromDomain(connection)
	doc.ID = primitive.NilObjectID // _id is immutable, omit it from $set
	doc.UpdatedAt = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": doc})
	if err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrConnectionNotFound
	}

	return nil
}

// UpdateSyncState advances the sync watermark and order count without
// touching the rest of the connection
func (r *MongoConnectionRepository) UpdateSyncState(ctx context.Context, id string, lastSyncAt time.Time, syncedOrders int64) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid connection id %q: %w", id, err)
	}

	update := bson.M{"$set": bson.M{
		"lastSyncAt":   lastSyncAt,
		"syncedOrders": syncedOrders,
		"updatedAt":    time.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrConnectionNotFound
	}

	return nil
}
