package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
)

// MongoConnectionDoc represents a store connection in MongoDB
type MongoConnectionDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	StoreDomain  string             `bson:"storeDomain"`
	AccessToken  string             `bson:"accessToken"`
	Scope        string             `bson:"scope"`
	Status       string             `bson:"status"`
	ConnectedAt  time.Time          `bson:"connectedAt"`
	LastSyncAt   *time.Time         `bson:"lastSyncAt,omitempty"`
	SyncedOrders int64              `bson:"syncedOrders"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoConnectionDoc) ToDomain() *domain.Connection {
	return &domain.Connection{
		ID:           d.ID.Hex(),
		StoreDomain:  d.StoreDomain,
		AccessToken:  d.AccessToken,
		Scope:        d.Scope,
		Status:       domain.ConnectionStatus(d.Status),
		ConnectedAt:  d.ConnectedAt,
		LastSyncAt:   d.LastSyncAt,
		SyncedOrders: d.SyncedOrders,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// MongoConnectionDocFromDomain converts a domain entity to a MongoDB document
func MongoConnectionDocFromDomain(connection *domain.Connection) *MongoConnectionDoc {
	doc := &MongoConnectionDoc{
		StoreDomain:  connection.StoreDomain,
		AccessToken:  connection.AccessToken,
		Scope:        connection.Scope,
		Status:       string(connection.Status),
		ConnectedAt:  connection.ConnectedAt,
		LastSyncAt:   connection.LastSyncAt,
		SyncedOrders: connection.SyncedOrders,
		CreatedAt:    connection.CreatedAt,
		UpdatedAt:    connection.UpdatedAt,
	}

	if connection.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(connection.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
