package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
)

func TestOrderDocPreservesDecimals(t *testing.T) {
	order := &domain.Order{
		ConnectionID:       "conn-1",
		RemoteID:           450789469,
		Name:               "#1001",
		TotalPrice:         decimal.RequireFromString("149.99"),
		Currency:           "EUR",
		DestinationCountry: "DE",
		FinancialStatus:    "paid",
		ShippingAddress:    domain.Address{CountryCode: "DE", City: "Berlin"},
		LineItems: []domain.LineItem{
			{ProductID: 7, VariantID: 11, Title: "Widget", Quantity: 3, Price: decimal.RequireFromString("49.99")},
		},
		InBloc:          true,
		Eligible:        true,
		TaxApplicable:   true,
		RemoteCreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		SyncedAt:        time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC),
	}

	got := MongoOrderDocFromDomain(order).ToDomain()

	assert.True(t, got.TotalPrice.Equal(order.TotalPrice), "total price changed: %s", got.TotalPrice)
	require.Len(t, got.LineItems, 1)
	assert.True(t, got.LineItems[0].Price.Equal(order.LineItems[0].Price))
	assert.Equal(t, order.RemoteID, got.RemoteID)
	assert.Equal(t, order.ConnectionID, got.ConnectionID)
	assert.Equal(t, "DE", got.ShippingAddress.CountryCode)
	assert.True(t, got.InBloc)
	assert.True(t, got.TaxApplicable)
	assert.False(t, got.RequiresDutyReview)
	assert.Equal(t, order.RemoteCreatedAt, got.RemoteCreatedAt)
}

func TestOrderDocKeepsObjectID(t *testing.T) {
	objID := primitive.NewObjectID()

	doc := MongoOrderDocFromDomain(&domain.Order{ID: objID.Hex(), TotalPrice: decimal.Zero})
	assert.Equal(t, objID, doc.ID)

	// Malformed IDs are dropped rather than failing the write.
	doc = MongoOrderDocFromDomain(&domain.Order{ID: "not-a-hex-id", TotalPrice: decimal.Zero})
	assert.True(t, doc.ID.IsZero())
}

func TestConnectionDocRoundTrip(t *testing.T) {
	lastSync := time.Date(2025, 4, 10, 8, 0, 0, 0, time.UTC)
	conn := &domain.Connection{
		ID:           primitive.NewObjectID().Hex(),
		StoreDomain:  "demo-store.myshopify.com",
		AccessToken:  "shpat_secret",
		Scope:        "read_orders",
		Status:       domain.ConnectionActive,
		ConnectedAt:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		LastSyncAt:   &lastSync,
		SyncedOrders: 42,
	}

	got := MongoConnectionDocFromDomain(conn).ToDomain()

	assert.Equal(t, conn.ID, got.ID)
	assert.Equal(t, conn.StoreDomain, got.StoreDomain)
	assert.Equal(t, conn.AccessToken, got.AccessToken)
	assert.Equal(t, domain.ConnectionActive, got.Status)
	require.NotNil(t, got.LastSyncAt)
	assert.Equal(t, lastSync, *got.LastSyncAt)
	assert.Equal(t, int64(42), got.SyncedOrders)
}

func TestConnectionDocNilWatermark(t *testing.T) {
	got := MongoConnectionDocFromDomain(&domain.Connection{Status: domain.ConnectionActive}).ToDomain()
	assert.Nil(t, got.LastSyncAt)
}
