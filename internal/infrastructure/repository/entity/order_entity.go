package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
)

// MongoOrderDoc represents a synced order in MongoDB. Money is stored as
// Decimal128 so aggregation stays exact; re-syncs upsert on
// (connectionId, remoteId).
type MongoOrderDoc struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty"`
	ConnectionID       string               `bson:"connectionId"`
	RemoteID           int64                `bson:"remoteId"`
	Name               string               `bson:"name"`
	TotalPrice         primitive.Decimal128 `bson:"totalPrice"`
	Currency           string               `bson:"currency"`
	DestinationCountry string               `bson:"destinationCountry"`
	CustomerID         int64                `bson:"customerId,omitempty"`
	CustomerEmail      string               `bson:"customerEmail,omitempty"`
	FinancialStatus    string               `bson:"financialStatus"`
	FulfillmentStatus  string               `bson:"fulfillmentStatus"`
	ShippingAddress    MongoAddressDoc      `bson:"shippingAddress"`
	LineItems          []MongoLineItemDoc   `bson:"lineItems"`
	InBloc             bool                 `bson:"inBloc"`
	Eligible           bool                 `bson:"eligible"`
	TaxApplicable      bool                 `bson:"taxApplicable"`
	RequiresDutyReview bool                 `bson:"requiresDutyReview"`
	RemoteCreatedAt    time.Time            `bson:"remoteCreatedAt"`
	RemoteUpdatedAt    time.Time            `bson:"remoteUpdatedAt"`
	SyncedAt           time.Time            `bson:"syncedAt"`
}

// MongoLineItemDoc represents one order line in MongoDB
type MongoLineItemDoc struct {
	ProductID     int64                `bson:"productId"`
	VariantID     int64                `bson:"variantId"`
	Title         string               `bson:"title"`
	SKU           string               `bson:"sku,omitempty"`
	Quantity      int                  `bson:"quantity"`
	Price         primitive.Decimal128 `bson:"price"`
	Vendor        string               `bson:"vendor,omitempty"`
	OriginCountry string               `bson:"originCountry,omitempty"`
}

// MongoAddressDoc represents a shipping destination in MongoDB
type MongoAddressDoc struct {
	Name        string `bson:"name,omitempty"`
	Address1    string `bson:"address1,omitempty"`
	City        string `bson:"city,omitempty"`
	Province    string `bson:"province,omitempty"`
	CountryCode string `bson:"countryCode"`
	Zip         string `bson:"zip,omitempty"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoOrderDoc) ToDomain() *domain.Order {
	lineItems := make([]domain.LineItem, 0, len(d.LineItems))
	for _, li := range d.LineItems {
		lineItems = append(lineItems, domain.LineItem{
			ProductID:     li.ProductID,
			VariantID:     li.VariantID,
			Title:         li.Title,
			SKU:           li.SKU,
			Quantity:      li.Quantity,
			Price:         decimalFromMongo(li.Price),
			Vendor:        li.Vendor,
			OriginCountry: li.OriginCountry,
		})
	}

	return &domain.Order{
		ID:                 d.ID.Hex(),
		ConnectionID:       d.ConnectionID,
		RemoteID:           d.RemoteID,
		Name:               d.Name,
		TotalPrice:         decimalFromMongo(d.TotalPrice),
		Currency:           d.Currency,
		DestinationCountry: d.DestinationCountry,
		CustomerID:         d.CustomerID,
		CustomerEmail:      d.CustomerEmail,
		FinancialStatus:    d.FinancialStatus,
		FulfillmentStatus:  d.FulfillmentStatus,
		ShippingAddress: domain.Address{
			Name:        d.ShippingAddress.Name,
			Address1:    d.ShippingAddress.Address1,
			City:        d.ShippingAddress.City,
			Province:    d.ShippingAddress.Province,
			CountryCode: d.ShippingAddress.CountryCode,
			Zip:         d.ShippingAddress.Zip,
		},
		LineItems:          lineItems,
		InBloc:             d.InBloc,
		Eligible:           d.Eligible,
		TaxApplicable:      d.TaxApplicable,
		RequiresDutyReview: d.RequiresDutyReview,
		RemoteCreatedAt:    d.RemoteCreatedAt,
		RemoteUpdatedAt:    d.RemoteUpdatedAt,
		SyncedAt:           d.SyncedAt,
	}
}

// MongoOrderDocFromDomain converts a domain entity to a MongoDB document
func MongoOrderDocFromDomain(order *domain.Order) *MongoOrderDoc {
	lineItems := make([]MongoLineItemDoc, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		lineItems = append(lineItems, MongoLineItemDoc{
			ProductID:     li.ProductID,
			VariantID:     li.VariantID,
			Title:         li.Title,
			SKU:           li.SKU,
			Quantity:      li.Quantity,
			Price:         decimalToMongo(li.Price),
			Vendor:        li.Vendor,
			OriginCountry: li.OriginCountry,
		})
	}

	doc := &MongoOrderDoc{
		ConnectionID:       order.ConnectionID,
		RemoteID:           order.RemoteID,
		Name:               order.Name,
		TotalPrice:         decimalToMongo(order.TotalPrice),
		Currency:           order.Currency,
		DestinationCountry: order.DestinationCountry,
		CustomerID:         order.CustomerID,
		CustomerEmail:      order.CustomerEmail,
		FinancialStatus:    order.FinancialStatus,
		FulfillmentStatus:  order.FulfillmentStatus,
		ShippingAddress: MongoAddressDoc{
			Name:        order.ShippingAddress.Name,
			Address1:    order.ShippingAddress.Address1,
			City:        order.ShippingAddress.City,
			Province:    order.ShippingAddress.Province,
			CountryCode: order.ShippingAddress.CountryCode,
			Zip:         order.ShippingAddress.Zip,
		},
		LineItems:          lineItems,
		InBloc:             order.InBloc,
		Eligible:           order.Eligible,
		TaxApplicable:      order.TaxApplicable,
		RequiresDutyReview: order.RequiresDutyReview,
		RemoteCreatedAt:    order.RemoteCreatedAt,
		RemoteUpdatedAt:    order.RemoteUpdatedAt,
		SyncedAt:           order.SyncedAt,
	}

	if order.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(order.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}

func decimalToMongo(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		v, _ = primitive.ParseDecimal128("0")
	}
	return v
}

func decimalFromMongo(d primitive.Decimal128) decimal.Decimal {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero
	}
	return v
}
