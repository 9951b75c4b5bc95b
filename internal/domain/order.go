package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the internal shape of a storefront order, reduced to what
// compliance classification and reporting need. Orders are keyed by
// (ConnectionID, RemoteID) and re-syncs overwrite them last-write-wins.
type Order struct {
	ID                 string          `json:"id"`
	ConnectionID       string          `json:"connection_id"`
	RemoteID           int64           `json:"remote_id"` // storefront order ID, upsert key
	Name               string          `json:"name"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	Currency           string          `json:"currency"`
	DestinationCountry string          `json:"destination_country"` // ISO 3166-1 alpha-2
	CustomerID         int64           `json:"customer_id,omitempty"`
	CustomerEmail      string          `json:"customer_email,omitempty"`
	FinancialStatus    string          `json:"financial_status"`
	FulfillmentStatus  string          `json:"fulfillment_status"`
	ShippingAddress    Address         `json:"shipping_address"`
	LineItems          []LineItem      `json:"line_items"`

	// Compliance flags derived at transform time, never by the storage layer.
	InBloc             bool `json:"in_bloc"`
	Eligible           bool `json:"eligible"`
	TaxApplicable      bool `json:"tax_applicable"`
	RequiresDutyReview bool `json:"requires_duty_review"`

	RemoteCreatedAt time.Time `json:"remote_created_at"`
	RemoteUpdatedAt time.Time `json:"remote_updated_at"`
	SyncedAt        time.Time `json:"synced_at"`
}

// LineItem is one purchased product line on an order.
type LineItem struct {
	ProductID     int64           `json:"product_id"`
	VariantID     int64           `json:"variant_id"`
	Title         string          `json:"title"`
	SKU           string          `json:"sku,omitempty"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Vendor        string          `json:"vendor,omitempty"`
	OriginCountry string          `json:"origin_country,omitempty"` // where known
}

// Address is the order's shipping destination.
type Address struct {
	Name        string `json:"name,omitempty"`
	Address1    string `json:"address1,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip,omitempty"`
}
