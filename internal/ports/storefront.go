package ports

import (
	"context"
	"time"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// FetchOptions narrows one page of remote order listing.
type FetchOptions struct {
	Limit        int
	CreatedAfter *time.Time // exclusive lower bound on the remote creation time
	Status       string     // defaults to "any"
}

// OrderPage is one page of remote orders in the sequence the storefront
// returned them.
type OrderPage struct {
	Orders []shopify.Order
}

// StorefrontClient defines the interface for storefront API operations
type StorefrontClient interface {
	// AuthorizeURL builds the provider consent URL for a store. Pure string
	// construction; no network call.
	AuthorizeURL(storeDomain string, state string) string

	// ExchangeToken swaps an authorization code for an access token and the
	// scope the merchant actually granted.
	ExchangeToken(ctx context.Context, storeDomain string, code string) (accessToken string, grantedScope string, err error)

	// FetchOrders returns a single page; callers drive further pages by
	// advancing FetchOptions.CreatedAfter.
	FetchOrders(ctx context.Context, storeDomain string, accessToken string, options FetchOptions) (*OrderPage, error)
}
