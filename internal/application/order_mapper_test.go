package application

import (
	"fmt"
	"testing"
	"time"

	shopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remoteOrder builds a minimal storefront order fixture.
func remoteOrder(id uint64, country, total string, createdAt time.Time) shopify.Order {
	price := decimal.RequireFromString(total)
	created := createdAt
	order := shopify.Order{
		Id:         id,
		Name:       fmt.Sprintf("#%d", id),
		Currency:   "EUR",
		TotalPrice: &price,
		CreatedAt:  &created,
	}
	if country != "" {
		order.ShippingAddress = &shopify.Address{CountryCode: country, City: "Testville"}
	}
	return order
}

func TestMapRemoteOrder(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	syncedAt := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)

	remote := remoteOrder(450789469, "DE", "99.90", created)
	remote.Email = "buyer@example.com"
	remote.FinancialStatus = "paid"
	itemPrice := decimal.RequireFromString("49.95")
	remote.LineItems = []shopify.LineItem{
		{
			Id:             1001,
			ProductId:      77,
			VariantId:      88,
			Title:          "Widget",
			SKU:            "WID-1",
			Quantity:       2,
			Price:          &itemPrice,
			Vendor:         "Acme",
			OriginLocation: &shopify.Address{CountryCode: "CN"},
		},
	}

	order, err := mapRemoteOrder("conn-1", &remote, syncedAt)
	require.NoError(t, err)

	assert.Equal(t, "conn-1", order.ConnectionID)
	assert.Equal(t, int64(450789469), order.RemoteID)
	assert.Equal(t, "#450789469", order.Name)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("99.90")))
	assert.Equal(t, "EUR", order.Currency)
	assert.Equal(t, "DE", order.DestinationCountry)
	assert.Equal(t, "buyer@example.com", order.CustomerEmail)
	assert.Equal(t, "paid", order.FinancialStatus)
	assert.Equal(t, created, order.RemoteCreatedAt)
	assert.Equal(t, syncedAt, order.SyncedAt)

	require.Len(t, order.LineItems, 1)
	assert.Equal(t, int64(77), order.LineItems[0].ProductID)
	assert.Equal(t, 2, order.LineItems[0].Quantity)
	assert.Equal(t, "CN", order.LineItems[0].OriginCountry)

	// In-bloc destination at a qualifying value.
	assert.True(t, order.InBloc)
	assert.True(t, order.Eligible)
	assert.True(t, order.TaxApplicable)
	assert.False(t, order.RequiresDutyReview)
}

func TestMapRemoteOrderPrefersCustomerEmail(t *testing.T) {
	remote := remoteOrder(2, "FR", "50.00", time.Now())
	remote.Email = "checkout@example.com"
	remote.Customer = &shopify.Customer{Id: 9001, Email: "account@example.com"}

	order, err := mapRemoteOrder("conn-1", &remote, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(9001), order.CustomerID)
	assert.Equal(t, "account@example.com", order.CustomerEmail)
}

func TestMapRemoteOrderRejectsMissingRemoteID(t *testing.T) {
	remote := remoteOrder(0, "DE", "50.00", time.Now())

	_, err := mapRemoteOrder("conn-1", &remote, time.Now())
	assert.ErrorIs(t, err, errMissingRemoteID)
}

func TestMapRemoteOrderWithoutDestination(t *testing.T) {
	remote := remoteOrder(3, "", "50.00", time.Now())

	order, err := mapRemoteOrder("conn-1", &remote, time.Now())
	require.NoError(t, err)

	assert.Empty(t, order.DestinationCountry)
	assert.False(t, order.InBloc)
	assert.False(t, order.Eligible)
	assert.False(t, order.TaxApplicable)
	assert.False(t, order.RequiresDutyReview)
}

func TestMapRemoteOrderFlagsDutyReview(t *testing.T) {
	remote := remoteOrder(4, "ES", "150.01", time.Now())

	order, err := mapRemoteOrder("conn-1", &remote, time.Now())
	require.NoError(t, err)

	assert.True(t, order.InBloc)
	assert.False(t, order.Eligible)
	assert.True(t, order.RequiresDutyReview)
}

func TestMapRemoteOrderNilTotal(t *testing.T) {
	created := time.Now()
	remote := shopify.Order{Id: 5, Name: "#5", CreatedAt: &created}
	remote.ShippingAddress = &shopify.Address{CountryCode: "IT"}

	order, err := mapRemoteOrder("conn-1", &remote, time.Now())
	require.NoError(t, err)

	assert.True(t, order.TotalPrice.IsZero())
	assert.True(t, order.InBloc)
	assert.False(t, order.TaxApplicable, "zero-value order owes no tax")
}
