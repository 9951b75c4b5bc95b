package application

import (
	"errors"
	"fmt"
	"time"

	shopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/shopspring/decimal"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
	"github.com/wmweemba/ioss-compliance-reporter/internal/vat"
)

// errMissingRemoteID marks a storefront record that cannot be keyed for
// upsert. The sync engine skips such records instead of aborting the batch.
var errMissingRemoteID = errors.New("order carries no remote id")

// mapRemoteOrder converts one storefront order into the internal shape and
// derives its compliance flags. Classification happens here, at transform
// time; the storage layer never computes flags.
func mapRemoteOrder(connectionID string, remote *shopify.Order, syncedAt time.Time) (*domain.Order, error) {
	if remote.Id == 0 {
		return nil, fmt.Errorf("order %q: %w", remote.Name, errMissingRemoteID)
	}

	total := decimal.Zero
	if remote.TotalPrice != nil {
		total = *remote.TotalPrice
	}

	order := &domain.Order{
		ConnectionID:      connectionID,
		RemoteID:          int64(remote.Id),
		Name:              remote.Name,
		TotalPrice:        total,
		Currency:          remote.Currency,
		CustomerEmail:     remote.Email,
		FinancialStatus:   string(remote.FinancialStatus),
		FulfillmentStatus: string(remote.FulfillmentStatus),
		SyncedAt:          syncedAt,
	}

	if remote.Customer != nil {
		order.CustomerID = int64(remote.Customer.Id)
		if remote.Customer.Email != "" {
			order.CustomerEmail = remote.Customer.Email
		}
	}

	if remote.ShippingAddress != nil {
		order.DestinationCountry = remote.ShippingAddress.CountryCode
		order.ShippingAddress = domain.Address{
			Name:        remote.ShippingAddress.Name,
			Address1:    remote.ShippingAddress.Address1,
			City:        remote.ShippingAddress.City,
			Province:    remote.ShippingAddress.Province,
			CountryCode: remote.ShippingAddress.CountryCode,
			Zip:         remote.ShippingAddress.Zip,
		}
	}

	order.LineItems = make([]domain.LineItem, 0, len(remote.LineItems))
	for _, li := range remote.LineItems {
		price := decimal.Zero
		if li.Price != nil {
			price = *li.Price
		}
		item := domain.LineItem{
			ProductID: int64(li.ProductId),
			VariantID: int64(li.VariantId),
			Title:     li.Title,
			SKU:       li.SKU,
			Quantity:  li.Quantity,
			Price:     price,
			Vendor:    li.Vendor,
		}
		if li.OriginLocation != nil {
			item.OriginCountry = li.OriginLocation.CountryCode
		}
		order.LineItems = append(order.LineItems, item)
	}

	if remote.CreatedAt != nil {
		order.RemoteCreatedAt = *remote.CreatedAt
	}
	if remote.UpdatedAt != nil {
		order.RemoteUpdatedAt = *remote.UpdatedAt
	}

	flags := vat.Classify(order.DestinationCountry, order.TotalPrice)
	order.InBloc = flags.InBloc
	order.Eligible = flags.Eligible
	order.TaxApplicable = flags.TaxApplicable
	order.RequiresDutyReview = flags.RequiresDutyReview

	return order, nil
}
