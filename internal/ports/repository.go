package ports

import (
	"context"
	"time"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
)

// ConnectionRepository defines the interface for connection persistence
type ConnectionRepository interface {
	Create(ctx context.Context, connection *domain.Connection) (*domain.Connection, error)
	GetByID(ctx context.Context, id string) (*domain.Connection, error)
	GetByStoreDomain(ctx context.Context, storeDomain string) (*domain.Connection, error)
	Update(ctx context.Context, connection *domain.Connection) error
	// UpdateSyncState advances the incremental watermark and the synced
	// order count after a sync pass.
	UpdateSyncState(ctx context.Context, id string, lastSyncAt time.Time, syncedOrders int64) error
}

// OrderRepository defines the interface for synced order persistence
type OrderRepository interface {
	// BulkUpsert persists one batch keyed by remote order ID, unordered:
	// a rejected record must not abort the rest of the batch.
	BulkUpsert(ctx context.Context, orders []*domain.Order) (*UpsertStats, error)
	CountByConnection(ctx context.Context, connectionID string) (int64, error)
	// MaxRemoteCreatedAt returns the newest remote creation timestamp among
	// persisted orders for the connection, or nil when none exist.
	MaxRemoteCreatedAt(ctx context.Context, connectionID string) (*time.Time, error)
	ListByConnection(ctx context.Context, connectionID string, from, to *time.Time) ([]*domain.Order, error)
}

// UpsertStats reports how a bulk upsert split between inserts and overwrites.
type UpsertStats struct {
	Created int64
	Updated int64
}
