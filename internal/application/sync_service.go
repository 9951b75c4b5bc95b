package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
	"github.com/wmweemba/ioss-compliance-reporter/internal/ports"
)

// SyncConfig bounds one sync pass.
type SyncConfig struct {
	PageSize        int           // remote page size per fetch
	Deadline        time.Duration // overall budget for one pass
	MaxPageAttempts int           // tries per page when rate limited
	LockTTL         time.Duration // cross-instance lock lifetime
}

// DefaultSyncConfig returns the production defaults.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		PageSize:        250,
		Deadline:        3 * time.Minute,
		MaxPageAttempts: 3,
		LockTTL:         4 * time.Minute,
	}
}

func (c SyncConfig) withDefaults() SyncConfig {
	defaults := DefaultSyncConfig()
	if c.PageSize <= 0 {
		c.PageSize = defaults.PageSize
	}
	if c.Deadline <= 0 {
		c.Deadline = defaults.Deadline
	}
	if c.MaxPageAttempts <= 0 {
		c.MaxPageAttempts = defaults.MaxPageAttempts
	}
	if c.LockTTL <= 0 {
		c.LockTTL = c.Deadline + time.Minute
	}
	return c
}

// SyncService pulls orders from the storefront into local storage. One sync
// per connection runs at a time: duplicate triggers inside the process
// collapse onto the running pass via singleflight, and triggers on other
// instances fail fast on the shared lock.
type SyncService struct {
	connections ports.ConnectionRepository
	orders      ports.OrderRepository
	storefront  ports.StorefrontClient
	locker      ports.Locker
	publisher   ports.SyncEventPublisher
	config      SyncConfig
	group       singleflight.Group
	logger      zerolog.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(
	connections ports.ConnectionRepository,
	orders ports.OrderRepository,
	storefront ports.StorefrontClient,
	locker ports.Locker,
	publisher ports.SyncEventPublisher,
	config SyncConfig,
	logger zerolog.Logger,
) *SyncService {
	return &SyncService{
		connections: connections,
		orders:      orders,
		storefront:  storefront,
		locker:      locker,
		publisher:   publisher,
		config:      config.withDefaults(),
		logger:      logger,
	}
}

// SyncFull reconciles every order the storefront holds for the connection.
func (s *SyncService) SyncFull(ctx context.Context, connectionID string) (*domain.SyncResult, error) {
	return s.sync(ctx, connectionID, true)
}

// SyncIncremental reconciles orders created since the connection's
// watermark. Without a watermark it behaves like a full sync.
func (s *SyncService) SyncIncremental(ctx context.Context, connectionID string) (*domain.SyncResult, error) {
	return s.sync(ctx, connectionID, false)
}

func (s *SyncService) sync(ctx context.Context, connectionID string, full bool) (*domain.SyncResult, error) {
	if connectionID == "" {
		return nil, fmt.Errorf("connection id: %w", domain.ErrMissingParameter)
	}

	// Concurrent triggers for the same connection share one pass and one
	// outcome. The first caller's context drives the shared run.
	v, err, _ := s.group.Do(connectionID, func() (interface{}, error) {
		return s.syncLocked(ctx, connectionID, full)
	})
	result, _ := v.(*domain.SyncResult)
	return result, err
}

func (s *SyncService) syncLocked(ctx context.Context, connectionID string, full bool) (*domain.SyncResult, error) {
	lockKey := "sync:" + connectionID
	acquired, err := s.locker.Acquire(ctx, lockKey, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, domain.ErrSyncInProgress
	}
	defer func() {
		if err := s.locker.Release(context.Background(), lockKey); err != nil {
			s.logger.Warn().Err(err).Str("connectionId", connectionID).Msg("Failed to release sync lock")
		}
	}()

	started := time.Now()
	result, runErr := s.run(ctx, connectionID, full)

	event := &domain.SyncEvent{
		ConnectionID: connectionID,
		Full:         full,
		Result:       result,
		Duration:     time.Since(started),
		At:           time.Now().UTC(),
	}
	if runErr != nil {
		event.Err = runErr.Error()
		s.logger.Error().
			Err(runErr).
			Str("connectionId", connectionID).
			Bool("full", full).
			Int64("processed", result.Processed).
			Dur("duration", event.Duration).
			Msg("Sync failed")
	} else {
		s.logger.Info().
			Str("connectionId", connectionID).
			Bool("full", full).
			Int64("processed", result.Processed).
			Int64("created", result.Created).
			Int64("updated", result.Updated).
			Int64("dutyReview", result.DutyReview).
			Dur("duration", event.Duration).
			Msg("Sync completed")
	}
	s.publisher.Publish(event)

	return result, runErr
}

// run executes the page loop. The returned result is never nil; on failure
// it carries the counts accumulated before the pass stopped.
func (s *SyncService) run(parent context.Context, connectionID string, full bool) (*domain.SyncResult, error) {
	result := &domain.SyncResult{}

	connection, err := s.connections.GetByID(parent, connectionID)
	if err != nil {
		return result, &domain.PersistenceError{Err: err}
	}
	if connection == nil {
		return result, domain.ErrConnectionNotFound
	}
	if !connection.Connected() {
		return result, domain.ErrNotConnected
	}

	var cursor *time.Time
	if !full {
		cursor, err = s.watermark(parent, connection)
		if err != nil {
			return result, err
		}
	}

	ctx, cancel := context.WithTimeout(parent, s.config.Deadline)
	defer cancel()

	syncedAt := time.Now().UTC()

	for {
		page, err := s.fetchPage(ctx, connection, cursor)
		if err != nil {
			return result, s.mapSyncFailure(parent, connection.ID, err)
		}
		if len(page.Orders) == 0 {
			break
		}

		batch := make([]*domain.Order, 0, len(page.Orders))
		var pageMax time.Time
		for i := range page.Orders {
			result.Processed++
			order, err := mapRemoteOrder(connection.ID, &page.Orders[i], syncedAt)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("connectionId", connection.ID).
					Msg("Skipping unusable order record")
				continue
			}
			if order.RequiresDutyReview {
				result.DutyReview++
			}
			if order.RemoteCreatedAt.After(pageMax) {
				pageMax = order.RemoteCreatedAt
			}
			batch = append(batch, order)
		}

		if len(batch) > 0 {
			stats, err := s.orders.BulkUpsert(ctx, batch)
			if stats != nil {
				result.Created += stats.Created
				result.Updated += stats.Updated
			}
			if err != nil {
				return result, s.mapSyncFailure(parent, connection.ID, &domain.PersistenceError{Err: err})
			}
		}

		if len(page.Orders) < s.config.PageSize {
			break
		}

		// A full page that cannot advance the cursor would refetch itself
		// forever. Stop; the next run resumes from here and upserts are
		// idempotent.
		if pageMax.IsZero() || (cursor != nil && !pageMax.After(*cursor)) {
			s.logger.Warn().
				Str("connectionId", connection.ID).
				Time("pageMax", pageMax).
				Msg("Creation-time cursor stalled, stopping early")
			break
		}
		next := pageMax
		cursor = &next
	}

	// Bookkeeping is best-effort: a failed watermark write costs a little
	// refetching next run, never the pass.
	s.updateSyncState(parent, connection.ID, syncedAt)

	return result, nil
}

// watermark picks the incremental lower bound: the later of the stored
// watermark and the newest persisted order. A stale stored watermark (a
// best-effort update that never landed) is healed by the order data itself.
func (s *SyncService) watermark(ctx context.Context, connection *domain.Connection) (*time.Time, error) {
	maxRemote, err := s.orders.MaxRemoteCreatedAt(ctx, connection.ID)
	if err != nil {
		return nil, &domain.PersistenceError{Err: err}
	}

	cursor := connection.LastSyncAt
	if maxRemote != nil && (cursor == nil || maxRemote.After(*cursor)) {
		cursor = maxRemote
	}
	return cursor, nil
}

// fetchPage fetches one page, absorbing rate-limit pushback. Any other
// failure is terminal for the pass.
func (s *SyncService) fetchPage(ctx context.Context, connection *domain.Connection, cursor *time.Time) (*ports.OrderPage, error) {
	options := ports.FetchOptions{
		Limit:        s.config.PageSize,
		CreatedAfter: cursor,
	}

	for attempt := 1; ; attempt++ {
		page, err := s.storefront.FetchOrders(ctx, connection.StoreDomain, connection.AccessToken, options)
		if err == nil {
			return page, nil
		}

		var rateLimited *domain.RateLimitedError
		if !errors.As(err, &rateLimited) || attempt >= s.config.MaxPageAttempts {
			return nil, err
		}

		wait := rateLimited.RetryAfter
		if wait <= 0 {
			wait = time.Second
		}
		s.logger.Warn().
			Str("connectionId", connection.ID).
			Dur("retryAfter", wait).
			Int("attempt", attempt).
			Msg("Storefront rate limit hit, backing off")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// mapSyncFailure applies side effects for terminal failures and normalizes
// the error. The parent context is used for writes so an expired sync
// deadline cannot block them.
func (s *SyncService) mapSyncFailure(ctx context.Context, connectionID string, err error) error {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		s.markNeedsReauthorization(ctx, connectionID)
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TransportError{Err: fmt.Errorf("sync timed out after %s: %w", s.config.Deadline, err)}
	}

	return err
}

func (s *SyncService) markNeedsReauthorization(ctx context.Context, connectionID string) {
	connection, err := s.connections.GetByID(ctx, connectionID)
	if err != nil || connection == nil {
		s.logger.Warn().Err(err).Str("connectionId", connectionID).Msg("Failed to load connection for reauthorization flag")
		return
	}

	connection.Status = domain.ConnectionNeedsReauth
	if err := s.connections.Update(ctx, connection); err != nil {
		s.logger.Warn().Err(err).Str("connectionId", connectionID).Msg("Failed to flag connection for reauthorization")
		return
	}

	s.logger.Warn().Str("connectionId", connectionID).Msg("Connection flagged for reauthorization")
}

func (s *SyncService) updateSyncState(ctx context.Context, connectionID string, lastSyncAt time.Time) {
	count, err := s.orders.CountByConnection(ctx, connectionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("connectionId", connectionID).Msg("Failed to count synced orders")
		return
	}
	if err := s.connections.UpdateSyncState(ctx, connectionID, lastSyncAt, count); err != nil {
		s.logger.Warn().Err(err).Str("connectionId", connectionID).Msg("Failed to advance sync watermark")
	}
}
