package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	shopify "github.com/bold-commerce/go-shopify/v4"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
	"github.com/wmweemba/ioss-compliance-reporter/internal/ports"
)

// fakeStorefront scripts storefront responses. FetchOrders pops from a
// queue; an empty queue yields an empty page.
type fetchResponse struct {
	page *ports.OrderPage
	err  error
}

type fakeStorefront struct {
	mu sync.Mutex

	exchangeToken string
	exchangeScope string
	exchangeErr   error
	exchangedCode string

	responses  []fetchResponse
	fetchCalls []ports.FetchOptions
}

func (f *fakeStorefront) AuthorizeURL(storeDomain string, state string) string {
	return "https://" + storeDomain + "/admin/oauth/authorize?state=" + state
}

func (f *fakeStorefront) ExchangeToken(_ context.Context, _ string, code string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangedCode = code
	if f.exchangeErr != nil {
		return "", "", f.exchangeErr
	}
	return f.exchangeToken, f.exchangeScope, nil
}

func (f *fakeStorefront) FetchOrders(_ context.Context, _ string, _ string, options ports.FetchOptions) (*ports.OrderPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls = append(f.fetchCalls, options)
	if len(f.responses) == 0 {
		return &ports.OrderPage{}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	if resp.err != nil {
		return nil, resp.err
	}
	return resp.page, nil
}

func (f *fakeStorefront) enqueuePage(orders ...shopify.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fetchResponse{page: &ports.OrderPage{Orders: orders}})
}

func (f *fakeStorefront) enqueueErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fetchResponse{err: err})
}

// fakeConnectionRepo keeps connections in a map, handing out copies so
// callers cannot mutate stored state behind its back.
type fakeConnectionRepo struct {
	mu     sync.Mutex
	conns  map[string]*domain.Connection
	nextID int

	updateErr     error
	syncStateErr  error
	syncStateHits int
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{conns: make(map[string]*domain.Connection)}
}

func (r *fakeConnectionRepo) Create(_ context.Context, connection *domain.Connection) (*domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	cp := *connection
	cp.ID = fmt.Sprintf("conn-%d", r.nextID)
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = time.Now()
	r.conns[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeConnectionRepo) GetByID(_ context.Context, id string) (*domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeConnectionRepo) GetByStoreDomain(_ context.Context, storeDomain string) (*domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conns {
		if c.StoreDomain == storeDomain {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeConnectionRepo) Update(_ context.Context, connection *domain.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.conns[connection.ID]; !ok {
		return domain.ErrConnectionNotFound
	}
	cp := *connection
	r.conns[connection.ID] = &cp
	return nil
}

func (r *fakeConnectionRepo) UpdateSyncState(_ context.Context, id string, lastSyncAt time.Time, syncedOrders int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncStateHits++
	if r.syncStateErr != nil {
		return r.syncStateErr
	}
	c, ok := r.conns[id]
	if !ok {
		return domain.ErrConnectionNotFound
	}
	at := lastSyncAt
	c.LastSyncAt = &at
	c.SyncedOrders = syncedOrders
	return nil
}

// fakeOrderRepo stores orders keyed by (connection, remote ID) the way the
// real upsert does.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order

	bulkErr   error
	bulkCalls int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func orderKey(connectionID string, remoteID int64) string {
	return fmt.Sprintf("%s/%d", connectionID, remoteID)
}

func (r *fakeOrderRepo) BulkUpsert(_ context.Context, orders []*domain.Order) (*ports.UpsertStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulkCalls++
	if r.bulkErr != nil {
		return &ports.UpsertStats{}, r.bulkErr
	}
	stats := &ports.UpsertStats{}
	for _, order := range orders {
		key := orderKey(order.ConnectionID, order.RemoteID)
		if _, ok := r.orders[key]; ok {
			stats.Updated++
		} else {
			stats.Created++
		}
		cp := *order
		r.orders[key] = &cp
	}
	return stats, nil
}

func (r *fakeOrderRepo) CountByConnection(_ context.Context, connectionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key := range r.orders {
		if strings.HasPrefix(key, connectionID+"/") {
			n++
		}
	}
	return n, nil
}

func (r *fakeOrderRepo) MaxRemoteCreatedAt(_ context.Context, connectionID string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var max *time.Time
	for key, order := range r.orders {
		if !strings.HasPrefix(key, connectionID+"/") {
			continue
		}
		if max == nil || order.RemoteCreatedAt.After(*max) {
			at := order.RemoteCreatedAt
			max = &at
		}
	}
	return max, nil
}

func (r *fakeOrderRepo) ListByConnection(_ context.Context, connectionID string, from, to *time.Time) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for key, order := range r.orders {
		if !strings.HasPrefix(key, connectionID+"/") {
			continue
		}
		if from != nil && order.RemoteCreatedAt.Before(*from) {
			continue
		}
		if to != nil && order.RemoteCreatedAt.After(*to) {
			continue
		}
		cp := *order
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemoteCreatedAt.Before(out[j].RemoteCreatedAt) })
	return out, nil
}

// fakeLocker mirrors the memory locker without TTL handling.
type fakeLocker struct {
	mu         sync.Mutex
	held       map[string]bool
	acquireErr error
	denyAll    bool
	acquired   []string
	released   []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.acquireErr != nil {
		return false, l.acquireErr
	}
	if l.denyAll || l.held[key] {
		return false, nil
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	return true, nil
}

func (l *fakeLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	l.released = append(l.released, key)
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []*domain.SyncEvent
}

func (p *fakePublisher) Publish(event *domain.SyncEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) all() []*domain.SyncEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*domain.SyncEvent, len(p.events))
	copy(out, p.events)
	return out
}
