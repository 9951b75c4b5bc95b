package domain

import (
	"strings"
	"time"
)

// ConnectionStatus tracks the lifecycle of a store connection.
type ConnectionStatus string

const (
	ConnectionActive       ConnectionStatus = "active"
	ConnectionNeedsReauth  ConnectionStatus = "needs_reauthorization"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// Connection represents a merchant store linked to the reporter. The store
// domain and access token are set and cleared together; a connection holding
// one without the other is invalid.
type Connection struct {
	ID           string           `json:"id"`
	StoreDomain  string           `json:"store_domain"`
	AccessToken  string           `json:"-"` // OAuth credential, never serialized outward
	Scope        string           `json:"scope"`
	Status       ConnectionStatus `json:"status"`
	ConnectedAt  time.Time        `json:"connected_at"`
	LastSyncAt   *time.Time       `json:"last_sync_at,omitempty"` // incremental sync watermark
	SyncedOrders int64            `json:"synced_orders"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Connected reports whether the connection holds usable store credentials.
func (c *Connection) Connected() bool {
	return c.StoreDomain != "" && c.AccessToken != ""
}

// Connect installs the credentials obtained from a completed authorization
// handshake.
func (c *Connection) Connect(storeDomain, accessToken, scope string) {
	c.StoreDomain = storeDomain
	c.AccessToken = accessToken
	c.Scope = scope
	c.Status = ConnectionActive
	c.ConnectedAt = time.Now().UTC()
}

// Disconnect clears the store domain and credential together. Synced orders
// and the watermark are kept for audit.
func (c *Connection) Disconnect() {
	c.StoreDomain = ""
	c.AccessToken = ""
	c.Scope = ""
	c.Status = ConnectionDisconnected
}

// NormalizeStoreDomain lowercases a merchant-supplied store identifier,
// strips any scheme or trailing slash, and appends the platform's canonical
// suffix when only the bare store handle was given.
func NormalizeStoreDomain(store string) string {
	s := strings.ToLower(strings.TrimSpace(store))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		return ""
	}
	if !strings.Contains(s, ".") {
		s += ".myshopify.com"
	}
	return s
}
