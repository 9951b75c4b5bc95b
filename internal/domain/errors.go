package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for request validation and handshake failures. Callers
// match them with errors.Is.
var (
	ErrMissingParameter   = errors.New("missing required parameter")
	ErrInvalidState       = errors.New("invalid authorization state")
	ErrExpiredState       = errors.New("expired authorization state")
	ErrSignatureMismatch  = errors.New("callback signature mismatch")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrNotConnected       = errors.New("connection has no store credentials")
	ErrSyncInProgress     = errors.New("sync already running for this connection")
)

// ConfigurationError reports provider credentials or endpoints missing from
// the environment. Raised when a handshake is initiated, not at startup.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration incomplete: missing %s", strings.Join(e.Missing, ", "))
}

// TokenExchangeError carries the upstream response from a failed
// code-for-token exchange.
type TokenExchangeError struct {
	Status int
	Body   string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.Status, e.Body)
}

// AuthError marks a credential the storefront rejected. The sync engine
// flags the connection for re-authorization instead of retrying.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("storefront rejected credentials (status %d)", e.Status)
}

// RateLimitedError reports an upstream 429 along with the delay the
// storefront asked for before the next attempt.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("storefront rate limit hit, retry after %s", e.RetryAfter)
}

// TransportError covers network failures, timeouts and unexpected upstream
// statuses.
type TransportError struct {
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storefront transport failure: %v", e.Err)
	}
	return fmt.Sprintf("storefront returned status %d: %s", e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PersistenceError wraps storage failures so callers can tell them apart
// from upstream API failures.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
