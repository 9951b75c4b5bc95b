// Package shopify adapts the storefront platform's admin API to the
// ports.StorefrontClient interface. The adapter is constructed once at
// process start from injected configuration; it holds no per-merchant state
// beyond the app credentials.
package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
	"github.com/wmweemba/ioss-compliance-reporter/internal/ports"
)

const defaultTimeout = 30 * time.Second

// ClientConfig carries the provider app registration used for every call.
type ClientConfig struct {
	APIKey      string
	APISecret   string
	Scopes      string // comma-separated, no spaces
	RedirectURL string // must match the callback registered with the provider
	Timeout     time.Duration
}

type client struct {
	app        goshopify.App
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewClient creates a storefront client adapter.
func NewClient(cfg ClientConfig, logger zerolog.Logger) ports.StorefrontClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	app := goshopify.App{
		ApiKey:      cfg.APIKey,
		ApiSecret:   cfg.APISecret,
		Scope:       cfg.Scopes,
		RedirectUrl: cfg.RedirectURL,
	}
	return &client{
		app:        app,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client for one store.
func (c *client) createClient(storeDomain, accessToken string) (*goshopify.Client, error) {
	sc, err := goshopify.NewClient(c.app, domain.NormalizeStoreDomain(storeDomain), accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return sc, nil
}

// AuthorizeURL builds the provider consent URL. The go-shopify helper does
// not let us control every parameter, so the URL is constructed manually.
func (c *client) AuthorizeURL(storeDomain string, state string) string {
	shop := domain.NormalizeStoreDomain(storeDomain)
	return fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		c.app.ApiKey,
		url.QueryEscape(c.app.Scope),
		url.QueryEscape(c.app.RedirectUrl),
		url.QueryEscape(state),
	)
}

// ExchangeToken swaps an authorization code for an access token with a
// direct call to the provider's token endpoint. The library helper is
// bypassed so the response scope is captured along with the token.
func (c *client) ExchangeToken(ctx context.Context, storeDomain string, code string) (string, string, error) {
	shop := domain.NormalizeStoreDomain(storeDomain)
	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)

	values := url.Values{}
	values.Set("client_id", c.app.ApiKey)
	values.Set("client_secret", c.app.ApiSecret)
	values.Set("code", code)
	values.Set("redirect_uri", c.app.RedirectUrl)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", &domain.TransportError{Err: fmt.Errorf("token exchange request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", &domain.TransportError{Err: fmt.Errorf("failed to read token response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", &domain.TokenExchangeError{Status: resp.StatusCode, Body: string(body)}
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return "", "", &domain.TokenExchangeError{Status: resp.StatusCode, Body: string(body)}
	}
	if tokenResponse.AccessToken == "" {
		return "", "", &domain.TokenExchangeError{Status: resp.StatusCode, Body: string(body)}
	}

	c.logger.Info().
		Str("shop", shop).
		Str("granted_scope", tokenResponse.Scope).
		Msg("Exchanged authorization code for access token")

	return tokenResponse.AccessToken, tokenResponse.Scope, nil
}

// FetchOrders returns one page of orders in the sequence the platform sent
// them, oldest first so callers can advance a created-at cursor. It never
// retries; backoff belongs to the sync engine.
func (c *client) FetchOrders(ctx context.Context, storeDomain string, accessToken string, options ports.FetchOptions) (*ports.OrderPage, error) {
	sc, err := c.createClient(storeDomain, accessToken)
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}

	status := options.Status
	if status == "" {
		status = "any"
	}
	listOptions := goshopify.OrderListOptions{
		ListOptions: goshopify.ListOptions{Limit: options.Limit},
		Status:      goshopify.OrderStatus(status),
	}
	listOptions.Order = "created_at asc"
	if options.CreatedAfter != nil {
		listOptions.CreatedAtMin = *options.CreatedAfter
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	orders, err := sc.Order.List(ctx, listOptions)
	if err != nil {
		return nil, mapRemoteError(err)
	}

	return &ports.OrderPage{Orders: orders}, nil
}

// mapRemoteError translates go-shopify failures into the domain taxonomy so
// callers never match on library types.
func mapRemoteError(err error) error {
	var rateLimit goshopify.RateLimitError
	if errors.As(err, &rateLimit) {
		return &domain.RateLimitedError{RetryAfter: time.Duration(rateLimit.RetryAfter) * time.Second}
	}

	var response goshopify.ResponseError
	if errors.As(err, &response) {
		switch response.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &domain.AuthError{Status: response.Status}
		default:
			return &domain.TransportError{Status: response.Status, Body: response.Error()}
		}
	}

	return &domain.TransportError{Err: err}
}
