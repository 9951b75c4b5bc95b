package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
	"github.com/wmweemba/ioss-compliance-reporter/internal/ports"
)

// authStateTTL bounds how long an issued state token stays redeemable.
const authStateTTL = 10 * time.Minute

// AuthConfig carries the provider app registration the handshake signs with.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
}

// AuthResult is the outcome of a completed authorization handshake. The
// caller decides which connection the credentials land on.
type AuthResult struct {
	StoreDomain         string
	AccessToken         string
	Scope               string
	PendingConnectionID string
}

// AuthService implements the authorization handshake with the storefront
// provider: signed state tokens out, verified callbacks in.
type AuthService struct {
	config     AuthConfig
	storefront ports.StorefrontClient
	locker     ports.Locker
	logger     zerolog.Logger
}

// NewAuthService creates a new authorization service
func NewAuthService(config AuthConfig, storefront ports.StorefrontClient, locker ports.Locker, logger zerolog.Logger) *AuthService {
	return &AuthService{
		config:     config,
		storefront: storefront,
		locker:     locker,
		logger:     logger,
	}
}

// stateToken is the payload round-tripped through the provider during the
// handshake. It is signed, not encrypted; it must not carry secrets.
type stateToken struct {
	Nonce        string `json:"nonce"`
	ConnectionID string `json:"connection_id,omitempty"`
	IssuedAt     int64  `json:"issued_at"` // unix milliseconds
}

// BeginAuthorization validates the request, mints a signed state token and
// returns the provider consent URL to redirect the merchant to.
func (s *AuthService) BeginAuthorization(_ context.Context, storeDomain string, pendingConnectionID string) (string, error) {
	if strings.TrimSpace(storeDomain) == "" {
		return "", fmt.Errorf("store domain: %w", domain.ErrMissingParameter)
	}
	if err := s.checkConfigured(); err != nil {
		return "", err
	}

	state, err := s.newState(pendingConnectionID)
	if err != nil {
		return "", fmt.Errorf("failed to create state token: %w", err)
	}

	shop := domain.NormalizeStoreDomain(storeDomain)
	authURL := s.storefront.AuthorizeURL(shop, state)

	s.logger.Info().
		Str("shop", shop).
		Str("connectionId", pendingConnectionID).
		Msg("Generated authorization URL")

	return authURL, nil
}

// CompleteAuthorization verifies a provider callback and exchanges its code
// for an access token. Verification order is fixed: request signature first,
// then the state token, then the exchange. A state token is redeemable once.
func (s *AuthService) CompleteAuthorization(ctx context.Context, query url.Values) (*AuthResult, error) {
	if err := s.checkConfigured(); err != nil {
		return nil, err
	}

	code := query.Get("code")
	shop := query.Get("shop")
	state := query.Get("state")
	if code == "" || shop == "" || state == "" {
		return nil, fmt.Errorf("code, shop and state are required: %w", domain.ErrMissingParameter)
	}

	if err := verifyCallbackSignature(query, s.config.ClientSecret); err != nil {
		s.logger.Warn().Str("shop", shop).Msg("Rejected callback with bad signature")
		return nil, err
	}

	token, err := s.decodeState(state)
	if err != nil {
		s.logger.Warn().Str("shop", shop).Msg("Rejected callback with bad state token")
		return nil, err
	}
	if time.Since(time.UnixMilli(token.IssuedAt)) > authStateTTL {
		return nil, domain.ErrExpiredState
	}

	// Burn the nonce so a replayed callback cannot redeem the same state.
	acquired, err := s.locker.Acquire(ctx, "authstate:"+token.Nonce, authStateTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to burn state nonce: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("state already consumed: %w", domain.ErrInvalidState)
	}

	normalized := domain.NormalizeStoreDomain(shop)
	accessToken, grantedScope, err := s.storefront.ExchangeToken(ctx, normalized, code)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", normalized).Msg("Failed to exchange authorization code")
		return nil, err
	}

	s.logger.Info().
		Str("shop", normalized).
		Str("connectionId", token.ConnectionID).
		Msg("Authorization handshake completed")

	return &AuthResult{
		StoreDomain:         normalized,
		AccessToken:         accessToken,
		Scope:               grantedScope,
		PendingConnectionID: token.ConnectionID,
	}, nil
}

// checkConfigured reports which provider credentials are absent. The check
// runs per handshake so the service can boot without them.
func (s *AuthService) checkConfigured() error {
	var missing []string
	if s.config.ClientID == "" {
		missing = append(missing, "SHOPIFY_API_KEY")
	}
	if s.config.ClientSecret == "" {
		missing = append(missing, "SHOPIFY_API_SECRET")
	}
	if len(missing) > 0 {
		return &domain.ConfigurationError{Missing: missing}
	}
	return nil
}

// newState mints a signed single-use state token.
func (s *AuthService) newState(pendingConnectionID string) (string, error) {
	payload, err := json.Marshal(stateToken{
		Nonce:        uuid.NewString(),
		ConnectionID: pendingConnectionID,
		IssuedAt:     time.Now().UnixMilli(),
	})
	if err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + signPayload(payload, s.config.ClientSecret), nil
}

// decodeState checks the token's signature and shape. Expiry is the
// caller's concern; a stale token is a different failure than a forged one.
func (s *AuthService) decodeState(state string) (*stateToken, error) {
	encoded, signature, found := strings.Cut(state, ".")
	if !found {
		return nil, fmt.Errorf("malformed state token: %w", domain.ErrInvalidState)
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("undecodable state token: %w", domain.ErrInvalidState)
	}

	if !hmac.Equal([]byte(signature), []byte(signPayload(payload, s.config.ClientSecret))) {
		return nil, fmt.Errorf("state signature mismatch: %w", domain.ErrInvalidState)
	}

	var token stateToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("unparseable state token: %w", domain.ErrInvalidState)
	}
	if token.Nonce == "" {
		return nil, fmt.Errorf("state token missing nonce: %w", domain.ErrInvalidState)
	}

	return &token, nil
}

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verifyCallbackSignature checks the provider's HMAC over the callback
// query: every parameter except the signature itself, keys sorted, values
// joined with commas, pairs joined with ampersands.
func verifyCallbackSignature(query url.Values, secret string) error {
	provided := query.Get("hmac")
	if provided == "" {
		return fmt.Errorf("callback carries no hmac: %w", domain.ErrSignatureMismatch)
	}

	keys := make([]string, 0, len(query))
	for key := range query {
		if key == "hmac" || key == "signature" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+strings.Join(query[key], ","))
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return domain.ErrSignatureMismatch
	}

	return nil
}
