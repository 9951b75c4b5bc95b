package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
	"github.com/wmweemba/ioss-compliance-reporter/internal/ports"
)

// ConnectionService manages the store connection lifecycle
type ConnectionService struct {
	connections ports.ConnectionRepository
	logger      zerolog.Logger
}

// NewConnectionService creates a new connection service
func NewConnectionService(connections ports.ConnectionRepository, logger zerolog.Logger) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		logger:      logger,
	}
}

// CompleteConnection lands handshake credentials on a connection: the
// pending one named in the state token when it still exists, otherwise the
// connection already holding the store domain, otherwise a new one.
func (s *ConnectionService) CompleteConnection(ctx context.Context, result *AuthResult) (*domain.Connection, error) {
	if result.PendingConnectionID != "" {
		connection, err := s.connections.GetByID(ctx, result.PendingConnectionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load pending connection: %w", err)
		}
		if connection != nil {
			connection.Connect(result.StoreDomain, result.AccessToken, result.Scope)
			if err := s.connections.Update(ctx, connection); err != nil {
				s.logger.Error().Err(err).Str("connectionId", connection.ID).Msg("Failed to update pending connection")
				return nil, fmt.Errorf("failed to update connection: %w", err)
			}
			s.logger.Info().
				Str("connectionId", connection.ID).
				Str("shop", result.StoreDomain).
				Msg("Reconnected pending connection")
			return connection, nil
		}
		s.logger.Warn().
			Str("connectionId", result.PendingConnectionID).
			Msg("Pending connection no longer exists, falling back to store domain lookup")
	}

	existing, err := s.connections.GetByStoreDomain(ctx, result.StoreDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing connection: %w", err)
	}
	if existing != nil {
		existing.Connect(result.StoreDomain, result.AccessToken, result.Scope)
		if err := s.connections.Update(ctx, existing); err != nil {
			s.logger.Error().Err(err).Str("connectionId", existing.ID).Msg("Failed to refresh existing connection")
			return nil, fmt.Errorf("failed to update connection: %w", err)
		}
		s.logger.Info().
			Str("connectionId", existing.ID).
			Str("shop", result.StoreDomain).
			Msg("Refreshed credentials on existing connection")
		return existing, nil
	}

	connection := &domain.Connection{}
	connection.Connect(result.StoreDomain, result.AccessToken, result.Scope)

	created, err := s.connections.Create(ctx, connection)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", result.StoreDomain).Msg("Failed to create connection")
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	s.logger.Info().
		Str("connectionId", created.ID).
		Str("shop", result.StoreDomain).
		Msg("Created new connection")

	return created, nil
}

// Get retrieves a connection by ID
func (s *ConnectionService) Get(ctx context.Context, id string) (*domain.Connection, error) {
	if id == "" {
		return nil, fmt.Errorf("connection id: %w", domain.ErrMissingParameter)
	}

	connection, err := s.connections.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	if connection == nil {
		return nil, domain.ErrConnectionNotFound
	}

	return connection, nil
}

// Disconnect clears the store domain and credential together. Synced data
// stays behind for audit. Disconnecting twice is a no-op.
func (s *ConnectionService) Disconnect(ctx context.Context, id string) error {
	connection, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	connection.Disconnect()
	if err := s.connections.Update(ctx, connection); err != nil {
		s.logger.Error().Err(err).Str("connectionId", id).Msg("Failed to disconnect connection")
		return fmt.Errorf("failed to disconnect connection: %w", err)
	}

	s.logger.Info().Str("connectionId", id).Msg("Connection disconnected")
	return nil
}
