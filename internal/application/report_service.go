package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
	"github.com/wmweemba/ioss-compliance-reporter/internal/ports"
	"github.com/wmweemba/ioss-compliance-reporter/internal/vat"
)

// ReportConfig parameterizes VAT derivation for every report the service
// builds.
type ReportConfig struct {
	Convention  vat.TaxConvention
	DefaultRate decimal.Decimal // percent, applied when a member state is missing from the rate table
}

// Report is one rendered regulator artifact plus the metadata handlers and
// metrics need.
type Report struct {
	Filename  string
	CSV       string
	Sample    bool     // true when no eligible orders existed and demo rows were substituted
	Fallbacks []string // member states that fell back to the default rate
	Rows      []vat.JurisdictionAggregate
}

// ReportService builds per-jurisdiction VAT return artifacts from synced
// orders.
type ReportService struct {
	connections ports.ConnectionRepository
	orders      ports.OrderRepository
	config      ReportConfig
	logger      zerolog.Logger
}

// NewReportService creates a new report service
func NewReportService(connections ports.ConnectionRepository, orders ports.OrderRepository, config ReportConfig, logger zerolog.Logger) *ReportService {
	return &ReportService{
		connections: connections,
		orders:      orders,
		config:      config,
		logger:      logger,
	}
}

// BuildReport renders the VAT return for a connection, optionally windowed
// by remote creation time. Disconnected connections still report: synced
// orders are kept for audit. When the window holds no eligible orders a
// clearly labeled sample artifact is returned instead so merchants can
// preview the format.
func (s *ReportService) BuildReport(ctx context.Context, connectionID string, from, to *time.Time) (*Report, error) {
	if connectionID == "" {
		return nil, fmt.Errorf("connection id: %w", domain.ErrMissingParameter)
	}

	connection, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		s.logger.Error().Err(err).Str("connectionId", connectionID).Msg("Failed to load connection for report")
		return nil, &domain.PersistenceError{Err: err}
	}
	if connection == nil {
		return nil, domain.ErrConnectionNotFound
	}

	orders, err := s.orders.ListByConnection(ctx, connectionID, from, to)
	if err != nil {
		s.logger.Error().Err(err).Str("connectionId", connectionID).Msg("Failed to load orders for report")
		return nil, &domain.PersistenceError{Err: err}
	}

	rows, fallbacks := vat.Aggregate(orders, vat.AggregateOptions{
		From:        from,
		To:          to,
		Convention:  s.config.Convention,
		DefaultRate: s.config.DefaultRate,
	})

	sample := len(rows) == 0
	if sample {
		rows, fallbacks = vat.Aggregate(sampleOrders(), vat.AggregateOptions{
			Convention:  s.config.Convention,
			DefaultRate: s.config.DefaultRate,
		})
		s.logger.Info().Str("connectionId", connectionID).Msg("No eligible orders in range, returning sample report")
	}

	if len(fallbacks) > 0 {
		s.logger.Warn().
			Strs("countries", fallbacks).
			Str("connectionId", connectionID).
			Msg("Rate table has no entry for some member states, default rate applied")
	}

	csv, err := vat.RenderCSV(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	report := &Report{
		Filename:  reportFilename(connectionID, from, to, sample),
		CSV:       csv,
		Sample:    sample,
		Fallbacks: fallbacks,
		Rows:      rows,
	}

	s.logger.Info().
		Str("connectionId", connectionID).
		Int("jurisdictions", len(rows)).
		Bool("sample", sample).
		Msg("Report built")

	return report, nil
}

// reportFilename builds the deterministic artifact name. Window bounds are
// compacted to YYYYMMDD; the sample artifact carries no window because its
// rows are fixed.
func reportFilename(connectionID string, from, to *time.Time, sample bool) string {
	var b strings.Builder
	if sample {
		b.WriteString("sample-")
	}
	b.WriteString("ioss-return-")
	b.WriteString(connectionID)
	if !sample {
		if from != nil {
			b.WriteString("-" + from.Format("20060102"))
		}
		if to != nil {
			b.WriteString("-" + to.Format("20060102"))
		}
	}
	b.WriteString(".csv")
	return b.String()
}

// sampleOrders returns the fixed demonstration consignments behind the
// sample artifact. They exist only in memory; nothing here is persisted.
func sampleOrders() []*domain.Order {
	build := func(remoteID int64, country, total string, day int) *domain.Order {
		price := decimal.RequireFromString(total)
		return &domain.Order{
			RemoteID:           remoteID,
			Name:               fmt.Sprintf("#SAMPLE-%d", remoteID),
			Currency:           "EUR",
			TotalPrice:         price,
			DestinationCountry: country,
			InBloc:             true,
			Eligible:           true,
			TaxApplicable:      true,
			RemoteCreatedAt:    time.Date(2025, 1, day, 12, 0, 0, 0, time.UTC),
		}
	}
	return []*domain.Order{
		build(1001, "DE", "120.00", 3),
		build(1002, "DE", "89.50", 9),
		build(1003, "FR", "59.90", 14),
		build(1004, "NL", "45.50", 21),
	}
}
