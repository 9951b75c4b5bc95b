package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/wmweemba/ioss-compliance-reporter/internal/application"
	"github.com/wmweemba/ioss-compliance-reporter/internal/config"
	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
	"github.com/wmweemba/ioss-compliance-reporter/internal/infrastructure/lock"
	"github.com/wmweemba/ioss-compliance-reporter/internal/infrastructure/metrics"
	"github.com/wmweemba/ioss-compliance-reporter/internal/infrastructure/pubsub"
	"github.com/wmweemba/ioss-compliance-reporter/internal/infrastructure/repository"
	shopifyinfra "github.com/wmweemba/ioss-compliance-reporter/internal/infrastructure/shopify"
	"github.com/wmweemba/ioss-compliance-reporter/internal/ports"
	"github.com/wmweemba/ioss-compliance-reporter/internal/vat"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: .env file not found")
	}

	cfg := config.Load()

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDatabase)

	// Initialize repositories
	connectionRepo := repository.NewMongoConnectionRepository(db)
	orderRepo := repository.NewMongoOrderRepository(db)

	// Cross-instance locking runs on Redis when configured; a single
	// instance gets by on the in-process locker.
	var locker ports.Locker
	if cfg.RedisAddr != "" {
		locker, err = lock.NewRedisLocker(lock.RedisLockerConfig{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis sync locking")
	} else {
		locker = lock.NewMemoryLocker()
		logger.Info().Msg("REDIS_ADDR not set, using in-process sync locking")
	}

	// Initialize storefront client
	storefront := shopifyinfra.NewClient(shopifyinfra.ClientConfig{
		APIKey:      cfg.ShopifyAPIKey,
		APISecret:   cfg.ShopifyAPISecret,
		Scopes:      cfg.ShopifyScopes,
		RedirectURL: cfg.AppURL + "/callback",
		Timeout:     cfg.HTTPTimeout,
	}, logger)

	// Initialize sync event pub/sub and metrics
	syncEvents := pubsub.NewSyncPubSub(logger)
	recorder := metrics.NewRecorder()

	// Initialize application services
	authService := application.NewAuthService(application.AuthConfig{
		ClientID:     cfg.ShopifyAPIKey,
		ClientSecret: cfg.ShopifyAPISecret,
	}, storefront, locker, logger)

	connectionService := application.NewConnectionService(connectionRepo, logger)

	syncService := application.NewSyncService(connectionRepo, orderRepo, storefront, locker, syncEvents, application.SyncConfig{
		PageSize: cfg.SyncPageSize,
		Deadline: cfg.SyncTimeout,
	}, logger)

	jobManager := application.NewSyncJobManager(syncService, cfg.SyncTimeout+time.Minute, logger)

	reportService := application.NewReportService(connectionRepo, orderRepo, application.ReportConfig{
		Convention:  vat.TaxConvention(cfg.TaxConvention),
		DefaultRate: cfg.DefaultVATRate,
	}, logger)

	// Every sync outcome feeds the prometheus counters.
	observed := syncEvents.Subscribe(context.Background(), nil)
	go func() {
		for event := range observed.Events {
			recorder.ObserveSync(event)
		}
	}()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.HandlerFor(recorder.Registry(), promhttp.HandlerOpts{}))

	// OAuth handshake
	r.Get("/authorize", authorizeHandler(authService, logger))
	r.Get("/callback", callbackHandler(authService, connectionService, jobManager, cfg.FrontendURL, logger))

	// Sync
	r.Post("/sync", syncHandler(syncService, jobManager, logger))
	r.Get("/sync/jobs/{jobID}", syncJobHandler(jobManager))

	// Reporting
	r.Get("/report", reportHandler(reportService, recorder, logger))

	// Connection lifecycle
	r.Post("/connections/{connectionID}/disconnect", disconnectHandler(connectionService, logger))

	logger.Info().Str("port", cfg.Port).Msg("Starting API server")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// authorizeHandler starts the authorization handshake and redirects the
// merchant to the provider consent screen.
func authorizeHandler(auth *application.AuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := r.URL.Query().Get("store")
		connectionID := r.URL.Query().Get("connectionId")

		redirectURL, err := auth.BeginAuthorization(r.Context(), store, connectionID)
		if err != nil {
			logger.Error().Err(err).Str("store", store).Msg("Failed to begin authorization")
			writeError(w, err)
			return
		}

		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// callbackHandler completes the handshake, persists the connection and
// kicks off the initial full sync in the background. Success and failure
// both land the merchant back on the frontend.
func callbackHandler(
	auth *application.AuthService,
	connections *application.ConnectionService,
	jobs *application.SyncJobManager,
	frontendURL string,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := auth.CompleteAuthorization(r.Context(), r.URL.Query())
		if err != nil {
			logger.Error().Err(err).Msg("Authorization callback rejected")
			redirectWithError(w, r, frontendURL, err)
			return
		}

		connection, err := connections.CompleteConnection(r.Context(), result)
		if err != nil {
			logger.Error().Err(err).Str("storeDomain", result.StoreDomain).Msg("Failed to persist connection")
			redirectWithError(w, r, frontendURL, err)
			return
		}

		job := jobs.Enqueue(connection.ID, true)
		logger.Info().
			Str("connectionId", connection.ID).
			Str("storeDomain", connection.StoreDomain).
			Str("jobId", job.ID).
			Msg("Store connected, initial sync enqueued")

		http.Redirect(w, r, frontendURL+"?status=connected&connectionId="+url.QueryEscape(connection.ID), http.StatusFound)
	}
}

func redirectWithError(w http.ResponseWriter, r *http.Request, frontendURL string, err error) {
	http.Redirect(w, r, frontendURL+"?status=error&message="+url.QueryEscape(err.Error()), http.StatusFound)
}

type syncRequest struct {
	ConnectionID string `json:"connectionId"`
	Full         bool   `json:"full"`
	Background   bool   `json:"background"`
}

type syncResponse struct {
	Success bool `json:"success"`
	*domain.SyncResult
}

// syncHandler triggers a sync, either inline or as a tracked background job.
func syncHandler(syncs *application.SyncService, jobs *application.SyncJobManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req syncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(errors.New("invalid request body")))
			return
		}
		if req.ConnectionID == "" {
			writeError(w, fmt.Errorf("connectionId: %w", domain.ErrMissingParameter))
			return
		}

		if req.Background {
			job := jobs.Enqueue(req.ConnectionID, req.Full)
			writeJSON(w, http.StatusAccepted, map[string]string{"jobId": job.ID})
			return
		}

		var result *domain.SyncResult
		var err error
		if req.Full {
			result, err = syncs.SyncFull(r.Context(), req.ConnectionID)
		} else {
			result, err = syncs.SyncIncremental(r.Context(), req.ConnectionID)
		}
		if err != nil {
			logger.Error().Err(err).Str("connectionId", req.ConnectionID).Msg("Sync request failed")
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, syncResponse{Success: true, SyncResult: result})
	}
}

// syncJobHandler reports the state of a tracked background sync.
func syncJobHandler(jobs *application.SyncJobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := jobs.Get(chi.URLParam(r, "jobID"))
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody(errors.New("job not found")))
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

// reportHandler renders the VAT return CSV as a download.
func reportHandler(reports *application.ReportService, recorder *metrics.Recorder, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connectionID := r.URL.Query().Get("connectionId")

		from, err := parseDate(r.URL.Query().Get("dateFrom"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err))
			return
		}
		to, err := parseDate(r.URL.Query().Get("dateTo"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err))
			return
		}
		if to != nil {
			// dateTo is inclusive: cover the whole day.
			end := to.Add(24*time.Hour - time.Nanosecond)
			to = &end
		}

		report, err := reports.BuildReport(r.Context(), connectionID, from, to)
		if err != nil {
			logger.Error().Err(err).Str("connectionId", connectionID).Msg("Report request failed")
			writeError(w, err)
			return
		}

		kind := "standard"
		if report.Sample {
			kind = "sample"
		}
		recorder.ObserveReport(kind, len(report.Fallbacks))

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
		if report.Sample {
			w.Header().Set("X-Sample-Report", "true")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report.CSV))
	}
}

// disconnectHandler revokes a connection's store credentials.
func disconnectHandler(connections *application.ConnectionService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connectionID := chi.URLParam(r, "connectionID")
		if err := connections.Disconnect(r.Context(), connectionID); err != nil {
			logger.Error().Err(err).Str("connectionId", connectionID).Msg("Disconnect failed")
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// parseDate parses a YYYY-MM-DD query value; empty means unbounded.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorBody(err error) map[string]interface{} {
	return map[string]interface{}{
		"success": false,
		"error":   map[string]string{"message": err.Error()},
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), errorBody(err))
}

// statusForError maps the domain error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingParameter):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConnectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotConnected),
		errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrExpiredState),
		errors.Is(err, domain.ErrSignatureMismatch):
		return http.StatusUnauthorized
	}

	var configErr *domain.ConfigurationError
	if errors.As(err, &configErr) {
		return http.StatusServiceUnavailable
	}
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized
	}
	var rateLimited *domain.RateLimitedError
	if errors.As(err, &rateLimited) {
		return http.StatusTooManyRequests
	}
	var exchange *domain.TokenExchangeError
	if errors.As(err, &exchange) {
		return http.StatusBadGateway
	}
	var transport *domain.TransportError
	if errors.As(err, &transport) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
