package app

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"

	"github.com/matchpoint-labs/padelcore/internal/config"
	"github.com/matchpoint-labs/padelcore/internal/infrastructure/account"
	"github.com/matchpoint-labs/padelcore/internal/infrastructure/eventlog"
	"github.com/matchpoint-labs/padelcore/internal/infrastructure/repository/postgres"
	"github.com/matchpoint-labs/padelcore/internal/interfaces/httpapi"
	"github.com/matchpoint-labs/padelcore/internal/platform/cache"
	idgen "github.com/matchpoint-labs/padelcore/internal/platform/id"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"
	"github.com/matchpoint-labs/padelcore/internal/platform/resilience"
	"github.com/matchpoint-labs/padelcore/internal/usecase"
)

// NewHTTPServer wires the full service graph and returns the HTTP
// server together with the database handle the caller must close on
// shutdown.
func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, *sqlx.DB, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	txManager := postgres.NewTxManager(db)

	accountClient := account.NewClient(account.Config{
		BaseURL:        cfg.AccountsBaseURL,
		IntrospectPath: cfg.AccountsIntrospectPath,
		AccountPath:    cfg.AccountsAccountPath,
		Timeout:        cfg.AccountsTimeout,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.AccountsCircuitEnabled,
			FailureThreshold: cfg.AccountsCircuitFailureCount,
			OpenTimeout:      cfg.AccountsCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.AccountsCircuitHalfOpenMaxReq,
		},
	}, nil, logger)

	var publisher usecase.EventPublisher = usecase.NopPublisher{}
	if cfg.EventLogEnabled {
		publisher = eventlog.NewPublisher(eventlog.Config{
			BaseURL:    cfg.EventLogBaseURL,
			AppendPath: cfg.EventLogAppendPath,
			APIToken:   cfg.EventLogAPIToken,
			Timeout:    cfg.EventLogTimeout,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.EventLogCircuitEnabled,
				FailureThreshold: cfg.EventLogCircuitFailureCount,
				OpenTimeout:      cfg.EventLogCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.EventLogCircuitHalfOpenMaxReq,
			},
		}, nil, logger)
	}

	idGen := idgen.NewRandomGenerator()

	backfillSvc := usecase.NewBackfillService(txManager, accountClient, publisher, idGen, logger)

	cacheTTL := cfg.CacheTTL
	if !cfg.CacheEnabled {
		cacheTTL = 0
	}
	leaderboardSvc := usecase.NewLeaderboardService(txManager, cache.NewStore(cacheTTL), logger)

	handler := httpapi.NewHandler(
		txManager,
		accountClient,
		publisher,
		idGen,
		backfillSvc,
		leaderboardSvc,
		cfg.ClaimWindowMonths,
		cfg.BatchMaxWorkers,
		cfg.BatchDefaultLimit,
		logger,
	)
	router := httpapi.NewRouter(handler, accountClient, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		_ = db.Close()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, db, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}
