package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/partybook/settlement-service/internal"
	"github.com/partybook/settlement-service/internal/core/events"
	"github.com/partybook/settlement-service/internal/notification"
	"github.com/partybook/settlement-service/internal/paymentgateway"
	"github.com/partybook/settlement-service/internal/settlement"
	settlementpg "github.com/partybook/settlement-service/internal/settlement/postgres"
	"github.com/partybook/settlement-service/internal/transport/rest"
	"github.com/partybook/settlement-service/internal/webhook"
	"github.com/partybook/settlement-service/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server that receives payment gateway webhooks`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config         *internal.Config
	DB             *sqlx.DB
	Router         *chi.Mux
	WebhookHandler *webhook.Handler
	Logger         *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.WebhookHandler, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown. In-flight webhook deliveries get
	// time to finish so the gateway sees a definite answer, not a reset.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if config.Observability.Logging.Format == "json" {
		logger.Init("production")
	} else {
		logger.Init("development")
	}
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	repo := settlementpg.NewSettlementRepository(gormDB)
	executor := settlement.NewExecutor(repo, log)
	settlementService := settlement.NewService(repo, executor, log)

	gatewayClient := paymentgateway.NewClient(paymentgateway.Config{
		APIURL:         config.Gateway.APIURL,
		APIKey:         config.Gateway.APIKey,
		RequestTimeout: config.Gateway.RequestTimeout,
	}, log)
	reconciler := settlement.NewReconciler(settlementService, gatewayClient, log)

	notifierClient := notification.NewClient(notification.ClientConfig{
		BaseURL:        config.Notification.BaseURL,
		RequestTimeout: config.Notification.RequestTimeout,
	}, log)
	fanout := notification.NewFanout(repo, notifierClient, config.Notification.PlatformFeeRate, log)

	eventBus := events.NewEventBus(log)
	settlement.NewEventHandler(log).RegisterEventHandlers(eventBus)

	verifier := webhook.NewVerifier(config.Gateway.WebhookSecret, config.Gateway.SignatureToleranceOrDefault())
	dispatcher := webhook.NewDispatcher(settlementService, reconciler, fanout, eventBus, log)
	webhookHandler := webhook.NewHandler(verifier, dispatcher, log)

	return &Dependencies{
		Config:         config,
		Logger:         log,
		DB:             db,
		Router:         chi.NewRouter(),
		WebhookHandler: webhookHandler,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm wraps the existing connection pool so gorm and sqlx share it.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
}
