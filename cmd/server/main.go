// Package main is the entry point for the Option Analysis API
package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/api"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/api/middleware"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/broker"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/calendar"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/config"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/repository"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/service"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/pkg/utils/state"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/pkg/utils/zaplogger"
)

func main() {
	// Load .env if present; real deployments set env vars directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Print the configuration
	fmt.Println(cfg.String())

	// Parse the tracking settings
	tracker, err := cfg.Tracker()
	if err != nil {
		log.Fatalf("Failed to parse tracking configuration: %v", err)
	}

	// Exchange calendar
	cal, err := calendar.New(cfg.Timezone)
	if err != nil {
		log.Fatalf("Failed to create calendar: %v", err)
	}

	// Connect to Postgres
	db, err := repository.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}

	// Connect Redis
	redisClient, err := repository.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Init logger
	err = zaplogger.InitLogger(db)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Setup logger
	defer zaplogger.Sync()
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	// startUpMessage
	zaplogger.Info(cfg.APIName + " - " + cfg.APIVersion + " initialized")
	zaplogger.Info("Postgres initialized")
	zaplogger.Info("Redis initialized")

	// State store for refresh stamps and operator flags
	stateStore, err := state.NewState(db)
	if err != nil {
		log.Fatalf("Failed to initialize state store: %v", err)
	}

	// Broker client
	kite := broker.NewKiteClient(cfg.KiteAPIKey, cfg.KiteAccessToken)

	// Repositories
	instrumentRepo := repository.NewInstrumentRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	circuitRepo := repository.NewCircuitRepository(db)
	eodRepo := repository.NewEODRepository(db)

	// Tracking services
	catalog := service.NewCatalogService(kite, instrumentRepo, stateStore, cal, tracker.Underlyings, tracker.CatalogRefreshInterval)
	detector := service.NewCircuitChangeDetector(circuitRepo, cal, tracker.SuppressionWindow)
	poller := service.NewQuotePoller(kite, catalog, snapshotRepo, detector, stateStore, cal, tracker.PollInterval)
	reconciler := service.NewEODReconciler(kite, catalog, snapshotRepo, eodRepo, stateStore, cal, tracker.EODDelay)

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)

	// Setup routes
	api.SetupRoutes(e, db, cal, catalog, poller, reconciler)

	// Setup and start cron jobs
	cronService := service.NewCronService(cal, tracker, catalog, poller, reconciler, snapshotRepo, circuitRepo)
	cronService.Start()

	// Relay change notifications to Redis
	publishService := service.NewPublishService(redisClient, cfg.PostgresDsn)
	go publishService.PublishChangesToRedisChannel()

	// Start the server
	startServer(e, cfg)

}

// startServer starts the Echo server on the specified port
func startServer(e *echo.Echo, cfg *config.Config) {
	port := cfg.ServerPort
	if port == "" {
		port = "3007"
	}
	zaplogger.Info("SERVER STARTED ON PORT " + port)
	e.Logger.Fatal(e.Start(":" + port))

}
