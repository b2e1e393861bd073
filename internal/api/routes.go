// Package api contains the API routes for the Option Analysis API
package api

import (
	"fmt"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/api/handlers"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/api/middleware"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/calendar"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/config"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/service"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/pkg/utils/response"
	"gorm.io/gorm"
)

// SetupRoutes configures the routes for the API
func SetupRoutes(e *echo.Echo, db *gorm.DB, cal *calendar.Calendar, catalog *service.CatalogService, poller *service.QuotePoller, reconciler *service.EODReconciler) {

	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	api.GET("/", indexRoute)

	// Session routes (unprotected)
	sessionService := service.NewSessionService(db)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	sessionGroup := api.Group("/session")
	sessionGroup.GET("/login", sessionHandler.GenerateSession)
	sessionGroup.GET("/totp", sessionHandler.GenerateTOTP)
	sessionGroup.GET("/valid", sessionHandler.CheckSessionValid)
	sessionGroup.DELETE("/logout", sessionHandler.DeleteSession)

	// Instrument catalog routes (protected)
	instrumentHandler := handlers.NewInstrumentHandler(db, catalog)
	instrumentGroup := api.Group("/instrument")
	instrumentGroup.Use(middleware.AuthMiddleware(db))
	instrumentGroup.GET("/query", instrumentHandler.QueryInstruments)
	instrumentGroup.GET("/tokens", instrumentHandler.GetInstrumentsByTokens)
	instrumentGroup.POST("/refresh", instrumentHandler.RefreshCatalog)

	// Circuit tracking routes (protected)
	circuitHandler := handlers.NewCircuitHandler(db, poller, cal)
	circuitGroup := api.Group("/circuit")
	circuitGroup.Use(middleware.AuthMiddleware(db))
	circuitGroup.GET("/changes", circuitHandler.GetChanges)
	circuitGroup.GET("/changes/latest", circuitHandler.GetLatestChange)
	circuitGroup.GET("/snapshots/count", circuitHandler.GetSnapshotCount)
	circuitGroup.GET("/poller/status", circuitHandler.PollerStatus)
	circuitGroup.GET("/poller/start", circuitHandler.PollerStart)
	circuitGroup.GET("/poller/stop", circuitHandler.PollerStop)
	circuitGroup.POST("/poller/cycle", circuitHandler.PollerCycle)

	// End-of-day routes (protected)
	eodHandler := handlers.NewEODHandler(db, reconciler, cal)
	eodGroup := api.Group("/eod")
	eodGroup.Use(middleware.AuthMiddleware(db))
	eodGroup.GET("", eodHandler.GetByDate)
	eodGroup.POST("/reconcile", eodHandler.RunReconcile)

}

// indexRoute sets up the index route for the API
func indexRoute(c echo.Context) error {
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	message := fmt.Sprintf("%s %s", cfg.APIName, cfg.APIVersion)
	return response.SuccessResponse(c, message)
}
