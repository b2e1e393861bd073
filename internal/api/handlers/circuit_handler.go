package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/calendar"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/repository"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/service"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/pkg/utils/response"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// CircuitHandler is the handler for the circuit tracking API
type CircuitHandler struct {
	circuitRepo  *repository.CircuitRepository
	snapshotRepo *repository.SnapshotRepository
	poller       *service.QuotePoller
	cal          *calendar.Calendar
}

// NewCircuitHandler creates a new handler for the circuit tracking API
func NewCircuitHandler(db *gorm.DB, poller *service.QuotePoller, cal *calendar.Calendar) *CircuitHandler {
	return &CircuitHandler{
		circuitRepo:  repository.NewCircuitRepository(db),
		snapshotRepo: repository.NewSnapshotRepository(db),
		poller:       poller,
		cal:          cal,
	}
}

// GetChanges returns the change records for a trading date. A valid
// non-trading date returns an empty list, not an error.
func (h *CircuitHandler) GetChanges(c echo.Context) error {
	date := c.QueryParam("date")
	underlying := c.QueryParam("underlying")

	if date == "" {
		date = h.cal.TradingDate(time.Now())
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `date` value, must be a valid date")
	}

	if !h.cal.IsTradingDay(parsed.In(h.cal.Location())) {
		return response.SuccessResponse(c, map[string]interface{}{
			"trading_date": date,
			"records":      0,
			"changes":      []models.CircuitChangeModel{},
		})
	}

	changes, err := h.circuitRepo.GetByDate(date, underlying)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}

	return response.SuccessResponse(c, map[string]interface{}{
		"trading_date": date,
		"records":      len(changes),
		"changes":      changes,
	})
}

// GetLatestChange returns the last recorded change for an instrument
func (h *CircuitHandler) GetLatestChange(c echo.Context) error {
	tokenStr := c.QueryParam("token")
	if tokenStr == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`token` is required")
	}
	token, err := strconv.ParseUint(tokenStr, 10, 32)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `token`, must be digits")
	}

	change, err := h.circuitRepo.LastChange(uint32(token))
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	if change == nil {
		return response.ErrorResponse(c, http.StatusNotFound, "DataException", "No change recorded for instrument")
	}

	return response.SuccessResponse(c, change)
}

// GetSnapshotCount returns the number of snapshots captured on a date
func (h *CircuitHandler) GetSnapshotCount(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		date = h.cal.TradingDate(time.Now())
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `date` value, must be a valid date")
	}

	count, err := h.snapshotRepo.CountForDate(date)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}

	return response.SuccessResponse(c, map[string]interface{}{
		"trading_date": date,
		"snapshots":    count,
	})
}

// PollerStart starts the quote poller
func (h *CircuitHandler) PollerStart(c echo.Context) error {
	h.poller.Start()
	return response.SuccessResponse(c, map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
		"status":    h.poller.Status(),
	})
}

// PollerStop stops the quote poller
func (h *CircuitHandler) PollerStop(c echo.Context) error {
	h.poller.Stop()
	return response.SuccessResponse(c, map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
		"status":    h.poller.Status(),
	})
}

// PollerStatus returns the current poller state
func (h *CircuitHandler) PollerStatus(c echo.Context) error {
	return response.SuccessResponse(c, map[string]interface{}{
		"timestamp":   time.Now().Format(time.RFC3339),
		"status":      h.poller.Status(),
		"market_open": h.cal.IsMarketOpen(),
	})
}

// PollerCycle runs one polling cycle immediately
func (h *CircuitHandler) PollerCycle(c echo.Context) error {
	stats, err := h.poller.PollCycle(context.Background())
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "PollerException", err.Error())
	}
	return response.SuccessResponse(c, stats)
}
