package handlers

import (
	"net/http"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/calendar"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/repository"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/service"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/pkg/utils/response"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// EODHandler is the handler for the end-of-day records API
type EODHandler struct {
	repo       *repository.EODRepository
	reconciler *service.EODReconciler
	cal        *calendar.Calendar
}

// NewEODHandler creates a new handler for the end-of-day records API
func NewEODHandler(db *gorm.DB, reconciler *service.EODReconciler, cal *calendar.Calendar) *EODHandler {
	return &EODHandler{
		repo:       repository.NewEODRepository(db),
		reconciler: reconciler,
		cal:        cal,
	}
}

// GetByDate returns the reconciled records for a trading date
func (h *EODHandler) GetByDate(c echo.Context) error {
	date := c.QueryParam("date")
	underlying := c.QueryParam("underlying")

	if date == "" {
		date = h.cal.TradingDate(time.Now())
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `date` value, must be a valid date")
	}

	records, err := h.repo.GetByDate(date, underlying)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}

	return response.SuccessResponse(c, map[string]interface{}{
		"trading_date": date,
		"records":      len(records),
		"eod":          records,
	})
}

// RunReconcile runs reconciliation for a trading date immediately
func (h *EODHandler) RunReconcile(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		date = h.cal.TradingDate(time.Now())
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `date` value, must be a valid date")
	}
	if !h.cal.IsTradingDay(parsed.In(h.cal.Location())) {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`date` is not a trading day")
	}

	summary, err := h.reconciler.Reconcile(date)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}

	return response.SuccessResponse(c, summary)
}
