package handlers

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/repository"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/service"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/pkg/utils/response"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// InstrumentHandler is the handler for the instrument catalog API
type InstrumentHandler struct {
	repo    *repository.InstrumentRepository
	catalog *service.CatalogService
}

// NewInstrumentHandler creates a new handler for the instrument catalog API
func NewInstrumentHandler(db *gorm.DB, catalog *service.CatalogService) *InstrumentHandler {
	return &InstrumentHandler{
		repo:    repository.NewInstrumentRepository(db),
		catalog: catalog,
	}
}

// RefreshCatalog forces a catalog refresh from the broker
func (h *InstrumentHandler) RefreshCatalog(c echo.Context) error {
	totalInserted, err := h.catalog.Refresh(true)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}

	return response.SuccessResponse(c, map[string]interface{}{
		"timestamp": time.Now().Format("2006-01-02 15:04:05"),
		"records":   totalInserted,
	})
}

// QueryInstruments returns cataloged contracts for the given filters
func (h *InstrumentHandler) QueryInstruments(c echo.Context) error {
	underlying := c.QueryParam("underlying")
	expiry := c.QueryParam("expiry")
	instrumentType := c.QueryParam("instrument_type")
	strikeStr := c.QueryParam("strike")

	if len(expiry) > 0 {
		if _, err := time.Parse("2006-01-02", expiry); err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `expiry` value, must be a valid date")
		}
	}
	if instrumentType != "" && instrumentType != "CE" && instrumentType != "PE" {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `instrument_type` value, must be CE or PE")
	}

	var strike float64
	if len(strikeStr) > 0 {
		if !regexp.MustCompile(`^\d+(\.\d+)?$`).MatchString(strikeStr) {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `strike` value, must be a number")
		}
		strike, _ = strconv.ParseFloat(strikeStr, 64)
	}

	instruments, err := h.repo.QueryInstruments(underlying, expiry, instrumentType, strike)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}

	return response.SuccessResponse(c, map[string]interface{}{
		"records":     len(instruments),
		"instruments": instruments,
	})
}

// GetInstrumentsByTokens returns contracts for the given instrument tokens
func (h *InstrumentHandler) GetInstrumentsByTokens(c echo.Context) error {
	tokensStr := c.QueryParams()["t"]
	if len(tokensStr) == 0 {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`t` is required")
	}

	var tokens []uint32
	for _, tokenStr := range tokensStr {
		token, err := strconv.ParseUint(tokenStr, 10, 32)
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `instrument_token`, must be digits")
		}
		tokens = append(tokens, uint32(token))
	}

	instruments, err := h.repo.GetInstrumentsByTokens(tokens)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}

	result := make(map[string]interface{}, len(instruments))
	for _, instrument := range instruments {
		result[strconv.FormatUint(uint64(instrument.InstrumentToken), 10)] = instrument
	}
	return response.SuccessResponse(c, result)
}
