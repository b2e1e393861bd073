// Package service contains the service layer for the Option Analysis API
package service

import (
	"strings"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/broker"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
)

// Trading status values derived from a quote.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// NewSnapshotFromQuote maps one broker quote to a snapshot row. Suspect
// observations are flagged via the quality column, never rejected, so
// downstream analysis can distinguish "no data" from "suspect data".
func NewSnapshotFromQuote(inst models.InstrumentModel, quote broker.Quote, date string, capturedAt time.Time) *models.CircuitSnapshotModel {
	timestamp := quote.Timestamp
	if timestamp.IsZero() {
		timestamp = capturedAt
	}

	return &models.CircuitSnapshotModel{
		InstrumentToken:   inst.InstrumentToken,
		Tradingsymbol:     inst.Tradingsymbol,
		Underlying:        inst.Name,
		TradingDate:       date,
		Timestamp:         timestamp,
		LastPrice:         quote.LastPrice,
		Open:              quote.Open,
		High:              quote.High,
		Low:               quote.Low,
		Close:             quote.Close,
		NetChange:         quote.NetChange,
		Volume:            quote.Volume,
		OI:                quote.OI,
		LowerCircuitLimit: quote.LowerCircuitLimit,
		UpperCircuitLimit: quote.UpperCircuitLimit,
		TradingStatus:     tradingStatus(quote),
		Quality:           qualityFlags(quote),
	}
}

// qualityFlags returns the semicolon-joined data-quality flags for a quote,
// or an empty string when the observation is clean. Unpopulated limits
// (both zero) are "no data", not a quality problem.
func qualityFlags(quote broker.Quote) string {
	lower, upper := quote.LowerCircuitLimit, quote.UpperCircuitLimit
	if lower == 0 && upper == 0 {
		return ""
	}

	var flags []string
	if lower <= 0 || upper <= 0 {
		flags = append(flags, models.QualityLimitsNonPositive)
	} else if upper <= lower {
		flags = append(flags, models.QualityLimitsInverted)
	}
	if lower > 0 && upper > lower && quote.LastPrice > 0 &&
		(quote.LastPrice < lower || quote.LastPrice > upper) {
		flags = append(flags, models.QualityPriceOutsideBand)
	}
	return strings.Join(flags, ";")
}

func tradingStatus(quote broker.Quote) string {
	if quote.LastPrice == 0 && quote.Volume == 0 {
		return StatusInactive
	}
	return StatusActive
}
