package models

import "time"

// HistoricalEODTableName is the name of the table for end-of-day records
var HistoricalEODTableName = "historical_eod"

// HistoricalEODModel is the reconciled end-of-day record for one instrument
// on one trading date: the broker's official daily bar enriched with the
// circuit limits and trading status of the last intraday snapshot. Keyed by
// (instrument_token, trading_date) so reconciliation can be re-run safely.
type HistoricalEODModel struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	InstrumentToken   uint32    `gorm:"uniqueIndex:idx_eod_token_date,priority:1" json:"instrument_token"`
	Tradingsymbol     string    `gorm:"index" json:"tradingsymbol"`
	Underlying        string    `gorm:"index" json:"underlying"`
	TradingDate       string    `gorm:"uniqueIndex:idx_eod_token_date,priority:2;index" json:"trading_date"` // YYYY-MM-DD
	Open              float64   `gorm:"type:decimal(12,2)" json:"open"`
	High              float64   `gorm:"type:decimal(12,2)" json:"high"`
	Low               float64   `gorm:"type:decimal(12,2)" json:"low"`
	Close             float64   `gorm:"type:decimal(12,2)" json:"close"`
	Volume            int64     `json:"volume"`
	OI                int64     `json:"oi"`
	Change            float64   `gorm:"type:decimal(12,2)" json:"change"`
	ChangePercent     float64   `gorm:"type:decimal(8,4)" json:"change_percent"`
	OIChange          int64     `json:"oi_change"`
	LowerCircuitLimit float64   `gorm:"type:decimal(12,2)" json:"lower_circuit_limit"`
	UpperCircuitLimit float64   `gorm:"type:decimal(12,2)" json:"upper_circuit_limit"`
	TradingStatus     string    `gorm:"type:varchar(10)" json:"trading_status"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName specifies the table name for the HistoricalEOD model
func (HistoricalEODModel) TableName() string {
	return HistoricalEODTableName
}
