package models

import "time"

// CircuitSnapshotsTableName is the name of the table for intraday snapshots
var CircuitSnapshotsTableName = "circuit_snapshots"

// Data-quality flags attached to snapshots. A suspect observation is stored
// and flagged, never dropped, so downstream analysis can distinguish
// "no data" from "suspect data".
const (
	QualityLimitsNonPositive = "limits_non_positive"
	QualityLimitsInverted    = "limits_inverted"
	QualityPriceOutsideBand  = "price_outside_band"
)

// CircuitSnapshotModel is one point-in-time observation of an instrument's
// market data. Append-only; never updated.
type CircuitSnapshotModel struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	InstrumentToken   uint32    `gorm:"index:idx_snapshot_token_ts,priority:1" json:"instrument_token"`
	Tradingsymbol     string    `json:"tradingsymbol"`
	Underlying        string    `gorm:"index" json:"underlying"`
	TradingDate       string    `gorm:"index" json:"trading_date"` // YYYY-MM-DD
	Timestamp         time.Time `gorm:"index:idx_snapshot_token_ts,priority:2" json:"timestamp"`
	LastPrice         float64   `gorm:"type:decimal(12,2)" json:"last_price"`
	Open              float64   `gorm:"type:decimal(12,2)" json:"open"`
	High              float64   `gorm:"type:decimal(12,2)" json:"high"`
	Low               float64   `gorm:"type:decimal(12,2)" json:"low"`
	Close             float64   `gorm:"type:decimal(12,2)" json:"close"`
	NetChange         float64   `gorm:"type:decimal(12,2)" json:"net_change"`
	Volume            int64     `json:"volume"`
	OI                int64     `json:"oi"`
	LowerCircuitLimit float64   `gorm:"type:decimal(12,2)" json:"lower_circuit_limit"`
	UpperCircuitLimit float64   `gorm:"type:decimal(12,2)" json:"upper_circuit_limit"`
	TradingStatus     string    `gorm:"type:varchar(10)" json:"trading_status"`
	Quality           string    `json:"quality"` // semicolon-joined flags, empty when clean
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"-"`
}

// TableName specifies the table name for the CircuitSnapshot model
func (CircuitSnapshotModel) TableName() string {
	return CircuitSnapshotsTableName
}
