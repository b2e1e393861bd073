package models

import (
	"time"

	"gorm.io/datatypes"
)

// CircuitChangesTableName is the name of the table for detected limit changes
var CircuitChangesTableName = "circuit_changes"

// Change classifications.
const (
	ChangeLower = "lower"
	ChangeUpper = "upper"
	ChangeBoth  = "both"
)

// IndexOHLCContext is the underlying index's own OHLC at detection time,
// stored denormalized on the change record for downstream analysis.
type IndexOHLCContext struct {
	Symbol    string  `json:"symbol"`
	LastPrice float64 `json:"last_price"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	NetChange float64 `json:"net_change"`
}

// CircuitChangeModel is one detected circuit-limit change. Append-only;
// rows end their life only through retention cleanup.
type CircuitChangeModel struct {
	ID              uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	InstrumentToken uint32         `gorm:"index:idx_change_token_ts,priority:1" json:"instrument_token"`
	Tradingsymbol   string         `gorm:"index" json:"tradingsymbol"`
	Underlying      string         `gorm:"index" json:"underlying"`
	TradingDate     string         `gorm:"index" json:"trading_date"` // YYYY-MM-DD
	PrevLowerLimit  float64        `gorm:"type:decimal(12,2)" json:"prev_lower_limit"`
	PrevUpperLimit  float64        `gorm:"type:decimal(12,2)" json:"prev_upper_limit"`
	NewLowerLimit   float64        `gorm:"type:decimal(12,2)" json:"new_lower_limit"`
	NewUpperLimit   float64        `gorm:"type:decimal(12,2)" json:"new_upper_limit"`
	ChangeType      string         `gorm:"type:varchar(8)" json:"change_type"`
	DetectedAt      time.Time      `gorm:"index:idx_change_token_ts,priority:2" json:"detected_at"`
	IndexOHLC       datatypes.JSON `gorm:"type:jsonb" json:"index_ohlc"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"-"`
}

// TableName specifies the table name for the CircuitChange model
func (CircuitChangeModel) TableName() string {
	return CircuitChangesTableName
}
