// Package models contains the database models for the Option Analysis API
package models

import "time"

// InstrumentsTableName is the name of the table for option instruments
var InstrumentsTableName = "instruments"

// InstrumentModel represents one listed option contract. Rows are created
// when a contract is first observed in the broker catalog and are never
// mutated afterwards, except to mark the contract expired.
type InstrumentModel struct {
	InstrumentToken uint32    `gorm:"primaryKey" json:"instrument_token"`
	ExchangeToken   uint32    `json:"exchange_token"`
	Tradingsymbol   string    `gorm:"index:idx_exchange_tradingsymbol,priority:2" json:"tradingsymbol"`
	Name            string    `gorm:"index" json:"name"` // underlying index name
	Exchange        string    `gorm:"index:idx_exchange_tradingsymbol,priority:1" json:"exchange"`
	Segment         string    `json:"segment"`
	InstrumentType  string    `gorm:"type:varchar(4)" json:"instrument_type"` // CE or PE
	Strike          float64   `json:"strike"`
	Expiry          string    `gorm:"index" json:"expiry"` // YYYY-MM-DD
	TickSize        float64   `json:"tick_size"`
	LotSize         uint      `json:"lot_size"`
	Expired         bool      `gorm:"index" json:"expired"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName specifies the table name for the Instrument model
func (InstrumentModel) TableName() string {
	return InstrumentsTableName
}

// QuoteSymbol returns the exchange:tradingsymbol key used by the broker
// quote endpoint.
func (m *InstrumentModel) QuoteSymbol() string {
	return m.Exchange + ":" + m.Tradingsymbol
}
