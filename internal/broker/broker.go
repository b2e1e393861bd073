// Package broker wraps the external broker API behind strongly-typed
// structs. Loose broker payloads are mapped to these types immediately on
// receipt; nothing outside this package touches the broker SDK.
package broker

import "time"

// Instrument is one row of the broker's instrument catalog dump
type Instrument struct {
	InstrumentToken uint32
	ExchangeToken   uint32
	Tradingsymbol   string
	Name            string
	Exchange        string
	Segment         string
	InstrumentType  string
	Strike          float64
	Expiry          time.Time
	TickSize        float64
	LotSize         uint
}

// Quote is one live observation of an instrument
type Quote struct {
	InstrumentToken   uint32
	Timestamp         time.Time
	LastPrice         float64
	Open              float64
	High              float64
	Low               float64
	Close             float64
	NetChange         float64
	Volume            int64
	OI                int64
	LowerCircuitLimit float64
	UpperCircuitLimit float64
}

// DailyBar is the broker's official daily OHLC record
type DailyBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	OI     int64
}

// Client is the broker capability used by the tracking pipeline. All three
// calls may be slow or fail; an empty result means "no data this cycle",
// never a reason to wipe cached state.
type Client interface {
	// ListInstruments fetches the full instrument catalog for an exchange
	ListInstruments(exchange string) ([]Instrument, error)

	// GetQuotes fetches live quotes for up to MaxQuoteBatchSize
	// exchange:tradingsymbol keys, keyed by the same string
	GetQuotes(symbols []string) (map[string]Quote, error)

	// GetDailyBar fetches the official daily OHLC bar for one instrument on
	// one date. The bool result is false when the broker has no bar.
	GetDailyBar(token uint32, date time.Time) (DailyBar, bool, error)
}

// MaxQuoteBatchSize is the broker's per-call instrument limit for quotes
const MaxQuoteBatchSize = 500
