package broker

import (
	"errors"
	"fmt"
	"strings"

	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// KiteClient implements Client on top of the Kite Connect API
type KiteClient struct {
	kc *kiteconnect.Client
}

var _ Client = (*KiteClient)(nil)

// NewKiteClient creates a broker client for the given API key and
// access token
func NewKiteClient(apiKey, accessToken string) *KiteClient {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	return &KiteClient{kc: kc}
}

// SetAccessToken replaces the access token after a re-authentication
func (c *KiteClient) SetAccessToken(accessToken string) {
	c.kc.SetAccessToken(accessToken)
}

// ListInstruments fetches the instrument dump for one exchange
func (c *KiteClient) ListInstruments(exchange string) ([]Instrument, error) {
	dump, err := c.kc.GetInstrumentsByExchange(exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch instruments for %s: %w", exchange, err)
	}

	instruments := make([]Instrument, 0, len(dump))
	for _, row := range dump {
		instruments = append(instruments, Instrument{
			InstrumentToken: uint32(row.InstrumentToken),
			ExchangeToken:   uint32(row.ExchangeToken),
			Tradingsymbol:   row.Tradingsymbol,
			Name:            row.Name,
			Exchange:        row.Exchange,
			Segment:         row.Segment,
			InstrumentType:  row.InstrumentType,
			Strike:          row.StrikePrice,
			Expiry:          row.Expiry.Time,
			TickSize:        row.TickSize,
			LotSize:         uint(row.LotSize),
		})
	}
	return instruments, nil
}

// GetQuotes fetches live quotes for the given exchange:tradingsymbol keys
func (c *KiteClient) GetQuotes(symbols []string) (map[string]Quote, error) {
	raw, err := c.kc.GetQuote(symbols...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	quotes := make(map[string]Quote, len(raw))
	for symbol, q := range raw {
		quotes[symbol] = Quote{
			InstrumentToken:   uint32(q.InstrumentToken),
			Timestamp:         q.Timestamp.Time,
			LastPrice:         q.LastPrice,
			Open:              q.OHLC.Open,
			High:              q.OHLC.High,
			Low:               q.OHLC.Low,
			Close:             q.OHLC.Close,
			NetChange:         q.NetChange,
			Volume:            int64(q.Volume),
			OI:                int64(q.OI),
			LowerCircuitLimit: q.LowerCircuitLimit,
			UpperCircuitLimit: q.UpperCircuitLimit,
		}
	}
	return quotes, nil
}

// GetDailyBar fetches the official daily OHLC bar for one instrument
func (c *KiteClient) GetDailyBar(token uint32, date time.Time) (DailyBar, bool, error) {
	bars, err := c.kc.GetHistoricalData(int(token), "day", date, date, false, true)
	if err != nil {
		return DailyBar{}, false, fmt.Errorf("failed to fetch daily bar for token %d: %w", token, err)
	}
	if len(bars) == 0 {
		return DailyBar{}, false, nil
	}

	bar := bars[len(bars)-1]
	return DailyBar{
		Date:   bar.Date.Time,
		Open:   bar.Open,
		High:   bar.High,
		Low:    bar.Low,
		Close:  bar.Close,
		Volume: int64(bar.Volume),
		OI:     int64(bar.OI),
	}, true, nil
}

// IsAuthError reports whether err is a broker authentication failure, ie a
// missing or expired access token
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var kerr kiteconnect.Error
	if errors.As(err, &kerr) {
		return kerr.ErrorType == kiteconnect.TokenError
	}
	return strings.Contains(err.Error(), kiteconnect.TokenError)
}
