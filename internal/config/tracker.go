package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Underlying is one tracked index: the underlying name as it appears in
// the option contract dump, the exchange its options trade on, the
// exchange:symbol of the index quote and the contract lot size.
type Underlying struct {
	Name        string
	Exchange    string
	IndexSymbol string
	LotSize     int
}

// Tracker holds the parsed tracking settings. All fields are validated at
// startup; a parse failure here is fatal.
type Tracker struct {
	Underlyings            []Underlying
	PollInterval           time.Duration
	CatalogRefreshInterval time.Duration
	EODDelay               time.Duration
	SuppressionWindow      time.Duration
	RetentionDays          int
}

// Tracker parses the tracking configuration values
func (c *Config) Tracker() (*Tracker, error) {
	underlyings, err := parseUnderlyings(c.TrackedUnderlyings)
	if err != nil {
		return nil, err
	}

	pollInterval, err := parseDuration("OA_API_POLL_INTERVAL", c.PollInterval)
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parseDuration("OA_API_CATALOG_REFRESH_INTERVAL", c.CatalogRefreshInterval)
	if err != nil {
		return nil, err
	}
	eodDelay, err := parseDuration("OA_API_EOD_DELAY", c.EODDelay)
	if err != nil {
		return nil, err
	}
	suppression, err := parseDuration("OA_API_SUPPRESSION_WINDOW", c.SuppressionWindow)
	if err != nil {
		return nil, err
	}

	retentionDays, err := strconv.Atoi(strings.TrimSpace(c.RetentionDays))
	if err != nil || retentionDays <= 0 {
		return nil, fmt.Errorf("invalid OA_API_RETENTION_DAYS %q, must be a positive integer", c.RetentionDays)
	}

	return &Tracker{
		Underlyings:            underlyings,
		PollInterval:           pollInterval,
		CatalogRefreshInterval: refreshInterval,
		EODDelay:               eodDelay,
		SuppressionWindow:      suppression,
		RetentionDays:          retentionDays,
	}, nil
}

// parseUnderlyings parses entries of the form
// "NIFTY,NFO,NSE:NIFTY 50,75;BANKNIFTY,NFO,NSE:NIFTY BANK,30"
func parseUnderlyings(value string) ([]Underlying, error) {
	var underlyings []Underlying
	for _, entry := range strings.Split(value, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ",")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid underlying entry %q, want name,exchange,index_symbol,lot_size", entry)
		}
		lotSize, err := strconv.Atoi(strings.TrimSpace(parts[3]))
		if err != nil || lotSize <= 0 {
			return nil, fmt.Errorf("invalid lot size in underlying entry %q", entry)
		}
		underlyings = append(underlyings, Underlying{
			Name:        strings.ToUpper(strings.TrimSpace(parts[0])),
			Exchange:    strings.ToUpper(strings.TrimSpace(parts[1])),
			IndexSymbol: strings.TrimSpace(parts[2]),
			LotSize:     lotSize,
		})
	}
	if len(underlyings) == 0 {
		return nil, fmt.Errorf("no underlyings configured in OA_API_TRACKED_UNDERLYINGS")
	}
	return underlyings, nil
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q, must be a positive duration", name, value)
	}
	return d, nil
}
