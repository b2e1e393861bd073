package config

import (
	"testing"
	"time"
)

func TestTrackerParsesSettings(t *testing.T) {
	cfg := &Config{
		TrackedUnderlyings:     "NIFTY,NFO,NSE:NIFTY 50,75;BANKNIFTY,NFO,NSE:NIFTY BANK,30",
		PollInterval:           "45s",
		CatalogRefreshInterval: "4h",
		EODDelay:               "15m",
		SuppressionWindow:      "5m",
		RetentionDays:          "90",
	}

	tracker, err := cfg.Tracker()
	if err != nil {
		t.Fatalf("Tracker: %v", err)
	}

	if len(tracker.Underlyings) != 2 {
		t.Fatalf("expected 2 underlyings, got %d", len(tracker.Underlyings))
	}

	nifty := tracker.Underlyings[0]
	if nifty.Name != "NIFTY" || nifty.Exchange != "NFO" {
		t.Errorf("unexpected first underlying: %+v", nifty)
	}
	if nifty.IndexSymbol != "NSE:NIFTY 50" {
		t.Errorf("index symbol = %q, want NSE:NIFTY 50", nifty.IndexSymbol)
	}
	if nifty.LotSize != 75 {
		t.Errorf("lot size = %d, want 75", nifty.LotSize)
	}

	if tracker.PollInterval != 45*time.Second {
		t.Errorf("poll interval = %v, want 45s", tracker.PollInterval)
	}
	if tracker.SuppressionWindow != 5*time.Minute {
		t.Errorf("suppression window = %v, want 5m", tracker.SuppressionWindow)
	}
	if tracker.RetentionDays != 90 {
		t.Errorf("retention days = %d, want 90", tracker.RetentionDays)
	}
}

func TestTrackerRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty underlyings", func(c *Config) { c.TrackedUnderlyings = " ; " }},
		{"short underlying entry", func(c *Config) { c.TrackedUnderlyings = "NIFTY,NFO" }},
		{"bad lot size", func(c *Config) { c.TrackedUnderlyings = "NIFTY,NFO,NSE:NIFTY 50,zero" }},
		{"bad poll interval", func(c *Config) { c.PollInterval = "soon" }},
		{"negative eod delay", func(c *Config) { c.EODDelay = "-15m" }},
		{"bad retention", func(c *Config) { c.RetentionDays = "many" }},
	}

	for _, tt := range tests {
		cfg := &Config{
			TrackedUnderlyings:     "NIFTY,NFO,NSE:NIFTY 50,75",
			PollInterval:           "45s",
			CatalogRefreshInterval: "4h",
			EODDelay:               "15m",
			SuppressionWindow:      "5m",
			RetentionDays:          "90",
		}
		tt.mutate(cfg)
		if _, err := cfg.Tracker(); err == nil {
			t.Errorf("%s: expected error, got none", tt.name)
		}
	}
}
