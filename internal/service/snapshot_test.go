package service

import (
	"testing"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/broker"
)

func TestQualityFlags(t *testing.T) {
	tests := []struct {
		name  string
		quote broker.Quote
		want  string
	}{
		{"clean", broker.Quote{LastPrice: 110, LowerCircuitLimit: 100, UpperCircuitLimit: 120}, ""},
		{"unpopulated limits", broker.Quote{LastPrice: 110}, ""},
		{"negative lower", broker.Quote{LastPrice: 110, LowerCircuitLimit: -1, UpperCircuitLimit: 120}, "limits_non_positive"},
		{"zero lower populated upper", broker.Quote{LastPrice: 110, LowerCircuitLimit: 0, UpperCircuitLimit: 120}, "limits_non_positive"},
		{"inverted", broker.Quote{LastPrice: 110, LowerCircuitLimit: 120, UpperCircuitLimit: 100}, "limits_inverted"},
		{"equal bounds", broker.Quote{LastPrice: 110, LowerCircuitLimit: 110, UpperCircuitLimit: 110}, "limits_inverted"},
		{"price below band", broker.Quote{LastPrice: 90, LowerCircuitLimit: 100, UpperCircuitLimit: 120}, "price_outside_band"},
		{"price above band", broker.Quote{LastPrice: 130, LowerCircuitLimit: 100, UpperCircuitLimit: 120}, "price_outside_band"},
		{"zero price inside band rule", broker.Quote{LastPrice: 0, LowerCircuitLimit: 100, UpperCircuitLimit: 120}, ""},
	}

	for _, tt := range tests {
		if got := qualityFlags(tt.quote); got != tt.want {
			t.Errorf("%s: qualityFlags = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestNewSnapshotFromQuote(t *testing.T) {
	inst := testInstrument()
	capturedAt := time.Date(2025, 12, 1, 10, 30, 0, 0, time.UTC)
	quote := broker.Quote{
		InstrumentToken:   inst.InstrumentToken,
		LastPrice:         110,
		Open:              100,
		High:              115,
		Low:               98,
		Close:             104,
		Volume:            4200,
		OI:                150,
		LowerCircuitLimit: 100,
		UpperCircuitLimit: 120,
	}

	snapshot := NewSnapshotFromQuote(inst, quote, "2025-12-01", capturedAt)

	if snapshot.InstrumentToken != inst.InstrumentToken {
		t.Errorf("token = %d, want %d", snapshot.InstrumentToken, inst.InstrumentToken)
	}
	if snapshot.TradingDate != "2025-12-01" {
		t.Errorf("trading date = %q", snapshot.TradingDate)
	}
	// Quote carried no timestamp, so the capture time is used.
	if !snapshot.Timestamp.Equal(capturedAt) {
		t.Errorf("timestamp = %v, want %v", snapshot.Timestamp, capturedAt)
	}
	if snapshot.LowerCircuitLimit != 100 || snapshot.UpperCircuitLimit != 120 {
		t.Errorf("limits = (%v,%v), want (100,120)", snapshot.LowerCircuitLimit, snapshot.UpperCircuitLimit)
	}
	if snapshot.Quality != "" {
		t.Errorf("quality = %q, want clean", snapshot.Quality)
	}
	if snapshot.TradingStatus != StatusActive {
		t.Errorf("trading status = %q, want %q", snapshot.TradingStatus, StatusActive)
	}
}

func TestTradingStatusInactive(t *testing.T) {
	if got := tradingStatus(broker.Quote{}); got != StatusInactive {
		t.Errorf("tradingStatus = %q, want %q", got, StatusInactive)
	}
}
