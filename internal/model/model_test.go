package model

import (
	"testing"
	"time"
)

func TestTimeframeDuration(t *testing.T) {
	tests := []struct {
		tf      Timeframe
		want    time.Duration
		wantErr bool
	}{
		{"15m", 15 * time.Minute, false},
		{"1h", time.Hour, false},
		{"4h", 4 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"0m", 0, true},
		{"h", 0, true},
		{"15x", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := tt.tf.Duration()
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v, wantErr %v", tt.tf, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.tf, got, tt.want)
		}
	}
}

func TestCandleClosedAt(t *testing.T) {
	c := Candle{OpenTime: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	end := c.CloseTime(TF15m)

	if c.ClosedAt(TF15m, end.Add(-time.Nanosecond)) {
		t.Error("candle closed before open_time + timeframe")
	}
	if !c.ClosedAt(TF15m, end) {
		t.Error("candle should be closed exactly at open_time + timeframe")
	}
}

func TestSignalID_Deterministic(t *testing.T) {
	at := time.Date(2024, 3, 4, 10, 15, 0, 0, time.UTC)
	a := Signal{Symbol: "BTCUSDT", Timeframe: TF15m, Type: SignalBuy, CandleCloseTime: at, EntryPrice: 1}
	b := Signal{Symbol: "BTCUSDT", Timeframe: TF15m, Type: SignalBuy, CandleCloseTime: at.In(time.FixedZone("X", 3600)), EntryPrice: 2}
	c := Signal{Symbol: "BTCUSDT", Timeframe: TF15m, Type: SignalReversal, CandleCloseTime: at}
	a.AssignID()
	b.AssignID()
	c.AssignID()

	if a.ID == "" || a.ID != b.ID {
		t.Errorf("same key should give same id: %q vs %q", a.ID, b.ID)
	}
	if a.ID == c.ID {
		t.Error("different type should give a different id")
	}
}
