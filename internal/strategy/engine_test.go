package strategy

import (
	"math"
	"testing"
	"time"

	"SignalSentinel/internal/fixture"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/structure"
)

func bareSnapshots(candles []model.Candle) []model.IndicatorSnapshot {
	snaps := make([]model.IndicatorSnapshot, len(candles))
	for i, c := range candles {
		snaps[i] = model.IndicatorSnapshot{Time: c.OpenTime, Close: c.Close}
	}
	return snaps
}

func closeOf(candles []model.Candle) time.Time {
	return candles[len(candles)-1].CloseTime(model.TF15m)
}

func newTestGenerator(p Params, now time.Time) *Generator {
	g := NewGenerator(p)
	g.now = func() time.Time { return now }
	return g
}

// breakoutInput is the BUY scenario: bullish bias, BOS(UP) through 42300 on
// the last candle, close near EMA20 and %K crossing 20 on the last candle.
func breakoutInput(candles []model.Candle, ema20, kPrev, kLast float64) Input {
	snaps := bareSnapshots(candles)
	last := len(snaps) - 1
	snaps[last].EMA20 = model.Float(ema20)
	snaps[last-1].StochRSIK = model.Float(kPrev)
	snaps[last].StochRSIK = model.Float(kLast)
	return Input{
		Symbol:    "BTCUSDT",
		Timeframe: model.TF15m,
		Bias: &model.Bias{
			Symbol:         "BTCUSDT",
			Timeframe:      model.TF1h,
			Classification: model.Bullish,
			EvaluatedAt:    closeOf(candles).Truncate(time.Hour),
		},
		Candles:   candles,
		Snapshots: snaps,
		Structure: structure.Analyze(candles, 2),
	}
}

func TestEvaluate_BuyHigh(t *testing.T) {
	candles := fixture.Breakout()
	g := newTestGenerator(DefaultParams(), closeOf(candles).Add(5*time.Second))

	sigs := g.Evaluate(breakoutInput(candles, 42250, 15, 25))
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signal, got %d: %+v", len(sigs), sigs)
	}
	s := sigs[0]
	if s.Type != model.SignalBuy || s.Direction != model.Up {
		t.Errorf("type = %s %s, want BUY UP", s.Type, s.Direction)
	}
	if s.Confidence != model.ConfidenceHigh {
		t.Errorf("confidence = %s, want HIGH", s.Confidence)
	}
	if s.EntryPrice != 42350.5 {
		t.Errorf("entry = %v, want 42350.5", s.EntryPrice)
	}
	if s.StopLoss != 41850 {
		t.Errorf("stop = %v, want the 41850 swing low", s.StopLoss)
	}
	if s.TakeProfit == nil || math.Abs(*s.TakeProfit-43351.5) > 1e-9 {
		t.Errorf("take profit = %v, want 43351.5", s.TakeProfit)
	}
	if s.Bias != model.Bullish {
		t.Errorf("bias = %s", s.Bias)
	}
	if !s.CandleCloseTime.Equal(fixture.Start.Add(150 * time.Minute)) {
		t.Errorf("candle close = %v", s.CandleCloseTime)
	}
	if s.ID == "" {
		t.Error("expected an id")
	}

	again := g.Evaluate(breakoutInput(candles, 42250, 15, 25))
	if again[0].ID != s.ID {
		t.Error("id should be derived from the dedup key")
	}
}

// mirrorAround reflects a series around mid so the Breakout up-leg becomes a
// down-leg: BOS(DOWN) through 47700 with the 48150 swing high above it.
func mirrorAround(cs []model.Candle, mid float64) []model.Candle {
	out := make([]model.Candle, len(cs))
	for i, c := range cs {
		out[i] = c
		out[i].Open = 2*mid - c.Open
		out[i].High = 2*mid - c.Low
		out[i].Low = 2*mid - c.High
		out[i].Close = 2*mid - c.Close
	}
	return out
}

func TestEvaluate_SellHigh(t *testing.T) {
	candles := mirrorAround(fixture.Breakout(), 45000)
	g := newTestGenerator(DefaultParams(), closeOf(candles))

	in := breakoutInput(candles, 47750, 85, 75)
	in.Bias.Classification = model.Bearish
	last := len(in.Snapshots) - 1
	if !stochTrigger(in.Snapshots, last, 2, model.Down, 80) {
		t.Fatal("%K 85 -> 75 should cross below 80")
	}

	sigs := g.Evaluate(in)
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signal, got %d: %+v", len(sigs), sigs)
	}
	s := sigs[0]
	if s.Type != model.SignalSell || s.Direction != model.Down || s.Confidence != model.ConfidenceHigh {
		t.Errorf("signal = %s %s %s, want SELL DOWN HIGH", s.Type, s.Direction, s.Confidence)
	}
	if s.EntryPrice != 47649.5 {
		t.Errorf("entry = %v, want 47649.5", s.EntryPrice)
	}
	if s.StopLoss != 48150 || s.StopLoss <= s.EntryPrice {
		t.Errorf("stop = %v, want the 48150 swing high above entry", s.StopLoss)
	}
	if s.TakeProfit == nil || math.Abs(*s.TakeProfit-46648.5) > 1e-9 {
		t.Errorf("take profit = %v, want 46648.5", s.TakeProfit)
	}
	if s.Bias != model.Bearish {
		t.Errorf("bias = %s", s.Bias)
	}
}

func TestEvaluate_BuyMediumWithoutTrigger(t *testing.T) {
	candles := fixture.Breakout()
	g := newTestGenerator(DefaultParams(), closeOf(candles))

	sigs := g.Evaluate(breakoutInput(candles, 42250, 30, 35))
	if len(sigs) != 1 || sigs[0].Confidence != model.ConfidenceMedium {
		t.Fatalf("expected one MEDIUM signal, got %+v", sigs)
	}
}

func TestEvaluate_EqualCloseNoSignal(t *testing.T) {
	candles := fixture.Build(fixture.Start, model.TF15m, fixture.BreakoutHLC(42300))
	g := newTestGenerator(DefaultParams(), closeOf(candles))

	if sigs := g.Evaluate(breakoutInput(candles, 42250, 15, 25)); len(sigs) != 0 {
		t.Errorf("close equal to the swing should not signal, got %+v", sigs)
	}
}

func TestEvaluate_PermissiveNearMiss(t *testing.T) {
	candles := fixture.Breakout()
	now := closeOf(candles)

	// 42350.5 is ~0.595% above 42100: outside 0.5%, inside 0.5+0.25.
	strict := newTestGenerator(DefaultParams(), now)
	if sigs := strict.Evaluate(breakoutInput(candles, 42100, 15, 25)); len(sigs) != 0 {
		t.Errorf("strict mode should drop a near miss, got %+v", sigs)
	}

	p := DefaultParams()
	p.Permissive = true
	loose := newTestGenerator(p, now)
	sigs := loose.Evaluate(breakoutInput(candles, 42100, 15, 25))
	if len(sigs) != 1 || sigs[0].Confidence != model.ConfidenceLow {
		t.Fatalf("expected one LOW signal, got %+v", sigs)
	}

	if sigs := loose.Evaluate(breakoutInput(candles, 41900, 15, 25)); len(sigs) != 0 {
		t.Errorf("far from EMA should not signal even in permissive mode, got %+v", sigs)
	}
}

func TestEvaluate_BiasGate(t *testing.T) {
	candles := fixture.Breakout()
	now := closeOf(candles)

	tests := []struct {
		name   string
		mutate func(in *Input)
	}{
		{"range bias", func(in *Input) { in.Bias.Classification = model.Range }},
		{"bearish bias", func(in *Input) { in.Bias.Classification = model.Bearish }},
		{"no bias", func(in *Input) { in.Bias = nil }},
		{"stale bias", func(in *Input) { in.Bias.EvaluatedAt = now.Add(-2 * time.Hour) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := breakoutInput(candles, 42250, 15, 25)
			tt.mutate(&in)
			if sigs := newTestGenerator(DefaultParams(), now).Evaluate(in); len(sigs) != 0 {
				t.Errorf("expected no signal, got %+v", sigs)
			}
		})
	}
}

func TestEvaluate_ReversalMedium(t *testing.T) {
	candles := fixture.Reversal()
	g := newTestGenerator(DefaultParams(), closeOf(candles))

	sigs := g.Evaluate(Input{
		Symbol:    "ETHUSDT",
		Timeframe: model.TF15m,
		Candles:   candles,
		Snapshots: bareSnapshots(candles),
		Structure: structure.Analyze(candles, 2),
	})
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signal, got %+v", sigs)
	}
	s := sigs[0]
	if s.Type != model.SignalReversal || s.Direction != model.Down {
		t.Errorf("type = %s %s, want REVERSAL DOWN", s.Type, s.Direction)
	}
	if s.Confidence != model.ConfidenceMedium {
		t.Errorf("confidence = %s, want MEDIUM", s.Confidence)
	}
	if s.Bias != model.Range {
		t.Errorf("bias = %s, want RANGE when unavailable", s.Bias)
	}
	if s.EntryPrice != 101 || s.StopLoss != 111 {
		t.Errorf("entry/stop = %v/%v, want 101/111", s.EntryPrice, s.StopLoss)
	}
	if s.TakeProfit == nil || *s.TakeProfit != 81 {
		t.Errorf("take profit = %v, want 81", s.TakeProfit)
	}
	if !s.LiquiditySweep {
		t.Error("reversal should carry the sweep flag")
	}
}

func TestEvaluate_ReversalConfidenceConfigurable(t *testing.T) {
	candles := fixture.Reversal()
	p := DefaultParams()
	p.ReversalConfidence = model.ConfidenceHigh
	p.TakeProfitR = 0
	g := newTestGenerator(p, closeOf(candles))

	sigs := g.Evaluate(Input{
		Symbol:    "ETHUSDT",
		Timeframe: model.TF15m,
		Candles:   candles,
		Snapshots: bareSnapshots(candles),
		Structure: structure.Analyze(candles, 2),
	})
	if len(sigs) != 1 || sigs[0].Confidence != model.ConfidenceHigh {
		t.Fatalf("expected one HIGH reversal, got %+v", sigs)
	}
	if sigs[0].TakeProfit != nil {
		t.Error("take profit should be absent when take_profit_r is 0")
	}
}

func TestEvaluate_ReversalNeedsSweep(t *testing.T) {
	hlc := [][3]float64{
		{101, 99, 100}, {102, 100, 101}, {103, 101, 102}, {105, 102, 104},
		{104, 101, 102}, {103, 100, 101}, {102, 99, 100}, {104, 100, 103},
		{106, 102, 105.5}, {108, 104, 107}, {110, 106, 109}, {109, 105, 106},
		{108, 103, 104}, {107, 102, 103}, {109, 104, 108},
		{110, 106, 107.5}, // tops out at the 110 swing without piercing it
		{108, 103, 104}, {105, 100, 101},
	}
	candles := fixture.Build(fixture.Start, model.TF15m, hlc)
	a := structure.Analyze(candles, 2)
	if len(a.EventsAt(17)) != 1 || a.EventsAt(17)[0].Kind() != model.KindCHoCH {
		t.Fatalf("fixture should still CHoCH at 17, got %v", a.Events)
	}

	g := newTestGenerator(DefaultParams(), closeOf(candles))
	sigs := g.Evaluate(Input{
		Symbol:    "ETHUSDT",
		Timeframe: model.TF15m,
		Candles:   candles,
		Snapshots: bareSnapshots(candles),
		Structure: a,
	})
	if len(sigs) != 0 {
		t.Errorf("CHoCH without a sweep should not signal, got %+v", sigs)
	}
}

func TestEvaluate_ShortInput(t *testing.T) {
	g := NewGenerator(DefaultParams())
	if sigs := g.Evaluate(Input{}); sigs != nil {
		t.Errorf("expected nil, got %+v", sigs)
	}
	candles := fixture.Breakout()
	if sigs := g.Evaluate(Input{Candles: candles, Snapshots: bareSnapshots(candles[:3])}); sigs != nil {
		t.Errorf("mismatched snapshots should yield nil, got %+v", sigs)
	}
}

func TestStopLoss(t *testing.T) {
	low := &model.SwingPoint{Price: 95, Kind: model.SwingLow}
	high := &model.SwingPoint{Price: 110, Kind: model.SwingHigh}
	atr := model.Float(2)

	tests := []struct {
		name   string
		dir    model.Direction
		a      structure.Analysis
		atr    *float64
		want   float64
		wantOK bool
	}{
		{"swing low below entry", model.Up, structure.Analysis{LastLow: low}, atr, 95, true},
		{"swing high above entry", model.Down, structure.Analysis{LastHigh: high}, atr, 110, true},
		{"atr fallback up", model.Up, structure.Analysis{}, atr, 97, true},
		{"atr fallback down", model.Down, structure.Analysis{}, atr, 103, true},
		{"swing on wrong side falls back", model.Down, structure.Analysis{LastHigh: &model.SwingPoint{Price: 99}}, atr, 103, true},
		{"nothing available", model.Up, structure.Analysis{}, nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := stopLoss(tt.dir, 100, tt.a, tt.atr, 1.5)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("stopLoss = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStochTrigger(t *testing.T) {
	snaps := make([]model.IndicatorSnapshot, 5)
	ks := []float64{10, 15, 25, 30, 35}
	for i, k := range ks {
		snaps[i].StochRSIK = model.Float(k)
	}
	if stochTrigger(snaps, 4, 2, model.Up, 20) {
		t.Error("cross at index 2 is outside a lookback of 2 from index 4")
	}
	if !stochTrigger(snaps, 3, 2, model.Up, 20) {
		t.Error("cross at index 2 is within a lookback of 2 from index 3")
	}
	if stochTrigger(snaps, 3, 2, model.Down, 80) {
		t.Error("no downward cross expected")
	}
}

func TestResolveBias(t *testing.T) {
	asOf := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	snap := func(price, e20, e50, e100 float64) model.IndicatorSnapshot {
		return model.IndicatorSnapshot{Close: price, EMA20: model.Float(e20), EMA50: model.Float(e50), EMA100: model.Float(e100)}
	}

	tests := []struct {
		name string
		snap model.IndicatorSnapshot
		want model.BiasClass
	}{
		{"bullish stack", snap(105, 104, 103, 102), model.Bullish},
		{"bearish stack", snap(95, 96, 97, 98), model.Bearish},
		{"price below ema20", snap(103.5, 104, 103, 102), model.Range},
		{"tangled emas", snap(105, 103, 104, 102), model.Range},
		{"equal is not ordered", snap(104, 104, 103, 102), model.Range},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ResolveBias("BTCUSDT", model.TF1h, tt.snap, asOf)
			if err != nil {
				t.Fatal(err)
			}
			if b.Classification != tt.want {
				t.Errorf("bias = %s, want %s", b.Classification, tt.want)
			}
			if b.Price != tt.snap.Close || !b.EvaluatedAt.Equal(asOf) {
				t.Errorf("unexpected bias fields %+v", b)
			}
		})
	}

	if _, err := ResolveBias("BTCUSDT", model.TF1h, model.IndicatorSnapshot{Close: 1}, asOf); err == nil {
		t.Error("expected insufficient history without EMAs")
	}
}

func TestBiasStale(t *testing.T) {
	b := model.Bias{Timeframe: model.TF1h, EvaluatedAt: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	if b.Stale(b.EvaluatedAt.Add(59 * time.Minute)) {
		t.Error("bias within one interval should be fresh")
	}
	if !b.Stale(b.EvaluatedAt.Add(61 * time.Minute)) {
		t.Error("bias older than one interval should be stale")
	}
}

func TestEvaluate_InputNowOverridesClock(t *testing.T) {
	candles := fixture.Breakout()
	g := newTestGenerator(DefaultParams(), closeOf(candles).Add(24*time.Hour))
	in := breakoutInput(candles, 42250, 15, 25)

	if sigs := g.Evaluate(in); len(sigs) != 0 {
		t.Fatalf("bias a day old should be stale, got %+v", sigs)
	}
	in.Now = closeOf(candles).Add(5 * time.Second)
	if sigs := g.Evaluate(in); len(sigs) != 1 {
		t.Fatalf("expected 1 signal at Input.Now, got %d", len(sigs))
	}
}
