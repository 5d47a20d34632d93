package strategy

import (
	"fmt"
	"time"

	"SignalSentinel/internal/model"
	"SignalSentinel/internal/structure"
)

// Params tunes the generator. Percentages are in percent, not fractions.
type Params struct {
	ProximityPct       float64
	Oversold           float64
	Overbought         float64
	TriggerLookback    int
	Permissive         bool
	NearMissPct        float64
	TakeProfitR        float64
	ATRStopMultiple    float64
	ReversalConfidence model.Confidence
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		ProximityPct:       0.5,
		Oversold:           20,
		Overbought:         80,
		TriggerLookback:    2,
		NearMissPct:        0.25,
		TakeProfitR:        2,
		ATRStopMultiple:    1.5,
		ReversalConfidence: model.ConfidenceMedium,
	}
}

// Input is everything the generator looks at for one symbol and one entry
// candle. Candles are closed entry-timeframe candles and Snapshots is
// calculator.Compute over them.
type Input struct {
	Symbol    string
	Timeframe model.Timeframe
	Bias      *model.Bias
	Candles   []model.Candle
	Snapshots []model.IndicatorSnapshot
	Structure structure.Analysis
	// Now is the evaluation instant; zero means the generator's clock.
	Now time.Time
}

// Generator turns bias and entry structure into scored signal candidates.
type Generator struct {
	params Params
	now    func() time.Time
}

// NewGenerator creates a Generator with the given parameters.
func NewGenerator(p Params) *Generator {
	if p.TriggerLookback <= 0 {
		p.TriggerLookback = 1
	}
	if !p.ReversalConfidence.Valid() {
		p.ReversalConfidence = model.ConfidenceMedium
	}
	return &Generator{params: p, now: time.Now}
}

// Params returns the generator configuration.
func (g *Generator) Params() Params { return g.params }

// Evaluate returns the candidates for the latest closed candle: at most one
// BUY or SELL and at most one REVERSAL.
func (g *Generator) Evaluate(in Input) []model.Signal {
	last := len(in.Candles) - 1
	if last < 1 || len(in.Snapshots) != len(in.Candles) {
		return nil
	}
	now := in.Now
	if now.IsZero() {
		now = g.now()
	}
	now = now.UTC()

	bias := in.Bias
	if bias != nil && bias.Stale(now) {
		bias = nil
	}

	var out []model.Signal
	if sig, ok := g.trend(in, bias, last, now); ok {
		out = append(out, sig)
	}
	if sig, ok := g.reversal(in, bias, last, now); ok {
		out = append(out, sig)
	}
	return out
}

// trend evaluates BUY and SELL: bias, a BOS on the latest candle in the same
// direction, proximity to EMA20/EMA50 and a StochRSI trigger.
func (g *Generator) trend(in Input, bias *model.Bias, last int, now time.Time) (model.Signal, bool) {
	if bias == nil || bias.Classification == model.Range {
		return model.Signal{}, false
	}
	dir, typ, th := model.Up, model.SignalBuy, g.params.Oversold
	if bias.Classification == model.Bearish {
		dir, typ, th = model.Down, model.SignalSell, g.params.Overbought
	}

	var bos model.StructureEvent
	for _, e := range in.Structure.EventsAt(last) {
		if e.Kind() == model.KindBOS && e.Dir() == dir {
			bos = e
		}
	}
	if bos == nil {
		return model.Signal{}, false
	}

	snap := in.Snapshots[last]
	entry := in.Candles[last].Close
	prox := scoreProximity(entry, snap, g.params)
	triggered := stochTrigger(in.Snapshots, last, g.params.TriggerLookback, dir, th)

	confidence, ok := grade(prox, triggered, g.params.Permissive)
	if !ok {
		return model.Signal{}, false
	}

	stop, ok := stopLoss(dir, entry, in.Structure, snap.ATR, g.params.ATRStopMultiple)
	if !ok {
		return model.Signal{}, false
	}

	desc := fmt.Sprintf("%s, %.2f%% from EMA", bos, prox.DistancePct)
	if triggered {
		desc += ", StochRSI trigger"
	}
	_, swept := recentSweep(in.Structure.Events, dir.Opposite(), last-g.params.TriggerLookback+1, last)

	sig := g.build(in, typ, dir, bias.Classification, desc, entry, stop, confidence, last, now)
	sig.LiquiditySweep = swept
	return sig, true
}

// reversal evaluates a CHoCH on the latest candle preceded by a sweep of the
// opposite side at or after the swing the CHoCH broke. Bias is not required.
func (g *Generator) reversal(in Input, bias *model.Bias, last int, now time.Time) (model.Signal, bool) {
	var choch model.StructureEvent
	for _, e := range in.Structure.EventsAt(last) {
		if e.Kind() == model.KindCHoCH {
			choch = e
		}
	}
	if choch == nil {
		return model.Signal{}, false
	}
	dir := choch.Dir()
	sweep, ok := recentSweep(in.Structure.Events, dir.Opposite(), choch.Swing(), last)
	if !ok {
		return model.Signal{}, false
	}

	snap := in.Snapshots[last]
	entry := in.Candles[last].Close
	stop, ok := stopLoss(dir, entry, in.Structure, snap.ATR, g.params.ATRStopMultiple)
	if !ok {
		return model.Signal{}, false
	}

	class := model.Range
	if bias != nil {
		class = bias.Classification
	}
	desc := fmt.Sprintf("%s after %s", choch, sweep)
	sig := g.build(in, model.SignalReversal, dir, class, desc, entry, stop, g.params.ReversalConfidence, last, now)
	sig.LiquiditySweep = true
	return sig, true
}

// grade maps the soft conditions to a confidence. Bias and structure are
// already required by the caller.
func grade(p proximity, triggered, permissive bool) (model.Confidence, bool) {
	switch {
	case p.Within && triggered:
		return model.ConfidenceHigh, true
	case p.Within:
		return model.ConfidenceMedium, true
	case permissive && p.NearMiss:
		return model.ConfidenceLow, true
	}
	return "", false
}

func (g *Generator) build(in Input, typ model.SignalType, dir model.Direction, bias model.BiasClass,
	desc string, entry, stop float64, conf model.Confidence, last int, now time.Time) model.Signal {
	snap := in.Snapshots[last]
	sig := model.Signal{
		Type:            typ,
		Direction:       dir,
		Symbol:          in.Symbol,
		Timeframe:       in.Timeframe,
		Bias:            bias,
		Structure:       desc,
		EntryPrice:      entry,
		StopLoss:        stop,
		TakeProfit:      takeProfit(dir, entry, stop, g.params.TakeProfitR),
		Confidence:      conf,
		CandleCloseTime: in.Candles[last].CloseTime(in.Timeframe).UTC(),
		EMA20:           snap.EMA20,
		EMA50:           snap.EMA50,
		RSI:             snap.RSI,
		StochRSIK:       snap.StochRSIK,
		StochRSID:       snap.StochRSID,
		ATR:             snap.ATR,
		CreatedAt:       now,
	}
	sig.AssignID()
	return sig
}
