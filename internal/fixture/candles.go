// Package fixture holds hand-built candle series shared by tests.
package fixture

import (
	"time"

	"SignalSentinel/internal/model"
)

// Start is the open time of the first fixture candle.
var Start = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

// Build turns (high, low, close) triples into candles of tf starting at start.
// Each open is the previous close; the first open equals its close.
func Build(start time.Time, tf model.Timeframe, hlc [][3]float64) []model.Candle {
	d := tf.MustDuration()
	out := make([]model.Candle, len(hlc))
	for i, v := range hlc {
		open := v[2]
		if i > 0 {
			open = hlc[i-1][2]
		}
		out[i] = model.Candle{
			OpenTime: start.Add(time.Duration(i) * d),
			Open:     open,
			High:     v[0],
			Low:      v[1],
			Close:    v[2],
			Volume:   100,
		}
	}
	return out
}

// Breakout is an up-leg that confirms a swing high at 42300.0 (index 3) and a
// swing low at 41850.0 (index 6), then closes at 42350.5 on the last candle:
// a BOS(UP) with no prior trend.
func Breakout() []model.Candle {
	return Build(Start, model.TF15m, BreakoutHLC(42350.5))
}

// BreakoutHLC is the Breakout series with the last close replaced.
func BreakoutHLC(lastClose float64) [][3]float64 {
	return [][3]float64{
		{42000, 41800, 41900},
		{42100, 41850, 42050},
		{42200, 41950, 42150},
		{42300, 42050, 42250},
		{42250, 42000, 42050},
		{42150, 41900, 41950},
		{42050, 41850, 41950},
		{42150, 41900, 42100},
		{42250, 42000, 42200},
		{42380, 42150, lastClose},
	}
}

// Reversal breaks up through 105 (BOS UP at 8), sweeps the 110 high at 15
// and closes through the 102 low at 17: a CHoCH(DOWN) two candles after the
// sweep. The last confirmed swing high is 111 (index 15).
func Reversal() []model.Candle {
	return Build(Start, model.TF15m, reversalHLC)
}

// ReversalRecovery continues Reversal: a swing low at 97 (index 19) breaks at
// 22 with the trend already down (BOS DOWN), then the close at 24 clears the
// 111 high (CHoCH UP).
func ReversalRecovery() []model.Candle {
	hlc := append(append([][3]float64{}, reversalHLC...),
		[3]float64{104, 98, 99},
		[3]float64{102, 97, 100},
		[3]float64{103, 99, 102},
		[3]float64{104, 100, 101},
		[3]float64{101, 95, 96},
		[3]float64{106, 96, 105},
		[3]float64{112, 104, 111.5},
	)
	return Build(Start, model.TF15m, hlc)
}

var reversalHLC = [][3]float64{
	{101, 99, 100},
	{102, 100, 101},
	{103, 101, 102},
	{105, 102, 104},
	{104, 101, 102},
	{103, 100, 101},
	{102, 99, 100},
	{104, 100, 103},
	{106, 102, 105.5},
	{108, 104, 107},
	{110, 106, 109},
	{109, 105, 106},
	{108, 103, 104},
	{107, 102, 103},
	{109, 104, 108},
	{111, 106, 107.5},
	{108, 103, 104},
	{105, 100, 101},
}
