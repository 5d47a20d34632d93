package model

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInsufficientHistory means a series is too short for a computation. It is
// a "no result yet" condition, not a failure.
var ErrInsufficientHistory = errors.New("insufficient history")

// Timeframe is a candle interval in exchange notation: "15m", "1h", "4h", "1d".
type Timeframe string

const (
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
)

// Duration parses the timeframe into a time.Duration.
func (tf Timeframe) Duration() (time.Duration, error) {
	s := string(tf)
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid timeframe %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q", s)
	}
	switch s[len(s)-1] {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("invalid timeframe %q", s)
}

// MustDuration is Duration for timeframes already validated by config.
func (tf Timeframe) MustDuration() time.Duration {
	d, err := tf.Duration()
	if err != nil {
		panic(err)
	}
	return d
}

// Candle represents a single OHLCV bar keyed by its open time.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// CloseTime returns the instant the candle closes for the given timeframe.
func (c Candle) CloseTime(tf Timeframe) time.Time {
	return c.OpenTime.Add(tf.MustDuration())
}

// ClosedAt reports whether the candle has closed at now.
func (c Candle) ClosedAt(tf Timeframe, now time.Time) bool {
	return !c.CloseTime(tf).After(now)
}

// Quote is the latest price view of a symbol for the query layer.
type Quote struct {
	Symbol           string            `json:"symbol"`
	Price            float64           `json:"price"`
	Change24h        *float64          `json:"change_24h"`
	Volume24h        *float64          `json:"volume_24h"`
	High24h          *float64          `json:"high_24h"`
	Low24h           *float64          `json:"low_24h"`
	RangePosition24h *float64          `json:"range_position_24h"` // Price within [Low24h, High24h], 0..1
	Snapshot         IndicatorSnapshot `json:"indicators"`
	Timestamp        time.Time         `json:"timestamp"`
}
