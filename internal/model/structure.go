package model

import (
	"fmt"
	"time"
)

// Direction is the side of a structural move.
type Direction string

const (
	Up   Direction = "UP"
	Down Direction = "DOWN"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Up {
		return Down
	}
	return Up
}

// SwingKind distinguishes swing highs from swing lows.
type SwingKind string

const (
	SwingHigh SwingKind = "HIGH"
	SwingLow  SwingKind = "LOW"
)

// SwingPoint is a confirmed local extremum. ConfirmedAt is the index of the
// candle whose close confirmed it.
type SwingPoint struct {
	Index       int       `json:"index"`
	Time        time.Time `json:"time"`
	Price       float64   `json:"price"`
	Kind        SwingKind `json:"kind"`
	ConfirmedAt int       `json:"confirmed_at"`
}

// EventKind names a structure event variant.
type EventKind string

const (
	KindBOS            EventKind = "BOS"
	KindCHoCH          EventKind = "CHOCH"
	KindLiquiditySweep EventKind = "LIQUIDITY_SWEEP"
)

// StructureEvent is the closed set {BOS, CHoCH, LiquiditySweep}. Only types in
// this package implement it.
type StructureEvent interface {
	Kind() EventKind
	Dir() Direction
	Level() float64
	Bar() int
	At() time.Time
	// Swing is the index of the swing point the event references.
	Swing() int
	String() string
	structureEvent()
}

// eventBase carries the fields shared by every structure event.
type eventBase struct {
	Direction      Direction `json:"direction"`
	ReferencePrice float64   `json:"reference_price"`
	Index          int       `json:"index"`
	Time           time.Time `json:"confirming_candle_time"`
	SwingIndex     int       `json:"swing_index"`
}

func (e eventBase) Dir() Direction { return e.Direction }
func (e eventBase) Level() float64 { return e.ReferencePrice }
func (e eventBase) Bar() int       { return e.Index }
func (e eventBase) At() time.Time  { return e.Time }
func (e eventBase) Swing() int     { return e.SwingIndex }
func (eventBase) structureEvent()  {}

// BOS is a close beyond the last swing in the direction of the prevailing trend.
type BOS struct{ eventBase }

// CHoCH is a close beyond the last swing against the prevailing trend.
type CHoCH struct{ eventBase }

// LiquiditySweep is a wick beyond a swing with the close back on the original
// side. Direction is the side that was pierced.
type LiquiditySweep struct{ eventBase }

func (BOS) Kind() EventKind            { return KindBOS }
func (CHoCH) Kind() EventKind          { return KindCHoCH }
func (LiquiditySweep) Kind() EventKind { return KindLiquiditySweep }

func (e BOS) String() string {
	return fmt.Sprintf("BOS %s through %.8g", e.Direction, e.ReferencePrice)
}

func (e CHoCH) String() string {
	return fmt.Sprintf("CHoCH %s through %.8g", e.Direction, e.ReferencePrice)
}

func (e LiquiditySweep) String() string {
	return fmt.Sprintf("Sweep %s of %.8g", e.Direction, e.ReferencePrice)
}

// NewBOS builds a BOS event.
func NewBOS(dir Direction, level float64, index int, at time.Time, swing int) BOS {
	return BOS{eventBase{Direction: dir, ReferencePrice: level, Index: index, Time: at, SwingIndex: swing}}
}

// NewCHoCH builds a CHoCH event.
func NewCHoCH(dir Direction, level float64, index int, at time.Time, swing int) CHoCH {
	return CHoCH{eventBase{Direction: dir, ReferencePrice: level, Index: index, Time: at, SwingIndex: swing}}
}

// NewLiquiditySweep builds a liquidity sweep event.
func NewLiquiditySweep(dir Direction, level float64, index int, at time.Time, swing int) LiquiditySweep {
	return LiquiditySweep{eventBase{Direction: dir, ReferencePrice: level, Index: index, Time: at, SwingIndex: swing}}
}
