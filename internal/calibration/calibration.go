package calibration

import (
	"math"
	"time"
)

// Rounding precision is part of the stored contract: the firmware and the
// web UI both reproduce displayed values from these coefficients, so the
// decimal places below must not change between releases.
const (
	slopeLevelPlaces    = 5
	slopePressurePlaces = 6
	interceptPlaces     = 3
	valuePlaces         = 2
)

// Coefficients is a one-dimensional linear calibration derived from two
// reference points. Slope and Intercept map raw ADC counts to physical units.
// PointSpread records the raw ADC delta between the two calibration points.
type Coefficients struct {
	Slope       float64 `json:"slope"`
	Intercept   float64 `json:"intercept"`
	PointSpread int     `json:"point_spread"`
}

// IsSet reports whether a calibration has ever been performed.
// A zero slope means "never calibrated", which callers must treat as a
// distinct state from "calibrated to zero output".
func (c *Coefficients) IsSet() bool {
	return c != nil && c.Slope != 0
}

// Level computes level calibration coefficients from two raw ADC reference
// points and the known cylinder volume at the high point.
//
// The low point corresponds to an empty cylinder (level 0), the high point to
// knownVolume. Slope is rounded to 5 decimal places, intercept to 3.
func Level(lowADC, highADC int, knownVolume float64) (Coefficients, error) {
	if highADC <= lowADC || knownVolume <= 0 {
		return Coefficients{}, ErrInvalidInput
	}

	slope := round(knownVolume/float64(highADC-lowADC), slopeLevelPlaces)
	intercept := round(-float64(lowADC)*slope, interceptPlaces)

	return Coefficients{
		Slope:       slope,
		Intercept:   intercept,
		PointSpread: highADC - lowADC,
	}, nil
}

// Pressure computes pressure calibration coefficients from two raw ADC
// reference points and the known pressures at those points.
//
// Slope is rounded to 6 decimal places, intercept to 3. The pressure values
// themselves are not range-checked; negative or inverted pressure pairs are
// accepted and produce a negative slope.
func Pressure(lowADC, highADC int, lowPressure, highPressure float64) (Coefficients, error) {
	if highADC <= lowADC {
		return Coefficients{}, ErrInvalidInput
	}

	slope := round((highPressure-lowPressure)/float64(highADC-lowADC), slopePressurePlaces)
	intercept := round(lowPressure-float64(lowADC)*slope, interceptPlaces)

	return Coefficients{
		Slope:       slope,
		Intercept:   intercept,
		PointSpread: highADC - lowADC,
	}, nil
}

// Apply maps a raw ADC reading to a physical value, rounded to 2 decimal
// places. Returns nil if the calibration has never been performed.
func Apply(raw float64, c *Coefficients) *float64 {
	if !c.IsSet() {
		return nil
	}
	v := round(raw*c.Slope+c.Intercept, valuePlaces)
	return &v
}

// Event is an immutable audit record of a single calibration.
// Events are append-only and never pruned by the core.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// Input reference points. LowValue/HighValue hold the known volume
	// (level calibration stores it in HighValue) or the two pressures.
	LowADC    int     `json:"low_adc"`
	HighADC   int     `json:"high_adc"`
	LowValue  float64 `json:"low_value"`
	HighValue float64 `json:"high_value"`

	// Computed result.
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Kind distinguishes level from pressure calibration events.
type Kind string

// Calibration kinds.
const (
	KindLevel    Kind = "level"
	KindPressure Kind = "pressure"
)

// round rounds v to the given number of decimal places, half away from zero.
func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
