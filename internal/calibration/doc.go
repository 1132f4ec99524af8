// Package calibration converts raw ADC sensor counts into physical units
// using two-point linear calibration.
//
// A cylinder carries up to two independent calibrations: level (volume) and
// pressure. Each is derived from exactly two reference points and stored as
// (slope, intercept) coefficients with fixed rounding, which the firmware
// relies on for reproducible displayed values.
//
// Derived values are always computed at read time from the coefficients
// active at that moment; recalibrating a cylinder therefore changes how its
// historical readings display. This retroactive behaviour is deliberate.
package calibration
