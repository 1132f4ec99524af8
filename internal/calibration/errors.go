package calibration

import "errors"

// ErrInvalidInput is returned when calibration reference points are not
// usable: the high ADC point does not exceed the low point, or the known
// volume is not positive.
var ErrInvalidInput = errors.New("calibration: invalid input")
