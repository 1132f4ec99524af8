package cylinder

import "errors"

// Domain errors for the cylinder package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, cylinder.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a cylinder name does not exist.
	ErrNotFound = errors.New("cylinder: not found")

	// ErrExists is returned when creating a cylinder with a name that
	// already exists.
	ErrExists = errors.New("cylinder: already exists")

	// ErrDeviceNotFound is returned when a device ID does not resolve to a
	// cylinder, including dangling index entries.
	ErrDeviceNotFound = errors.New("cylinder: device not found")

	// ErrDeviceExists is returned when an identity index entry collides
	// with an existing device ID.
	ErrDeviceExists = errors.New("cylinder: device id already registered")

	// ErrInvalidName is returned for empty names and names containing path
	// separators or parent-directory tokens. The check runs before any
	// storage access, for every caller including admins.
	ErrInvalidName = errors.New("cylinder: invalid name")

	// ErrForbidden is returned when an authenticated caller lacks access
	// to the record or operation.
	ErrForbidden = errors.New("cylinder: forbidden")
)
