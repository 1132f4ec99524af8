package cylinder

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// maxNameLength bounds cylinder names; storage keys and CSV filenames are
// derived from them.
const maxNameLength = 128

// ValidateName rejects names that are empty, oversized, or could be abused
// as storage paths. It must be called before any storage access, for every
// role.
func ValidateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return ErrInvalidName
	}
	if strings.Contains(name, "..") ||
		strings.ContainsAny(name, `/\`) ||
		strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	return nil
}

// deviceIDAlphabet is the character set deployed firmware expects in device
// identifiers.
const deviceIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_"

// DeviceIDLength is the length of generated device identifiers.
const DeviceIDLength = 8

// NewDeviceID generates a random device identifier from the firmware
// alphabet. Uniqueness is enforced by the identity index; callers re-roll
// on collision.
func NewDeviceID() (string, error) {
	buf := make([]byte, DeviceIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating device id: %w", err)
	}
	for i, b := range buf {
		buf[i] = deviceIDAlphabet[int(b)%len(deviceIDAlphabet)]
	}
	return string(buf), nil
}
