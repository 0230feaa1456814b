package device

import (
	"fmt"

	"github.com/srg/blevi/internal/bledb"
)

// NormalizeUUID is re-exported from bledb for convenience.
// It converts a UUID string to the internal BLE library format (lowercase, no dashes).
// Full 128-bit UUIDs on the Bluetooth SIG base are reduced to their 16-bit short form,
// so two spellings of the same UUID normalize to the same string.
func NormalizeUUID(uuid string) string {
	return bledb.NormalizeUUID(uuid)
}

// SameUUID reports whether a and b denote the same UUID in any spelling.
func SameUUID(a, b string) bool {
	return NormalizeUUID(a) == NormalizeUUID(b)
}

// MaxUUIDAlias is the largest alias CanonicalUUID accepts (32-bit).
const MaxUUIDAlias = 0xFFFFFFFF

// CanonicalUUID converts a 16-bit or 32-bit UUID alias into its 128-bit UUID string.
func CanonicalUUID(alias int64) (string, error) {
	if alias < 0 || alias > MaxUUIDAlias {
		return "", fmt.Errorf("UUID alias %d is out of range; it must be a 16-bit or 32-bit unsigned number", alias)
	}
	return bledb.CanonicalUUID(uint32(alias)), nil
}

// ResolveServiceUUID accepts a service name, alias or UUID and returns its canonical UUID.
func ResolveServiceUUID(id string) (string, error) {
	return bledb.ResolveService(id)
}

// ResolveCharacteristicUUID accepts a characteristic name, alias or UUID and returns its canonical UUID.
func ResolveCharacteristicUUID(id string) (string, error) {
	return bledb.ResolveCharacteristic(id)
}

// ShortenUUID returns a truncated version of a UUID for display purposes.
// Returns the first eight characters for long UUIDs and short UUIDs by themselves.
func ShortenUUID(uuid string) string {
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}
