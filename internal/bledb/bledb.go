//go:generate go run ./gen

// Package bledb resolves GATT assigned names and UUID aliases.
//
// The table in gatt_names.yaml is produced by ./gen from Nordic Semiconductor's
// bluetooth-numbers-database; the Web Bluetooth name of an entry is the last
// segment of its org.bluetooth identifier (e.g. "battery_service").
package bledb

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed gatt_names.yaml
var gattNamesYAML []byte

// Entry is a single assigned number.
type Entry struct {
	Name    string `yaml:"name"`    // Web Bluetooth name, e.g. "battery_level"
	Display string `yaml:"display"` // Human readable name, e.g. "Battery Level"
	UUID    uint32 `yaml:"uuid"`    // 16-bit assigned number
}

// Table is the decoded form of gatt_names.yaml.
type Table struct {
	Services        []Entry `yaml:"services"`
	Characteristics []Entry `yaml:"characteristics"`
	Descriptors     []Entry `yaml:"descriptors"`
}

// Kind selects which namespace a name is resolved in.
type Kind string

const (
	Service        Kind = "Service"
	Characteristic Kind = "Characteristic"
	Descriptor     Kind = "Descriptor"
)

// bluetoothBaseSuffix is the tail of the Bluetooth SIG base UUID in
// normalized (dashless) form.
const bluetoothBaseSuffix = "00001000800000805f9b34fb"

var canonicalRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

type index struct {
	byName  map[Kind]map[string]uint32
	byAlias map[Kind]map[uint32]string
}

var (
	loadOnce sync.Once
	idx      *index
)

// ParseTable decodes a names table in the gatt_names.yaml format.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse GATT names table: %w", err)
	}
	return &t, nil
}

func load() *index {
	loadOnce.Do(func() {
		t, err := ParseTable(gattNamesYAML)
		if err != nil {
			panic(err)
		}
		idx = newIndex(t)
	})
	return idx
}

func newIndex(t *Table) *index {
	ix := &index{
		byName:  make(map[Kind]map[string]uint32),
		byAlias: make(map[Kind]map[uint32]string),
	}
	add := func(kind Kind, entries []Entry) {
		ix.byName[kind] = make(map[string]uint32, len(entries))
		ix.byAlias[kind] = make(map[uint32]string, len(entries))
		for _, e := range entries {
			if e.Name != "" {
				ix.byName[kind][e.Name] = e.UUID
			}
			if _, dup := ix.byAlias[kind][e.UUID]; !dup {
				ix.byAlias[kind][e.UUID] = e.Display
			}
		}
	}
	add(Service, t.Services)
	add(Characteristic, t.Characteristics)
	add(Descriptor, t.Descriptors)
	return ix
}

// NormalizeUUID converts a UUID string to the internal BLE library format
// (lowercase, no dashes, no braces, no 0x prefix). Full UUIDs built on the
// Bluetooth SIG base UUID (0000xxxx-0000-1000-8000-00805f9b34fb) are reduced
// to their 16-bit short form.
func NormalizeUUID(uuid string) string {
	u := strings.ToLower(strings.TrimSpace(uuid))
	u = strings.TrimPrefix(u, "0x")
	u = strings.NewReplacer("-", "", "{", "", "}", "").Replace(u)

	if len(u) == 32 && strings.HasPrefix(u, "0000") && strings.HasSuffix(u, bluetoothBaseSuffix) {
		return u[4:8]
	}
	return u
}

// NormalizeUUIDs normalizes a slice of UUID strings to internal format.
func NormalizeUUIDs(uuids []string) []string {
	normalized := make([]string, len(uuids))
	for i, uuid := range uuids {
		normalized[i] = NormalizeUUID(uuid)
	}
	return normalized
}

// CanonicalUUID expands a 16- or 32-bit alias into a full 128-bit UUID string
// on the Bluetooth SIG base.
func CanonicalUUID(alias uint32) string {
	return fmt.Sprintf("%08x-0000-1000-8000-00805f9b34fb", alias)
}

// UUIDError reports an identifier that is neither a known name, an alias nor
// a UUID.
type UUIDError struct {
	Kind  Kind
	Input string
}

func (e *UUIDError) Error() string {
	return fmt.Sprintf("Invalid %s name: '%s'. It must be a valid UUID alias (e.g. 0x1234), "+
		"UUID (lowercase hex characters e.g. '00001234-0000-1000-8000-00805f9b34fb'), "+
		"or recognized standard name.", e.Kind, e.Input)
}

// Resolve turns a GATT name, an alias ("0x180f", "180f") or a UUID in any of
// the accepted spellings into canonical 128-bit form.
func Resolve(kind Kind, id string) (string, error) {
	s := strings.TrimSpace(id)
	if s == "" {
		return "", &UUIDError{Kind: kind, Input: id}
	}

	if alias, ok := load().byName[kind][s]; ok {
		return CanonicalUUID(alias), nil
	}

	lower := strings.ToLower(s)
	if canonicalRe.MatchString(lower) {
		return lower, nil
	}

	raw := strings.NewReplacer("-", "", "{", "", "}", "").Replace(strings.TrimPrefix(lower, "0x"))
	if !isHex(raw) {
		return "", &UUIDError{Kind: kind, Input: id}
	}

	switch len(raw) {
	case 4, 8:
		alias, err := strconv.ParseUint(raw, 16, 32)
		if err != nil {
			return "", &UUIDError{Kind: kind, Input: id}
		}
		return CanonicalUUID(uint32(alias)), nil
	case 32:
		return raw[0:8] + "-" + raw[8:12] + "-" + raw[12:16] + "-" + raw[16:20] + "-" + raw[20:32], nil
	default:
		return "", &UUIDError{Kind: kind, Input: id}
	}
}

// ResolveService resolves a service name or UUID.
func ResolveService(id string) (string, error) {
	return Resolve(Service, id)
}

// ResolveCharacteristic resolves a characteristic name or UUID.
func ResolveCharacteristic(id string) (string, error) {
	return Resolve(Characteristic, id)
}

func lookup(kind Kind, uuid string) string {
	n := NormalizeUUID(uuid)
	if len(n) != 4 && len(n) != 8 {
		return ""
	}
	alias, err := strconv.ParseUint(n, 16, 32)
	if err != nil {
		return ""
	}
	return load().byAlias[kind][uint32(alias)]
}

// LookupService returns the display name of a service UUID, or "".
func LookupService(uuid string) string {
	return lookup(Service, uuid)
}

// LookupCharacteristic returns the display name of a characteristic UUID, or "".
func LookupCharacteristic(uuid string) string {
	return lookup(Characteristic, uuid)
}

// LookupDescriptor returns the display name of a descriptor UUID, or "".
func LookupDescriptor(uuid string) string {
	return lookup(Descriptor, uuid)
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
