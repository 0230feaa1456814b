// Package main regenerates gatt_names.yaml from Nordic Semiconductor's
// bluetooth-numbers-database.
//
// Only Bluetooth SIG assigned numbers are kept. The Web Bluetooth name of an
// entry is the identifier with its "org.bluetooth.<kind>." prefix removed,
// which matches the names accepted by navigator.bluetooth (battery_service,
// gap.device_name, gatt.client_characteristic_configuration, ...).
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/srg/blevi/internal/bledb"
	"gopkg.in/yaml.v3"
)

const (
	cacheDir          = "../../.tmp/bledb-cache"
	outFile           = "gatt_names.yaml"
	serviceURL        = "https://raw.githubusercontent.com/NordicSemiconductor/bluetooth-numbers-database/master/v1/service_uuids.json"
	characteristicURL = "https://raw.githubusercontent.com/NordicSemiconductor/bluetooth-numbers-database/master/v1/characteristic_uuids.json"
	descriptorURL     = "https://raw.githubusercontent.com/NordicSemiconductor/bluetooth-numbers-database/master/v1/descriptor_uuids.json"
)

// nordicEntry is a single record of the upstream JSON arrays.
type nordicEntry struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	UUID       string `json:"uuid"`
	Source     string `json:"source"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fmt.Println("Generating GATT names table...")

	var table bledb.Table
	for _, src := range []struct {
		file   string
		url    string
		prefix string
		dst    *[]bledb.Entry
	}{
		{"services.json", serviceURL, "org.bluetooth.service.", &table.Services},
		{"characteristics.json", characteristicURL, "org.bluetooth.characteristic.", &table.Characteristics},
		{"descriptors.json", descriptorURL, "org.bluetooth.descriptor.", &table.Descriptors},
	} {
		path, err := ensureCached(src.file, src.url)
		if err != nil {
			return err
		}
		entries, err := parseEntries(path, src.prefix)
		if err != nil {
			return err
		}
		*src.dst = entries
	}

	f, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "# GATT assigned numbers with their Web Bluetooth names.")
	fmt.Fprintln(f, "# Regenerate with: go generate ./internal/bledb")
	fmt.Fprintln(f)

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(&table); err != nil {
		return fmt.Errorf("failed to write %s: %w", outFile, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	fmt.Println("Generated", outFile)
	return nil
}

// ensureCached downloads a file from the given URL if it doesn't exist in the cache.
// Returns the path to the cached file.
func ensureCached(filename, url string) (string, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	path := filepath.Join(cacheDir, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("Downloading", filename)
		resp, err := http.Get(url)
		if err != nil {
			return "", fmt.Errorf("failed to download %s: %w", filename, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("failed to download %s: status %d", filename, resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read response body for %s: %w", filename, err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return "", fmt.Errorf("failed to write cache file %s: %w", filename, err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to check cache file %s: %w", filename, err)
	} else {
		fmt.Println("Using cached file", filename)
	}
	return path, nil
}

// parseEntries keeps the 16-bit SIG entries of a cached JSON array, sorted by
// assigned number. Duplicate numbers keep the first entry.
func parseEntries(path, prefix string) ([]bledb.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached file %s: %w", path, err)
	}

	var raw []nordicEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON array %s: %w", path, err)
	}

	seen := make(map[uint32]string)
	entries := make([]bledb.Entry, 0, len(raw))
	for _, e := range raw {
		if e.Source != "gss" && e.Source != "" {
			continue
		}
		short := bledb.NormalizeUUID(e.UUID)
		if len(short) != 4 {
			continue
		}
		alias, err := strconv.ParseUint(short, 16, 16)
		if err != nil {
			continue
		}
		if existing, dup := seen[uint32(alias)]; dup {
			if existing != e.Name {
				fmt.Fprintf(os.Stderr, "WARNING: Duplicate UUID %q (keeping %q, skipping %q)\n", short, existing, e.Name)
			}
			continue
		}
		seen[uint32(alias)] = e.Name

		entries = append(entries, bledb.Entry{
			Name:    strings.TrimPrefix(e.Identifier, prefix),
			Display: e.Name,
			UUID:    uint32(alias),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UUID < entries[j].UUID
	})
	return entries, nil
}
