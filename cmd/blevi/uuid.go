package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/srg/blevi/internal/bledb"
	"github.com/srg/blevi/internal/device"
	"github.com/srg/blevi/webbluetooth"
)

// uuidCmd represents the uuid command
var uuidCmd = &cobra.Command{
	Use:   "uuid <alias|name>...",
	Short: "Resolve UUID aliases and GATT names to 128-bit UUIDs",
	Long: `Resolves 16-bit or 32-bit aliases through canonicalUUID, and GATT
service or characteristic names through the assigned numbers table.

Examples:
  # Numeric alias (decimal or 0x hex)
  blevi uuid 0x180f
  blevi uuid 6157

  # GATT names
  blevi uuid battery_service battery_level`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUUID,
}

func runUUID(cmd *cobra.Command, args []string) error {
	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, arg := range args {
		canonical, err := s.resolveUUID(cmd.Context(), arg)
		if err != nil {
			return err
		}
		if name := gattName(canonical); name != "" {
			fmt.Fprintf(s.out, "%s\t%s\n", canonical, name)
			continue
		}
		fmt.Fprintln(s.out, canonical)
	}
	return nil
}

// resolveUUID sends numbers through canonicalUUID and looks names up
// locally, services first.
func (s *session) resolveUUID(ctx context.Context, arg string) (string, error) {
	if alias, err := strconv.ParseInt(arg, 0, 64); err == nil {
		if alias < 0 {
			return "", fmt.Errorf("invalid alias %s: must not be negative", arg)
		}
		v, err := s.invoke(ctx, webbluetooth.OpCanonicalUUID, float64(alias))
		if err != nil {
			return "", err
		}
		return v.(string), nil
	}

	if uuid, err := device.ResolveServiceUUID(arg); err == nil {
		return uuid, nil
	}
	uuid, err := device.ResolveCharacteristicUUID(arg)
	if err != nil {
		return "", fmt.Errorf("%q is neither a numeric alias nor a known GATT name", arg)
	}
	return uuid, nil
}

// gattName returns the assigned name of a canonical UUID, if any.
func gattName(uuid string) string {
	if name := bledb.LookupService(uuid); name != "" {
		return name
	}
	return bledb.LookupCharacteristic(uuid)
}
