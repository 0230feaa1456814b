package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blevi/webbluetooth"
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write --service <service> --char <characteristic> <data>",
	Short: "Write a characteristic value",
	Long: `Requests a device offering the service, connects, and writes data to the characteristic.
Write with response is used when the characteristic supports it.

Examples:
  # Set the PLAYBULB candle color to red (hex input)
  blevi write --service 0xff02 --char 0xfffc --hex "00 ff 00 00"

  # Write a string
  blevi write --service 0xff02 --char 0xfffb "hello"`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

var (
	writeTarget target
	writeHex    bool
)

func init() {
	addTargetFlags(writeCmd, &writeTarget)
	writeCmd.Flags().BoolVar(&writeHex, "hex", false, "Treat data as hex (separators ' ', ':', '-' and 0x prefixes are ignored)")
}

func runWrite(cmd *cobra.Command, args []string) error {
	data, err := parseWriteData(args[0])
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("no data to write")
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := withInterrupt(cmd.Context())
	defer cancel()

	char, err := s.openCharacteristic(ctx, writeTarget)
	if err != nil {
		return err
	}

	if _, err := s.invoke(ctx, webbluetooth.OpWriteValue, char, data); err != nil {
		return fmt.Errorf("failed to write characteristic: %w", err)
	}
	fmt.Fprintf(s.status, "%s Wrote %d bytes\n", color.GreenString("✓"), len(data))
	return nil
}

// parseWriteData converts the data argument according to --hex.
func parseWriteData(dataStr string) ([]byte, error) {
	if writeHex {
		// Remove spaces and common separators
		cleaned := strings.ReplaceAll(dataStr, " ", "")
		cleaned = strings.ReplaceAll(cleaned, ":", "")
		cleaned = strings.ReplaceAll(cleaned, "-", "")
		cleaned = strings.ReplaceAll(cleaned, "0x", "")

		data, err := hex.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("invalid hex data: %w", err)
		}
		return data, nil
	}

	return []byte(dataStr), nil
}
