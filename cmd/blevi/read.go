package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/srg/blevi/webbluetooth"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read --service <service> --char <characteristic>",
	Short: "Read a characteristic value",
	Long: `Requests a device offering the service, connects, and reads the characteristic.

Examples:
  # Read Battery Level
  blevi read --service battery_service --char battery_level --hex

  # Vendor service on a specific device
  blevi read --service 0xff02 --char 0xfffb --name "PLAYBULB CANDLE" --hex

  # Try it without hardware
  blevi read --simulate --service battery_service --char battery_level --hex`,
	Args: cobra.NoArgs,
	RunE: runRead,
}

var (
	readTarget target
	readHex    bool
)

func init() {
	addTargetFlags(readCmd, &readTarget)
	readCmd.Flags().BoolVar(&readHex, "hex", false, "Output as hex string (e.g., 'ff01'); raw bytes by default")
}

func runRead(cmd *cobra.Command, args []string) error {
	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := withInterrupt(cmd.Context())
	defer cancel()

	char, err := s.openCharacteristic(ctx, readTarget)
	if err != nil {
		return err
	}

	v, err := s.invoke(ctx, webbluetooth.OpReadValue, char)
	if err != nil {
		return fmt.Errorf("failed to read characteristic: %w", err)
	}
	data, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("readValue completed with %T, want bytes", v)
	}
	return outputData(s, data, readHex)
}

// outputData writes data as a hex line or as raw bytes.
func outputData(s *session, data []byte, asHex bool) error {
	if asHex {
		_, err := fmt.Fprintln(s.out, hex.EncodeToString(data))
		return err
	}
	_, err := s.out.Write(data)
	return err
}
