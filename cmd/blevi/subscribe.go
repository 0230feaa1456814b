package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blevi/internal/refnum"
	"github.com/srg/blevi/webbluetooth"
)

// subscribeCmd represents the subscribe command
var subscribeCmd = &cobra.Command{
	Use:   "subscribe --service <service> --char <characteristic>",
	Short: "Stream characteristic notifications",
	Long: `Requests a device offering the service, connects, starts notifications and
reads them one by one from the notification buffer until Ctrl+C or --count.

Examples:
  # Heart rate measurements as hex
  blevi subscribe --service heart_rate --char heart_rate_measurement --hex

  # First 5 notifications from the demo heart rate sensor
  blevi subscribe --simulate --service heart_rate --char heart_rate_measurement --hex --count 5`,
	Args: cobra.NoArgs,
	RunE: runSubscribe,
}

var (
	subscribeTarget target
	subscribeHex    bool
	subscribeCount  int
)

func init() {
	addTargetFlags(subscribeCmd, &subscribeTarget)
	subscribeCmd.Flags().BoolVar(&subscribeHex, "hex", false, "Output as hex string, one line per notification; raw bytes by default")
	subscribeCmd.Flags().IntVar(&subscribeCount, "count", 0, "Stop after this many notifications (0 = until Ctrl+C)")
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	if subscribeCount < 0 {
		return fmt.Errorf("invalid count %d: must not be negative", subscribeCount)
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

	char, err := s.openCharacteristic(ctx, subscribeTarget)
	if err != nil {
		return err
	}

	buf, err := s.open(ctx, webbluetooth.OpStartCharacteristicNotification, char)
	if err != nil {
		return fmt.Errorf("failed to start notifications: %w", err)
	}
	fmt.Fprintf(s.status, "%s Subscribed to %s. Press Ctrl+C to stop...\n", color.GreenString("✓"), subscribeTarget.characteristic)

	readErr := s.streamNotifications(ctx, buf, subscribeCount, subscribeHex)

	// the interrupt context may be gone already
	if _, err := s.invoke(context.Background(), webbluetooth.OpStopCharacteristicNotification, buf); err != nil {
		s.logger.WithError(err).Warn("Failed to stop notifications")
	}
	return readErr
}

// streamNotifications reads count notifications from buf (0 = unlimited) and
// prints each one. An interrupt ends the stream without error.
func (s *session) streamNotifications(ctx context.Context, buf refnum.Refnum, count int, asHex bool) error {
	for received := 0; count == 0 || received < count; received++ {
		v, err := s.invoke(ctx, webbluetooth.OpReadCharacteristicNotification, buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read notification: %w", err)
		}

		data, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("readCharacteristicNotification completed with %T, want bytes", v)
		}
		if err := outputData(s, data, asHex); err != nil {
			return err
		}
	}
	return nil
}
