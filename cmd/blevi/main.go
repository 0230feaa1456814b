package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blevi",
	Short: "Web Bluetooth for WebVI, from the command line",
	Long: `Drives the refnum-based Web Bluetooth functions a WebVI calls:

- Resolve GATT names and numeric aliases to 128-bit UUIDs
- Request a device behind a user gesture (press Enter to "click" connect)
- Read from and write to characteristics
- Stream characteristic notifications through a notification buffer

Every command goes through the same JSLI functions a WebVI page uses.
Use --simulate to run against in-memory demo peripherals.`,
	Version: formatVersion(version),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("ERROR:"), FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(uuidCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(subscribeCmd)

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Debug logging (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use simulated demo peripherals instead of the Bluetooth adapter")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
	rootCmd.SetVersionTemplate(fmt.Sprintf("blevi {{.Version}} (commit %s, built %s)\n", commit, date))
}
