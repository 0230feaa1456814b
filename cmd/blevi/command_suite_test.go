package main

import (
	"bytes"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/srg/blevi/internal/device"
	"github.com/srg/blevi/pkg/config"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite runs blevi commands in-process with injected stdin.
// All cmd/blevi test suites should embed this.
type CommandTestSuite struct {
	suite.Suite

	originalNewBluetooth  func(*config.Config, *logrus.Logger) (device.Bluetooth, func())
	originalHeartInterval time.Duration
}

// SetupSuite runs once before all tests in the suite
func (s *CommandTestSuite) SetupSuite() {
	s.originalNewBluetooth = newBluetooth
	s.originalHeartInterval = demoHeartRateInterval
}

// SetupTest resets every flag so commands start from their defaults
func (s *CommandTestSuite) SetupTest() {
	configPath = ""
	simulate = false
	readTarget, writeTarget, subscribeTarget = target{}, target{}, target{}
	readHex, writeHex, subscribeHex = false, false, false
	subscribeCount = 0

	for _, cmd := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		cmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
		cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
			f.Changed = false
			if f.Name == "log-level" {
				_ = f.Value.Set("")
			}
			if f.Name == "verbose" {
				_ = f.Value.Set("false")
			}
		})
	}

	demoHeartRateInterval = 5 * time.Millisecond
}

// TearDownTest restores the package hooks a test may have replaced
func (s *CommandTestSuite) TearDownTest() {
	newBluetooth = s.originalNewBluetooth
	demoHeartRateInterval = s.originalHeartInterval
}

// ExecuteCommand runs blevi with args, feeding stdin, and returns what the
// command wrote to stdout and stderr.
func (s *CommandTestSuite) ExecuteCommand(stdin string, args ...string) (stdout, stderr string, err error) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}
