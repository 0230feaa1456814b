package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blevi/internal/device"
	goble "github.com/srg/blevi/internal/device/go-ble"
	"github.com/srg/blevi/internal/dom"
	"github.com/srg/blevi/internal/refnum"
	"github.com/srg/blevi/internal/webvi"
	"github.com/srg/blevi/pkg/config"
	"github.com/srg/blevi/webbluetooth"
)

// connectSelector is the element the device request is gated on.
const connectSelector = "#connect"

var (
	configPath string
	simulate   bool
)

// newBluetooth selects the Bluetooth stack for a session (can be overridden in tests).
// The returned func releases whatever the stack started.
var newBluetooth = func(cfg *config.Config, logger *logrus.Logger) (device.Bluetooth, func()) {
	if cfg.Simulate {
		return newDemoBluetooth(logger)
	}
	return goble.NewBluetooth(cfg, logger), func() {}
}

// session is one page worth of state: a document with a connect button, the
// Web Bluetooth functions registered with a WebVI simulator, and the refnums
// the command opened.
type session struct {
	cfg    *config.Config
	logger *logrus.Logger
	doc    *dom.Document
	sim    *webvi.Simulator
	in     io.Reader
	status io.Writer
	out    io.Writer

	opened  []refnum.Refnum
	server  refnum.Refnum
	release func()
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if simulate {
		cfg.Simulate = true
	}

	// the config file level only applies when one was given
	fallback := logrus.PanicLevel
	if configPath != "" {
		fallback = cfg.LogLevel
	}
	logger, err := configureLogger(cmd, "verbose", fallback)
	if err != nil {
		return nil, err
	}

	bt, release := newBluetooth(cfg, logger)

	doc := dom.NewDocument(dom.NewElement("button", "connect", ""))
	api := webbluetooth.New(bt, webbluetooth.Options{
		Document: doc,
		Config:   cfg,
		Logger:   logger,
	})
	sim := webvi.NewSimulator(logger)
	api.Register(sim)

	return &session{
		cfg:     cfg,
		logger:  logger,
		doc:     doc,
		sim:     sim,
		in:      cmd.InOrStdin(),
		status:  cmd.ErrOrStderr(),
		out:     cmd.OutOrStdout(),
		release: release,
	}, nil
}

// Close releases every refnum the session opened, newest first, then the
// Bluetooth stack. The GATT server is disconnected before its refnum goes.
func (s *session) Close() {
	ctx := context.Background()
	for i := len(s.opened) - 1; i >= 0; i-- {
		if s.opened[i] == s.server {
			if _, err := s.invoke(ctx, webbluetooth.OpGattServerDisconnect, s.server); err != nil {
				s.logger.WithError(err).Warn("Failed to disconnect")
			}
		}
		if _, err := s.invoke(ctx, webbluetooth.OpCloseRefnum, s.opened[i]); err != nil {
			s.logger.WithError(err).WithField("refnum", s.opened[i]).Warn("Failed to close refnum")
		}
	}
	s.opened = nil
	s.release()
}

func (s *session) invoke(ctx context.Context, op string, args ...any) (any, error) {
	return s.sim.Invoke(ctx, webbluetooth.FuncName(op), args...)
}

// open invokes an operation that completes with a refnum and remembers it
// for Close.
func (s *session) open(ctx context.Context, op string, args ...any) (refnum.Refnum, error) {
	v, err := s.invoke(ctx, op, args...)
	if err != nil {
		return 0, err
	}
	ref, ok := v.(refnum.Refnum)
	if !ok {
		return 0, fmt.Errorf("%s completed with %T, want a refnum", op, v)
	}
	s.opened = append(s.opened, ref)
	return ref, nil
}

// requestDevice arms the connect button and clicks it once the user presses
// Enter.
func (s *session) requestDevice(ctx context.Context, optionsJSON string) (refnum.Refnum, error) {
	el, err := s.doc.QuerySelectorOne(connectSelector)
	if err != nil {
		return 0, err
	}

	fmt.Fprintf(s.status, "%s Press Enter to connect...\n", color.CyanString(">"))
	gestureCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.clickOnEnter(gestureCtx, el)

	return s.open(ctx, webbluetooth.OpRequestDevice, optionsJSON, connectSelector, s.cfg.DefaultEvent)
}

// clickOnEnter waits for a line on the session input and dispatches the
// gesture event on el as soon as the request armed it.
func (s *session) clickOnEnter(ctx context.Context, el *dom.Element) {
	line := make(chan struct{})
	go func() {
		if _, err := bufio.NewReader(s.in).ReadString('\n'); err != nil && err != io.EOF {
			s.logger.WithError(err).Debug("Failed to read gesture input")
			return
		}
		close(line)
	}()

	select {
	case <-ctx.Done():
		return
	case <-line:
	}

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for el.ListenerCount(s.cfg.DefaultEvent) == 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
	el.Dispatch(s.cfg.DefaultEvent)
}

// openCharacteristic walks requestDevice → connect → service → characteristic.
func (s *session) openCharacteristic(ctx context.Context, t target) (refnum.Refnum, error) {
	optionsJSON, err := t.requestOptions()
	if err != nil {
		return 0, err
	}

	dev, err := s.requestDevice(ctx, optionsJSON)
	if err != nil {
		return 0, fmt.Errorf("failed to request device: %w", err)
	}
	server, err := s.open(ctx, webbluetooth.OpGattServerConnect, dev)
	if err != nil {
		return 0, fmt.Errorf("failed to connect: %w", err)
	}
	s.server = server
	fmt.Fprintf(s.status, "%s Connected\n", color.GreenString("✓"))

	svc, err := s.open(ctx, webbluetooth.OpGetPrimaryService, server, t.service)
	if err != nil {
		return 0, fmt.Errorf("failed to get service %s: %w", t.service, err)
	}
	char, err := s.open(ctx, webbluetooth.OpGetCharacteristic, svc, t.characteristic)
	if err != nil {
		return 0, fmt.Errorf("failed to get characteristic %s: %w", t.characteristic, err)
	}
	return char, nil
}

// target names a characteristic and the device filter used to find it.
type target struct {
	service        string
	characteristic string
	name           string
	namePrefix     string
	options        string
}

// requestOptions returns the requestDevice options JSON: the explicit
// options when given, else a filter on the service plus optional name
// criteria.
func (t target) requestOptions() (string, error) {
	if t.options != "" {
		return t.options, nil
	}

	filter := map[string]any{"services": []string{t.service}}
	if t.name != "" {
		filter["name"] = t.name
	}
	if t.namePrefix != "" {
		filter["namePrefix"] = t.namePrefix
	}
	data, err := json.Marshal(map[string]any{"filters": []any{filter}})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// addTargetFlags registers the flags every characteristic command shares.
func addTargetFlags(cmd *cobra.Command, t *target) {
	cmd.Flags().StringVar(&t.service, "service", "", "Service name, alias or UUID (e.g., battery_service, 0x180f)")
	cmd.Flags().StringVar(&t.characteristic, "char", "", "Characteristic name, alias or UUID (e.g., battery_level, 0x2a19)")
	cmd.Flags().StringVar(&t.name, "name", "", "Only accept a device with this exact name")
	cmd.Flags().StringVar(&t.namePrefix, "name-prefix", "", "Only accept a device whose name starts with this prefix")
	cmd.Flags().StringVar(&t.options, "options", "", "requestDevice options JSON (overrides --name and --name-prefix)")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("char")
}

// withInterrupt returns a context cancelled on Ctrl+C or SIGTERM.
func withInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
