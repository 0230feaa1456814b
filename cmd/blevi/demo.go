package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/device"
	"github.com/srg/blevi/internal/groutine"
	"github.com/srg/blevi/internal/simulator"
)

// demoHeartRateInterval is how often the demo heart rate sensor notifies.
var demoHeartRateInterval = time.Second

const demoPeripherals = `
[
	{
		"id": "demo-battery",
		"name": "Battery Sensor",
		"services": [
			{
				"uuid": "battery_service",
				"characteristics": [
					{ "uuid": "battery_level", "properties": "read,notify", "value": [87] }
				]
			}
		]
	},
	{
		"id": "demo-hrm",
		"name": "Heart Rate Sensor",
		"services": [
			{
				"uuid": "heart_rate",
				"characteristics": [
					{ "uuid": "heart_rate_measurement", "properties": "notify" },
					{ "uuid": "body_sensor_location", "properties": "read", "value": [1] }
				]
			}
		]
	},
	{
		"id": "demo-candle",
		"name": "PLAYBULB CANDLE",
		"services": [
			{
				"uuid": "0xff02",
				"characteristics": [
					{ "uuid": "0xfffc", "properties": "read,write,writeWithoutResponse", "value": [0, 0, 0, 0] },
					{ "uuid": "0xfffb", "properties": "read,write", "value": [0, 0, 0, 0, 4, 0, 1, 0] }
				]
			}
		]
	}
]`

// newDemoBluetooth returns a simulated stack with a battery sensor, a heart
// rate sensor that notifies a slowly changing BPM, and a PLAYBULB candle.
// The returned func stops the heart rate feed.
func newDemoBluetooth(logger *logrus.Logger) (device.Bluetooth, func()) {
	configs, err := simulator.ParsePeripheralConfigs(demoPeripherals)
	if err != nil {
		panic(err)
	}

	bt := simulator.New(logger)
	var hrm *simulator.Peripheral
	for _, cfg := range configs {
		p, err := simulator.NewPeripheral(cfg, logger)
		if err != nil {
			panic(err)
		}
		bt.Add(p)
		if cfg.ID == "demo-hrm" {
			hrm = p
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	interval := demoHeartRateInterval
	groutine.Go(ctx, "demo-heart-rate", func(ctx context.Context) {
		feedHeartRate(ctx, hrm, interval, logger)
	})
	return bt, cancel
}

// feedHeartRate notifies Heart Rate Measurement values (uint8 format) until
// ctx is done. Values are dropped while nobody listens.
func feedHeartRate(ctx context.Context, p *simulator.Peripheral, interval time.Duration, logger *logrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bpm := byte(60)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := p.Notify("180d", "2a37", []byte{0x00, bpm}); err != nil {
			logger.WithError(err).Warn("Demo heart rate notification failed")
			return
		}
		bpm++
		if bpm > 100 {
			bpm = 60
		}
	}
}
