package simulator

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/device"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// CharacteristicConfig describes a simulated characteristic.
type CharacteristicConfig struct {
	UUID       string `json:"uuid"`
	Properties string `json:"properties,omitempty"` // e.g., "read,write,notify"
	Value      []byte `json:"value,omitempty"`
}

// ServiceConfig describes a simulated primary service.
type ServiceConfig struct {
	UUID            string                 `json:"uuid"`
	Characteristics []CharacteristicConfig `json:"characteristics,omitempty"`
}

// PeripheralConfig is the complete description of a simulated peripheral.
type PeripheralConfig struct {
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Services []ServiceConfig `json:"services"`
}

// PeripheralBuilder builds a Peripheral with services and characteristics.
type PeripheralBuilder struct {
	config PeripheralConfig
	logger *logrus.Logger
}

// NewPeripheralBuilder creates a builder for an unnamed peripheral with no services.
func NewPeripheralBuilder() *PeripheralBuilder {
	return &PeripheralBuilder{
		config: PeripheralConfig{
			Services: []ServiceConfig{},
		},
	}
}

// WithID sets the device id.
func (b *PeripheralBuilder) WithID(id string) *PeripheralBuilder {
	b.config.ID = id
	return b
}

// WithName sets the advertised name.
func (b *PeripheralBuilder) WithName(name string) *PeripheralBuilder {
	b.config.Name = name
	return b
}

// WithLogger sets the logger used by the built peripheral.
func (b *PeripheralBuilder) WithLogger(logger *logrus.Logger) *PeripheralBuilder {
	b.logger = logger
	return b
}

// WithService adds a service to the peripheral
func (b *PeripheralBuilder) WithService(uuid string) *PeripheralBuilder {
	b.config.Services = append(b.config.Services, ServiceConfig{
		UUID:            uuid,
		Characteristics: []CharacteristicConfig{},
	})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *PeripheralBuilder) WithCharacteristic(uuid, properties string, value []byte) *PeripheralBuilder {
	if len(b.config.Services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}

	last := len(b.config.Services) - 1
	b.config.Services[last].Characteristics = append(b.config.Services[last].Characteristics, CharacteristicConfig{
		UUID:       uuid,
		Properties: properties,
		Value:      value,
	})
	return b
}

// FromJSON replaces the peripheral description with JSON
func (b *PeripheralBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *PeripheralBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	var config PeripheralConfig
	if err := json.Unmarshal([]byte(jsonStr), &config); err != nil {
		panic(fmt.Sprintf("PeripheralBuilder.FromJSON: failed to unmarshal: %v", err))
	}

	b.config = config
	return b
}

// ParsePeripheralConfigs decodes a JSON array of peripheral descriptions.
func ParsePeripheralConfigs(jsonStr string) ([]PeripheralConfig, error) {
	var configs []PeripheralConfig
	if err := json.Unmarshal([]byte(jsonStr), &configs); err != nil {
		return nil, fmt.Errorf("failed to parse peripheral configs: %w", err)
	}
	return configs, nil
}

// Config returns the accumulated description.
func (b *PeripheralBuilder) Config() PeripheralConfig {
	return b.config
}

// Build creates the peripheral. Service and characteristic identifiers may
// be GATT names, aliases or UUIDs; they are canonicalized here and Build
// panics on identifiers that cannot be resolved.
func (b *PeripheralBuilder) Build() *Peripheral {
	p, err := NewPeripheral(b.config, b.logger)
	if err != nil {
		panic(fmt.Sprintf("PeripheralBuilder.Build: %v", err))
	}
	return p
}

// NewPeripheral creates a peripheral from config.
func NewPeripheral(config PeripheralConfig, logger *logrus.Logger) (*Peripheral, error) {
	if logger == nil {
		logger = logrus.New()
	}

	id := config.ID
	if id == "" {
		id = fmt.Sprintf("sim-%s", config.Name)
	}

	p := &Peripheral{
		id:       id,
		name:     config.Name,
		services: orderedmap.New[string, *service](),
		logger:   logger,
	}

	for _, sc := range config.Services {
		svcUUID, err := device.ResolveServiceUUID(sc.UUID)
		if err != nil {
			return nil, err
		}

		svc := &service{
			uuid:            svcUUID,
			peripheral:      p,
			characteristics: orderedmap.New[string, *characteristic](),
		}

		for _, cc := range sc.Characteristics {
			charUUID, err := device.ResolveCharacteristicUUID(cc.UUID)
			if err != nil {
				return nil, err
			}

			props := device.PropRead | device.PropWrite | device.PropNotify
			if cc.Properties != "" {
				props, err = device.ParseProperties(cc.Properties)
				if err != nil {
					return nil, fmt.Errorf("characteristic %s: %w", cc.UUID, err)
				}
			}

			svc.characteristics.Set(device.NormalizeUUID(charUUID), &characteristic{
				uuid:       charUUID,
				props:      props,
				value:      append([]byte(nil), cc.Value...),
				peripheral: p,
				listeners:  orderedmap.New[uint64, func([]byte)](),
			})
		}

		p.services.Set(device.NormalizeUUID(svcUUID), svc)
	}

	return p, nil
}
