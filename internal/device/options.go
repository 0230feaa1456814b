package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ServiceID is a service identifier as it appears in requestDevice options:
// a GATT name, a UUID string or a numeric alias.
type ServiceID string

// UnmarshalJSON accepts both strings and numbers.
func (s *ServiceID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = ServiceID(str)
		return nil
	}

	alias, err := strconv.ParseUint(string(data), 10, 32)
	if err != nil {
		return fmt.Errorf("service %s must be a string or a 32-bit unsigned alias", data)
	}
	if alias <= 0xFFFF {
		*s = ServiceID(fmt.Sprintf("0x%04x", alias))
	} else {
		*s = ServiceID(fmt.Sprintf("0x%08x", alias))
	}
	return nil
}

// Filter is one entry of RequestDeviceOptions.Filters. All present fields
// must match for a device to be accepted.
type Filter struct {
	Services   []ServiceID `json:"services,omitempty"`
	Name       string      `json:"name,omitempty"`
	NamePrefix string      `json:"namePrefix,omitempty"`
}

// RequestDeviceOptions mirrors the options argument of
// navigator.bluetooth.requestDevice. manufacturerData and serviceData filters
// cannot be expressed in JSON and are not supported.
type RequestDeviceOptions struct {
	Filters          []Filter    `json:"filters,omitempty"`
	OptionalServices []ServiceID `json:"optionalServices,omitempty"`
	AcceptAllDevices bool        `json:"acceptAllDevices,omitempty"`
}

// OptionsError reports requestDevice options that could not be parsed or
// are not acceptable.
type OptionsError struct {
	Input string
	Err   error
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("Could not parse the provided requestDeviceOptionsJSON as JSON: %s. Parsing results in the following error: %v.", e.Input, e.Err)
}

func (e *OptionsError) Unwrap() error {
	return e.Err
}

// ParseRequestDeviceOptions decodes and validates options JSON. Service
// identifiers are returned in canonical UUID form.
func ParseRequestDeviceOptions(optionsJSON string) (*RequestDeviceOptions, error) {
	var opts RequestDeviceOptions
	if err := json.Unmarshal([]byte(optionsJSON), &opts); err != nil {
		return nil, &OptionsError{Input: optionsJSON, Err: err}
	}

	if err := opts.canonicalize(); err != nil {
		return nil, &OptionsError{Input: optionsJSON, Err: err}
	}

	if err := opts.Validate(); err != nil {
		return nil, &OptionsError{Input: optionsJSON, Err: err}
	}

	return &opts, nil
}

func (o *RequestDeviceOptions) canonicalize() error {
	canon := func(ids []ServiceID) error {
		for i, id := range ids {
			uuid, err := ResolveServiceUUID(string(id))
			if err != nil {
				return err
			}
			ids[i] = ServiceID(uuid)
		}
		return nil
	}

	for i := range o.Filters {
		if err := canon(o.Filters[i].Services); err != nil {
			return err
		}
	}
	return canon(o.OptionalServices)
}

// Validate applies the requestDevice option rules.
func (o *RequestDeviceOptions) Validate() error {
	if o.AcceptAllDevices == (len(o.Filters) > 0) {
		return fmt.Errorf("either 'filters' should be present or 'acceptAllDevices' should be true, but not both")
	}

	for i, f := range o.Filters {
		if len(f.Services) == 0 && f.Name == "" && f.NamePrefix == "" {
			return fmt.Errorf("filter %d is empty; a filter must restrict services, name or namePrefix", i)
		}
	}
	return nil
}

// Matches reports whether a device advertising name and services satisfies
// at least one filter.
func (o *RequestDeviceOptions) Matches(name string, services []string) bool {
	if o.AcceptAllDevices {
		return true
	}
	for _, f := range o.Filters {
		if f.Matches(name, services) {
			return true
		}
	}
	return false
}

// Matches reports whether a device satisfies every field of f.
func (f Filter) Matches(name string, services []string) bool {
	if f.Name != "" && f.Name != name {
		return false
	}
	if f.NamePrefix != "" && !strings.HasPrefix(name, f.NamePrefix) {
		return false
	}
	for _, want := range f.Services {
		found := false
		for _, have := range services {
			if SameUUID(string(want), have) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// AllowedServices returns the filter services plus optionalServices, the set
// a page is allowed to access after the device is granted.
func (o *RequestDeviceOptions) AllowedServices() []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(ids []ServiceID) {
		for _, id := range ids {
			n := NormalizeUUID(string(id))
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, string(id))
		}
	}
	for _, f := range o.Filters {
		add(f.Services)
	}
	add(o.OptionalServices)
	return out
}

// Allows reports whether the page may access service uuid on a device
// granted with these options.
func (o *RequestDeviceOptions) Allows(uuid string) bool {
	if o.AcceptAllDevices {
		return true
	}
	for _, allowed := range o.AllowedServices() {
		if SameUUID(allowed, uuid) {
			return true
		}
	}
	return false
}
