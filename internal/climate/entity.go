// Package climate is the host-side climate entity abstraction: the vocabulary
// vendors translate into, the entity contract, the platform that owns
// registered entities, and the service calls that drive them.
package climate

import "context"

// DeviceInfo describes the physical device behind one or more entities.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// Entity is the part of the contract shared by every entity kind.
type Entity interface {
	UniqueID() string
	Name() string
	DeviceInfo() DeviceInfo
	Available() bool
	// ShouldPoll reports whether the platform must call Update periodically.
	ShouldPoll() bool
	Update(ctx context.Context) error
}

// TemperatureRequest carries set_temperature arguments. A nil Temperature
// keeps the current target.
type TemperatureRequest struct {
	Temperature *float64
}

// Climate is implemented by vendor adapters.
type Climate interface {
	Entity

	HVACMode() HVACMode
	HVACModes() []HVACMode
	SetHVACMode(ctx context.Context, mode HVACMode) error

	CurrentTemperature() *float64
	TargetTemperature() *float64
	TargetTemperatureStep() float64
	TemperatureUnit() TemperatureUnit
	SetTemperature(ctx context.Context, req TemperatureRequest) error
	MinTemp() float64
	MaxTemp() float64

	FanMode() string
	FanModes() []string
	SetFanMode(ctx context.Context, mode string) error

	SwingMode() string
	SwingModes() []string
	SetSwingMode(ctx context.Context, mode string) error

	SupportedFeatures() Feature

	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
}

// AddEntitiesFunc is handed to vendor setup routines to register entities.
type AddEntitiesFunc func(entities []Climate)
