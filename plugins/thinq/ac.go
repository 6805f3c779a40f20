package thinq

import (
	"context"
	"math"
)

// ACMode is the vendor name of an air conditioner operation mode.
type ACMode string

const (
	ACModeCool         ACMode = "COOL"
	ACModeDry          ACMode = "DRY"
	ACModeFan          ACMode = "FAN"
	ACModeAI           ACMode = "AI"
	ACModeHeat         ACMode = "HEAT"
	ACModeAirClean     ACMode = "AIRCLEAN"
	ACModeACO          ACMode = "ACO"
	ACModeAroma        ACMode = "AROMA"
	ACModeEnergySaving ACMode = "ENERGY_SAVING"
	ACModeEnergySaver  ACMode = "ENERGY_SAVER"
)

// Fan speeds reported by the cloud API.
const (
	FanSpeedLow    = "LOW"
	FanSpeedMid    = "MID"
	FanSpeedHigh   = "HIGH"
	FanSpeedAuto   = "AUTO"
	FanSpeedPower  = "POWER"
	FanSpeedNature = "NATURE"
)

// Vertical swing modes.
const (
	SwingOff = "OFF"
	SwingAll = "ALL"
)

// TemperatureUnit is the unit the device is configured for.
type TemperatureUnit string

const (
	UnitCelsius    TemperatureUnit = "celsius"
	UnitFahrenheit TemperatureUnit = "fahrenheit"
)

// ACState is the last polled state of an air conditioner.
type ACState struct {
	IsOn bool `json:"is_on"`
	// OperationMode is empty when the device does not report one.
	OperationMode string   `json:"operation_mode,omitempty"`
	CurrentTemp   *float64 `json:"current_temp,omitempty"`
	TargetTemp    *float64 `json:"target_temp,omitempty"`
	FanSpeed      string   `json:"fan_speed,omitempty"`
	VertSwingMode string   `json:"vert_swing_mode,omitempty"`
}

// ACDevice is the protocol-level air conditioner. Mutators talk to the device
// directly; state is read through Poll.
type ACDevice interface {
	Power(ctx context.Context, on bool) error
	SetOpMode(ctx context.Context, mode string) error
	SetTargetTemp(ctx context.Context, temp float64) error
	SetFanSpeed(ctx context.Context, speed string) error
	SetVertSwingMode(ctx context.Context, mode string) error

	OpModes() []string
	FanSpeeds() []string
	VertSwingModes() []string
	TargetTemperatureStep() float64
	TemperatureUnit() TemperatureUnit
	// TargetTemperatureMin and TargetTemperatureMax are nil when the device
	// does not publish bounds.
	TargetTemperatureMin() *float64
	TargetTemperatureMax() *float64
	// ConvTempUnit converts a celsius value into the device unit.
	ConvTempUnit(celsius float64) float64

	Poll(ctx context.Context) (ACState, error)
}

// convTempUnit converts a celsius value for a device configured in unit.
func convTempUnit(unit TemperatureUnit, celsius float64) float64 {
	if unit == UnitFahrenheit {
		return math.Round(celsius*9/5 + 32)
	}
	return celsius
}
