package climate

import (
	"math"
	"time"
)

// HVACMode is the standardized operating mode of a climate entity.
type HVACMode string

const (
	HVACModeOff      HVACMode = "off"
	HVACModeAuto     HVACMode = "auto"
	HVACModeHeat     HVACMode = "heat"
	HVACModeCool     HVACMode = "cool"
	HVACModeDry      HVACMode = "dry"
	HVACModeFanOnly  HVACMode = "fan_only"
	HVACModeHeatCool HVACMode = "heat_cool"
)

// HVACModes lists the full HVAC vocabulary.
var HVACModes = []HVACMode{
	HVACModeOff,
	HVACModeAuto,
	HVACModeHeat,
	HVACModeCool,
	HVACModeDry,
	HVACModeFanOnly,
	HVACModeHeatCool,
}

// Valid reports whether m is part of the HVAC vocabulary.
func (m HVACMode) Valid() bool {
	for _, mode := range HVACModes {
		if mode == m {
			return true
		}
	}
	return false
}

// Feature is a bit set of optional climate capabilities.
type Feature int

const (
	FeatureTargetTemperature      Feature = 1
	FeatureTargetTemperatureRange Feature = 2
	FeatureTargetHumidity         Feature = 4
	FeatureFanMode                Feature = 8
	FeaturePresetMode             Feature = 16
	FeatureSwingMode              Feature = 32
	FeatureAuxHeat                Feature = 64
)

// Has reports whether all bits of f are set.
func (s Feature) Has(f Feature) bool {
	return s&f == f
}

// TemperatureUnit is the unit an entity reports temperatures in.
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "°C"
	Fahrenheit TemperatureUnit = "°F"
)

const (
	// DefaultMinTemp and DefaultMaxTemp are celsius fallbacks for entities
	// that do not report their own bounds.
	DefaultMinTemp = 7.0
	DefaultMaxTemp = 35.0

	DefaultTargetTemperatureStep = 1.0

	DefaultScanInterval = 30 * time.Second
)

// CelsiusToFahrenheit converts and rounds to whole degrees.
func CelsiusToFahrenheit(c float64) float64 {
	return math.Round(c*9/5 + 32)
}

// FahrenheitToCelsius converts and rounds to half degrees.
func FahrenheitToCelsius(f float64) float64 {
	return math.Round((f-32)*5/9*2) / 2
}
