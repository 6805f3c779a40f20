package climate

import (
	"reflect"
	"time"
)

const (
	StateUnavailable = "unavailable"
	StateUnknown     = "unknown"
)

// State is a point-in-time snapshot of a climate entity.
type State struct {
	EntityID    string     `json:"entity_id"`
	UniqueID    string     `json:"unique_id"`
	State       string     `json:"state"`
	Available   bool       `json:"available"`
	Attributes  Attributes `json:"attributes"`
	Device      DeviceInfo `json:"device"`
	LastUpdated time.Time  `json:"last_updated"`
}

// Attributes mirror the climate entity properties.
type Attributes struct {
	FriendlyName       string          `json:"friendly_name"`
	HVACModes          []HVACMode      `json:"hvac_modes"`
	MinTemp            float64         `json:"min_temp"`
	MaxTemp            float64         `json:"max_temp"`
	TargetTempStep     float64         `json:"target_temp_step"`
	TemperatureUnit    TemperatureUnit `json:"temperature_unit"`
	CurrentTemperature *float64        `json:"current_temperature"`
	Temperature        *float64        `json:"temperature"`
	FanMode            string          `json:"fan_mode,omitempty"`
	FanModes           []string        `json:"fan_modes,omitempty"`
	SwingMode          string          `json:"swing_mode,omitempty"`
	SwingModes         []string        `json:"swing_modes,omitempty"`
	SupportedFeatures  Feature         `json:"supported_features"`
}

// Snapshot reads every property of c into a State.
func Snapshot(entityID string, c Climate, now time.Time) State {
	features := c.SupportedFeatures()
	attrs := Attributes{
		FriendlyName:       c.Name(),
		HVACModes:          c.HVACModes(),
		MinTemp:            c.MinTemp(),
		MaxTemp:            c.MaxTemp(),
		TargetTempStep:     c.TargetTemperatureStep(),
		TemperatureUnit:    c.TemperatureUnit(),
		CurrentTemperature: c.CurrentTemperature(),
		SupportedFeatures:  features,
	}
	if features.Has(FeatureTargetTemperature) {
		attrs.Temperature = c.TargetTemperature()
	}
	if features.Has(FeatureFanMode) {
		attrs.FanMode = c.FanMode()
		attrs.FanModes = c.FanModes()
	}
	if features.Has(FeatureSwingMode) {
		attrs.SwingMode = c.SwingMode()
		attrs.SwingModes = c.SwingModes()
	}

	available := c.Available()
	state := string(c.HVACMode())
	switch {
	case !available:
		state = StateUnavailable
	case state == "":
		state = StateUnknown
	}

	return State{
		EntityID:    entityID,
		UniqueID:    c.UniqueID(),
		State:       state,
		Available:   available,
		Attributes:  attrs,
		Device:      c.DeviceInfo(),
		LastUpdated: now,
	}
}

func sameState(a, b State) bool {
	a.LastUpdated = time.Time{}
	b.LastUpdated = time.Time{}
	return reflect.DeepEqual(a, b)
}
