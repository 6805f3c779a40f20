package climate

import (
	"context"
	"errors"
)

type fakeClimate struct {
	uniqueID  string
	name      string
	available bool
	poll      bool

	mode       HVACMode
	current    *float64
	target     *float64
	fanMode    string
	fanModes   []string
	swingMode  string
	swingModes []string
	features   Feature

	updates   int
	calls     []string
	updateErr error
}

func newFakeClimate(uniqueID, name string) *fakeClimate {
	current := 24.5
	target := 22.0
	return &fakeClimate{
		uniqueID:   uniqueID,
		name:       name,
		available:  true,
		poll:       true,
		mode:       HVACModeCool,
		current:    &current,
		target:     &target,
		fanMode:    "LOW",
		fanModes:   []string{"LOW", "HIGH"},
		swingMode:  "OFF",
		swingModes: []string{"OFF", "ALL"},
		features:   FeatureTargetTemperature | FeatureFanMode | FeatureSwingMode,
	}
}

func (f *fakeClimate) UniqueID() string { return f.uniqueID }
func (f *fakeClimate) Name() string { return f.name }
func (f *fakeClimate) DeviceInfo() DeviceInfo { return DeviceInfo{Identifiers: []string{f.uniqueID}} }
func (f *fakeClimate) Available() bool { return f.available }
func (f *fakeClimate) ShouldPoll() bool { return f.poll }

func (f *fakeClimate) Update(context.Context) error {
	f.updates++
	return f.updateErr
}

func (f *fakeClimate) HVACMode() HVACMode { return f.mode }
func (f *fakeClimate) HVACModes() []HVACMode {
	return []HVACMode{HVACModeOff, HVACModeCool, HVACModeHeat}
}

func (f *fakeClimate) SetHVACMode(_ context.Context, mode HVACMode) error {
	if mode == "broken" {
		return errors.New("device refused")
	}
	f.calls = append(f.calls, "hvac:"+string(mode))
	f.mode = mode
	return nil
}

func (f *fakeClimate) CurrentTemperature() *float64 { return f.current }
func (f *fakeClimate) TargetTemperature() *float64 { return f.target }
func (f *fakeClimate) TargetTemperatureStep() float64 { return 1 }
func (f *fakeClimate) TemperatureUnit() TemperatureUnit { return Celsius }
func (f *fakeClimate) MinTemp() float64 { return 16 }
func (f *fakeClimate) MaxTemp() float64 { return 30 }

func (f *fakeClimate) SetTemperature(_ context.Context, req TemperatureRequest) error {
	f.calls = append(f.calls, "temperature")
	f.target = req.Temperature
	return nil
}

func (f *fakeClimate) FanMode() string { return f.fanMode }
func (f *fakeClimate) FanModes() []string { return f.fanModes }

func (f *fakeClimate) SetFanMode(_ context.Context, mode string) error {
	f.calls = append(f.calls, "fan:"+mode)
	f.fanMode = mode
	return nil
}

func (f *fakeClimate) SwingMode() string { return f.swingMode }
func (f *fakeClimate) SwingModes() []string { return f.swingModes }

func (f *fakeClimate) SetSwingMode(_ context.Context, mode string) error {
	f.calls = append(f.calls, "swing:"+mode)
	f.swingMode = mode
	return nil
}

func (f *fakeClimate) SupportedFeatures() Feature { return f.features }

func (f *fakeClimate) TurnOn(context.Context) error {
	f.calls = append(f.calls, "on")
	return nil
}

func (f *fakeClimate) TurnOff(context.Context) error {
	f.calls = append(f.calls, "off")
	f.mode = HVACModeOff
	return nil
}
