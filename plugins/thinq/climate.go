package thinq

import (
	"context"
	"fmt"

	"github.com/joshp123/thinqhome/internal/climate"
)

var hvacModeLookup = map[ACMode]climate.HVACMode{
	ACModeAI:   climate.HVACModeAuto,
	ACModeHeat: climate.HVACModeHeat,
	ACModeDry:  climate.HVACModeDry,
	ACModeCool: climate.HVACModeCool,
	ACModeFan:  climate.HVACModeFanOnly,
	ACModeACO:  climate.HVACModeHeatCool,
}

var hvacModeReverseLookup = func() map[climate.HVACMode]ACMode {
	out := make(map[climate.HVACMode]ACMode, len(hvacModeLookup))
	for op, mode := range hvacModeLookup {
		out[mode] = op
	}
	return out
}()

// HVACModeFor maps a vendor operation mode to its HVAC mode.
func HVACModeFor(opMode string) (climate.HVACMode, bool) {
	mode, ok := hvacModeLookup[ACMode(opMode)]
	return mode, ok
}

// OperationModeFor maps an HVAC mode back to the vendor operation mode.
func OperationModeFor(mode climate.HVACMode) (string, error) {
	op, ok := hvacModeReverseLookup[mode]
	if !ok {
		return "", fmt.Errorf("%w [%s]", climate.ErrInvalidHVACMode, mode)
	}
	return string(op), nil
}

// Climate carries the parts shared by every ThinQ climate entity.
type Climate struct {
	api *Device
}

func (c *Climate) Name() string {
	return c.api.Name()
}

func (c *Climate) DeviceInfo() climate.DeviceInfo {
	return c.api.DeviceInfo()
}

func (c *Climate) Available() bool {
	return c.api.Available()
}

// ShouldPoll is true: the coordinator interval is disabled for climate
// devices, so the entity refreshes its own handle.
func (c *Climate) ShouldPoll() bool {
	return true
}

func (c *Climate) Update(ctx context.Context) error {
	return c.api.Refresh(ctx)
}

// ACClimate adapts an air conditioner to the climate entity contract.
type ACClimate struct {
	Climate
	device ACDevice
}

var _ climate.Climate = (*ACClimate)(nil)

func NewACClimate(api *Device, device ACDevice) *ACClimate {
	return &ACClimate{Climate: Climate{api: api}, device: device}
}

func (c *ACClimate) UniqueID() string {
	return c.api.UniqueID() + "-AC"
}

func (c *ACClimate) TargetTemperatureStep() float64 {
	return c.device.TargetTemperatureStep()
}

func (c *ACClimate) TemperatureUnit() climate.TemperatureUnit {
	if c.device.TemperatureUnit() == UnitFahrenheit {
		return climate.Fahrenheit
	}
	return climate.Celsius
}

// HVACMode is off while the unit is off or reports no operation mode, and
// empty for operation modes with no HVAC equivalent.
func (c *ACClimate) HVACMode() climate.HVACMode {
	state := c.api.State()
	if !state.IsOn || state.OperationMode == "" {
		return climate.HVACModeOff
	}
	mode, _ := HVACModeFor(state.OperationMode)
	return mode
}

func (c *ACClimate) SetHVACMode(ctx context.Context, mode climate.HVACMode) error {
	if mode == climate.HVACModeOff {
		return c.device.Power(ctx, false)
	}

	op, err := OperationModeFor(mode)
	if err != nil {
		return err
	}

	if c.HVACMode() == climate.HVACModeOff {
		if err := c.device.Power(ctx, true); err != nil {
			return err
		}
	}
	return c.device.SetOpMode(ctx, op)
}

func (c *ACClimate) HVACModes() []climate.HVACMode {
	modes := []climate.HVACMode{climate.HVACModeOff}
	for _, op := range c.device.OpModes() {
		if mode, ok := HVACModeFor(op); ok {
			modes = append(modes, mode)
		}
	}
	return modes
}

func (c *ACClimate) CurrentTemperature() *float64 {
	return c.api.State().CurrentTemp
}

func (c *ACClimate) TargetTemperature() *float64 {
	return c.api.State().TargetTemp
}

// SetTemperature applies req.Temperature, or re-applies the current target
// when the request carries none.
func (c *ACClimate) SetTemperature(ctx context.Context, req climate.TemperatureRequest) error {
	temp := req.Temperature
	if temp == nil {
		temp = c.TargetTemperature()
	}
	if temp == nil {
		return fmt.Errorf("%w: no target temperature known for %s", climate.ErrInvalidServiceData, c.Name())
	}
	return c.device.SetTargetTemp(ctx, *temp)
}

func (c *ACClimate) FanMode() string {
	return c.api.State().FanSpeed
}

func (c *ACClimate) FanModes() []string {
	return c.device.FanSpeeds()
}

func (c *ACClimate) SetFanMode(ctx context.Context, mode string) error {
	return c.device.SetFanSpeed(ctx, mode)
}

func (c *ACClimate) SwingMode() string {
	return c.api.State().VertSwingMode
}

func (c *ACClimate) SwingModes() []string {
	return c.device.VertSwingModes()
}

func (c *ACClimate) SetSwingMode(ctx context.Context, mode string) error {
	return c.device.SetVertSwingMode(ctx, mode)
}

func (c *ACClimate) SupportedFeatures() climate.Feature {
	features := climate.FeatureFanMode | climate.FeatureTargetTemperature
	if len(c.device.VertSwingModes()) > 1 {
		features |= climate.FeatureSwingMode
	}
	return features
}

func (c *ACClimate) TurnOn(ctx context.Context) error {
	return c.device.Power(ctx, true)
}

func (c *ACClimate) TurnOff(ctx context.Context) error {
	return c.device.Power(ctx, false)
}

func (c *ACClimate) MinTemp() float64 {
	if v := c.device.TargetTemperatureMin(); v != nil {
		return *v
	}
	return c.device.ConvTempUnit(climate.DefaultMinTemp)
}

func (c *ACClimate) MaxTemp() float64 {
	if v := c.device.TargetTemperatureMax(); v != nil {
		return *v
	}
	return c.device.ConvTempUnit(climate.DefaultMaxTemp)
}

// SetupEntry wraps every discovered climate device in an entity and hands
// the batch to add.
func SetupEntry(registry Registry, add climate.AddEntitiesFunc) {
	if len(registry) == 0 {
		return
	}

	var devices []*Device
	for _, devType := range ClimateDeviceTypes {
		devices = append(devices, registry[devType]...)
	}

	entities := make([]climate.Climate, 0, len(devices))
	for _, d := range devices {
		entities = append(entities, NewACClimate(d, d.Device()))
	}
	add(entities)
}
