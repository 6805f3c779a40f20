package thinq

import (
	"context"
	"fmt"
	"sync"
)

// ThinQ Connect job modes and their operation-mode names.
var jobModeToOpMode = map[string]ACMode{
	"AUTO":          ACModeAI,
	"COOL":          ACModeCool,
	"AIR_DRY":       ACModeDry,
	"FAN":           ACModeFan,
	"HEAT":          ACModeHeat,
	"AIR_CLEAN":     ACModeAirClean,
	"AROMA":         ACModeAroma,
	"ENERGY_SAVING": ACModeEnergySaving,
	"ENERGY_SAVER":  ACModeEnergySaver,
}

var opModeToJobMode = func() map[ACMode]string {
	out := make(map[ACMode]string, len(jobModeToOpMode))
	for job, op := range jobModeToOpMode {
		out[op] = job
	}
	return out
}()

func opModeForJob(job string) string {
	if op, ok := jobModeToOpMode[job]; ok {
		return string(op)
	}
	return job
}

func jobForOpMode(op string) string {
	if job, ok := opModeToJobMode[ACMode(op)]; ok {
		return job
	}
	return op
}

// RemoteAC drives an air conditioner through the cloud API.
type RemoteAC struct {
	client   *Client
	deviceID string
	profile  Profile

	mu   sync.RWMutex
	unit TemperatureUnit
}

var _ ACDevice = (*RemoteAC)(nil)

func NewRemoteAC(client *Client, deviceID string, profile Profile) *RemoteAC {
	return &RemoteAC{client: client, deviceID: deviceID, profile: profile, unit: profileUnit(profile)}
}

// profileUnit is the unit assumed until a poll reports one. Only a
// Fahrenheit-only device starts in Fahrenheit.
func profileUnit(profile Profile) TemperatureUnit {
	units := profile.Property.Temperature.Unit.Value.R
	if len(units) == 1 && units[0] == "F" {
		return UnitFahrenheit
	}
	return UnitCelsius
}

func (r *RemoteAC) Power(ctx context.Context, on bool) error {
	mode := "POWER_OFF"
	if on {
		mode = "POWER_ON"
	}
	return r.control(ctx, map[string]any{
		"operation": map[string]any{"airConOperationMode": mode},
	})
}

func (r *RemoteAC) SetOpMode(ctx context.Context, mode string) error {
	return r.control(ctx, map[string]any{
		"airConJobMode": map[string]any{"currentJobMode": jobForOpMode(mode)},
	})
}

func (r *RemoteAC) SetTargetTemp(ctx context.Context, temp float64) error {
	unit := "C"
	if r.TemperatureUnit() == UnitFahrenheit {
		unit = "F"
	}
	return r.control(ctx, map[string]any{
		"temperature": map[string]any{"targetTemperature": temp, "unit": unit},
	})
}

func (r *RemoteAC) SetFanSpeed(ctx context.Context, speed string) error {
	return r.control(ctx, map[string]any{
		"airFlow": map[string]any{"windStrength": speed},
	})
}

func (r *RemoteAC) SetVertSwingMode(ctx context.Context, mode string) error {
	var rotate bool
	switch mode {
	case SwingOff:
	case SwingAll:
		rotate = true
	default:
		return fmt.Errorf("unsupported vertical swing mode %q", mode)
	}
	return r.control(ctx, map[string]any{
		"windDirection": map[string]any{"rotateUpDown": rotate},
	})
}

func (r *RemoteAC) OpModes() []string {
	jobs := r.profile.Property.AirConJobMode.CurrentJobMode.Value.W
	modes := make([]string, 0, len(jobs))
	for _, job := range jobs {
		modes = append(modes, opModeForJob(job))
	}
	return modes
}

func (r *RemoteAC) FanSpeeds() []string {
	return append([]string(nil), r.profile.Property.AirFlow.WindStrength.Value.W...)
}

func (r *RemoteAC) VertSwingModes() []string {
	if len(r.profile.Property.WindDirection.RotateUpDown.Value.W) < 2 {
		return nil
	}
	return []string{SwingOff, SwingAll}
}

func (r *RemoteAC) TargetTemperatureStep() float64 {
	if step := r.profile.Property.Temperature.TargetTemperature.Value.W.Step; step != nil && *step > 0 {
		return *step
	}
	if r.TemperatureUnit() == UnitFahrenheit {
		return 1
	}
	return 0.5
}

func (r *RemoteAC) TemperatureUnit() TemperatureUnit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unit
}

func (r *RemoteAC) TargetTemperatureMin() *float64 {
	return r.profile.Property.Temperature.TargetTemperature.Value.W.Min
}

func (r *RemoteAC) TargetTemperatureMax() *float64 {
	return r.profile.Property.Temperature.TargetTemperature.Value.W.Max
}

func (r *RemoteAC) ConvTempUnit(celsius float64) float64 {
	return convTempUnit(r.TemperatureUnit(), celsius)
}

// Poll reads the device state and tracks the unit it reports in.
func (r *RemoteAC) Poll(ctx context.Context) (ACState, error) {
	status, err := r.client.State(ctx, r.deviceID)
	if err != nil {
		return ACState{}, fmt.Errorf("poll %s: %w", r.deviceID, err)
	}

	switch status.Temperature.Unit {
	case "F":
		r.setUnit(UnitFahrenheit)
	case "C":
		r.setUnit(UnitCelsius)
	}

	state := ACState{
		IsOn:        status.Operation.AirConOperationMode == "POWER_ON",
		CurrentTemp: status.Temperature.CurrentTemperature,
		TargetTemp:  status.Temperature.TargetTemperature,
		FanSpeed:    status.AirFlow.WindStrength,
	}
	if job := status.AirConJobMode.CurrentJobMode; job != "" {
		state.OperationMode = opModeForJob(job)
	}
	if rotate := status.WindDirection.RotateUpDown; rotate != nil {
		state.VertSwingMode = SwingOff
		if *rotate {
			state.VertSwingMode = SwingAll
		}
	}
	return state, nil
}

func (r *RemoteAC) setUnit(unit TemperatureUnit) {
	r.mu.Lock()
	r.unit = unit
	r.mu.Unlock()
}

func (r *RemoteAC) control(ctx context.Context, payload map[string]any) error {
	if err := r.client.Control(ctx, r.deviceID, payload); err != nil {
		return fmt.Errorf("control %s: %w", r.deviceID, err)
	}
	return nil
}
