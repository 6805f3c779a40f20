package thinq

import (
	"context"
	"time"

	"github.com/joshp123/thinqhome/internal/climate"
	"github.com/joshp123/thinqhome/internal/coordinator"
)

// DeviceType is the ThinQ device category.
type DeviceType string

const (
	DeviceTypeAC           DeviceType = "AC"
	DeviceTypeRefrigerator DeviceType = "REFRIGERATOR"
	DeviceTypeWasher       DeviceType = "WASHER"
	DeviceTypeDryer        DeviceType = "DRYER"
	DeviceTypeDishwasher   DeviceType = "DISHWASHER"
	DeviceTypeAirPurifier  DeviceType = "AIR_PURIFIER"
	DeviceTypeDehumidifier DeviceType = "DEHUMIDIFIER"
)

// ClimateDeviceTypes are the device types exposed as climate entities.
var ClimateDeviceTypes = []DeviceType{DeviceTypeAC}

// IsClimate reports whether t is exposed as a climate entity.
func (t DeviceType) IsClimate() bool {
	for _, ct := range ClimateDeviceTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// Device is the handle for one discovered appliance: identity plus a
// coordinator caching the polled state.
type Device struct {
	name       string
	uniqueID   string
	deviceType DeviceType
	info       climate.DeviceInfo
	device     ACDevice
	coord      *coordinator.Coordinator[ACState]
}

// NewDevice wraps device in a handle. Climate devices poll through their
// entity, so their coordinator has no interval of its own.
func NewDevice(name, uniqueID string, deviceType DeviceType, info climate.DeviceInfo, device ACDevice) *Device {
	interval := climate.DefaultScanInterval
	if deviceType.IsClimate() {
		interval = 0
	}
	return &Device{
		name:       name,
		uniqueID:   uniqueID,
		deviceType: deviceType,
		info:       info,
		device:     device,
		coord:      coordinator.New(uniqueID, interval, device.Poll),
	}
}

func (d *Device) Name() string { return d.name }
func (d *Device) UniqueID() string { return d.uniqueID }
func (d *Device) Type() DeviceType { return d.deviceType }
func (d *Device) DeviceInfo() climate.DeviceInfo { return d.info }
func (d *Device) Device() ACDevice { return d.device }

func (d *Device) Coordinator() *coordinator.Coordinator[ACState] {
	return d.coord
}

// Available is true while the last poll succeeded.
func (d *Device) Available() bool {
	return d.coord.LastUpdateSuccess()
}

// State returns the cached state; zero before the first successful poll.
func (d *Device) State() ACState {
	state, _ := d.coord.Data()
	return state
}

// LastUpdate is the time of the last successful poll.
func (d *Device) LastUpdate() time.Time {
	return d.coord.LastUpdate()
}

func (d *Device) Refresh(ctx context.Context) error {
	return d.coord.Refresh(ctx)
}

// Registry holds discovered device handles keyed by type.
type Registry map[DeviceType][]*Device

// All returns every handle in a stable type order.
func (r Registry) All() []*Device {
	var out []*Device
	for _, t := range []DeviceType{
		DeviceTypeAC,
		DeviceTypeRefrigerator,
		DeviceTypeWasher,
		DeviceTypeDryer,
		DeviceTypeDishwasher,
		DeviceTypeAirPurifier,
		DeviceTypeDehumidifier,
	} {
		out = append(out, r[t]...)
	}
	return out
}

// Find returns the handle with the given unique id.
func (r Registry) Find(uniqueID string) (*Device, bool) {
	for _, devices := range r {
		for _, d := range devices {
			if d.uniqueID == uniqueID {
				return d, true
			}
		}
	}
	return nil, false
}
