package thinq

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/joshp123/thinqhome/internal/climate"
)

var apiDeviceTypes = map[string]DeviceType{
	"DEVICE_AIR_CONDITIONER": DeviceTypeAC,
	"DEVICE_REFRIGERATOR":    DeviceTypeRefrigerator,
	"DEVICE_WASHER":          DeviceTypeWasher,
	"DEVICE_DRYER":           DeviceTypeDryer,
	"DEVICE_DISH_WASHER":     DeviceTypeDishwasher,
	"DEVICE_AIR_PURIFIER":    DeviceTypeAirPurifier,
	"DEVICE_DEHUMIDIFIER":    DeviceTypeDehumidifier,
}

// Discover lists the account's devices and builds handles for the ones this
// plugin can drive. A device whose profile cannot be read is skipped; one
// whose first poll fails is kept and reported unavailable.
func Discover(ctx context.Context, client *Client) (Registry, error) {
	summaries, err := client.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	registry := make(Registry)
	for _, s := range summaries {
		logger := log.With().Str("component", "thinq").Str("device_id", s.DeviceID).Logger()

		devType, ok := apiDeviceTypes[s.DeviceInfo.DeviceType]
		if !ok || !devType.IsClimate() {
			logger.Info().Str("device_type", s.DeviceInfo.DeviceType).Msg("skipping unsupported device")
			continue
		}

		profile, err := client.Profile(ctx, s.DeviceID)
		if err != nil {
			logger.Warn().Err(err).Msg("read profile failed; skipping device")
			continue
		}

		name := s.DeviceInfo.Alias
		if name == "" {
			name = s.DeviceInfo.ModelName
		}
		info := climate.DeviceInfo{
			Identifiers:  []string{s.DeviceID},
			Manufacturer: "LG",
			Model:        s.DeviceInfo.ModelName,
			Name:         name,
		}

		handle := NewDevice(name, s.DeviceID, devType, info, NewRemoteAC(client, s.DeviceID, profile))
		if err := handle.Refresh(ctx); err != nil {
			logger.Warn().Err(err).Msg("initial poll failed")
		}
		registry[devType] = append(registry[devType], handle)
		logger.Info().Str("name", name).Str("model", info.Model).Msg("discovered device")
	}

	return registry, nil
}
