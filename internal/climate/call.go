package climate

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	ServiceSetHVACMode    = "set_hvac_mode"
	ServiceSetTemperature = "set_temperature"
	ServiceSetFanMode     = "set_fan_mode"
	ServiceSetSwingMode   = "set_swing_mode"
	ServiceTurnOn         = "turn_on"
	ServiceTurnOff        = "turn_off"
)

const hvacModeSchema = `{"type": "string", "enum": ["off", "auto", "heat", "cool", "dry", "fan_only", "heat_cool"]}`

var serviceSchemas = map[string]string{
	ServiceSetHVACMode: `{
		"type": "object",
		"properties": {"hvac_mode": ` + hvacModeSchema + `},
		"required": ["hvac_mode"],
		"additionalProperties": false
	}`,
	ServiceSetTemperature: `{
		"type": "object",
		"properties": {
			"temperature": {"type": "number"},
			"hvac_mode": ` + hvacModeSchema + `
		},
		"required": ["temperature"],
		"additionalProperties": false
	}`,
	ServiceSetFanMode: `{
		"type": "object",
		"properties": {"fan_mode": {"type": "string", "minLength": 1}},
		"required": ["fan_mode"],
		"additionalProperties": false
	}`,
	ServiceSetSwingMode: `{
		"type": "object",
		"properties": {"swing_mode": {"type": "string", "minLength": 1}},
		"required": ["swing_mode"],
		"additionalProperties": false
	}`,
	ServiceTurnOn:  `{"type": "object", "additionalProperties": false}`,
	ServiceTurnOff: `{"type": "object", "additionalProperties": false}`,
}

// Services lists the climate service names.
func Services() []string {
	return []string{
		ServiceSetHVACMode,
		ServiceSetTemperature,
		ServiceSetFanMode,
		ServiceSetSwingMode,
		ServiceTurnOn,
		ServiceTurnOff,
	}
}

var compiledSchemas = sync.OnceValues(func() (map[string]*jsonschema.Schema, error) {
	out := make(map[string]*jsonschema.Schema, len(serviceSchemas))
	for service, doc := range serviceSchemas {
		var schemaMap any
		if err := json.Unmarshal([]byte(doc), &schemaMap); err != nil {
			return nil, fmt.Errorf("unmarshal %s schema: %w", service, err)
		}
		url := service + ".json"
		c := jsonschema.NewCompiler()
		if err := c.AddResource(url, schemaMap); err != nil {
			return nil, fmt.Errorf("add %s schema: %w", service, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", service, err)
		}
		out[service] = compiled
	}
	return out, nil
})

// CallService validates data and invokes service on the entity, then
// refreshes polling entities and writes their new state.
func (p *Platform) CallService(ctx context.Context, entityID, service string, data map[string]any) error {
	entity, ok := p.Entity(entityID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}

	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}
	schema, ok := schemas[service]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownService, service)
	}

	normalized, err := normalize(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidServiceData, err)
	}
	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidServiceData, service, err)
	}

	log.Debug().
		Str("component", "climate").
		Str("entity_id", entityID).
		Str("service", service).
		Interface("data", normalized).
		Msg("service call")

	if err := dispatch(ctx, entityID, entity, service, normalized); err != nil {
		return err
	}

	if entity.ShouldPoll() {
		if err := entity.Update(ctx); err != nil {
			log.Warn().Err(err).Str("component", "climate").Str("entity_id", entityID).Msg("update after service call failed")
		}
	}
	p.writeState(entityID)
	return nil
}

func dispatch(ctx context.Context, entityID string, entity Climate, service string, data map[string]any) error {
	features := entity.SupportedFeatures()

	switch service {
	case ServiceSetHVACMode:
		return entity.SetHVACMode(ctx, HVACMode(data["hvac_mode"].(string)))

	case ServiceSetTemperature:
		if !features.Has(FeatureTargetTemperature) {
			return unsupported(entityID, service)
		}
		temperature := data["temperature"].(float64)
		if temperature < entity.MinTemp() || temperature > entity.MaxTemp() {
			return fmt.Errorf("%w: temperature %v outside [%v, %v]", ErrInvalidServiceData, temperature, entity.MinTemp(), entity.MaxTemp())
		}
		if mode, ok := data["hvac_mode"].(string); ok {
			if err := entity.SetHVACMode(ctx, HVACMode(mode)); err != nil {
				return err
			}
		}
		return entity.SetTemperature(ctx, TemperatureRequest{Temperature: &temperature})

	case ServiceSetFanMode:
		if !features.Has(FeatureFanMode) {
			return unsupported(entityID, service)
		}
		mode := data["fan_mode"].(string)
		if !slices.Contains(entity.FanModes(), mode) {
			return fmt.Errorf("%w: fan_mode %q not in %v", ErrInvalidServiceData, mode, entity.FanModes())
		}
		return entity.SetFanMode(ctx, mode)

	case ServiceSetSwingMode:
		if !features.Has(FeatureSwingMode) {
			return unsupported(entityID, service)
		}
		mode := data["swing_mode"].(string)
		if !slices.Contains(entity.SwingModes(), mode) {
			return fmt.Errorf("%w: swing_mode %q not in %v", ErrInvalidServiceData, mode, entity.SwingModes())
		}
		return entity.SetSwingMode(ctx, mode)

	case ServiceTurnOn:
		return entity.TurnOn(ctx)

	case ServiceTurnOff:
		return entity.TurnOff(ctx)
	}

	return fmt.Errorf("%w: %s", ErrUnknownService, service)
}

func unsupported(entityID, service string) error {
	return fmt.Errorf("%w: %s does not support %s", ErrNotSupported, entityID, service)
}

// normalize round-trips data through JSON so numbers are float64 and nested
// values use the types the schema validator expects.
func normalize(data map[string]any) (map[string]any, error) {
	out := make(map[string]any)
	if len(data) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
