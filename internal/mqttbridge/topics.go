package mqttbridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joshp123/thinqhome/internal/climate"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
	payloadOn      = "on"
	payloadOff     = "off"
)

// Topics derives every topic used for one entity.
type Topics struct {
	discoveryPrefix string
	topicPrefix     string
}

// ObjectID is the entity id without its domain.
func ObjectID(entityID string) string {
	return strings.TrimPrefix(entityID, "climate.")
}

func (t Topics) Config(objectID string) string {
	return fmt.Sprintf("%s/climate/%s/config", t.discoveryPrefix, objectID)
}

func (t Topics) State(objectID string) string {
	return fmt.Sprintf("%s/%s/state", t.topicPrefix, objectID)
}

func (t Topics) Availability(objectID string) string {
	return fmt.Sprintf("%s/%s/availability", t.topicPrefix, objectID)
}

func (t Topics) Command(objectID, field string) string {
	return fmt.Sprintf("%s/%s/%s/set", t.topicPrefix, objectID, field)
}

// CommandFilter matches every command topic.
func (t Topics) CommandFilter() string {
	return t.topicPrefix + "/+/+/set"
}

// Status is the bridge-wide availability topic, also used as the will.
func (t Topics) Status() string {
	return t.topicPrefix + "/status"
}

// DiscoveryConfig builds the Home Assistant MQTT climate discovery payload.
func (t Topics) DiscoveryConfig(state climate.State) map[string]any {
	objectID := ObjectID(state.EntityID)
	attrs := state.Attributes
	stateTopic := t.State(objectID)

	modes := make([]string, 0, len(attrs.HVACModes))
	for _, m := range attrs.HVACModes {
		modes = append(modes, string(m))
	}

	unit := "C"
	if attrs.TemperatureUnit == climate.Fahrenheit {
		unit = "F"
	}

	cfg := map[string]any{
		"name":                         attrs.FriendlyName,
		"unique_id":                    state.UniqueID,
		"object_id":                    objectID,
		"availability_mode":            "all",
		"availability":                 []map[string]string{{"topic": t.Status()}, {"topic": t.Availability(objectID)}},
		"payload_available":            payloadOnline,
		"payload_not_available":        payloadOffline,
		"modes":                        modes,
		"mode_state_topic":             stateTopic,
		"mode_state_template":          "{{ value_json.state }}",
		"mode_command_topic":           t.Command(objectID, "mode"),
		"power_command_topic":          t.Command(objectID, "power"),
		"payload_on":                   payloadOn,
		"payload_off":                  payloadOff,
		"current_temperature_topic":    stateTopic,
		"current_temperature_template": "{{ value_json.attributes.current_temperature }}",
		"min_temp":                     attrs.MinTemp,
		"max_temp":                     attrs.MaxTemp,
		"temp_step":                    attrs.TargetTempStep,
		"temperature_unit":             unit,
	}
	if attrs.SupportedFeatures.Has(climate.FeatureTargetTemperature) {
		cfg["temperature_command_topic"] = t.Command(objectID, "temperature")
		cfg["temperature_state_topic"] = stateTopic
		cfg["temperature_state_template"] = "{{ value_json.attributes.temperature }}"
	}
	if attrs.SupportedFeatures.Has(climate.FeatureFanMode) {
		cfg["fan_modes"] = attrs.FanModes
		cfg["fan_mode_command_topic"] = t.Command(objectID, "fan_mode")
		cfg["fan_mode_state_topic"] = stateTopic
		cfg["fan_mode_state_template"] = "{{ value_json.attributes.fan_mode }}"
	}
	if attrs.SupportedFeatures.Has(climate.FeatureSwingMode) {
		cfg["swing_modes"] = attrs.SwingModes
		cfg["swing_mode_command_topic"] = t.Command(objectID, "swing_mode")
		cfg["swing_mode_state_topic"] = stateTopic
		cfg["swing_mode_state_template"] = "{{ value_json.attributes.swing_mode }}"
	}
	if len(state.Device.Identifiers) > 0 {
		cfg["device"] = map[string]any{
			"identifiers":  state.Device.Identifiers,
			"manufacturer": state.Device.Manufacturer,
			"model":        state.Device.Model,
			"name":         state.Device.Name,
		}
	}
	return cfg
}

// Command is a decoded climate service call.
type Command struct {
	EntityID string
	Service  string
	Data     map[string]any
}

// ParseCommand maps a command topic and payload to a service call.
func (t Topics) ParseCommand(topic string, payload []byte) (Command, error) {
	rest, ok := strings.CutPrefix(topic, t.topicPrefix+"/")
	if !ok {
		return Command{}, fmt.Errorf("topic %q outside prefix %q", topic, t.topicPrefix)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "set" || parts[0] == "" {
		return Command{}, fmt.Errorf("malformed command topic %q", topic)
	}

	cmd := Command{EntityID: "climate." + parts[0]}
	value := strings.TrimSpace(string(payload))

	switch parts[1] {
	case "mode":
		cmd.Service = climate.ServiceSetHVACMode
		cmd.Data = map[string]any{"hvac_mode": value}
	case "temperature":
		temp, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Command{}, fmt.Errorf("temperature %q: %w", value, err)
		}
		cmd.Service = climate.ServiceSetTemperature
		cmd.Data = map[string]any{"temperature": temp}
	case "fan_mode":
		cmd.Service = climate.ServiceSetFanMode
		cmd.Data = map[string]any{"fan_mode": value}
	case "swing_mode":
		cmd.Service = climate.ServiceSetSwingMode
		cmd.Data = map[string]any{"swing_mode": value}
	case "power":
		switch strings.ToLower(value) {
		case payloadOn:
			cmd.Service = climate.ServiceTurnOn
		case payloadOff:
			cmd.Service = climate.ServiceTurnOff
		default:
			return Command{}, fmt.Errorf("power payload %q", value)
		}
	default:
		return Command{}, fmt.Errorf("unknown command %q", parts[1])
	}
	return cmd, nil
}
