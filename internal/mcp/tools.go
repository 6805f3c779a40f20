package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/joshp123/thinqhome/internal/climate"
)

func hvacModeEnum() []string {
	out := make([]string, 0, len(climate.HVACModes))
	for _, m := range climate.HVACModes {
		out = append(out, string(m))
	}
	return out
}

func entityParam() mcp.ToolOption {
	return mcp.WithString("entity_id",
		mcp.Required(),
		mcp.Description("Climate entity id, e.g. climate.living_room"),
	)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_climates",
			mcp.WithDescription("List every climate entity with its current state"),
		),
		s.handleListClimates,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_climate",
			mcp.WithDescription("Get the state and attributes of one climate entity"),
			entityParam(),
		),
		s.handleGetClimate,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_hvac_mode",
			mcp.WithDescription("Set the HVAC mode. Use off to power the unit down."),
			entityParam(),
			mcp.WithString("hvac_mode",
				mcp.Required(),
				mcp.Enum(hvacModeEnum()...),
				mcp.Description("Target HVAC mode; must be one of the entity's hvac_modes"),
			),
		),
		s.handleSetHVACMode,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_temperature",
			mcp.WithDescription("Set the target temperature in the entity's unit"),
			entityParam(),
			mcp.WithNumber("temperature",
				mcp.Required(),
				mcp.Description("Target temperature between min_temp and max_temp"),
			),
			mcp.WithString("hvac_mode",
				mcp.Enum(hvacModeEnum()...),
				mcp.Description("Optional HVAC mode to switch to first"),
			),
		),
		s.handleSetTemperature,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_fan_mode",
			mcp.WithDescription("Set the fan speed; must be one of the entity's fan_modes"),
			entityParam(),
			mcp.WithString("fan_mode", mcp.Required()),
		),
		s.handleSetFanMode,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_swing_mode",
			mcp.WithDescription("Set the vertical swing mode; must be one of the entity's swing_modes"),
			entityParam(),
			mcp.WithString("swing_mode", mcp.Required()),
		),
		s.handleSetSwingMode,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("turn_on",
			mcp.WithDescription("Power the unit on"),
			entityParam(),
		),
		s.handleTurnOn,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("turn_off",
			mcp.WithDescription("Power the unit off"),
			entityParam(),
		),
		s.handleTurnOff,
	)
}
