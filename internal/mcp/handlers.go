package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/joshp123/thinqhome/internal/climate"
)

func (s *Server) handleListClimates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	states, err := s.api.ListEntities(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list climates: %s", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(map[string]any{"climates": states, "count": len(states)})), nil
}

func (s *Server) handleGetClimate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityID, err := requiredString(request, "entity_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state, err := s.api.GetEntity(ctx, entityID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("climate not found: %s", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(state)), nil
}

func (s *Server) handleSetHVACMode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := requiredString(request, "hvac_mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.call(ctx, request, climate.ServiceSetHVACMode, map[string]any{"hvac_mode": mode})
}

func (s *Server) handleSetTemperature(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	temp, ok := args["temperature"].(float64)
	if !ok {
		return mcp.NewToolResultError(`parameter "temperature" must be a number`), nil
	}
	data := map[string]any{"temperature": temp}
	if mode, ok := args["hvac_mode"].(string); ok && mode != "" {
		data["hvac_mode"] = mode
	}
	return s.call(ctx, request, climate.ServiceSetTemperature, data)
}

func (s *Server) handleSetFanMode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fan, err := requiredString(request, "fan_mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.call(ctx, request, climate.ServiceSetFanMode, map[string]any{"fan_mode": fan})
}

func (s *Server) handleSetSwingMode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	swing, err := requiredString(request, "swing_mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.call(ctx, request, climate.ServiceSetSwingMode, map[string]any{"swing_mode": swing})
}

func (s *Server) handleTurnOn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, request, climate.ServiceTurnOn, nil)
}

func (s *Server) handleTurnOff(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, request, climate.ServiceTurnOff, nil)
}

// call invokes service on the requested entity and returns its new state.
func (s *Server) call(ctx context.Context, request mcp.CallToolRequest, service string, data map[string]any) (*mcp.CallToolResult, error) {
	entityID, err := requiredString(request, "entity_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state, err := s.api.CallService(ctx, entityID, service, data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", service, err)), nil
	}
	return mcp.NewToolResultText(formatJSON(state)), nil
}

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	v, ok := request.GetArguments()[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
