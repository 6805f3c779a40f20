package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/grpc"

	"github.com/joshp123/thinqhome/internal/climate"
)

func climateCmd(ctx context.Context, conn *grpc.ClientConn, args []string, jsonOutput bool) {
	out := outputMode{json: jsonOutput}
	if len(args) == 0 {
		climateUsage()
		os.Exit(2)
	}

	client := climate.NewClient(conn)
	switch args[0] {
	case "list":
		states, err := client.ListEntities(ctx)
		if err != nil {
			fatal("climate list", err)
		}
		if out.json {
			out.printJSON(states)
			return
		}
		rows := [][]string{{"ENTITY", "NAME", "STATE", "CURRENT", "TARGET"}}
		for _, s := range states {
			rows = append(rows, []string{
				s.EntityID,
				s.Attributes.FriendlyName,
				s.State,
				formatTemp(s.Attributes.CurrentTemperature, s.Attributes.TemperatureUnit),
				formatTemp(s.Attributes.Temperature, s.Attributes.TemperatureUnit),
			})
		}
		out.table(rows)
	case "get":
		if len(args) < 2 {
			fatal("climate get", fmt.Errorf("usage: thinqhome-cli climate get <entity>"))
		}
		entityID := lookupEntity(ctx, client, args[1])
		state, err := client.GetEntity(ctx, entityID)
		if err != nil {
			fatal("climate get", err)
		}
		if out.json {
			out.printJSON(state)
			return
		}
		printState(state)
	case "call":
		if len(args) < 3 {
			fatal("climate call", fmt.Errorf("usage: thinqhome-cli climate call <entity> <service> [key=value ...]"))
		}
		entityID := lookupEntity(ctx, client, args[1])
		data, err := parseServiceData(args[3:])
		if err != nil {
			fatal("climate call", err)
		}
		state, err := client.CallService(ctx, entityID, args[2], data)
		if err != nil {
			fatal("climate call", err)
		}
		if out.json {
			out.printJSON(state)
			return
		}
		printState(state)
	default:
		climateUsage()
		os.Exit(2)
	}
}

func lookupEntity(ctx context.Context, client *climate.Client, input string) string {
	states, err := client.ListEntities(ctx)
	if err != nil {
		fatal("climate list", err)
	}
	entityID, err := resolveEntity(input, states)
	if err != nil {
		fatal("climate", err)
	}
	return entityID
}

func printState(s climate.State) {
	attrs := s.Attributes
	fmt.Printf("entity: %s\n", s.EntityID)
	fmt.Printf("name: %s\n", attrs.FriendlyName)
	fmt.Printf("state: %s\n", s.State)
	fmt.Printf("current: %s\n", formatTemp(attrs.CurrentTemperature, attrs.TemperatureUnit))
	fmt.Printf("target: %s\n", formatTemp(attrs.Temperature, attrs.TemperatureUnit))
	fmt.Printf("range: %g..%g step %g\n", attrs.MinTemp, attrs.MaxTemp, attrs.TargetTempStep)
	modes := make([]string, 0, len(attrs.HVACModes))
	for _, m := range attrs.HVACModes {
		modes = append(modes, string(m))
	}
	fmt.Printf("hvac_modes: %s\n", strings.Join(modes, ", "))
	if attrs.FanMode != "" || len(attrs.FanModes) > 0 {
		fmt.Printf("fan: %s (%s)\n", attrs.FanMode, strings.Join(attrs.FanModes, ", "))
	}
	if attrs.SwingMode != "" || len(attrs.SwingModes) > 0 {
		fmt.Printf("swing: %s (%s)\n", attrs.SwingMode, strings.Join(attrs.SwingModes, ", "))
	}
}

func formatTemp(value *float64, unit climate.TemperatureUnit) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%s", *value, unit)
}

func climateUsage() {
	fmt.Println("thinqhome-cli climate <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list")
	fmt.Println("  get <entity>")
	fmt.Println("  call <entity> <service> [key=value ...]")
	fmt.Println("")
	fmt.Println("Services: " + strings.Join(climate.Services(), ", "))
}
