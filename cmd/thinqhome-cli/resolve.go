package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joshp123/thinqhome/internal/climate"
)

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	replacer := strings.NewReplacer(" ", "_", "-", "_")
	name = replacer.Replace(name)
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return name
}

// resolveEntity accepts an entity id, its object id, or a friendly name.
func resolveEntity(input string, states []climate.State) (string, error) {
	needle := normalizeName(input)
	options := make(map[string]string, len(states))
	for _, s := range states {
		if s.EntityID == input || s.EntityID == "climate."+needle {
			return s.EntityID, nil
		}
		options[s.Attributes.FriendlyName] = s.EntityID
	}
	for label, id := range options {
		if normalizeName(label) == needle {
			return id, nil
		}
	}
	available := make([]string, 0, len(options))
	for label := range options {
		available = append(available, label)
	}
	sort.Strings(available)
	return "", fmt.Errorf("climate %q not found. Available: %s", input, strings.Join(available, ", "))
}

// parseServiceData turns key=value pairs into service data. Numbers and
// booleans are typed; everything else stays a string.
func parseServiceData(pairs []string) (map[string]any, error) {
	data := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			data[key] = f
			continue
		}
		if b, err := strconv.ParseBool(value); err == nil {
			data[key] = b
			continue
		}
		data[key] = value
	}
	return data, nil
}
