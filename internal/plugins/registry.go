package plugins

import (
	"fmt"
	"sort"

	"github.com/joshp123/thinqhome/internal/config"
	"github.com/joshp123/thinqhome/internal/core"
)

// Factory builds a plugin instance from the loaded config. It reports false
// when the config has no section for the plugin.
type Factory func(*config.Config) (core.Plugin, bool)

var compiled = map[string]Factory{}

// Register adds a compiled-in plugin factory under its plugin id. Ids must be
// unique across the build.
func Register(id string, factory Factory) {
	if _, dup := compiled[id]; dup {
		panic(fmt.Sprintf("plugins: %s registered twice", id))
	}
	compiled[id] = factory
}

// Names lists the compiled-in plugin ids in sorted order.
func Names() []string {
	names := make([]string, 0, len(compiled))
	for id := range compiled {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

// Compiled returns the configured plugin instances, ordered by id.
func Compiled(cfg *config.Config) []core.Plugin {
	if cfg == nil {
		return nil
	}
	out := make([]core.Plugin, 0, len(compiled))
	for _, id := range Names() {
		plugin, ok := compiled[id](cfg)
		if !ok || plugin == nil {
			continue
		}
		out = append(out, plugin)
	}
	return out
}
