package plugins

import (
	"github.com/joshp123/thinqhome/internal/config"
	"github.com/joshp123/thinqhome/internal/core"
	"github.com/joshp123/thinqhome/plugins/thinq"
)

func init() {
	Register("thinq", func(cfg *config.Config) (core.Plugin, bool) {
		// A nil *thinq.Plugin must not escape as a non-nil core.Plugin.
		plugin, ok := thinq.NewPlugin(cfg.Thinq, cfg.OAuth)
		if !ok {
			return nil, false
		}
		return plugin, true
	})
}
