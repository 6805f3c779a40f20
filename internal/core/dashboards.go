package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DashboardAsset is a plugin dashboard addressed by its HTTP path.
type DashboardAsset struct {
	PluginID string `json:"plugin_id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	JSON     []byte `json:"-"`
}

// DashboardPath is the URL a dashboard is served from.
func DashboardPath(pluginID, name string) string {
	return "/dashboards/" + pluginID + "/" + name + ".json"
}

// DashboardAssets collects the dashboards of all plugins ordered by path.
// Assets that are not valid JSON are rejected.
func DashboardAssets(plugins []Plugin) ([]DashboardAsset, error) {
	var assets []DashboardAsset
	for _, plugin := range plugins {
		pluginID := plugin.Manifest().PluginID
		for _, dash := range plugin.Dashboards() {
			if !json.Valid(dash.JSON) {
				return nil, fmt.Errorf("dashboard %s/%s is not valid JSON", pluginID, dash.Name)
			}
			assets = append(assets, DashboardAsset{
				PluginID: pluginID,
				Name:     dash.Name,
				Path:     DashboardPath(pluginID, dash.Name),
				JSON:     dash.JSON,
			})
		}
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Path < assets[j].Path })
	return assets, nil
}

// WriteDashboards provisions dashboards for Grafana under dir/<plugin>/.
// Files whose content is unchanged are left alone so Grafana does not reload
// them; changed files are replaced atomically.
func WriteDashboards(dir string, plugins []Plugin) (int, error) {
	if dir == "" {
		return 0, nil
	}
	assets, err := DashboardAssets(plugins)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, asset := range assets {
		pluginDir := filepath.Join(dir, asset.PluginID)
		if err := os.MkdirAll(pluginDir, 0o755); err != nil {
			return written, fmt.Errorf("create dashboard dir: %w", err)
		}
		path := filepath.Join(pluginDir, asset.Name+".json")
		if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, asset.JSON) {
			continue
		}
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, asset.JSON, 0o644); err != nil {
			return written, fmt.Errorf("write dashboard %s: %w", path, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			_ = os.Remove(tmp)
			return written, fmt.Errorf("replace dashboard %s: %w", path, err)
		}
		written++
	}
	return written, nil
}
