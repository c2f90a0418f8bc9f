package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// config is the resolved CLI configuration. Flags override the file.
type config struct {
	Classes     string
	Class       string
	Format      string
	LogLevel    string
	Load        string
	Save        string
	Set         map[string]any
	MaxWaves    int
	PrintDOT    bool
	PrintSchema bool
}

// smartstate.toml key mapping.
type fileConfig struct {
	Classes  string         `toml:"classes"`
	Class    string         `toml:"class"`
	Format   string         `toml:"format"`
	LogLevel string         `toml:"log_level"`
	Load     string         `toml:"load"`
	Save     string         `toml:"save"`
	MaxWaves int            `toml:"max_waves"`
	Set      map[string]any `toml:"set"`
}

func defaultConfig() config {
	return config{
		Format:   "json",
		LogLevel: "warn",
		Set:      map[string]any{},
	}
}

// loadConfigFile overlays the keys defined in path onto cfg.
func loadConfigFile(path string, cfg *config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("classes") {
		cfg.Classes = strings.TrimSpace(raw.Classes)
	}
	if meta.IsDefined("class") {
		cfg.Class = strings.TrimSpace(raw.Class)
	}
	if meta.IsDefined("format") {
		cfg.Format = strings.TrimSpace(raw.Format)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("load") {
		cfg.Load = strings.TrimSpace(raw.Load)
	}
	if meta.IsDefined("save") {
		cfg.Save = strings.TrimSpace(raw.Save)
	}
	if meta.IsDefined("max_waves") {
		if raw.MaxWaves < 1 {
			return fmt.Errorf("load config: max_waves must be positive, got %d", raw.MaxWaves)
		}
		cfg.MaxWaves = raw.MaxWaves
	}
	for k, v := range raw.Set {
		cfg.Set[k] = normalizeNumber(v)
	}
	return nil
}

// normalizeNumber maps TOML integers onto float64, the number type used by
// HCL-defined classes.
func normalizeNumber(v any) any {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeNumber(e)
		}
		return out
	}
	return v
}
