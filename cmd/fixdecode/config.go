package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/fixlens/internal/protocol/schema"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type decodeConfig struct {
	Dictionaries []string
	Format       string
	SummaryOnly  bool
}

type fileConfig struct {
	Dictionaries []string `toml:"dictionaries"`
	Format       string   `toml:"format"`
	SummaryOnly  bool     `toml:"summary_only"`
}

func defaultDecodeConfig() decodeConfig {
	return decodeConfig{Format: formatText}
}

// loadDecodeConfig overlays the keys present in path onto the defaults.
func loadDecodeConfig(path string) (decodeConfig, error) {
	cfg := defaultDecodeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return decodeConfig{}, fmt.Errorf("load decode config: %w", err)
	}

	if meta.IsDefined("dictionaries") {
		cfg.Dictionaries = normalizePaths(raw.Dictionaries)
	}

	if meta.IsDefined("format") {
		cfg.Format = strings.ToLower(strings.TrimSpace(raw.Format))
	}

	if meta.IsDefined("summary_only") {
		cfg.SummaryOnly = raw.SummaryOnly
	}

	if err := cfg.validate(); err != nil {
		return decodeConfig{}, err
	}
	return cfg, nil
}

func (c decodeConfig) validate() error {
	switch c.Format {
	case formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text|json)", c.Format)
	}
}

// dictionary merges every configured dictionary in order; later files win.
func (c decodeConfig) dictionary() (*schema.Dictionary, error) {
	dict := schema.New()
	for _, path := range c.Dictionaries {
		if err := dict.Load(path); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

func normalizePaths(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
