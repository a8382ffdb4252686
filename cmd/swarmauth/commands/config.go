package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// runtimeConfig is the merged file + flag configuration.
type runtimeConfig struct {
	Seed             string
	ListenAddr       string
	DialURL          string
	LogLevel         string
	HandshakeTimeout time.Duration
}

func defaultConfig() runtimeConfig {
	return runtimeConfig{
		ListenAddr: "127.0.0.1:4780",
		LogLevel:   "info",
	}
}

type fileConfig struct {
	Seed             string `toml:"seed"`
	ListenAddr       string `toml:"listen_addr"`
	DialURL          string `toml:"dial_url"`
	LogLevel         string `toml:"log_level"`
	HandshakeTimeout string `toml:"handshake_timeout"`
}

// loadConfig overlays a TOML file onto the defaults. Flags are applied on
// top of the result by the caller; absent keys leave defaults untouched.
func loadConfig(path string) (runtimeConfig, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("seed") {
		cfg.Seed = strings.TrimSpace(raw.Seed)
	}
	if meta.IsDefined("listen_addr") && strings.TrimSpace(raw.ListenAddr) != "" {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("dial_url") {
		cfg.DialURL = strings.TrimSpace(raw.DialURL)
	}
	if meta.IsDefined("log_level") && strings.TrimSpace(raw.LogLevel) != "" {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("handshake_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.HandshakeTimeout))
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("parse handshake_timeout: %w", err)
		}
		cfg.HandshakeTimeout = d
	}

	return cfg, nil
}
