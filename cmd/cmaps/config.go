package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config holds all shell configuration options.
type Config struct {
	WaitFree    bool   `json:"wait_free"`    //nolint:tagliatelle // snake_case for config file
	Capacity    uint64 `json:"capacity"`     //nolint:tagliatelle
	HistoryFile string `json:"history_file"` //nolint:tagliatelle
}

// ConfigFileName is the default config file name, looked up in the working
// directory when --config is not given.
const ConfigFileName = ".cmaps.json"

// loadConfig reads the config file at path, or the default location when
// path is empty. A missing default file is not an error. The file is JWCC
// (JSON with comments and trailing commas).
func loadConfig(path string) (Config, error) {
	cfg := Config{HistoryFile: defaultHistoryPath()}

	explicit := path != ""
	if !explicit {
		path = ConfigFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}
