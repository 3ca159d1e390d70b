//go:build !tinygo

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML device file on top of the defaults
//
// Unknown fields are rejected so typos fail loudly, and only a single
// document is accepted.
func LoadFile(path string) (DeviceConfig, error) {
	if path == "" {
		return DeviceConfig{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML device settings on top of the defaults and validates
// the result
func Parse(data []byte) (DeviceConfig, error) {
	cfg := DefaultDeviceConfig()
	if err := Decode(data, &cfg); err != nil {
		return DeviceConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return DeviceConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Decode overlays YAML onto cfg without validating it. An empty document
// leaves cfg unchanged.
func Decode(data []byte, cfg *DeviceConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing document
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errors.New("decode config yaml: unexpected trailing document")
	}

	applyDefaults(cfg)
	return nil
}
