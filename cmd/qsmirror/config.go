package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// stageConfig sizes the synthetic decomposition and selects the device
// backend for the stage command.
type stageConfig struct {
	DeviceMode      string
	NumDomains      int
	CellsPerDomain  int
	NumEnergyGroups int
	Seed            int64
}

func defaultStageConfig() stageConfig {
	return stageConfig{
		DeviceMode:      "auto",
		NumDomains:      4,
		CellsPerDomain:  32,
		NumEnergyGroups: 10,
		Seed:            1,
	}
}

// qsmirror config.toml key mapping, overlaid on the defaults.
type fileConfig struct {
	DeviceMode      string `toml:"device_mode"`
	NumDomains      int    `toml:"num_domains"`
	CellsPerDomain  int    `toml:"cells_per_domain"`
	NumEnergyGroups int    `toml:"num_energy_groups"`
	Seed            int64  `toml:"seed"`
}

func loadStageConfig(path string) (stageConfig, error) {
	cfg := defaultStageConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return stageConfig{}, fmt.Errorf("load stage config: %w", err)
	}

	if meta.IsDefined("device_mode") {
		cfg.DeviceMode = strings.TrimSpace(raw.DeviceMode)
	}
	if meta.IsDefined("num_domains") {
		cfg.NumDomains = raw.NumDomains
	}
	if meta.IsDefined("cells_per_domain") {
		cfg.CellsPerDomain = raw.CellsPerDomain
	}
	if meta.IsDefined("num_energy_groups") {
		cfg.NumEnergyGroups = raw.NumEnergyGroups
	}
	if meta.IsDefined("seed") {
		cfg.Seed = raw.Seed
	}

	if cfg.NumDomains < 0 {
		return stageConfig{}, fmt.Errorf("num_domains must be non-negative, got %d", cfg.NumDomains)
	}
	if cfg.CellsPerDomain < 0 {
		return stageConfig{}, fmt.Errorf("cells_per_domain must be non-negative, got %d", cfg.CellsPerDomain)
	}
	if cfg.NumEnergyGroups <= 0 {
		return stageConfig{}, fmt.Errorf("num_energy_groups must be positive, got %d", cfg.NumEnergyGroups)
	}

	return cfg, nil
}
