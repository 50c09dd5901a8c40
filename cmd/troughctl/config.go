package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type fileConfig struct {
	Addr          string    `toml:"addr"`
	PollInterval  string    `toml:"poll_interval"`
	StoreInterval float64   `toml:"store_interval_s"`
	DataFile      string    `toml:"data_file"`
	MonitorAddr   string    `toml:"monitor_addr"`
	Verbosity     int       `toml:"verbosity"`
	TargetAreas   []float64 `toml:"target_areas"`
	Hold          string    `toml:"hold"`
}

type runConfig struct {
	Addr          string
	PollInterval  time.Duration
	StoreInterval float64 // seconds, forwarded to SetStoreInterval
	DataFile      string
	MonitorAddr   string
	Verbosity     int
	TargetAreas   []float64 // mm^2, visited in order
	Hold          time.Duration
}

func defaultRunConfig() runConfig {
	return runConfig{
		Addr:          "localhost:9898",
		PollInterval:  time.Second,
		StoreInterval: 1.0,
		DataFile:      defaultDataFile(),
		MonitorAddr:   "",
		Verbosity:     1,
		TargetAreas:   []float64{12000, 10000, 8000, 6000, 4000},
		Hold:          time.Minute,
	}
}

func defaultDataFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data_file.csv"
	}
	return filepath.Join(home, "kibron", "measurements", "data_file.csv")
}

func loadRunConfig(path string) (runConfig, error) {
	cfg := defaultRunConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runConfig{}, fmt.Errorf("load troughctl config: %w", err)
	}

	if meta.IsDefined("addr") {
		if addr := strings.TrimSpace(raw.Addr); addr != "" {
			cfg.Addr = addr
		}
	}

	if meta.IsDefined("poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return runConfig{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}

	if meta.IsDefined("store_interval_s") {
		if raw.StoreInterval <= 0 {
			return runConfig{}, fmt.Errorf("store_interval_s must be positive, got %v", raw.StoreInterval)
		}
		cfg.StoreInterval = raw.StoreInterval
	}

	if meta.IsDefined("data_file") {
		if p := strings.TrimSpace(raw.DataFile); p != "" {
			cfg.DataFile = p
		}
	}

	if meta.IsDefined("monitor_addr") {
		cfg.MonitorAddr = strings.TrimSpace(raw.MonitorAddr)
	}

	if meta.IsDefined("verbosity") {
		cfg.Verbosity = raw.Verbosity
	}

	if meta.IsDefined("target_areas") {
		areas := make([]float64, 0, len(raw.TargetAreas))
		for _, a := range raw.TargetAreas {
			if a <= 0 {
				return runConfig{}, fmt.Errorf("target_areas entries must be positive, got %v", a)
			}
			areas = append(areas, a)
		}
		cfg.TargetAreas = areas
	}

	if meta.IsDefined("hold") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Hold))
		if err != nil {
			return runConfig{}, fmt.Errorf("parse hold: %w", err)
		}
		cfg.Hold = d
	}

	return cfg, nil
}
