// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/caarlos0/env/v8"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
)

// EnvPrefix of the environment variables that set the defaults of the flags.
const EnvPrefix = "POINTGRAPH_"

// Config holds the defaults of the command-line flags, read from the environment,
// e.g. POINTGRAPH_R_MAX=0.5.
type Config struct {
	// RMax is the default radius of the radius graph.
	RMax float64 `env:"R_MAX" envDefault:"1.0"`
	// Parallelism is the default maximum number of goroutines: 0 for sequential, -1 for unlimited.
	Parallelism int `env:"PARALLELISM" envDefault:"-1"`
	// MaxRows of the tables printed.
	MaxRows int `env:"MAX_ROWS" envDefault:"20"`
	// NoColor disables colors in the output.
	NoColor bool `env:"NO_COLOR"`
}

// LoadConfig reads the Config from the given environment variables (see environMap).
func LoadConfig(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, errors.Wrap(err, "failed to parse environment")
	}
	if cfg.MaxRows < 0 {
		return cfg, errors.Errorf("%sMAX_ROWS=%d must be >= 0", EnvPrefix, cfg.MaxRows)
	}
	return cfg, nil
}

// applyColorProfile disables colors if requested.
func (cfg Config) applyColorProfile() {
	if cfg.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}
