// Package config loads LocalBoard settings from LOCALBOARD_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"LocalBoard/internal/export"

	"github.com/caarlos0/env/v11"
)

// Config holds process-wide settings.
type Config struct {
	Port             int           `env:"PORT" envDefault:"8888"`
	OutputDir        string        `env:"OUTPUT_DIR" envDefault:"outputs"`
	JournalPath      string        `env:"JOURNAL_PATH" envDefault:"outputs/whiteboard.db"`
	Width            int           `env:"WIDTH" envDefault:"1024"`
	Height           int           `env:"HEIGHT" envDefault:"768"`
	Background       string        `env:"BACKGROUND" envDefault:"#FFFFFF"`
	Color            string        `env:"COLOR" envDefault:"#000000"`
	StrokeWidth      float64       `env:"STROKE_WIDTH" envDefault:"3"`
	RecordInterval   time.Duration `env:"RECORD_INTERVAL" envDefault:"200ms"`
	ImageFormat      string        `env:"IMAGE_FORMAT" envDefault:"png"`
	ShareClear       bool          `env:"SHARE_CLEAR" envDefault:"false"`
	Advertise        bool          `env:"ADVERTISE" envDefault:"true"`
	ReconnectMax     time.Duration `env:"RECONNECT_MAX" envDefault:"10s"`
	DiscoveryTimeout time.Duration `env:"DISCOVERY_TIMEOUT" envDefault:"3s"`
}

// Load reads the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "LOCALBOARD_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the board cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("canvas size %dx%d must be positive", c.Width, c.Height))
	}
	if c.StrokeWidth <= 0 {
		errs = append(errs, fmt.Errorf("stroke width %v must be positive", c.StrokeWidth))
	}
	if c.RecordInterval <= 0 {
		errs = append(errs, errors.New("record interval must be positive"))
	}
	if _, err := export.ParseFormat(c.ImageFormat); err != nil {
		errs = append(errs, err)
	}
	if !validHex(c.Background) {
		errs = append(errs, fmt.Errorf("background %q is not a hex color", c.Background))
	}
	if !validHex(c.Color) {
		errs = append(errs, fmt.Errorf("color %q is not a hex color", c.Color))
	}
	return errors.Join(errs...)
}

// Format returns the parsed image format. Call after Validate.
func (c Config) Format() export.Format {
	f, _ := export.ParseFormat(c.ImageFormat)
	return f
}

func validHex(s string) bool {
	if len(s) == 0 || s[0] != '#' {
		return false
	}
	switch len(s) {
	case 4, 7, 9:
	default:
		return false
	}
	for _, r := range s[1:] {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}
