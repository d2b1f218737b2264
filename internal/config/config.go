// Package config loads the per-deployment configuration: server settings,
// the template slot table and feature flags. Template designs differ only in
// slot geometry and a couple of optional features, so one binary serves all
// deployments with different config files.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/youruser/framegen/internal/frame"
	"github.com/youruser/framegen/internal/share"
)

// Slot mirrors frame.Slot with config field tags.
type Slot struct {
	X int `mapstructure:"x"`
	Y int `mapstructure:"y"`
	W int `mapstructure:"w"`
	H int `mapstructure:"h"`
}

type Config struct {
	Server struct {
		Port     string `mapstructure:"port"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"server"`

	Layout struct {
		Slots []Slot `mapstructure:"slots"`
	} `mapstructure:"layout"`

	Output struct {
		Dir        string `mapstructure:"dir"`
		DefaultTag string `mapstructure:"default_tag"`
	} `mapstructure:"output"`

	Templates struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"templates"`

	Share struct {
		UploadURL string `mapstructure:"upload_url"`
	} `mapstructure:"share"`

	Features struct {
		SharpenOnCompose bool `mapstructure:"sharpen_on_compose"`
		MultiCopy        bool `mapstructure:"multi_copy"`
		TemplateListing  bool `mapstructure:"template_listing"`
	} `mapstructure:"features"`
}

// SlotTable converts the configured layout into pipeline slots.
func (c *Config) SlotTable() []frame.Slot {
	slots := make([]frame.Slot, len(c.Layout.Slots))
	for i, s := range c.Layout.Slots {
		slots[i] = frame.Slot{X: s.X, Y: s.Y, W: s.W, H: s.H}
	}
	return slots
}

// Load reads framegen.toml from the working directory, falling back to the
// reference deployment's defaults when no config file exists.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("framegen")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: reading file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if len(cfg.Layout.Slots) == 0 {
		return nil, fmt.Errorf("config: layout has no slots")
	}
	for i, s := range cfg.Layout.Slots {
		if s.W <= 0 || s.H <= 0 {
			return nil, fmt.Errorf("config: slot %d has non-positive size %dx%d", i+1, s.W, s.H)
		}
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.log_level", "info")

	// The four-slot portrait strip of the reference template design.
	v.SetDefault("layout.slots", []map[string]any{
		{"x": 17, "y": 17, "w": 266, "h": 178},
		{"x": 17, "y": 214, "w": 266, "h": 178},
		{"x": 17, "y": 410, "w": 266, "h": 178},
		{"x": 17, "y": 604, "w": 266, "h": 178},
	})

	v.SetDefault("output.dir", "generated_frames")
	v.SetDefault("output.default_tag", "frame")
	v.SetDefault("templates.dir", "templates")
	v.SetDefault("share.upload_url", share.DefaultUploadURL)

	v.SetDefault("features.sharpen_on_compose", false)
	v.SetDefault("features.multi_copy", true)
	v.SetDefault("features.template_listing", true)
}
