package config

import (
	"os"

	"github.com/san-kum/tdmraster/internal/bitstream"
	"github.com/san-kum/tdmraster/internal/geometry"
	"github.com/san-kum/tdmraster/internal/raster"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWidth    = 640
	DefaultHeight   = 480
	DefaultEncoding = "packed"
	DefaultMode     = "tdm"
	DefaultTheme    = "default"
)

// Config is a saved viewing session.
type Config struct {
	File     string          `yaml:"file,omitempty"`
	Encoding string          `yaml:"encoding"`
	Invert   bool            `yaml:"invert"`
	Mode     string          `yaml:"mode"`
	Params   geometry.Params `yaml:"params"`
	View     ViewConfig      `yaml:"view"`
}

type ViewConfig struct {
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	VOffset int64  `yaml:"voffset"`
	HOffset int    `yaml:"hoffset"`
	Theme   string `yaml:"theme,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Encoding: DefaultEncoding,
		Mode:     DefaultMode,
		Params:   geometry.DefaultParams(),
		View: ViewConfig{
			Width:  DefaultWidth,
			Height: DefaultHeight,
			Theme:  DefaultTheme,
		},
	}
}

// Load reads a session file. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) StreamEncoding() (bitstream.Encoding, error) {
	return bitstream.ParseEncoding(c.Encoding)
}

// GeometryParams applies the mode to the stored parameters and validates them.
func (c *Config) GeometryParams() (geometry.Params, error) {
	mode, err := geometry.ParseMode(c.Mode)
	if err != nil {
		return geometry.Params{}, err
	}
	p := c.Params.WithMode(mode)
	if err := p.Validate(); err != nil {
		return geometry.Params{}, err
	}
	return p, nil
}

func (c *Config) Viewport() raster.Viewport {
	zoom := c.Params.Zoom
	if zoom < 1 {
		zoom = 1
	}
	return raster.Viewport{
		Width:   c.View.Width,
		Height:  c.View.Height,
		VOffset: c.View.VOffset,
		HOffset: c.View.HOffset,
		Zoom:    zoom,
	}
}
