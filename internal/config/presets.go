package config

import (
	"sort"

	"github.com/san-kum/tdmraster/internal/geometry"
)

func tdm(ts, bpts, fpl int) geometry.Params {
	p := geometry.DefaultParams()
	p.TS, p.BPTS, p.FPL = ts, bpts, fpl
	return p
}

func rgb(bpl, r, g, b int) geometry.Params {
	p := geometry.DefaultParams()
	p.TS, p.BPTS, p.FPL = 1, bpl, 1
	p.RBPP, p.GBPP, p.BBPP = r, g, b
	p.Layout = geometry.LayoutRGB
	return p
}

var Presets = map[string]map[string]*Config{
	"tdm": {
		"e1": {
			Encoding: "packed", Mode: "tdm", Params: tdm(32, 8, 15),
			View: ViewConfig{Width: DefaultWidth, Height: DefaultHeight},
		},
		"t1": {
			Encoding: "packed", Mode: "tdm", Params: tdm(24, 8, 15),
			View: ViewConfig{Width: DefaultWidth, Height: DefaultHeight},
		},
		"e1-nibble": {
			Encoding: "packed", Mode: "tdm", Params: tdm(64, 4, 8),
			View: ViewConfig{Width: DefaultWidth, Height: DefaultHeight},
		},
		"e1-expanded": {
			Encoding: "expanded", Mode: "tdm", Params: tdm(32, 8, 15),
			View: ViewConfig{Width: DefaultWidth, Height: DefaultHeight},
		},
	},
	"bin": {
		"bytes": {
			Encoding: "packed", Mode: "bin", Params: tdm(1, 64, 1),
			View: ViewConfig{Width: DefaultWidth, Height: DefaultHeight},
		},
		"words": {
			Encoding: "packed", Mode: "bin", Params: tdm(1, 256, 1),
			View: ViewConfig{Width: DefaultWidth, Height: DefaultHeight},
		},
		"rgb332": {
			Encoding: "packed", Mode: "bin", Params: rgb(8*320, 3, 3, 2),
			View: ViewConfig{Width: DefaultWidth, Height: DefaultHeight},
		},
		"rgb24": {
			Encoding: "packed", Mode: "bin", Params: rgb(24*320, 8, 8, 8),
			View: ViewConfig{Width: DefaultWidth, Height: DefaultHeight},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(mode, preset string) *Config {
	modePresets, ok := Presets[mode]
	if !ok {
		return nil
	}
	cfg, ok := modePresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

// FindPreset looks a preset up by name in every mode.
func FindPreset(preset string) *Config {
	for _, mode := range Modes() {
		if cfg := GetPreset(mode, preset); cfg != nil {
			return cfg
		}
	}
	return nil
}

func ListPresets(mode string) []string {
	modePresets, ok := Presets[mode]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modePresets))
	for name := range modePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Modes() []string {
	modes := make([]string, 0, len(Presets))
	for mode := range Presets {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	return modes
}
