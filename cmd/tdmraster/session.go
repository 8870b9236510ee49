package main

import (
	"fmt"

	"github.com/san-kum/tdmraster/internal/bitstream"
	"github.com/san-kum/tdmraster/internal/channel"
	"github.com/san-kum/tdmraster/internal/config"
	"github.com/san-kum/tdmraster/internal/geometry"
	"github.com/san-kum/tdmraster/internal/manifest"
	"github.com/san-kum/tdmraster/internal/raster"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// resolveConfig builds the session from, in increasing priority: defaults,
// the preset, the config file and explicitly changed flags.
func resolveConfig(cmd *cobra.Command, file string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.FindPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (see 'tdmraster presets')", preset)
		}
		cfg = p
		if cfg.View.Theme == "" {
			cfg.View.Theme = config.DefaultTheme
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("encoding") {
		cfg.Encoding = encoding
	}
	if flags.Changed("invert") {
		cfg.Invert = invert
	}
	if flags.Changed("mode") {
		cfg.Mode = mode
	}
	if flags.Changed("color") {
		cfg.Params.Layout = geometry.LayoutMonochrome
		if rgb {
			cfg.Params.Layout = geometry.LayoutRGB
		}
	}
	if flags.Changed("width") {
		cfg.View.Width = width
	}
	if flags.Changed("height") {
		cfg.View.Height = height
	}
	if flags.Changed("voffset") {
		cfg.View.VOffset = vOffset
	}
	if flags.Changed("hoffset") {
		cfg.View.HOffset = hOffset
	}
	if flags.Changed("theme") {
		cfg.View.Theme = theme
	}

	// Evaluated in order, so later expressions may refer to earlier values.
	for _, f := range []struct {
		name string
		expr string
		min  int64
		set  func(p *geometry.Params, v int64)
	}{
		{"ts", tsExpr, 1, func(p *geometry.Params, v int64) { p.TS = int(v) }},
		{"bpts", bptsExpr, 1, func(p *geometry.Params, v int64) { p.BPTS = int(v) }},
		{"bpl", bplExpr, 1, func(p *geometry.Params, v int64) { p.BPTS = int(v) }},
		{"fpl", fplExpr, 1, func(p *geometry.Params, v int64) { p.FPL = int(v) }},
		{"offset", offsetExpr, 0, func(p *geometry.Params, v int64) { p.Offset = v }},
		{"zoom", zoomExpr, 1, func(p *geometry.Params, v int64) { p.Zoom = int(v) }},
		{"rbpp", rbppExpr, 0, func(p *geometry.Params, v int64) { p.RBPP = int(v) }},
		{"gbpp", gbppExpr, 0, func(p *geometry.Params, v int64) { p.GBPP = int(v) }},
		{"bbpp", bbppExpr, 0, func(p *geometry.Params, v int64) { p.BBPP = int(v) }},
	} {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := config.EvalParam(f.name, f.expr, f.min, config.ParamEnv(cfg.Params))
		if err != nil {
			return nil, err
		}
		f.set(&cfg.Params, v)
	}
	if flags.Changed("bpl") && !flags.Changed("mode") {
		cfg.Mode = "bin"
	}

	if file != "" {
		cfg.File = file
	}
	if cfg.File == "" {
		return nil, fmt.Errorf("no capture file given")
	}
	return cfg, nil
}

type session struct {
	cfg    *config.Config
	engine *raster.Engine
	log    *logrus.Entry
}

// openSession resolves the configuration and opens the capture.
func openSession(cmd *cobra.Command, file string) (*session, error) {
	cfg, err := resolveConfig(cmd, file)
	if err != nil {
		return nil, err
	}
	enc, err := cfg.StreamEncoding()
	if err != nil {
		return nil, err
	}
	params, err := cfg.GeometryParams()
	if err != nil {
		return nil, err
	}

	stream, err := bitstream.Open(cfg.File, enc, cfg.Invert)
	if err != nil {
		return nil, err
	}
	e, err := raster.New(stream, params)
	if err != nil {
		stream.Close()
		return nil, err
	}
	entry := log.WithField("file", stream.Name())
	e.Log = entry
	entry.WithFields(logrus.Fields{
		"encoding": enc,
		"bits":     stream.SizeBit(),
		"ts":       params.TS,
		"bpts":     params.BPTS,
		"fpl":      params.FPL,
		"lines":    e.Geometry().TotalPixelHeight,
	}).Debug("capture opened")

	return &session{cfg: cfg, engine: e, log: entry}, nil
}

func (s *session) Close() error {
	return s.engine.Stream().Close()
}

// progress reports to the debug log and cancels on interrupt.
func (s *session) progress(cmd *cobra.Command) raster.Progress {
	return raster.WithContext(cmd.Context(), newLogProgress(s.log))
}

// record writes the JSON sidecar when --manifest is set.
func (s *session) record(out, kind string, sel channel.Selector, sum raster.Summary) error {
	if !writeManifest {
		return nil
	}
	m := &manifest.Manifest{
		Output:   out,
		Kind:     kind,
		File:     s.cfg.File,
		Encoding: s.cfg.Encoding,
		Invert:   s.cfg.Invert,
		Params:   s.engine.Params(),
		Lines:    sum.Lines,
		Canceled: sum.Canceled,
	}
	if sel != nil {
		m.Channels = sel.Indices()
	}
	path, err := manifest.Write(m)
	if err != nil {
		return err
	}
	s.log.WithField("path", path).Debug("manifest written")
	return nil
}
