// Package automation runs scripted exports and framing sweeps over captures.
//
// A [Scenario] is a YAML list of steps, each opening a capture with its own
// session settings and writing one export. A [Sweep] walks one framing
// parameter over a range and scores each value by how steady a channel's
// per-line bit density is.
package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/tdmraster/internal/bitstream"
	"github.com/san-kum/tdmraster/internal/channel"
	"github.com/san-kum/tdmraster/internal/config"
	"github.com/san-kum/tdmraster/internal/manifest"
	"github.com/san-kum/tdmraster/internal/raster"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted export sequence.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`

	// Dir resolves relative file and output paths. LoadScenario sets it
	// to the scenario file's directory.
	Dir string `yaml:"-"`
}

// Step opens one capture and writes one export.
type Step struct {
	File   string `yaml:"file"`
	Preset string `yaml:"preset"`
	// Session holds config fields applied over the preset or the defaults.
	Session yaml.Node  `yaml:"session"`
	Export  ExportSpec `yaml:"export"`
}

// ExportSpec selects the export a step writes.
type ExportSpec struct {
	Format   string `yaml:"format"` // csv, dump or raster
	Output   string `yaml:"output"`
	Kind     string `yaml:"kind"`     // raster kind, viewable by default
	Scale    int    `yaml:"scale"`    // raster upscale factor
	Channels string `yaml:"channels"` // selection list, all by default
	Visible  bool   `yaml:"visible"`
	Manifest bool   `yaml:"manifest"`
}

// Result is one finished step.
type Result struct {
	Step     int
	Format   string
	Output   string
	Manifest string
	Summary  raster.Summary
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	sc.Dir = filepath.Dir(path)
	return &sc, nil
}

func (sc *Scenario) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || sc.Dir == "" {
		return path
	}
	return filepath.Join(sc.Dir, path)
}

// StepConfig builds the session of a step: preset or defaults, then the
// step's session fields, then its file.
func (sc *Scenario) StepConfig(step Step) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if step.Preset != "" {
		cfg = config.FindPreset(step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", step.Preset)
		}
	}
	if !step.Session.IsZero() {
		if err := step.Session.Decode(cfg); err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
	}
	if step.File != "" {
		cfg.File = step.File
	}
	if cfg.File == "" {
		return nil, fmt.Errorf("no capture file given")
	}
	cfg.File = sc.resolve(cfg.File)
	return cfg, nil
}

// RunScenario executes every step in order. It stops at the first failing
// step, or after the running step when ctx is done.
func RunScenario(ctx context.Context, sc *Scenario, log logrus.FieldLogger) ([]Result, error) {
	results := make([]Result, 0, len(sc.Steps))

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		log.WithField("step", i+1).WithField("format", step.Export.Format).
			Infof("running step %d/%d", i+1, len(sc.Steps))

		res, err := sc.runStep(ctx, step, log)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		res.Step = i + 1
		results = append(results, res)
	}
	return results, nil
}

func (sc *Scenario) runStep(ctx context.Context, step Step, log logrus.FieldLogger) (Result, error) {
	cfg, err := sc.StepConfig(step)
	if err != nil {
		return Result{}, err
	}
	enc, err := cfg.StreamEncoding()
	if err != nil {
		return Result{}, err
	}
	params, err := cfg.GeometryParams()
	if err != nil {
		return Result{}, err
	}

	stream, err := bitstream.Open(cfg.File, enc, cfg.Invert)
	if err != nil {
		return Result{}, err
	}
	defer stream.Close()

	e, err := raster.New(stream, params)
	if err != nil {
		return Result{}, err
	}
	e.Log = log

	spec := step.Export
	spec.Output = sc.resolve(spec.Output)
	sum, sel, err := Export(e, cfg.Viewport(), spec, raster.WithContext(ctx, nil))
	if err != nil {
		return Result{}, err
	}

	res := Result{Format: spec.Format, Output: spec.Output, Summary: sum}
	if spec.Manifest {
		m := &manifest.Manifest{
			Output:   spec.Output,
			Kind:     spec.Format,
			File:     cfg.File,
			Encoding: cfg.Encoding,
			Invert:   cfg.Invert,
			Params:   e.Params(),
			Lines:    sum.Lines,
			Canceled: sum.Canceled,
		}
		if sel != nil {
			m.Channels = sel.Indices()
		}
		if res.Manifest, err = manifest.Write(m); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Export writes one export of e. It returns the channel selection used,
// which is nil for raster images.
func Export(e *raster.Engine, vp raster.Viewport, spec ExportSpec, p raster.Progress) (raster.Summary, channel.Selector, error) {
	if spec.Output == "" {
		return raster.Summary{}, nil, fmt.Errorf("no output path")
	}

	format := strings.ToLower(strings.TrimSpace(spec.Format))
	if format == "raster" {
		sum, err := exportRaster(e, vp, spec, p)
		return sum, nil, err
	}

	channels := spec.Channels
	if channels == "" {
		channels = "all"
	}
	sel, err := channel.Parse(channels, e.Params().TS)
	if err != nil {
		return raster.Summary{}, nil, err
	}

	var sum raster.Summary
	switch {
	case format == "csv" && spec.Visible:
		sum, err = e.SaveVisibleCSV(spec.Output, sel, vp, p)
	case format == "csv":
		sum, err = e.SaveEntireCSV(spec.Output, sel, p)
	case format == "dump" && spec.Visible:
		sum, err = e.SaveVisibleBits(spec.Output, sel, vp, p)
	case format == "dump":
		sum, err = e.SaveEntireBits(spec.Output, sel, p)
	default:
		return raster.Summary{}, nil, fmt.Errorf("unknown export format %q", spec.Format)
	}
	return sum, sel, err
}

func exportRaster(e *raster.Engine, vp raster.Viewport, spec ExportSpec, p raster.Progress) (raster.Summary, error) {
	kind := raster.Viewable
	if spec.Kind != "" {
		k, err := raster.ParseRasterKind(spec.Kind)
		if err != nil {
			return raster.Summary{}, err
		}
		kind = k
	}
	scale := spec.Scale
	if scale == 0 {
		scale = 1
	}
	if scale < 1 {
		return raster.Summary{}, fmt.Errorf("scale must be >= 1, got %d", scale)
	}

	if err := e.SaveRaster(spec.Output, kind, vp, scale, p); err != nil {
		return raster.Summary{}, err
	}
	return raster.Summary{
		Lines:    RasterLines(e, kind, vp),
		Canceled: p != nil && p.Canceled(),
	}, nil
}

// RasterLines is the number of capture lines a raster image of kind covers.
func RasterLines(e *raster.Engine, kind raster.RasterKind, vp raster.Viewport) int64 {
	if kind == raster.Vertical || kind == raster.Entire {
		return e.Geometry().TotalPixelHeight
	}
	n := vp.VisibleLines().Count
	if rest := e.Geometry().TotalPixelHeight - vp.VOffset; rest < n {
		n = max(rest, 0)
	}
	return n
}
