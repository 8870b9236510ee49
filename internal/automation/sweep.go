package automation

import (
	"context"
	"fmt"

	"github.com/san-kum/tdmraster/internal/analysis"
	"github.com/san-kum/tdmraster/internal/geometry"
	"github.com/san-kum/tdmraster/internal/raster"
	"github.com/sirupsen/logrus"
)

// SweepParams lists the parameters a sweep can walk.
var SweepParams = []string{"ts", "bpts", "fpl", "offset"}

// Sweep walks one framing parameter from From to To inclusive.
type Sweep struct {
	Param    string
	From     int64
	To       int64
	Step     int64
	Channel  int
	MaxLines int64 // 0 reads every line
}

// SweepResult scores one parameter value. Lines is zero when the value was
// rejected or left the channel outside the frame.
type SweepResult struct {
	Value  int64
	Mean   float64
	Spread float64
	Lines  int
}

func setter(name string) (func(p *geometry.Params, v int64), error) {
	switch name {
	case "ts":
		return func(p *geometry.Params, v int64) { p.TS = int(v) }, nil
	case "bpts":
		return func(p *geometry.Params, v int64) { p.BPTS = int(v) }, nil
	case "fpl":
		return func(p *geometry.Params, v int64) { p.FPL = int(v) }, nil
	case "offset":
		return func(p *geometry.Params, v int64) { p.Offset = v }, nil
	}
	return nil, fmt.Errorf("cannot sweep %q, want one of %v", name, SweepParams)
}

// RunSweep measures the per-line set-bit density of the channel for every
// value. The engine's parameters are restored before returning.
func RunSweep(ctx context.Context, e *raster.Engine, sw Sweep, log logrus.FieldLogger) ([]SweepResult, error) {
	set, err := setter(sw.Param)
	if err != nil {
		return nil, err
	}
	if sw.Step == 0 {
		sw.Step = 1
	}
	if sw.Step < 0 || sw.To < sw.From {
		return nil, fmt.Errorf("empty sweep %d..%d step %d", sw.From, sw.To, sw.Step)
	}

	base := e.Params()
	defer e.SetParams(base)

	var results []SweepResult
	for v := sw.From; ; v += sw.Step {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := measure(ctx, e, base, set, sw, v, log)
		if err != nil {
			return results, err
		}
		results = append(results, res)

		// v <= To, so To-v cannot overflow where v+Step might.
		if sw.To-v < sw.Step {
			break
		}
	}
	return results, nil
}

func measure(ctx context.Context, e *raster.Engine, base geometry.Params, set func(*geometry.Params, int64), sw Sweep, v int64, log logrus.FieldLogger) (SweepResult, error) {
	res := SweepResult{Value: v}

	p := base
	set(&p, v)
	if err := e.SetParams(p); err != nil {
		log.WithField(sw.Param, v).WithError(err).Debug("sweep value rejected")
		return res, nil
	}
	if sw.Channel >= p.TS {
		return res, nil
	}

	lines := e.AllLines()
	if sw.MaxLines > 0 && lines.Count > sw.MaxLines {
		lines.Count = sw.MaxLines
	}
	data, err := e.Density(sw.Channel, lines, raster.WithContext(ctx, nil))
	if err != nil {
		return res, err
	}
	res.Mean, res.Spread = analysis.Describe(data)
	res.Lines = len(data)

	log.WithFields(logrus.Fields{
		sw.Param: v,
		"lines":  res.Lines,
		"spread": res.Spread,
	}).Debug("sweep value measured")
	return res, nil
}

// Best returns the measured value with the steadiest density. A channel
// carrying a fixed pattern, such as a frame alignment word, has zero
// spread only when the framing is right. The first of equal scores wins.
func Best(results []SweepResult) (SweepResult, bool) {
	var (
		best  SweepResult
		found bool
	)
	for _, r := range results {
		if r.Lines < 2 {
			continue
		}
		if !found || r.Spread < best.Spread {
			best, found = r, true
		}
	}
	return best, found
}
