package raster

import "context"

// Progress is polled once per line by every long running operation.
// A nil Progress is valid and behaves like Nop.
type Progress interface {
	SetRange(min, max int64)
	SetValue(v int64)
	Canceled() bool
}

type nop struct{}

func (nop) SetRange(min, max int64) {}
func (nop) SetValue(v int64)        {}
func (nop) Canceled() bool          { return false }

// Nop reports nowhere and never cancels.
var Nop Progress = nop{}

func orNop(p Progress) Progress {
	if p == nil {
		return Nop
	}
	return p
}

// ProgressFunc adapts a plain callback. It never cancels.
type ProgressFunc func(value, min, max int64)

type funcProgress struct {
	fn       ProgressFunc
	min, max int64
}

func (f ProgressFunc) Progress() Progress {
	return &funcProgress{fn: f}
}

func (p *funcProgress) SetRange(min, max int64) { p.min, p.max = min, max }
func (p *funcProgress) SetValue(v int64)        { p.fn(v, p.min, p.max) }
func (p *funcProgress) Canceled() bool          { return false }

type ctxProgress struct {
	Progress
	ctx context.Context
}

// WithContext cancels when ctx is done or when p itself cancels.
func WithContext(ctx context.Context, p Progress) Progress {
	return &ctxProgress{Progress: orNop(p), ctx: ctx}
}

func (c *ctxProgress) Canceled() bool {
	return c.ctx.Err() != nil || c.Progress.Canceled()
}
