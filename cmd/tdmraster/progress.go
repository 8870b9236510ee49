package main

import (
	"github.com/san-kum/tdmraster/internal/raster"
	"github.com/sirupsen/logrus"
)

// newLogProgress logs roughly every tenth of the range at debug level.
func newLogProgress(log logrus.FieldLogger) raster.Progress {
	var lo, hi, next int64
	return raster.ProgressFunc(func(v, min, max int64) {
		if min != lo || max != hi {
			lo, hi, next = min, max, min
		}
		if v < next {
			return
		}
		log.WithFields(logrus.Fields{"line": v, "of": hi}).Debug("progress")
		step := (hi - lo) / 10
		if step < 1 {
			step = 1
		}
		next = v + step
	}).Progress()
}
