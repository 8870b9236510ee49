// Package analysis provides signal tools over per-line bit densities.
//
// A channel's density series (one value per display line) exposes framing
// structure that is hard to see in the raster itself:
//
//   - [PowerSpectrum]: magnitude spectrum of a density series
//   - [DominantPeriod]: strongest repetition, in lines
//   - [Describe]: mean and spread of a series
//
// # Multiframe Detection
//
// A slot that carries a multiframe alignment pattern repeats every few
// lines, which shows up as a spectral peak:
//
//	d, _ := engine.Density(0, engine.AllLines(), nil)
//	period, _ := analysis.DominantPeriod(analysis.PowerSpectrum(d), len(d))
package analysis
