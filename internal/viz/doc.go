// Package viz provides the terminal viewer for bit captures.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [Model]: the viewer, painting a [raster.Engine] into a canvas
//   - [Canvas]: Braille-based render target implementing draw.Image
//   - Theme selection with 4 built-in color schemes
//
// # Key Bindings
//
//	Arrows/HJKL - Scroll by line or column
//	+/-         - Zoom
//	Tab [ ]     - Tune ts, bpts, fpl and offset
//	Click       - Probe the channel under the mouse
//	S           - Save the view as PNG
//	T           - Cycle color themes
//	?           - Show help overlay
package viz
