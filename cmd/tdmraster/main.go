package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/tdmraster/internal/analysis"
	"github.com/san-kum/tdmraster/internal/automation"
	"github.com/san-kum/tdmraster/internal/config"
	"github.com/san-kum/tdmraster/internal/manifest"
	"github.com/san-kum/tdmraster/internal/raster"
	"github.com/san-kum/tdmraster/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Session
	configFile string
	preset     string
	verbose    bool
	// Stream
	encoding string
	invert   bool
	mode     string
	rgb      bool
	// Framing, each an arithmetic expression
	tsExpr     string
	bptsExpr   string
	bplExpr    string
	fplExpr    string
	offsetExpr string
	zoomExpr   string
	rbppExpr   string
	gbppExpr   string
	bbppExpr   string
	// Viewport
	width   int
	height  int
	vOffset int64
	hOffset int
	theme   string
	// Exports
	kind          string
	scale         int
	visible       bool
	channels      string
	writeManifest bool
	jsonOut       bool
	// Sweeps
	sweepParam   string
	sweepFrom    int64
	sweepTo      int64
	sweepStep    int64
	sweepChannel int
	maxLines     int64
)

var log = logrus.New()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tdmraster",
		Short: "bit raster viewer for TDM and binary captures",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(os.Stderr)
			log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
			log.SetLevel(logrus.InfoLevel)
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "session file (yaml)")
	pf.StringVar(&preset, "preset", "", "start from a named preset")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&encoding, "encoding", config.DefaultEncoding, "file encoding: packed (bit per bit) or expanded (byte per bit)")
	pf.BoolVar(&invert, "invert", false, "invert every bit")
	pf.StringVar(&mode, "mode", config.DefaultMode, "framing: tdm or bin")
	pf.BoolVar(&rgb, "color", false, "pack rbpp+gbpp+bbpp bits into each pixel")
	pf.StringVar(&tsExpr, "ts", "32", "time slots per frame")
	pf.StringVar(&bptsExpr, "bpts", "1", "bits per time slot")
	pf.StringVar(&bplExpr, "bpl", "", "bits per line (bin mode)")
	pf.StringVar(&fplExpr, "fpl", "15", "frames per line")
	pf.StringVar(&offsetExpr, "offset", "0", "bit offset into the file")
	pf.StringVar(&zoomExpr, "zoom", "1", "zoom factor")
	pf.StringVar(&rbppExpr, "rbpp", "0", "red bits per pixel")
	pf.StringVar(&gbppExpr, "gbpp", "1", "green bits per pixel")
	pf.StringVar(&bbppExpr, "bbpp", "0", "blue bits per pixel")
	pf.IntVar(&width, "width", config.DefaultWidth, "viewport width in pixels")
	pf.IntVar(&height, "height", config.DefaultHeight, "viewport height in pixels")
	pf.Int64Var(&vOffset, "voffset", 0, "first visible line")
	pf.IntVar(&hOffset, "hoffset", 0, "first visible pixel column")

	viewCmd := &cobra.Command{
		Use:   "view [file]",
		Short: "interactive terminal viewer",
		Args:  cobra.ExactArgs(1),
		RunE:  runView,
	}
	viewCmd.Flags().StringVar(&theme, "theme", config.DefaultTheme, "color theme")

	infoCmd := &cobra.Command{
		Use:   "info [file]",
		Short: "show the raster geometry",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}
	infoCmd.Flags().BoolVar(&jsonOut, "json", false, "print as JSON")

	rasterCmd := &cobra.Command{
		Use:   "raster [file] [out]",
		Short: "export a raster image (png, bmp, tiff, svg)",
		Args:  cobra.ExactArgs(2),
		RunE:  runRaster,
	}
	rasterCmd.Flags().StringVar(&kind, "kind", "viewable", "viewable, horizontal, vertical or entire")
	rasterCmd.Flags().IntVar(&scale, "scale", 1, "integer upscale factor")

	csvCmd := &cobra.Command{
		Use:   "csv [file] [out]",
		Short: "export channel bits as CSV",
		Args:  cobra.ExactArgs(2),
		RunE:  runCSV,
	}

	dumpCmd := &cobra.Command{
		Use:   "dump [file] [out]",
		Short: "export the selected channels as raw packed bits",
		Args:  cobra.ExactArgs(2),
		RunE:  runDump,
	}

	for _, c := range []*cobra.Command{rasterCmd, csvCmd, dumpCmd} {
		c.Flags().BoolVar(&writeManifest, "manifest", false, "write a JSON sidecar next to the output")
	}
	for _, c := range []*cobra.Command{csvCmd, dumpCmd} {
		c.Flags().BoolVar(&visible, "visible", false, "export only the visible lines")
		c.Flags().StringVar(&channels, "channels", "all", "channels to export, e.g. 0,2,5-7")
	}

	probeCmd := &cobra.Command{
		Use:   "probe [file] [x] [y]",
		Short: "print the bits under a viewport pixel",
		Args:  cobra.ExactArgs(3),
		RunE:  runProbe,
	}

	densityCmd := &cobra.Command{
		Use:   "density [file] [ts]",
		Short: "plot the per-line set-bit density of a channel",
		Args:  cobra.ExactArgs(2),
		RunE:  runDensity,
	}
	densityCmd.Flags().BoolVar(&visible, "visible", false, "plot only the visible lines")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [file] [ts]",
		Short: "find the line period of a channel's bit density",
		Args:  cobra.ExactArgs(2),
		RunE:  runSpectrum,
	}
	spectrumCmd.Flags().BoolVar(&visible, "visible", false, "use only the visible lines")

	sweepCmd := &cobra.Command{
		Use:   "sweep [file]",
		Short: "scan a framing parameter for the steadiest channel",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&sweepParam, "param", "ts", "parameter to sweep: "+strings.Join(automation.SweepParams, ", "))
	sweepCmd.Flags().Int64Var(&sweepFrom, "from", 1, "first value")
	sweepCmd.Flags().Int64Var(&sweepTo, "to", 64, "last value")
	sweepCmd.Flags().Int64Var(&sweepStep, "step", 1, "increment")
	sweepCmd.Flags().IntVar(&sweepChannel, "channel", 0, "channel to measure")
	sweepCmd.Flags().Int64Var(&maxLines, "max-lines", 1000, "lines measured per value, 0 for all")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run the exports of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	historyCmd := &cobra.Command{
		Use:   "history [dir]",
		Short: "list exports recorded with --manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listHistory,
	}

	saveCmd := &cobra.Command{
		Use:   "save-config [file] [out.yaml]",
		Short: "write the resolved session to a config file",
		Args:  cobra.ExactArgs(2),
		RunE:  saveConfig,
	}

	rootCmd.AddCommand(viewCmd, infoCmd, rasterCmd, csvCmd, dumpCmd, probeCmd, densityCmd, spectrumCmd, sweepCmd, batchCmd, presetsCmd, historyCmd, saveCmd)
	return rootCmd
}

func runView(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	// Log lines would tear the alternate screen.
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	s.engine.Log = quiet

	return viz.Run(s.engine, s.cfg.Viewport(), s.cfg.View.Theme)
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	p := s.engine.Params()
	g := s.engine.Geometry()
	size := s.engine.Stream().SizeBit()

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			File     string `json:"file"`
			Encoding string `json:"encoding"`
			Invert   bool   `json:"invert"`
			SizeBits int64  `json:"size_bits"`
			Params   any    `json:"params"`
			Geometry any    `json:"geometry"`
		}{s.engine.Stream().Name(), s.cfg.Encoding, s.cfg.Invert, size, p, g})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "file\t%s\n", s.engine.Stream().Name())
	fmt.Fprintf(w, "encoding\t%s\n", s.cfg.Encoding)
	fmt.Fprintf(w, "invert\t%v\n", s.cfg.Invert)
	fmt.Fprintf(w, "size\t%d bits\n", size)
	fmt.Fprintf(w, "framing\tts=%d bpts=%d fpl=%d offset=%d\n", p.TS, p.BPTS, p.FPL, p.Offset)
	fmt.Fprintf(w, "layout\t%s (r%d g%d b%d)\n", p.Layout, p.RBPP, p.GBPP, p.BBPP)
	fmt.Fprintf(w, "line\t%d bits\n", g.TotalBitWidth)
	fmt.Fprintf(w, "frame\t%d bits\n", g.FrameBitWidth)
	fmt.Fprintf(w, "channel\t%d bits, %d px + separator\n", g.ChannelBitsPerLine, g.PixelsPerChannel)
	fmt.Fprintf(w, "raster\t%d x %d px\n", g.TotalPixelWidth, g.TotalPixelHeight)
	if rest := size - p.Offset - g.TotalPixelHeight*g.TotalBitWidth; rest > 0 {
		fmt.Fprintf(w, "trailing\t%d bits (partial line)\n", rest)
	}
	return w.Flush()
}

func runRaster(cmd *cobra.Command, args []string) error {
	return runExport(cmd, args, automation.ExportSpec{Format: "raster", Kind: kind, Scale: scale})
}

func runCSV(cmd *cobra.Command, args []string) error {
	return runExport(cmd, args, automation.ExportSpec{Format: "csv", Channels: channels, Visible: visible})
}

func runDump(cmd *cobra.Command, args []string) error {
	return runExport(cmd, args, automation.ExportSpec{Format: "dump", Channels: channels, Visible: visible})
}

func runExport(cmd *cobra.Command, args []string, spec automation.ExportSpec) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	spec.Output = args[1]
	sum, sel, err := automation.Export(s.engine, s.cfg.Viewport(), spec, s.progress(cmd))
	if err != nil {
		return err
	}

	switch {
	case sum.Canceled:
		fmt.Printf("canceled after %d lines, partial %s in %s\n", sum.Lines, spec.Format, spec.Output)
	case sel == nil:
		fmt.Printf("wrote %d lines of raster to %s\n", sum.Lines, spec.Output)
	default:
		fmt.Printf("wrote %d lines of %d channels to %s\n", sum.Lines, sel.Count(), spec.Output)
	}

	name := spec.Format
	if spec.Format == "raster" {
		name += "-" + strings.ToLower(spec.Kind)
	}
	return s.record(spec.Output, name, sel, sum)
}

func runProbe(cmd *cobra.Command, args []string) error {
	x, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid x: %w", err)
	}
	y, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid y: %w", err)
	}

	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := s.engine.Probe(x, y, s.cfg.Viewport())
	if err != nil {
		return err
	}
	fmt.Println(r)
	return nil
}

func runDensity(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	ts, err := config.EvalInt(args[1], config.ParamEnv(s.engine.Params()))
	if err != nil {
		return err
	}

	lines := s.engine.AllLines()
	if visible {
		lines = s.cfg.Viewport().VisibleLines()
	}
	data, err := s.engine.Density(int(ts), lines, s.progress(cmd))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("no complete lines to plot")
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(1),
		asciigraph.Caption(fmt.Sprintf("%s set-bit density, lines %d-%d", raster.ChannelLabel(int(ts)), lines.Start, lines.Start+int64(len(data))-1)),
	)
	fmt.Println(graph)
	return nil
}

func runSpectrum(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	ts, err := config.EvalInt(args[1], config.ParamEnv(s.engine.Params()))
	if err != nil {
		return err
	}
	lines := s.engine.AllLines()
	if visible {
		lines = s.cfg.Viewport().VisibleLines()
	}
	data, err := s.engine.Density(int(ts), lines, s.progress(cmd))
	if err != nil {
		return err
	}

	ps := analysis.PowerSpectrum(data)
	if len(ps) < 2 {
		return errors.New("not enough lines for a spectrum")
	}
	fmt.Println(asciigraph.Plot(ps[1:],
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s density spectrum, %d lines", raster.ChannelLabel(int(ts)), len(data))),
	))

	if period, ok := analysis.DominantPeriod(ps, len(data)); ok {
		fmt.Printf("dominant period: %.1f lines\n", period)
	} else {
		fmt.Println("no periodic structure")
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := automation.RunSweep(cmd.Context(), s.engine, automation.Sweep{
		Param:    sweepParam,
		From:     sweepFrom,
		To:       sweepTo,
		Step:     sweepStep,
		Channel:  sweepChannel,
		MaxLines: maxLines,
	}, s.log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tLINES\tMEAN\tSPREAD\n", strings.ToUpper(sweepParam))
	spreads := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Lines == 0 {
			fmt.Fprintf(w, "%d\t-\t-\t-\n", r.Value)
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%.4f\t%.4f\n", r.Value, r.Lines, r.Mean, r.Spread)
		spreads = append(spreads, r.Spread)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(spreads) > 1 {
		fmt.Println(asciigraph.Plot(spreads,
			asciigraph.Height(8),
			asciigraph.LowerBound(0),
			asciigraph.Caption(fmt.Sprintf("density spread of %s by %s", raster.ChannelLabel(sweepChannel), sweepParam)),
		))
	}
	best, ok := automation.Best(results)
	if !ok {
		return errors.New("no sweep value could be measured")
	}
	fmt.Printf("best: %s=%d (spread %.4f)\n", sweepParam, best.Value, best.Spread)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	log.WithField("scenario", sc.Name).WithField("steps", len(sc.Steps)).Info("running scenario")

	results, runErr := automation.RunScenario(cmd.Context(), sc, log)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tFORMAT\tOUTPUT\tLINES\tSTATUS")
	for _, r := range results {
		status := "complete"
		if r.Summary.Canceled {
			status = "canceled"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", r.Step, r.Format, r.Output, r.Summary.Lines, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tNAME\tENCODING\tTS\tBPTS\tFPL\tLAYOUT")
	for _, m := range config.Modes() {
		for _, name := range config.ListPresets(m) {
			cfg := config.GetPreset(m, name)
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				m, name, cfg.Encoding, cfg.Params.TS, cfg.Params.BPTS, cfg.Params.FPL, cfg.Params.Layout)
		}
	}
	return w.Flush()
}

func listHistory(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	list, err := manifest.List(dir)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no exports found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tKIND\tOUTPUT\tFILE\tTS\tBPTS\tFPL\tLINES\tSTATUS")
	for _, m := range list {
		status := "complete"
		if m.Canceled {
			status = "canceled"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			m.Timestamp.Format("2006-01-02 15:04:05"),
			m.Kind,
			m.Output,
			m.File,
			m.Params.TS,
			m.Params.BPTS,
			m.Params.FPL,
			m.Lines,
			status,
		)
	}
	return w.Flush()
}

func saveConfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if err := config.Save(args[1], cfg); err != nil {
		return err
	}
	log.WithField("path", args[1]).Info("session saved")
	return nil
}
