package viz

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/tdmraster/internal/raster"
)

const (
	maxZoom     = 16
	wheelLines  = 3
	probeRows   = 4
	sparkWidth  = statsWidth - 4
	minCanvasWH = 1
)

// Model is the Bubble Tea viewer over one engine. The viewport is measured
// in canvas dots, two per cell horizontally and four vertically.
type Model struct {
	engine    *raster.Engine
	canvas    *Canvas
	vp        raster.Viewport
	theme     Theme
	st        styles
	paramKeys []string
	selected  int
	probe     *raster.ProbeResult
	density   []float64
	status    string
	err       error
	showHelp  bool
	outDir    string
}

// NewModel sizes the canvas from vp, rounding up to whole cells.
func NewModel(e *raster.Engine, vp raster.Viewport, theme string) Model {
	if vp.Zoom < 1 {
		vp.Zoom = 1
	}
	t := GetTheme(theme)
	m := Model{
		engine:    e,
		vp:        vp,
		theme:     t,
		st:        newStyles(t),
		paramKeys: []string{"ts", "bpts", "fpl", "offset"},
		outDir:    ".",
	}
	m.resize((vp.Width+1)/2, (vp.Height+3)/4)
	return m
}

// SetOutputDir sets where snapshots are written.
func (m *Model) SetOutputDir(dir string) { m.outDir = dir }

func (m Model) Viewport() raster.Viewport { return m.vp }

func (m Model) Init() tea.Cmd { return nil }

// Update handles input events and repaints after every change.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width-statsWidth-4, msg.Height-1)
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.scrollLines(-wheelLines)
		case tea.MouseButtonWheelDown:
			m.scrollLines(wheelLines)
		case tea.MouseButtonLeft:
			if msg.Action == tea.MouseActionPress {
				m.probeAt((msg.X-1)*2, msg.Y*4)
			}
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.scrollLines(-1)
		case "down", "j":
			m.scrollLines(1)
		case "pgup":
			m.scrollLines(-m.vp.VisibleLines().Count)
		case "pgdown", " ":
			m.scrollLines(m.vp.VisibleLines().Count)
		case "home", "g":
			m.scrollLines(-m.vp.VOffset)
		case "end", "G":
			m.scrollLines(m.engine.Geometry().VerticalMaximum())
		case "left", "h":
			m.scrollColumns(-1)
		case "right", "l":
			m.scrollColumns(1)
		case "<", ",":
			m.scrollColumns(-m.engine.Geometry().ChannelPixelWidth)
		case ">", ".":
			m.scrollColumns(m.engine.Geometry().ChannelPixelWidth)
		case "+", "=":
			m.setZoom(m.vp.Zoom + 1)
		case "-", "_":
			m.setZoom(m.vp.Zoom - 1)
		case "tab":
			m.selected = (m.selected + 1) % len(m.paramKeys)
		case "]":
			m.adjustParam(1)
		case "[":
			m.adjustParam(-1)
		case "c":
			m.probe, m.density = nil, nil
		case "s":
			m.snapshot()
		case "t":
			m.theme = m.theme.Next()
			m.st = newStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	}
	m.redraw()
	return m, nil
}

func (m *Model) resize(cols, rows int) {
	cols = max(cols, minCanvasWH)
	rows = max(rows, minCanvasWH)
	if m.canvas != nil && m.canvas.Width == cols && m.canvas.Height == rows {
		return
	}
	m.canvas = NewCanvas(cols, rows)
	b := m.canvas.Bounds()
	m.vp.Width, m.vp.Height = b.Dx(), b.Dy()
	m.redraw()
}

func (m *Model) redraw() {
	m.canvas.Clear()
	if err := m.engine.Paint(m.canvas, m.vp.VOffset, m.vp.HOffset, m.vp.Zoom, nil); err != nil {
		m.err = err
	}
}

func (m *Model) scrollLines(n int64) {
	top := max(m.engine.Geometry().VerticalMaximum()-1, 0)
	m.vp.VOffset = min(max(m.vp.VOffset+n, 0), top)
}

func (m *Model) scrollColumns(n int) {
	right := max(m.engine.Geometry().HorizontalMaximum()-1, 0)
	m.vp.HOffset = min(max(m.vp.HOffset+n, 0), right)
}

func (m *Model) setZoom(z int) {
	m.vp.Zoom = min(max(z, 1), maxZoom)
}

// adjustParam steps the selected framing parameter. A rejected value
// leaves the engine unchanged and is reported in the panel.
func (m *Model) adjustParam(delta int) {
	p := m.engine.Params()
	switch m.paramKeys[m.selected] {
	case "ts":
		p.TS += delta
	case "bpts":
		p.BPTS += delta
	case "fpl":
		p.FPL += delta
	case "offset":
		p.Offset += int64(delta)
	}
	if err := m.engine.SetParams(p); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.scrollLines(0)
	m.scrollColumns(0)
	if m.probe != nil {
		m.refreshProbe(m.probe.TS, m.probe.Line)
	}
}

func (m *Model) probeAt(x, y int) {
	r, err := m.engine.Probe(x, y, m.vp)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = ""
	m.setProbe(r)
}

func (m *Model) refreshProbe(ts int, line int64) {
	r, err := m.engine.ProbeLine(ts, line)
	if err != nil {
		m.probe, m.density = nil, nil
		return
	}
	m.setProbe(r)
}

func (m *Model) setProbe(r raster.ProbeResult) {
	m.probe = &r
	m.density, _ = m.engine.Density(r.TS, m.vp.VisibleLines(), nil)
}

func (m *Model) snapshot() {
	name := fmt.Sprintf("%s-%d.png", m.engine.Stream().Name(), m.vp.VOffset)
	path := filepath.Join(m.outDir, name)
	if err := m.engine.SaveRaster(path, raster.Viewable, m.vp, 1, nil); err != nil {
		m.err = err
		return
	}
	m.status = "saved " + path
}

func (m Model) View() string {
	canvasView := m.st.canvas.Render(m.canvas.Render(m.theme.Foreground))

	g := m.engine.Geometry()
	p := m.engine.Params()
	var s strings.Builder
	s.WriteString(m.st.header.Render(truncate(m.engine.Stream().Name(), statsWidth-2)) + "\n")

	pos := 0.0
	if g.TotalPixelHeight > 1 {
		pos = float64(m.vp.VOffset) / float64(g.TotalPixelHeight-1)
	}
	s.WriteString(m.st.progressBar(pos, statsWidth-4) + "\n\n")

	row := func(label, value string) {
		s.WriteString(m.st.label.Render(label) + m.st.value.Render(value) + "\n")
	}
	row("Line", fmt.Sprintf("%d / %d", m.vp.VOffset, g.TotalPixelHeight))
	row("Column", fmt.Sprintf("%d / %d", m.vp.HOffset, g.TotalPixelWidth))
	row("Zoom", fmt.Sprintf("%dx", m.vp.Zoom))
	row("Channel", fmt.Sprintf("%d px, %d bits", g.ChannelPixelWidth, g.ChannelBitsPerLine))
	row("Layout", p.Layout.String())

	s.WriteString("\nPARAMETERS\n")
	for i, k := range m.paramKeys {
		var v int64
		switch k {
		case "ts":
			v = int64(p.TS)
		case "bpts":
			v = int64(p.BPTS)
		case "fpl":
			v = int64(p.FPL)
		case "offset":
			v = p.Offset
		}
		line := fmt.Sprintf("%-8s %d", k, v)
		if i == m.selected {
			s.WriteString(m.st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + m.st.value.Render(line) + "\n")
		}
	}

	if m.probe != nil {
		s.WriteString("\nPROBE\n")
		s.WriteString(m.st.active.Render(truncate(m.probe.Label(), statsWidth-2)) + "\n")
		for i, chunk := range chunks(m.probe.Bits, statsWidth-4) {
			if i == probeRows {
				s.WriteString(m.st.label.Render("…") + "\n")
				break
			}
			s.WriteString(m.st.value.Render(chunk) + "\n")
		}
		s.WriteString(m.st.sparkline(m.density, sparkWidth) + "\n")
	}

	if m.err != nil {
		s.WriteString("\n" + m.st.err.Render(truncate(m.err.Error(), statsWidth-2)) + "\n")
	} else if m.status != "" {
		s.WriteString("\n" + m.st.label.Render(truncate(m.status, statsWidth-2)) + "\n")
	}

	s.WriteString(m.st.help.Render("Q:Quit ?:Help T:Theme S:Save\n↑↓←→:Scroll +-:Zoom Tab [ ]:Tune"))
	statsView := m.st.stats.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Up/K Down/J  - Scroll one line      ║
║  PgUp PgDn    - Scroll one page      ║
║  Home/G End   - First / last line    ║
║  Left/H Right/L - Scroll one column  ║
║  < >          - Scroll one channel   ║
║  + -          - Zoom in / out        ║
║  Tab          - Select parameter     ║
║  [ ]          - Decrease / increase  ║
║  Click        - Probe channel bits   ║
║  C            - Clear probe          ║
║  S            - Save view as PNG     ║
║  T            - Cycle themes         ║
║  Q            - Quit                 ║
╚══════════════════════════════════════╝`

func chunks(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// Run starts the viewer full screen with mouse support.
func Run(e *raster.Engine, vp raster.Viewport, theme string) error {
	_, err := tea.NewProgram(NewModel(e, vp, theme), tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}
