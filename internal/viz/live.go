package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/metrics"
	"github.com/san-kum/ballpit/internal/sim"
)

const (
	width           = 80
	height          = 24
	statsWidth      = 40
	historyCapacity = 300
	fpsWindow       = 20
	maxSpawnCount   = 100
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Factory builds a fresh engine. Reset calls it again since particles are
// never removed from a running engine.
type Factory func() (*sim.Engine, error)

// Model holds the engine handle and everything needed to draw it.
type Model struct {
	factory    Factory
	engine     *sim.Engine
	kinetic    *metrics.KineticEnergy
	frameDt    float64
	spawnAt    dynamo.Vec
	spawnCount int
	running    bool
	canvas     *Canvas
	theme      Theme
	history    []float64
	fps        *metrics.RollingMean
	lastTick   time.Time
	err        error
}

// NewModel starts from factory's engine. The engine is stepped by frameDt
// per tick regardless of wall-clock jitter.
func NewModel(factory Factory, frameDt float64, spawnAt dynamo.Vec) (Model, error) {
	m := Model{
		factory:    factory,
		frameDt:    frameDt,
		spawnAt:    spawnAt,
		spawnCount: 1,
		running:    true,
		canvas:     NewCanvas(width, height),
		theme:      Themes[0],
		history:    make([]float64, 0, historyCapacity),
		fps:        metrics.NewRollingMean(fpsWindow),
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

// Engine exposes the current engine, which changes after a reset.
func (m Model) Engine() *sim.Engine { return m.engine }

func (m Model) SpawnCount() int { return m.spawnCount }
func (m Model) Running() bool   { return m.running }

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.engine.Spawn(m.spawnAt, m.spawnCount)
		case "+", "=":
			if m.spawnCount < maxSpawnCount {
				m.spawnCount++
			}
		case "-", "_":
			if m.spawnCount > 1 {
				m.spawnCount--
			}
		case "p":
			m.running = !m.running
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "t":
			m.theme = nextTheme(m.theme)
		}
	case tea.WindowSizeMsg:
		w, h := msg.Width-statsWidth-6, msg.Height-4
		if w > 10 && h > 5 {
			m.canvas = NewCanvas(w, h)
		}
	case TickMsg:
		now := time.Time(msg)
		if !m.lastTick.IsZero() {
			if dt := now.Sub(m.lastTick).Seconds(); dt > 0 {
				m.fps.Push(1 / dt)
			}
		}
		m.lastTick = now
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	m.engine.Step(m.frameDt)
	m.history = append(m.history, m.kinetic.Last())
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

func (m *Model) reset() error {
	eng, err := m.factory()
	if err != nil {
		return err
	}
	m.kinetic = metrics.NewKineticEnergy()
	eng.AddMetric(m.kinetic)
	m.engine = eng
	m.history = m.history[:0]
	m.err = nil
	return nil
}

func (m *Model) draw() {
	cfg := m.engine.Config()
	m.canvas.Clear()
	m.canvas.Frame()
	for _, p := range m.engine.Positions() {
		m.canvas.Plot(p.X, p.Y, cfg.DomainWidth, cfg.DomainHeight)
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()

	particles := lipgloss.NewStyle().Foreground(m.theme.Particles)
	canvasView := canvasStyle.Render(particles.Render(m.canvas.String()))

	header := lipgloss.NewStyle().Foreground(m.theme.Accent).Bold(true).MarginBottom(1)
	status := lipgloss.NewStyle().Foreground(m.theme.Accent).Render("RUNNING")
	if !m.running {
		status = lipgloss.NewStyle().Foreground(m.theme.Warning).Render("PAUSED")
	}

	var s strings.Builder
	s.WriteString(header.Render("BALLPIT") + "\n")
	s.WriteString(status + "\n\n")
	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic"))
		s.WriteString(lipgloss.NewStyle().Foreground(m.theme.Accent).Render(chart) + "\n\n")
	}

	st := m.engine.LastStats()
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("FPS", fmt.Sprintf("%.0f", m.fps.Mean()))
	row("Balls", fmt.Sprintf("%d", m.engine.ParticleCount()))
	row("Frame", fmt.Sprintf("%d", m.engine.Frame()))
	row("Spawn count", fmt.Sprintf("%d", m.spawnCount))
	row("Corrections", fmt.Sprintf("%d", st.Corrections))
	row("Wall hits", fmt.Sprintf("%d", st.Clamped))
	row("Kinetic", fmt.Sprintf("%.4f", m.kinetic.Last()))
	row("Theme", m.theme.Name)
	if m.err != nil {
		s.WriteString(lipgloss.NewStyle().Foreground(m.theme.Warning).Render(m.err.Error()) + "\n")
	}

	help := lipgloss.NewStyle().Foreground(m.theme.Muted).Inherit(helpStyle)
	s.WriteString(help.Render("─────────────────────\nSP:Spawn +/-:Count P:Pause\nR:Reset T:Theme Q:Quit"))

	stats := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(m.theme.Border).
		Padding(1, 2).
		Width(statsWidth)
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, stats.Render(s.String()))
}
