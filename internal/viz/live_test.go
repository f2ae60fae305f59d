package viz

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/sim"
)

func testFactory() (*sim.Engine, error) {
	cfg := dynamo.DefaultConfig()
	cfg.WorkerCount = 2
	return sim.New(cfg)
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	return m
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	m, err := NewModel(testFactory, 1.0/60, dynamo.Vec{X: 100, Y: 100})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

func TestSpawnKeys(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, " ")
	if got := m.Engine().ParticleCount(); got != 1 {
		t.Errorf("expected 1 particle, got %d", got)
	}

	m = press(t, m, "+", "+", " ")
	if m.SpawnCount() != 3 {
		t.Errorf("expected spawn count 3, got %d", m.SpawnCount())
	}
	if got := m.Engine().ParticleCount(); got != 4 {
		t.Errorf("expected 4 particles, got %d", got)
	}

	m = press(t, m, "-", "-", "-", "-")
	if m.SpawnCount() != 1 {
		t.Errorf("spawn count should not drop below 1, got %d", m.SpawnCount())
	}
}

func TestPauseStopsStepping(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, " ")

	next, cmd := m.Update(TickMsg(time.Now()))
	m = next.(Model)
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	if m.Engine().Frame() != 1 {
		t.Fatalf("expected 1 frame, got %d", m.Engine().Frame())
	}

	m = press(t, m, "p")
	if m.Running() {
		t.Fatal("expected paused")
	}
	next, _ = m.Update(TickMsg(time.Now()))
	m = next.(Model)
	if m.Engine().Frame() != 1 {
		t.Errorf("paused model stepped to frame %d", m.Engine().Frame())
	}
}

func TestResetBuildsFreshEngine(t *testing.T) {
	m := newTestModel(t)
	old := m.Engine()
	m = press(t, m, " ", " ", "r")

	if m.Engine() == old {
		t.Error("reset should replace the engine")
	}
	if m.Engine().ParticleCount() != 0 {
		t.Errorf("expected empty engine, got %d particles", m.Engine().ParticleCount())
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t)
	for _, k := range []string{"q", "esc"} {
		var msg tea.KeyMsg
		if k == "esc" {
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		} else {
			msg = key(k)
		}
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected QuitMsg", k)
		}
	}
}

func TestViewShowsCount(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "+", " ")
	for i := 0; i < 3; i++ {
		next, _ := m.Update(TickMsg(time.Now().Add(time.Duration(i) * time.Second / 60)))
		m = next.(Model)
	}

	out := m.View()
	if !strings.Contains(out, "BALLPIT") {
		t.Error("missing header")
	}
	if !strings.Contains(out, "Balls") {
		t.Error("missing particle count row")
	}
}

func TestFactoryError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewModel(func() (*sim.Engine, error) { return nil, boom }, 1.0/60, dynamo.Vec{})
	if !errors.Is(err, boom) {
		t.Errorf("expected factory error, got %v", err)
	}
}

func TestThemeCycle(t *testing.T) {
	m := newTestModel(t)
	first := m.theme.Name
	for range Themes {
		m = press(t, m, "t")
	}
	if m.theme.Name != first {
		t.Errorf("expected to cycle back to %s, got %s", first, m.theme.Name)
	}
	if GetTheme("nope").Name != Themes[0].Name {
		t.Error("unknown theme should fall back to the first")
	}
}
