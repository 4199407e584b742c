package tui

import (
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/mondrian/internal/status"
)

func setupModel(t *testing.T, mode Mode, width, height int) Model {
	t.Helper()
	m := NewModel(mode)
	newM, cmd := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	assert.Nil(t, cmd)
	return newM.(Model)
}

func isQuit(t *testing.T, cmd tea.Cmd) bool {
	t.Helper()
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModelStartsGood(t *testing.T) {
	m := NewModel(ModeFullscreen)
	for _, c := range status.Categories {
		assert.Equal(t, status.Good, m.Board().Levels[c], c)
	}
	assert.True(t, m.Board().UpdatedAt.IsZero())
	assert.Nil(t, m.Init())
}

func TestLevelMsgUpdatesOneRegion(t *testing.T) {
	m := setupModel(t, ModeFullscreen, 100, 40)
	at := time.Date(2024, 3, 5, 10, 15, 0, 0, time.Local)
	before := m.Board()

	newM, cmd := m.Update(LevelMsg{Category: status.CategoryCITests, Level: status.Bad, At: at})
	m = newM.(Model)

	assert.Nil(t, cmd)
	assert.Equal(t, status.Bad, m.Board().Levels[status.CategoryCITests])
	assert.Equal(t, status.Good, m.Board().Levels[status.CategoryBuild])
	assert.Equal(t, at, m.Board().UpdatedAt)
	assert.Equal(t, status.Good, before.Levels[status.CategoryCITests], "earlier boards are not mutated")
	assert.Contains(t, m.View(), "updated 10:15:00")
}

func TestQuitKeys(t *testing.T) {
	keys := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	}
	for _, k := range keys {
		t.Run(k.String(), func(t *testing.T) {
			m := setupModel(t, ModeFullscreen, 80, 24)
			_, cmd := m.Update(k)
			assert.True(t, isQuit(t, cmd))
		})
	}

	m := setupModel(t, ModeFullscreen, 80, 24)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.False(t, isQuit(t, cmd))
}

func TestShutdownQuits(t *testing.T) {
	m := setupModel(t, ModeWindow, 80, 24)
	newM, cmd := m.Update(ShutdownMsg{})
	m = newM.(Model)

	assert.True(t, isQuit(t, cmd))
	assert.True(t, m.Board().Stopped)
	assert.Contains(t, m.View(), "monitor stopped")
}

func TestSplit(t *testing.T) {
	tests := []struct {
		total   int
		weights []int
		want    []int
	}{
		{total: 25, weights: columnWeights, want: []int{2, 16, 7}},
		{total: 50, weights: columnWeights, want: []int{4, 32, 14}},
		{total: 23, weights: rowWeights, want: []int{2, 18, 3}},
		{total: 5, weights: testWeights, want: []int{3, 2}},
		{total: 16, weights: reviewWeights, want: []int{9, 7}},
		{total: 0, weights: columnWeights, want: []int{0, 0, 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, split(tt.total, tt.weights...))
	}

	for total := 1; total < 200; total++ {
		sum := 0
		for _, p := range split(total, columnWeights...) {
			assert.GreaterOrEqual(t, p, 0)
			sum += p
		}
		assert.Equal(t, total, sum)
	}
}

func TestGridFillsTerminal(t *testing.T) {
	sizes := [][2]int{{100, 46}, {80, 24}, {50, 23}, {200, 60}}
	for _, sz := range sizes {
		w, h := sz[0], sz[1]
		grid := renderGrid(NewBoard(), w, h)
		assert.Equal(t, w, lipgloss.Width(grid), "width for %dx%d", w, h)
		assert.Equal(t, h, lipgloss.Height(grid), "height for %dx%d", w, h)
	}
}

func TestViewShowsRegionLabels(t *testing.T) {
	m := setupModel(t, ModeFullscreen, 200, 60)
	view := m.View()
	for _, c := range status.Categories {
		assert.Contains(t, view, string(c))
	}
	assert.Contains(t, view, "waiting for first poll")
	assert.Equal(t, 60, lipgloss.Height(view))
}

func TestPanelTruncatesLabel(t *testing.T) {
	out := panel(8, 3, status.Bad, "ready-for-review")
	assert.NotContains(t, out, "ready-for-review")
	assert.Contains(t, out, "ready…")
	assert.Equal(t, 8, lipgloss.Width(out))
	assert.Empty(t, panel(0, 5, status.Good, "x"))
}

func TestOverlayIsSmallTopRight(t *testing.T) {
	m := setupModel(t, ModeOverlay, 200, 100)
	view := m.View()
	lines := strings.Split(view, "\n")
	require.NotEmpty(t, lines)

	w, h := overlaySize(200, 100)
	assert.Equal(t, 40, w)
	assert.Equal(t, 20, h)

	// grid sits on the first rows, hugging the right edge
	require.Greater(t, len(lines), h)
	indent := strings.Repeat(" ", 200-w-overlayEdgeMargin)
	row := slices.IndexFunc(lines[:h], func(l string) bool { return strings.Contains(l, "build") })
	require.NotEqual(t, -1, row, "build region within the first %d rows", h)
	assert.True(t, strings.HasPrefix(lines[row], indent))
	assert.GreaterOrEqual(t, strings.Index(lines[row], "build"), len(indent))
	assert.Equal(t, 200-overlayEdgeMargin, lipgloss.Width(lines[0]))
	assert.Empty(t, strings.TrimSpace(lines[h]))
	assert.NotContains(t, view, "q:quit")
}

func TestOverlayMinimumSize(t *testing.T) {
	w, h := overlaySize(80, 24)
	assert.Equal(t, overlayMinWidth, w)
	assert.Equal(t, overlayMinHeight, h)

	w, h = overlaySize(10, 5)
	assert.Equal(t, 10, w)
	assert.Equal(t, 5, h)
}

func TestViewBeforeResizeIsEmpty(t *testing.T) {
	assert.Empty(t, NewModel(ModeFullscreen).View())
}

type fakeSender struct {
	msgs []tea.Msg
}

func (f *fakeSender) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestProgramSink(t *testing.T) {
	sender := &fakeSender{}
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	sink := NewProgramSink(sender)
	sink.now = func() time.Time { return at }

	sink.Publish(status.CategoryReviewed, status.AlmostBad)
	sink.PublishShutdown()

	assert.Equal(t, []tea.Msg{
		LevelMsg{Category: status.CategoryReviewed, Level: status.AlmostBad, At: at},
		ShutdownMsg{},
	}, sender.msgs)
}
