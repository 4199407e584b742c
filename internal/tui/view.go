package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/marcin-skalski/mondrian/internal/status"
)

// Proportions of the grid. The middle column of the middle row is the build
// region; the right column of that row stacks ci-tests over other-tests; the
// middle column of the bottom row holds the two review regions side by side.
var (
	columnWeights     = []int{2, 16, 7}
	rowWeights        = []int{2, 18, 3}
	testWeights       = []int{3, 2}
	reviewWeights     = []int{9, 7}
	overlayFraction   = 0.2
	overlayMinWidth   = 25
	overlayMinHeight  = 12
	overlayEdgeMargin = 1
)

// split divides total cells by weights. The parts always sum to total.
func split(total int, weights ...int) []int {
	sum := 0
	for _, w := range weights {
		sum += w
	}
	parts := make([]int, len(weights))
	if total <= 0 || sum == 0 {
		return parts
	}

	acc, prev := 0, 0
	for i, w := range weights {
		acc += w
		edge := total * acc / sum
		parts[i] = edge - prev
		prev = edge
	}
	return parts
}

// panel renders a w×h block filled with the level's colour and outlined in
// black when there is room for a border.
func panel(w, h int, level status.Level, label string) string {
	if w <= 0 || h <= 0 {
		return ""
	}

	style := panelStyle(level)
	if w >= 3 && h >= 3 {
		style = style.
			Border(lipgloss.NormalBorder()).
			BorderForeground(colorLine).
			BorderBackground(levelColor(level))
		w -= 2
		h -= 2
	}

	if runewidth.StringWidth(label) > w {
		label = runewidth.Truncate(label, w, "…")
	}
	return style.Width(w).Height(h).Render(label)
}

// joinHorizontal skips empty blocks so zero-width regions take no space.
func joinHorizontal(blocks ...string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, nonEmpty(blocks)...)
}

// joinVertical skips empty blocks so zero-height regions take no lines.
func joinVertical(blocks ...string) string {
	return lipgloss.JoinVertical(lipgloss.Left, nonEmpty(blocks)...)
}

func nonEmpty(blocks []string) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}

// renderGrid lays out the five status regions and the blank filler panels.
func renderGrid(board Board, width, height int) string {
	cols := split(width, columnWeights...)
	rows := split(height, rowWeights...)
	blank := func(w, h int) string { return panel(w, h, status.Good, "") }
	region := func(c status.Category, w, h int) string {
		return panel(w, h, board.Levels[c], string(c))
	}

	top := joinHorizontal(
		blank(cols[0], rows[0]),
		blank(cols[1], rows[0]),
		blank(cols[2], rows[0]),
	)

	tests := split(rows[1], testWeights...)
	middle := joinHorizontal(
		blank(cols[0], rows[1]),
		region(status.CategoryBuild, cols[1], rows[1]),
		joinVertical(
			region(status.CategoryCITests, cols[2], tests[0]),
			region(status.CategoryOtherTests, cols[2], tests[1]),
		),
	)

	reviews := split(cols[1], reviewWeights...)
	bottom := joinHorizontal(
		blank(cols[0], rows[2]),
		region(status.CategoryReadyForReview, reviews[0], rows[2]),
		region(status.CategoryReviewed, reviews[1], rows[2]),
		blank(cols[2], rows[2]),
	)

	return joinVertical(top, middle, bottom)
}

func renderFooter(board Board, width int) string {
	if board.Stopped {
		return stoppedStyle.Render(runewidth.Truncate("monitor stopped", width, "…"))
	}

	var b strings.Builder
	b.WriteString("mondrian")
	if board.UpdatedAt.IsZero() {
		b.WriteString(" │ waiting for first poll")
	} else {
		fmt.Fprintf(&b, " │ updated %s", board.UpdatedAt.Format("15:04:05"))
	}
	b.WriteString(" │ q:quit")

	return footerStyle.Render(runewidth.Truncate(b.String(), width, "…"))
}

// overlaySize is the grid size used in overlay mode: a fifth of the terminal,
// never smaller than what keeps every region visible.
func overlaySize(width, height int) (int, int) {
	w := max(int(float64(width)*overlayFraction), overlayMinWidth)
	h := max(int(float64(height)*overlayFraction), overlayMinHeight)
	return min(w, width), min(h, height)
}

func renderView(board Board, mode Mode, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	if mode == ModeOverlay {
		w, h := overlaySize(width, height)
		grid := renderGrid(board, w, h)
		margin := 0
		if width-w > overlayEdgeMargin {
			margin = overlayEdgeMargin
		}
		return lipgloss.Place(width-margin, height, lipgloss.Right, lipgloss.Top, grid)
	}

	if height < 2 {
		return renderGrid(board, width, height)
	}
	return joinVertical(renderGrid(board, width, height-1), renderFooter(board, width))
}
