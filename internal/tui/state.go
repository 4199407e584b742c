package tui

import (
	"time"

	"github.com/marcin-skalski/mondrian/internal/status"
)

// Board holds the last level published for every category. Regions start
// Good (white) until the first poll completes.
type Board struct {
	Levels    map[status.Category]status.Level
	UpdatedAt time.Time
	Stopped   bool
}

func NewBoard() Board {
	levels := make(map[status.Category]status.Level, len(status.Categories))
	for _, c := range status.Categories {
		levels[c] = status.Good
	}
	return Board{Levels: levels}
}

func (b Board) set(c status.Category, l status.Level, at time.Time) Board {
	levels := make(map[status.Category]status.Level, len(b.Levels))
	for k, v := range b.Levels {
		levels[k] = v
	}
	levels[c] = l
	b.Levels = levels
	if !at.IsZero() {
		b.UpdatedAt = at
	}
	return b
}
