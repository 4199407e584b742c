// Package nudge keeps an always-on host awake by perturbing the pointer
// around each poll.
package nudge

import (
	"context"
	"fmt"
	"log/slog"
)

// Pointer reads and moves the host pointer.
type Pointer interface {
	Position(ctx context.Context) (x, y int, err error)
	MoveTo(ctx context.Context, x, y int) error
}

// Noop does nothing. Used for headless runs and when nudging is disabled.
type Noop struct{}

func (Noop) Pre(context.Context) error  { return nil }
func (Noop) Post(context.Context) error { return nil }

// Liveness moves the pointer by Offset before a poll and back by the same
// offset after it, so the pointer does not drift across cycles.
type Liveness struct {
	pointer Pointer
	offset  int
	logger  *slog.Logger
}

func New(pointer Pointer, offset int, logger *slog.Logger) *Liveness {
	return &Liveness{pointer: pointer, offset: offset, logger: logger}
}

func (l *Liveness) Pre(ctx context.Context) error {
	return l.shift(ctx, l.offset)
}

func (l *Liveness) Post(ctx context.Context) error {
	return l.shift(ctx, -l.offset)
}

func (l *Liveness) shift(ctx context.Context, d int) error {
	x, y, err := l.pointer.Position(ctx)
	if err != nil {
		return fmt.Errorf("read pointer: %w", err)
	}
	if err := l.pointer.MoveTo(ctx, x+d, y+d); err != nil {
		return fmt.Errorf("move pointer: %w", err)
	}
	l.logger.Debug("pointer nudged", "x", x+d, "y", y+d)
	return nil
}
