package nudge

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Xdotool drives the X11 pointer through the xdotool binary.
type Xdotool struct {
	logger *slog.Logger
	run    func(ctx context.Context, args ...string) ([]byte, error)
}

func NewXdotool(logger *slog.Logger) *Xdotool {
	x := &Xdotool{logger: logger}
	x.run = x.exec
	return x
}

func (x *Xdotool) Position(ctx context.Context) (int, int, error) {
	out, err := x.run(ctx, "getmouselocation", "--shell")
	if err != nil {
		return 0, 0, err
	}
	return parseLocation(out)
}

func (x *Xdotool) MoveTo(ctx context.Context, px, py int) error {
	_, err := x.run(ctx, "mousemove", strconv.Itoa(px), strconv.Itoa(py))
	return err
}

func (x *Xdotool) exec(ctx context.Context, args ...string) ([]byte, error) {
	x.logger.Debug("xdotool", "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, "xdotool", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("xdotool %s: %w: %s", args[0], err, string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("xdotool %s: %w", args[0], err)
	}
	return out, nil
}

// parseLocation reads the X= and Y= lines of `getmouselocation --shell`.
func parseLocation(out []byte) (int, int, error) {
	var x, y int
	var haveX, haveY bool

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(val)
		switch key {
		case "X":
			if err != nil {
				return 0, 0, fmt.Errorf("parse pointer x %q: %w", val, err)
			}
			x, haveX = n, true
		case "Y":
			if err != nil {
				return 0, 0, fmt.Errorf("parse pointer y %q: %w", val, err)
			}
			y, haveY = n, true
		}
	}
	if !haveX || !haveY {
		return 0, 0, fmt.Errorf("pointer location missing in %q", string(out))
	}
	return x, y, nil
}
