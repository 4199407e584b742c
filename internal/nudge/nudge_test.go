package nudge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePointer struct {
	x, y    int
	moves   [][2]int
	readErr error
}

func (p *fakePointer) Position(context.Context) (int, int, error) {
	return p.x, p.y, p.readErr
}

func (p *fakePointer) MoveTo(_ context.Context, x, y int) error {
	p.x, p.y = x, y
	p.moves = append(p.moves, [2]int{x, y})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLiveness_PreAndPost(t *testing.T) {
	p := &fakePointer{x: 100, y: 50}
	l := New(p, 2, testLogger())

	require.NoError(t, l.Pre(context.Background()))
	assert.Equal(t, [][2]int{{102, 52}}, p.moves)

	require.NoError(t, l.Post(context.Background()))
	assert.Equal(t, [][2]int{{102, 52}, {100, 50}}, p.moves)
}

func TestLiveness_ReadError(t *testing.T) {
	p := &fakePointer{readErr: errors.New("no display")}
	l := New(p, 1, testLogger())

	err := l.Pre(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
	assert.Empty(t, p.moves)
}

func TestNoop(t *testing.T) {
	var n Noop
	assert.NoError(t, n.Pre(context.Background()))
	assert.NoError(t, n.Post(context.Background()))
}

func TestXdotool(t *testing.T) {
	var calls [][]string
	x := NewXdotool(testLogger())
	x.run = func(_ context.Context, args ...string) ([]byte, error) {
		calls = append(calls, args)
		if args[0] == "getmouselocation" {
			return []byte("X=640\nY=400\nSCREEN=0\nWINDOW=1234\n"), nil
		}
		return nil, nil
	}

	px, py, err := x.Position(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 640, px)
	assert.Equal(t, 400, py)

	require.NoError(t, x.MoveTo(context.Background(), 641, 401))
	assert.Equal(t, []string{"mousemove", "641", "401"}, calls[1])
}

func TestParseLocation(t *testing.T) {
	_, _, err := parseLocation([]byte("SCREEN=0\n"))
	assert.Error(t, err)

	_, _, err = parseLocation([]byte("X=abc\nY=1\n"))
	assert.Error(t, err)
}
