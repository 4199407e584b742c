package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcin-skalski/mondrian/internal/status"
)

// Mode selects how the grid is placed on the terminal.
type Mode string

const (
	ModeFullscreen Mode = "fullscreen"
	ModeOverlay    Mode = "overlay"
	ModeWindow     Mode = "window"
)

// LevelMsg updates one region.
type LevelMsg struct {
	Category status.Category
	Level    status.Level
	At       time.Time
}

// ShutdownMsg tells the display the monitor has stopped for good.
type ShutdownMsg struct{}

type Model struct {
	mode   Mode
	board  Board
	width  int
	height int
}

func NewModel(mode Mode) Model {
	return Model{mode: mode, board: NewBoard()}
}

// Board returns what the model currently shows.
func (m Model) Board() Board {
	return m.board
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case LevelMsg:
		m.board = m.board.set(msg.Category, msg.Level, msg.At)

	case ShutdownMsg:
		m.board.Stopped = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) View() string {
	return renderView(m.board, m.mode, m.width, m.height)
}

// NewProgram builds the display program; fullscreen takes over the alternate
// screen.
func NewProgram(m Model, opts ...tea.ProgramOption) *tea.Program {
	if m.mode == ModeFullscreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return tea.NewProgram(m, opts...)
}

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramSink forwards published levels to a running display program.
type ProgramSink struct {
	program Sender
	now     func() time.Time
}

func NewProgramSink(program Sender) *ProgramSink {
	return &ProgramSink{program: program, now: time.Now}
}

func (s *ProgramSink) Publish(c status.Category, l status.Level) {
	s.program.Send(LevelMsg{Category: c, Level: l, At: s.now()})
}

func (s *ProgramSink) PublishShutdown() {
	s.program.Send(ShutdownMsg{})
}
