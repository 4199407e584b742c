package daemon

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/statekit"
)

// Lifecycle states. Untyped so they convert to statekit.StateID.
const (
	stateStopped = "stopped"
	stateRunning = "running"
	stateFaulted = "faulted"
)

const (
	eventStart = "start"
	eventStop  = "stop"
	eventFault = "fault"
)

// State is the externally visible lifecycle state of a Daemon.
type State string

const (
	Stopped State = stateStopped
	Running State = stateRunning
	Faulted State = stateFaulted
)

type lifecycleContext struct {
	Name string
}

// lifecycle guards the statekit interpreter; it is read from the display
// goroutine while the poll goroutine drives it.
type lifecycle struct {
	mu          sync.Mutex
	interpreter *statekit.Interpreter[lifecycleContext]
}

func newLifecycle() (*lifecycle, error) {
	builder := statekit.NewMachine[lifecycleContext]("monitor-lifecycle").
		WithInitial(statekit.StateID(stateStopped)).
		WithContext(lifecycleContext{Name: "monitor"})

	builder.State(stateStopped).
		On(eventStart).Target(stateRunning).
		Done()

	builder.State(stateRunning).
		On(eventStop).Target(stateStopped).
		On(eventFault).Target(stateFaulted).
		Done()

	// terminal: the self-loop keeps the state fixed, so fire reports every
	// event as rejected
	builder.State(stateFaulted).
		On(eventFault).Target(stateFaulted).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build lifecycle machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &lifecycle{interpreter: interpreter}, nil
}

// fire sends event and fails if the machine did not move.
func (l *lifecycle) fire(event string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := l.current()
	l.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if after := l.current(); after != before {
		return nil
	}
	return fmt.Errorf("event %q not allowed in state %q", event, before)
}

func (l *lifecycle) state() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State(l.current())
}

func (l *lifecycle) current() string {
	return string(l.interpreter.State().Value)
}
