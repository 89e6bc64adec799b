package session

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State is a lifecycle state of a Session.
type State string

const (
	stateIdle      = "idle"
	stateLoading   = "loading"
	stateSucceeded = "succeeded"
	stateFailed    = "failed"
)

// Session states.
const (
	StateIdle      State = stateIdle
	StateLoading   State = stateLoading
	StateSucceeded State = stateSucceeded
	StateFailed    State = stateFailed
)

// Lifecycle events.
const (
	eventSubmit  = "submit"
	eventResolve = "resolve"
	eventReject  = "reject"
)

type machineContext struct{}

// lifecycle wraps the statekit interpreter. It is not safe for concurrent
// use; Session serializes access.
type lifecycle struct {
	interpreter *statekit.Interpreter[machineContext]
}

func newLifecycle() (*lifecycle, error) {
	builder := statekit.NewMachine[machineContext]("analysis-session").
		WithInitial(statekit.StateID(stateIdle)).
		WithContext(machineContext{})

	builder.State(stateIdle).
		On(eventSubmit).Target(stateLoading).
		Done()

	builder.State(stateLoading).
		On(eventResolve).Target(stateSucceeded).
		On(eventReject).Target(stateFailed).
		Done()

	builder.State(stateSucceeded).
		On(eventSubmit).Target(stateLoading).
		Done()

	builder.State(stateFailed).
		On(eventSubmit).Target(stateLoading).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build session state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &lifecycle{interpreter: interpreter}, nil
}

func (l *lifecycle) current() State {
	return State(l.interpreter.State().Value)
}

// send fires event and reports an error when no transition was taken.
func (l *lifecycle) send(event string) error {
	before := l.current()
	l.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if l.current() == before {
		return fmt.Errorf("%w: %q in state %q", ErrInvalidTransition, event, before)
	}
	return nil
}
