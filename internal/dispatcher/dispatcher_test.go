package dispatcher

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_RoutesToHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var gotArgs []string
	d.Register("unit:release", func(e Event) (any, error) {
		gotArgs = e.Args
		return "released", nil
	})

	result, err := d.Dispatch(Event{Command: "unit:release", Args: []string{"17134"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(gotArgs) != 1 || gotArgs[0] != "17134" {
		t.Errorf("handler saw args %v", gotArgs)
	}
	if result != "released" {
		t.Errorf("expected 'released', got %v", result)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: "unit:vanish"})

	if err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestDispatcher_CommandsAreCaseInsensitive(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := 0
	d.Register("Sim:Status", func(e Event) (any, error) {
		called++
		return nil, nil
	})

	if _, err := d.Dispatch(Event{Command: "sim:status"}); err != nil {
		t.Errorf("lowercase dispatch failed: %v", err)
	}
	if _, err := d.Dispatch(Event{Command: "SIM:STATUS"}); err != nil {
		t.Errorf("uppercase dispatch failed: %v", err)
	}

	if called != 2 {
		t.Errorf("expected 2 calls, got %d", called)
	}
}

func TestDispatcher_HandlerErrorPropagates(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("unit:assign", func(e Event) (any, error) {
		return nil, fmt.Errorf("no such unit")
	})

	result, err := d.Dispatch(Event{Command: "unit:assign"})

	if err == nil || err.Error() != "no such unit" {
		t.Errorf("expected handler error, got %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result on error, got %v", result)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("unit:move", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Command: "unit:move", Args: []string{"17134", "52.0"}})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("unit:move", func(e Event) (any, error) {
		return nil, fmt.Errorf("bad coordinate")
	}, Logged())

	d.Dispatch(Event{Command: "unit:move"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("sim:snapshot", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler("sim:snapshot") {
		t.Error("expected handler to exist")
	}

	if d.HasHandler("sim:rewind") {
		t.Error("expected handler to not exist")
	}
}

func TestDispatcher_CommandsSortedWithUsage(t *testing.T) {
	d, _ := newTestDispatcher(t)

	noop := func(e Event) (any, error) { return nil, nil }
	d.Register("unit:release", noop, Usage("<unit>"))
	d.Register("sim:status", noop)
	d.Register("unit:assign", noop, Usage("<unit> <incident> <lat> <lng>"))

	infos := d.Commands()

	want := []string{"sim:status", "unit:assign", "unit:release"}
	if len(infos) != len(want) {
		t.Fatalf("expected %d commands, got %d", len(want), len(infos))
	}
	for i, name := range want {
		if infos[i].Name != name {
			t.Errorf("command %d: expected %q, got %q", i, name, infos[i].Name)
		}
	}
	if infos[1].Usage != "<unit> <incident> <lat> <lng>" {
		t.Errorf("unexpected usage for unit:assign: %q", infos[1].Usage)
	}
	if infos[0].Usage != "" {
		t.Errorf("expected empty usage for sim:status, got %q", infos[0].Usage)
	}
}
