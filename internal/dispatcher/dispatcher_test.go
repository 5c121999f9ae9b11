package dispatcher

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.add("DEBUG", msg, keysAndValues) }

func (l *testLogger) Info(msg string, keysAndValues ...any) { l.add("INFO", msg, keysAndValues) }

func (l *testLogger) Error(msg string, keysAndValues ...any) { l.add("ERROR", msg, keysAndValues) }

func (l *testLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, kv))
}

func (l *testLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.messages {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got []string
	d.Register("destroy", func(e Event) (any, error) {
		got = e.Args
		return "destroyed", nil
	})

	result, err := d.Dispatch(Event{Command: "destroy", Args: []string{"4"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "destroyed" {
		t.Errorf("expected 'destroyed', got %v", result)
	}
	if len(got) != 1 || got[0] != "4" {
		t.Errorf("handler saw args %v", got)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: "teleport"})

	if err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestDispatcher_QueuedRunsOnDrain(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var order []string
	d.Register("interrupt", func(e Event) (any, error) {
		order = append(order, e.Args[0])
		return nil, nil
	}, Queued(10))

	for _, id := range []string{"1", "2", "3"} {
		result, err := d.Dispatch(Event{Command: "interrupt", Args: []string{id}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != "queued" {
			t.Errorf("expected 'queued', got %v", result)
		}
	}

	if len(order) != 0 {
		t.Fatalf("queued handler ran before drain: %v", order)
	}

	if n := d.RunQueued(); n != 3 {
		t.Errorf("expected 3 events run, got %d", n)
	}
	if strings.Join(order, ",") != "1,2,3" {
		t.Errorf("unexpected order %v", order)
	}
	if n := d.RunQueued(); n != 0 {
		t.Errorf("second drain ran %d events", n)
	}
}

func TestDispatcher_QueuedFromOtherGoroutine(t *testing.T) {
	d, _ := newTestDispatcher(t)

	ran := 0
	d.Register("clear-interrupt", func(e Event) (any, error) {
		ran++
		return nil, nil
	}, Queued(4))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(Event{Command: "clear-interrupt"})
		}()
	}
	wg.Wait()

	d.RunQueued()
	if ran != 4 {
		t.Errorf("expected 4 runs, got %d", ran)
	}
}

func TestDispatcher_QueuedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("start-wave", func(e Event) (any, error) { return nil, nil }, Queued(2))

	d.Dispatch(Event{Command: "start-wave"})
	d.Dispatch(Event{Command: "start-wave"})

	_, err := d.Dispatch(Event{Command: "start-wave"})
	if err == nil {
		t.Error("expected error when queue is full")
	}
}

func TestDispatcher_QueuedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("damage", func(e Event) (any, error) { return nil, nil }, Queued(1), Blocking())

	d.Dispatch(Event{Command: "damage"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: "damage"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	d.RunQueued()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch stayed blocked after drain")
	}
}

func TestDispatcher_QueuedErrorIsLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("destroy", func(e Event) (any, error) {
		return nil, fmt.Errorf("no such vessel")
	}, Queued(1))

	d.Dispatch(Event{Command: "destroy"})
	d.RunQueued()

	if logger.count("ERROR") != 1 {
		t.Errorf("expected one error log, got %v", logger.messages)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("interrupt", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Command: "interrupt", Args: []string{"a", "b"}})

	if logger.count("DEBUG") != 2 {
		t.Errorf("expected 2 debug messages, got %v", logger.messages)
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("destroy", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(Event{Command: "destroy"})

	if logger.count("ERROR") != 1 {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasHandlerAndCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("start-wave", func(e Event) (any, error) { return nil, nil })
	d.Register("destroy", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler("destroy") {
		t.Error("expected handler to exist")
	}
	if d.HasHandler("teleport") {
		t.Error("expected handler to not exist")
	}
	if got := strings.Join(d.Commands(), ","); got != "destroy,start-wave" {
		t.Errorf("unexpected commands %q", got)
	}
}
