package session

import (
	"log/slog"
	"sync"

	"github.com/citadel-raid/raidnav/pkg/core"
)

// Context holds the current run and the tick the simulation is on. The tick
// thread writes it; loggers and the status monitor read it concurrently.
type Context struct {
	mu   sync.RWMutex
	run  *core.Run
	tick uint
}

// NewContext creates a new Context with a placeholder run.
func NewContext() *Context {
	return &Context{
		run: &core.Run{Name: "No run started"},
	}
}

// Run returns the current run.
func (c *Context) Run() *core.Run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run
}

// SetRun installs a new run and resets the tick counter.
func (c *Context) SetRun(run *core.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = run
	c.tick = 0
}

// Tick returns the current tick.
func (c *Context) Tick() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tick
}

// SetTick records the tick being simulated.
func (c *Context) SetTick(tick uint) {
	c.mu.Lock()
	c.tick = tick
	c.mu.Unlock()
}

// LogAttrs returns the run and tick attributes added to every log record.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.run.UUID == "" {
		return nil
	}
	return []slog.Attr{
		slog.String("run", c.run.UUID),
		slog.Uint64("tick", uint64(c.tick)),
	}
}
