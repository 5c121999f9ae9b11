package raid

import (
	"sort"

	"github.com/citadel-raid/raidnav/internal/dispatcher"
)

// Step is a command scheduled for the start of a tick.
type Step struct {
	Tick    uint
	Command string
	Args    []string
}

// Scenario is a tick-ordered script of commands.
type Scenario struct {
	steps []Step
	next  int
}

// NewScenario orders steps by tick, keeping the given order within a tick.
func NewScenario(steps []Step) *Scenario {
	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Tick < sorted[j].Tick })
	return &Scenario{steps: sorted}
}

// Due returns the steps scheduled up to and including tick that have not
// been handed out yet.
func (s *Scenario) Due(tick uint) []Step {
	start := s.next
	for s.next < len(s.steps) && s.steps[s.next].Tick <= tick {
		s.next++
	}
	return s.steps[start:s.next]
}

// Remaining returns how many steps are still to come.
func (s *Scenario) Remaining() int { return len(s.steps) - s.next }

// Has reports whether any step runs command.
func (s *Scenario) Has(command string) bool {
	for _, st := range s.steps {
		if st.Command == command {
			return true
		}
	}
	return false
}

// Event converts the step into a dispatcher event.
func (st Step) Event() dispatcher.Event {
	return dispatcher.Event{Command: st.Command, Args: st.Args}
}
