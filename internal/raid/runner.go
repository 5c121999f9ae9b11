package raid

import (
	"context"
	"log/slog"
	"time"

	"github.com/citadel-raid/raidnav/internal/dispatcher"
	"github.com/citadel-raid/raidnav/pkg/core"
)

// Commands routes orchestration commands. *dispatcher.Dispatcher satisfies it.
type Commands interface {
	Dispatch(e dispatcher.Event) (any, error)
	RunQueued() int
}

// RunnerConfig controls the tick loop.
type RunnerConfig struct {
	TickRate  float64
	MaxTicks  int  // 0 runs until the raid is over
	Realtime  bool // pace ticks to the wall clock
	AutoStart bool // start the next wave whenever none is in flight
}

// Runner drives a raid tick by tick. At the start of each tick it runs the
// scenario steps due and any queued commands, then steps the vessels.
type Runner struct {
	raid     *Raid
	cmds     Commands
	scenario *Scenario
	cfg      RunnerConfig
	onTick   []func(uint)
	log      *slog.Logger
}

// NewRunner builds a runner. cmds and scenario may be nil.
func NewRunner(r *Raid, cmds Commands, scenario *Scenario, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.TickRate <= 0 {
		cfg.TickRate = defaultTickRate
	}
	if scenario == nil {
		scenario = NewScenario(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{raid: r, cmds: cmds, scenario: scenario, cfg: cfg, log: logger}
}

// OnTick registers fn to run with the tick index before anything else
// happens in that tick.
func (rn *Runner) OnTick(fn func(tick uint)) {
	rn.onTick = append(rn.onTick, fn)
}

// Run ticks until every wave is over, MaxTicks is hit or ctx is done. A wave
// still in flight at that point is withdrawn. The results of all waves are
// returned, along with ctx's error if it stopped the loop.
func (rn *Runner) Run(ctx context.Context) ([]core.RaidResult, error) {
	dt := 1 / rn.cfg.TickRate

	var pace <-chan time.Time
	if rn.cfg.Realtime {
		ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
		pace = ticker.C
	}

	var runErr error
	for n := 0; rn.cfg.MaxTicks <= 0 || n < rn.cfg.MaxTicks; n++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		tick := rn.raid.Tick()
		for _, fn := range rn.onTick {
			fn(tick)
		}
		rn.runCommands(tick)

		if rn.cfg.AutoStart && !rn.raid.InProgress() && rn.raid.WavesLeft() > 0 {
			if err := rn.raid.Start(); err != nil {
				rn.log.Error("failed to start wave", "tick", tick, "error", err)
			}
		}
		if rn.done() {
			break
		}

		rn.raid.Step(dt)

		if pace != nil {
			select {
			case <-ctx.Done():
			case <-pace:
			}
		}
	}

	if rn.raid.InProgress() {
		rn.log.Warn("stopping with a wave in flight", "tick", rn.raid.Tick())
		rn.raid.Withdraw()
	}
	return rn.raid.Results(), runErr
}

func (rn *Runner) runCommands(tick uint) {
	due := rn.scenario.Due(tick)
	if rn.cmds == nil {
		if len(due) > 0 {
			rn.log.Warn("no command router, scenario steps skipped", "tick", tick, "steps", len(due))
		}
		return
	}
	for _, st := range due {
		e := st.Event()
		e.Timestamp = rn.raid.Now()
		if _, err := rn.cmds.Dispatch(e); err != nil {
			rn.log.Warn("scenario command failed", "tick", tick, "command", st.Command, "error", err)
		}
	}
	rn.cmds.RunQueued()
}

func (rn *Runner) done() bool {
	if rn.raid.InProgress() || rn.scenario.Remaining() > 0 {
		return false
	}
	return !rn.cfg.AutoStart || rn.raid.WavesLeft() == 0
}
