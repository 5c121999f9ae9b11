package raid

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/citadel-raid/raidnav/internal/dispatcher"
	"github.com/citadel-raid/raidnav/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commandLog records dispatched events and runs a few of them against the raid.
type commandLog struct {
	raid   *Raid
	events []dispatcher.Event
	drains int
}

func (c *commandLog) Dispatch(e dispatcher.Event) (any, error) {
	c.events = append(c.events, e)
	switch e.Command {
	case "start-wave":
		return nil, c.raid.Start()
	case "destroy":
		id, err := strconv.Atoi(e.Args[0])
		if err != nil {
			return nil, err
		}
		return nil, c.raid.Destroy(core.VesselID(id))
	}
	return nil, fmt.Errorf("unknown command: %s", e.Command)
}

func (c *commandLog) RunQueued() int {
	c.drains++
	return 0
}

func TestRunner_AutoStartRunsAllWaves(t *testing.T) {
	r := newRig(t, Config{Waves: [][]int{{1}, {1}}}, defaultPorts, -1)

	var ticks []uint
	rn := NewRunner(r.raid, nil, nil, RunnerConfig{TickRate: 50, MaxTicks: 40000, AutoStart: true}, nil)
	rn.OnTick(func(tick uint) {
		if len(ticks) < 3 {
			ticks = append(ticks, tick)
		}
	})

	results, err := rn.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Successful)
	assert.True(t, results[1].Successful)
	assert.Less(t, results[0].Tick, results[1].Tick)
	assert.Equal(t, []uint{0, 1, 2}, ticks)
	assert.Zero(t, r.raid.WavesLeft())
}

func TestRunner_ScenarioCommands(t *testing.T) {
	r := newRig(t, Config{Waves: [][]int{{2}}}, defaultPorts, -1)
	cmds := &commandLog{raid: r.raid}
	sc := NewScenario([]Step{
		{Tick: 5, Command: "destroy", Args: []string{"2"}},
		{Tick: 0, Command: "start-wave"},
		{Tick: 5, Command: "destroy", Args: []string{"1"}},
	})

	results, err := NewRunner(r.raid, cmds, sc, RunnerConfig{TickRate: 50}, nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, cmds.events, 3)
	assert.Equal(t, "start-wave", cmds.events[0].Command)
	assert.Equal(t, []string{"2"}, cmds.events[1].Args)
	assert.Equal(t, []string{"1"}, cmds.events[2].Args)

	require.Len(t, results, 1)
	assert.False(t, results[0].Successful)
	assert.Equal(t, 2, results[0].Destroyed)
	assert.Equal(t, uint(5), results[0].Tick)
	assert.Equal(t, 6, cmds.drains)
}

func TestRunner_MaxTicksWithdraws(t *testing.T) {
	r := newRig(t, Config{Waves: [][]int{{2}}}, defaultPorts, -1)

	results, err := NewRunner(r.raid, nil, nil, RunnerConfig{TickRate: 50, MaxTicks: 10, AutoStart: true}, nil).
		Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Withdrawn)
	assert.Equal(t, uint(10), results[0].Tick)
	assert.False(t, r.raid.InProgress())
}

func TestRunner_ContextCancelled(t *testing.T) {
	r := newRig(t, Config{Waves: [][]int{{1}}}, defaultPorts, -1)
	ctx, cancel := context.WithCancel(context.Background())

	rn := NewRunner(r.raid, nil, nil, RunnerConfig{TickRate: 50, AutoStart: true}, nil)
	rn.OnTick(func(tick uint) {
		if tick == 3 {
			cancel()
		}
	})

	results, err := rn.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Withdrawn)
}

func TestRunner_NothingToDo(t *testing.T) {
	r := newRig(t, Config{Waves: [][]int{{1}}}, defaultPorts, -1)

	results, err := NewRunner(r.raid, nil, nil, RunnerConfig{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, uint(0), r.raid.Tick())
}

func TestScenario_Due(t *testing.T) {
	sc := NewScenario([]Step{
		{Tick: 10, Command: "b"},
		{Tick: 2, Command: "a"},
		{Tick: 10, Command: "c"},
	})

	assert.Empty(t, sc.Due(1))
	assert.Equal(t, "a", sc.Due(2)[0].Command)
	assert.Empty(t, sc.Due(2))
	due := sc.Due(12)
	require.Len(t, due, 2)
	assert.Equal(t, "b", due[0].Command)
	assert.Equal(t, "c", due[1].Command)
	assert.Zero(t, sc.Remaining())
	assert.True(t, sc.Has("c"))
	assert.False(t, sc.Has("z"))
}
