// Command raidnav simulates Citadel raids over a radial grid and records them.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/citadel-raid/raidnav/internal/config"
	"github.com/citadel-raid/raidnav/internal/grid"
	"github.com/citadel-raid/raidnav/internal/logging"
	"github.com/citadel-raid/raidnav/internal/pathfinder"
	"github.com/citadel-raid/raidnav/internal/port"
	"github.com/citadel-raid/raidnav/internal/session"
	"github.com/citadel-raid/raidnav/internal/vessel"
	"github.com/citadel-raid/raidnav/pkg/core"

	"github.com/spf13/viper"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

const (
	appName        = "raidnav"
	configDirEnv   = "config_dir"
	defaultCfgDir  = "."
	exitOK         = 0
	exitSetupError = 1
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// Session carries the current run and tick into log records
	Session *session.Context

	SessionStartTime = time.Now()
)

const usage = `usage: raidnav <command> [args]

commands:
  run                    simulate the configured raid and record it
  path <x> <y> [in|out]  print the tile path planned from a position
  ports                  print the port layout
  version                print the version
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return exitSetupError
	}

	Session = session.NewContext()
	SlogManager = logging.NewSlogManager()
	SlogManager.SetContextProvider(Session.LogAttrs)
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := loadConfig(); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Debug("Loaded config", "file", viper.ConfigFileUsed())
	}

	switch strings.ToLower(args[0]) {
	case "run":
		return runRaid(out)
	case "path":
		return printPath(args[1:], out)
	case "ports":
		return printPorts(out)
	case "version":
		fmt.Fprintf(out, "%s %s (built %s)\n", appName, Version, BuildDate)
		return exitOK
	default:
		fmt.Fprintf(out, "unknown command %q\n\n%s", args[0], usage)
		return exitSetupError
	}
}

// loadConfig reads raidnav.cfg.json from RAIDNAV_CONFIG_DIR. Defaults stay in
// effect when the file is missing.
func loadConfig() error {
	viper.SetEnvPrefix(appName)
	if err := viper.BindEnv(configDirEnv); err != nil {
		return err
	}
	viper.SetDefault(configDirEnv, defaultCfgDir)
	return config.Load(viper.GetString(configDirEnv))
}

// buildGrid builds the grid and allocator every command shares.
func buildGrid() (*grid.RadialGrid, *pathfinder.Pathfinder, *port.Allocator, error) {
	gc := config.GetGridConfig()
	blocked := make([]core.Cell, 0, len(gc.Blocked))
	for _, b := range gc.Blocked {
		if len(b) != 2 {
			return nil, nil, nil, fmt.Errorf("blocked cell %v: want [ring, index]", b)
		}
		blocked = append(blocked, core.Cell{Ring: b[0], Index: b[1]})
	}

	g, err := grid.New(grid.Settings{
		RingCount:    gc.RingCount,
		InnerRadius:  gc.InnerRadius,
		RingSpacing:  gc.RingSpacing,
		TilesPerRing: gc.TilesPerRing,
		Blocked:      blocked,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build grid: %w", err)
	}

	bc := config.GetBandConfig()
	finder, err := pathfinder.New(g, pathfinder.Config{Low: bc.Low, High: bc.High, TileSlack: bc.TileSlack})
	if err != nil {
		return nil, nil, nil, err
	}

	pc := config.GetPortConfig()
	alloc, err := port.NewAllocator(port.Config{Distance: pc.Distance, PerSector: pc.PerSector, Sectors: pc.Sectors})
	if err != nil {
		return nil, nil, nil, err
	}
	return g, finder, alloc, nil
}

func vesselClasses() []vessel.Class {
	cfgs := config.GetVesselClasses()
	if len(cfgs) == 0 {
		return []vessel.Class{vessel.DefaultClass()}
	}
	classes := make([]vessel.Class, len(cfgs))
	for i, c := range cfgs {
		classes[i] = vessel.Class(c)
	}
	return classes
}
