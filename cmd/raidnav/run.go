package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/citadel-raid/raidnav/internal/api"
	"github.com/citadel-raid/raidnav/internal/config"
	"github.com/citadel-raid/raidnav/internal/dispatcher"
	"github.com/citadel-raid/raidnav/internal/handlers"
	"github.com/citadel-raid/raidnav/internal/logging"
	"github.com/citadel-raid/raidnav/internal/monitor"
	intOtel "github.com/citadel-raid/raidnav/internal/otel"
	"github.com/citadel-raid/raidnav/internal/raid"
	"github.com/citadel-raid/raidnav/internal/storage"
	"github.com/citadel-raid/raidnav/internal/util"
	"github.com/citadel-raid/raidnav/internal/worker"
	"github.com/citadel-raid/raidnav/pkg/core"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// commandQueueSize bounds the orchestration commands parked between ticks.
const commandQueueSize = 64

// runRaid is the run command: it records one simulated raid end to end.
func runRaid(out io.Writer) int {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		Logger.Error("Failed to create logs dir", "error", err, "path", logsDir)
		return exitSetupError
	}

	logFilePath := logging.LogFilePath(logsDir, appName, SessionStartTime)
	if _, err := os.Stat(logFilePath); err == nil {
		_ = os.Rename(logFilePath, logFilePath+".old")
	}
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
		return exitSetupError
	}
	defer logFile.Close()

	provider, err := setupOTel(logsDir)
	if err != nil {
		Logger.Error("Failed to initialize OTel", "error", err)
		return exitSetupError
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}()

	logLevel := viper.GetString("logLevel")
	SlogManager.Setup(logFile, logLevel, provider.LoggerProvider())
	Logger = SlogManager.Logger()
	zeroLog := logging.NewZerolog(logFile, logLevel)

	Logger.Info("Starting raidnav", "version", Version, "buildDate", BuildDate, "logFile", logFilePath)

	g, finder, alloc, err := buildGrid()
	if err != nil {
		Logger.Error("Failed to build navigation", "error", err)
		fmt.Fprintln(out, err)
		return exitSetupError
	}

	backend, err := storage.NewBackend(config.GetStorageConfig(), storage.Dependencies{
		Logger:    Logger,
		ZeroLog:   zeroLog,
		DB:        config.GetDBConfig(),
		Influx:    config.GetInfluxConfig(),
		API:       config.GetAPIConfig(),
		LogsDir:   logsDir,
		RunConfig: viper.AllSettings(),
	})
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		fmt.Fprintln(out, err)
		return exitSetupError
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		fmt.Fprintln(out, err)
		return exitSetupError
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	recorder := worker.NewManager(backend, Logger, worker.DefaultBufferSize)
	recorder.Start()
	defer recorder.Stop()

	raidCfg := config.GetRaidConfig()
	simCfg := config.GetSimConfig()
	r, err := raid.New(finder, alloc, vesselClasses(), raid.Config{
		StartDistance: raidCfg.StartDistance,
		Seed:          raidCfg.Seed,
		Waves:         raidCfg.Waves,
		TickRate:      simCfg.TickRate,
		CaptureEvery:  simCfg.CaptureEvery,
		Epoch:         SessionStartTime,
	}, recorder, Logger)
	if err != nil {
		Logger.Error("Failed to create raid", "error", err)
		fmt.Fprintln(out, err)
		return exitSetupError
	}
	r.OnEnd(recorder.RecordResult)

	current := &core.Run{
		UUID:      uuid.NewString(),
		Name:      appName,
		StartTime: SessionStartTime,
		Seed:      r.Seed(),
		TickRate:  simCfg.TickRate,
	}
	gridInfo := core.GridInfo{
		RingCount:    g.RingCount(),
		TilesPerRing: config.GetGridConfig().TilesPerRing,
		InnerRadius:  g.RingRadius(0),
		RingSpacing:  config.GetGridConfig().RingSpacing,
		BandLow:      finder.Config().Low,
		BandHigh:     finder.Config().High,
		PortCount:    len(alloc.Ports()),
		PortDistance: config.GetPortConfig().Distance,
	}
	if err := recorder.StartRun(current, gridInfo); err != nil {
		Logger.Error("Failed to start run", "error", err)
		fmt.Fprintln(out, err)
		return exitSetupError
	}
	Session.SetRun(current)
	Logger.Info("Run started", "storage", config.GetStorageConfig().Type, "seed", current.Seed)

	d, err := dispatcher.New(Logger)
	if err != nil {
		Logger.Error("Failed to create dispatcher", "error", err)
		return exitSetupError
	}
	var opts []dispatcher.Option
	if simCfg.Realtime {
		opts = append(opts, dispatcher.Queued(commandQueueSize))
	}
	handlers.NewService(r, Logger).Register(d, opts...)

	steps := config.GetScenario()
	scenarioSteps := make([]raid.Step, len(steps))
	for i, st := range steps {
		scenarioSteps[i] = raid.Step{Tick: st.Tick, Command: st.Command, Args: st.Args}
	}
	scenario := raid.NewScenario(scenarioSteps)

	runner := raid.NewRunner(r, d, scenario, raid.RunnerConfig{
		TickRate:  simCfg.TickRate,
		MaxTicks:  simCfg.MaxTicks,
		Realtime:  simCfg.Realtime,
		AutoStart: !scenario.Has(handlers.CmdStartWave),
	}, Logger)
	runner.OnTick(Session.SetTick)

	mon := monitor.NewService(monitor.Dependencies{
		Raid:      r,
		Recorder:  recorder,
		Session:   Session,
		DB:        backendDB(backend),
		StatusDir: logsDir,
		Logger:    Logger,
	})
	mon.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if simCfg.Realtime {
		go readCommands(ctx, os.Stdin, d, out)
	}

	results, err := runner.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		Logger.Error("Raid loop stopped", "error", err)
	}

	mon.Stop()
	if err := mon.Publish(); err != nil {
		Logger.Warn("Failed to publish final status", "error", err)
	}
	if err := recorder.EndRun(); err != nil {
		Logger.Error("Failed to end run", "error", err)
	}
	if recorder.Dropped() > 0 {
		Logger.Warn("Recorder dropped records", "count", recorder.Dropped())
	}
	Logger.Info("Run finished", "ticks", r.Tick(), "waves", len(results))

	printSummary(out, current, r.Tick(), results, backend)
	uploadRecording(current, r.Tick(), results, backend)
	return exitOK
}

// uploadRecording posts the exported recording to the telemetry server when
// one is configured.
func uploadRecording(run *core.Run, ticks uint, results []core.RaidResult, backend storage.Backend) {
	apiCfg := config.GetAPIConfig()
	exp, ok := backend.(storage.Exportable)
	if apiCfg.UploadURL == "" || !ok || exp.ExportedFilePath() == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := api.New(apiCfg.UploadURL, apiCfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		Logger.Warn("Telemetry server unreachable, recording kept locally", "error", err, "path", exp.ExportedFilePath())
		return
	}

	meta := api.RunMetadata{
		UUID:  run.UUID,
		Name:  run.Name,
		Seed:  run.Seed,
		Ticks: ticks,
		Waves: len(results),
	}
	if n := len(results); n > 0 {
		meta.Successful = results[n-1].Successful
	}
	if err := client.Upload(ctx, exp.ExportedFilePath(), meta); err != nil {
		Logger.Error("Failed to upload recording", "error", err)
		return
	}
	Logger.Info("Recording uploaded", "url", client.BaseURL(), "path", exp.ExportedFilePath())
}

func setupOTel(logsDir string) (*intOtel.Provider, error) {
	oc := config.GetOTelConfig()
	cfg := intOtel.Config{
		Enabled:      oc.Enabled,
		ServiceName:  oc.ServiceName,
		BatchTimeout: oc.BatchTimeout,
		Endpoint:     oc.Endpoint,
		Insecure:     oc.Insecure,
	}
	if oc.Enabled && oc.Endpoint == "" {
		path := filepath.Join(logsDir, fmt.Sprintf("%s.otel.%s.jsonl", appName, SessionStartTime.Format("20060102_150405")))
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTel log file: %w", err)
		}
		cfg.LogWriter = f
	}
	provider, err := intOtel.New(cfg)
	if err != nil {
		if c, ok := cfg.LogWriter.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}
	return provider, nil
}

// backendDB returns the database behind GORM backed storage, nil otherwise.
func backendDB(b storage.Backend) *gorm.DB {
	if withDB, ok := b.(interface{ DB() *gorm.DB }); ok {
		return withDB.DB()
	}
	return nil
}

// readCommands feeds console lines to the dispatcher until ctx is done or
// stdin closes. Mutating commands are parked until the next tick.
func readCommands(ctx context.Context, in io.Reader, d *dispatcher.Dispatcher, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		command, args := util.SplitCommand(scanner.Text())
		if command == "" {
			continue
		}
		res, err := d.Dispatch(dispatcher.Event{Command: command, Args: args, Timestamp: time.Now()})
		switch {
		case err != nil:
			fmt.Fprintf(out, "%s: %v\n", command, err)
		case res != nil:
			fmt.Fprintf(out, "%s: %v\n", command, res)
		}
	}
}

func printSummary(out io.Writer, run *core.Run, ticks uint, results []core.RaidResult, backend storage.Backend) {
	fmt.Fprintf(out, "run %s (seed %d): %d ticks\n", run.UUID, run.Seed, ticks)
	for i, res := range results {
		outcome := "failed"
		if res.Successful {
			outcome = "successful"
		}
		fmt.Fprintf(out, "  wave %d: %s at tick %d, finished %d, destroyed %d, withdrawn %d\n",
			i+1, outcome, res.Tick, res.Finished, res.Destroyed, res.Withdrawn)
	}
	if exp, ok := backend.(storage.Exportable); ok && exp.ExportedFilePath() != "" {
		fmt.Fprintf(out, "recording: %s\n", exp.ExportedFilePath())
	}
}
