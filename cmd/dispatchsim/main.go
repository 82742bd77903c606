package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dispatchsim/engine/internal/board"
	"github.com/dispatchsim/engine/internal/config"
	"github.com/dispatchsim/engine/internal/database"
	"github.com/dispatchsim/engine/internal/dispatcher"
	"github.com/dispatchsim/engine/internal/events"
	"github.com/dispatchsim/engine/internal/feed"
	"github.com/dispatchsim/engine/internal/handlers"
	"github.com/dispatchsim/engine/internal/influx"
	"github.com/dispatchsim/engine/internal/logging"
	"github.com/dispatchsim/engine/internal/monitor"
	intOtel "github.com/dispatchsim/engine/internal/otel"
	"github.com/dispatchsim/engine/internal/scheduler"
	"github.com/dispatchsim/engine/internal/station"
	"github.com/dispatchsim/engine/internal/store"
	"github.com/dispatchsim/engine/internal/watcher"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// CurrentEngineVersion and BuildDate can be set at build time via ldflags.
var (
	CurrentEngineVersion string = "0.0.1"
	BuildDate            string = "unknown"

	EngineName string = "dispatchsim"
)

// global services
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	dbManager      *database.Manager
	influxManager  *influx.Manager
	monitorService *monitor.Service
	boardSyncer    *board.Syncer

	SessionStartTime time.Time = time.Now()
)

func main() {
	configDir := flag.String("config", ".", "directory containing dispatchsim.cfg.json")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (built %s)\n", EngineName, CurrentEngineVersion, BuildDate)
		return
	}

	// Bootstrap logging to stdout until the session log file exists
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil, nil)
	Logger = SlogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	logFile := openSessionLogFile()
	if logFile != nil {
		defer logFile.Close()
	}

	setupTelemetryAndLogging(logFile)

	// zerolog side, for the managers that keep their own logger
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("engine", EngineName).Logger()

	if err := run(zlog); err != nil {
		Logger.Error("Engine failed", "error", err)
		os.Exit(1)
	}
}

// setupTelemetryAndLogging creates the OTel provider (which wants the
// session log file) and re-points logging at file + console + bridge.
func setupTelemetryAndLogging(logFile *os.File) {
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled && logFile != nil {
		var err error
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else if otelCfg.Endpoint != "" {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		} else {
			Logger.Info("OTel provider initialized")
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	// io.Writer must stay untyped-nil when there is no file
	var fileWriter io.Writer
	if logFile != nil {
		fileWriter = logFile
	}

	SlogManager.Setup(fileWriter, viper.GetString("logLevel"), otelLogProvider, sessionAttrs)
	Logger = SlogManager.Logger()
}

// sessionAttrs injects dynamic engine state into every log record.
func sessionAttrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("session", SessionStartTime.Format("20060102_150405"))}
	if dbManager != nil {
		attrs = append(attrs, slog.Bool("localDB", dbManager.ShouldSaveLocal))
	}
	if monitorService != nil {
		attrs = append(attrs, slog.Bool("statusRunning", monitorService.IsRunning()))
	}
	return attrs
}

// run wires every component and blocks until shutdown.
func run(zlog zerolog.Logger) error {
	storageCfg := config.GetStorageConfig()
	simCfg := config.GetSimConfig()

	// Database: Postgres with in-memory SQLite fallback. Needed by the
	// sqlite store backend and the status history table.
	dbManager = database.NewManager(zlog)
	if err := dbManager.Connect(); err != nil {
		Logger.Warn("No database available, falling back to memory storage", "error", err)
		storageCfg.Type = "memory"
	} else {
		dbManager.SqliteFilePath = storageCfg.SQLite.DumpPath
		if err := dbManager.Setup(); err != nil {
			Logger.Warn("Schema migration failed, falling back to memory storage", "error", err)
			storageCfg.Type = "memory"
		}
	}

	backend, err := store.NewBackend(storageCfg, dbManager.DB, SlogManager)
	if err != nil {
		return fmt.Errorf("creating store backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing store backend: %w", err)
	}
	if restored, err := backend.LoadAll(); err != nil {
		Logger.Warn("Could not restore persisted unit state", "error", err)
	} else if len(restored) > 0 {
		Logger.Info("Restored persisted unit state", "units", len(restored))
	}

	stream := events.NewStream(Logger)
	resolver := station.NewResolver(nil, nil)

	incidents, stations := buildFeedSources()

	// Dispatch board mirror (optional)
	if config.GetBool("board.enabled") {
		client := board.New(config.GetString("board.serverUrl"), config.GetString("board.apiKey"))
		if err := client.Healthcheck(); err != nil {
			Logger.Info("Dispatch board is offline", "error", err)
		} else {
			Logger.Info("Dispatch board is online")
		}
		boardSyncer = board.NewSyncer(client, Logger)
		boardSyncer.Start()
	}

	// InfluxDB performance metrics (optional)
	if config.GetBool("influx.enabled") {
		influxManager = influx.NewManager(zlog, viper.GetString("logsDir"))
		if err := influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB unavailable, metrics disabled", "error", err)
			influxManager = nil
		}
	}

	var activityStop chan struct{}
	if influxManager != nil {
		activityStop = make(chan struct{})
		go forwardUnitActivity(stream, influxManager, activityStop)
	}

	monitorService = monitor.NewService(monitor.Dependencies{
		DB:              dbManager.DB,
		LogManager:      SlogManager,
		Backend:         backend,
		Influx:          influxManager,
		StatusDir:       viper.GetString("logsDir"),
		IsDatabaseValid: func() bool { return dbManager.IsValid },
	})
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Status monitor failed to start", "error", err)
	}

	schedDeps := scheduler.Dependencies{
		Store:    backend,
		Stream:   stream,
		Resolver: resolver,
		Perf:     monitorService,
		Logger:   Logger,
	}
	if boardSyncer != nil {
		schedDeps.Sync = boardSyncer
	}
	sched, err := scheduler.New(simCfg, schedDeps)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	assignmentWatcher := watcher.New(simCfg.WatchInterval, watcher.Dependencies{
		Engine:    sched,
		Incidents: incidents,
		Stations:  stations,
		Resolver:  resolver,
		Logger:    Logger,
	})

	// Operator console commands
	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	handlers.NewService(handlers.Dependencies{
		Engine:  sched,
		Monitor: monitorService,
		Logger:  Logger,
	}).Register(eventDispatcher)

	sched.Start()
	assignmentWatcher.Start()
	Logger.Info("Engine running",
		"version", CurrentEngineVersion,
		"tickInterval", simCfg.TickInterval,
		"watchInterval", simCfg.WatchInterval,
		"storage", storageCfg.Type)

	go runConsole(eventDispatcher)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	Logger.Info("Shutting down", "signal", sig.String())

	// Stop producers before sinks
	assignmentWatcher.Stop()
	sched.Stop()
	if boardSyncer != nil {
		boardSyncer.Stop()
	}
	monitorService.Stop()
	if activityStop != nil {
		close(activityStop)
	}
	if err := backend.Close(); err != nil {
		Logger.Error("Store backend close failed", "error", err)
	}
	if influxManager != nil {
		influxManager.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Error("Log flush failed", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Error("OTel shutdown failed", "error", err)
		}
	}

	Logger.Info("Engine stopped")
	return nil
}

// forwardUnitActivity drains status transitions off the event stream
// into the InfluxDB activity bucket.
func forwardUnitActivity(stream *events.Stream, m *influx.Manager, stop chan struct{}) {
	sub := stream.Subscribe()
	defer sub.Unsubscribe()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, ev := range sub.Get() {
				if sc, ok := ev.(events.UnitStatusChanged); ok {
					m.RecordUnitStatus(sc.UnitID, sc.From.String(), sc.To.String(), sc.IncidentID)
				}
			}
		}
	}
}

// buildFeedSources picks the incident/station source per config:
// an HTTP dispatch-board API, or local JSON files.
func buildFeedSources() (feed.IncidentSource, feed.StationSource) {
	if config.GetString("feed.source") == "http" {
		src := feed.NewHTTPSource(config.GetString("feed.serverUrl"), config.GetString("feed.apiKey"))
		Logger.Info("Using HTTP feed", "url", config.GetString("feed.serverUrl"))
		return src, src
	}
	incidents := feed.NewIncidentFile(viper.GetString("feed.incidentsPath"))
	stations := feed.NewStationFile(viper.GetString("feed.stationsPath"))
	Logger.Info("Using file feed",
		"incidents", viper.GetString("feed.incidentsPath"),
		"stations", viper.GetString("feed.stationsPath"))
	return incidents, stations
}

func openSessionLogFile() *os.File {
	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
			return nil
		}
	}

	path := logging.LogFilePath(logsDir, EngineName, SessionStartTime)
	if _, err := os.Stat(path); err == nil {
		os.Rename(path, path+".old")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", path)
		return nil
	}
	Logger.Info("Begin logging in logs directory", "path", path)
	return f
}
