// Command principiad is the C-ABI boundary a host game process loads
// as a shared library (spec §6's "host calls into the core on one
// thread per tick"): it wires config, logging, persistence, live
// streaming and telemetry around a single internal/worker.Manager,
// then hands the resulting dispatcher to pkg/pluginabi so the host's
// RVExtension-style calls reach it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/OCAP2/extension/v5/internal/api"
	"github.com/OCAP2/extension/v5/internal/config"
	"github.com/OCAP2/extension/v5/internal/database"
	"github.com/OCAP2/extension/v5/internal/dispatcher"
	"github.com/OCAP2/extension/v5/internal/influx"
	"github.com/OCAP2/extension/v5/internal/logging"
	"github.com/OCAP2/extension/v5/internal/monitor"
	intOtel "github.com/OCAP2/extension/v5/internal/otel"
	"github.com/OCAP2/extension/v5/internal/parser"
	"github.com/OCAP2/extension/v5/internal/plugin"
	"github.com/OCAP2/extension/v5/internal/storage"
	wsstorage "github.com/OCAP2/extension/v5/internal/storage/websocket"
	"github.com/OCAP2/extension/v5/internal/worker"
	"github.com/OCAP2/extension/v5/pkg/pluginabi"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"
)

// module defs - BuildDate can be set at build time via ldflags.
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	ExtensionName string = "principiad"
)

var (
	// ModulePath is the absolute path to this shared library, resolved
	// via pkg/pluginabi's platform-specific lookup. Empty when run as a
	// plain binary outside a host process (e.g. local debugging).
	ModulePath string

	// ConfigDir is where principiad.cfg.json and the output snapshot
	// directory are resolved relative to: ModulePath's directory, or
	// the working directory if ModulePath couldn't be resolved.
	ConfigDir string

	InitLogFile *os.File
	LogFile     *os.File

	SessionStartTime = time.Now()
)

var (
	SlogManager *logging.SlogManager
	Logger      *slog.Logger
	OTelProvider *intOtel.Provider

	zLog zerolog.Logger

	eventDispatcher *dispatcher.Dispatcher
	storageBackend  storage.Backend
	streamer        worker.Streamer
	workerManager   *worker.Manager
	monitorService  *monitor.Service
	influxManager   *influx.Manager
	apiClient       *api.Client
	debugServer     *api.DebugServer
	debugHTTPServer *http.Server

	monitorDB *gorm.DB
)

func init() {
	ModulePath = pluginabi.ModulePath()
	if ModulePath != "" {
		ConfigDir = filepath.Dir(ModulePath)
	} else if wd, err := os.Getwd(); err == nil {
		ConfigDir = wd
	} else {
		ConfigDir = "."
	}

	var err error
	InitLogFile, err = os.Create(filepath.Join(ConfigDir, "init.log"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create init log file: %v\n", err)
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(InitLogFile, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(ConfigDir); err != nil {
		Logger.Warn("failed to load config, using defaults", "error", err)
	} else {
		Logger.Info("loaded config", "dir", ConfigDir)
	}

	logPath := logging.LogFilePath(ConfigDir, ExtensionName, SessionStartTime)
	LogFile, err = os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		Logger.Error("failed to open session log file", "error", err, "path", logPath)
	}

	otelCfg := config.GetOTelConfig()
	var otelLogProvider *sdklog.LoggerProvider
	if otelCfg.Enabled {
		otelCfg.LogWriter = LogFile
		OTelProvider, err = intOtel.New(otelCfg)
		if err != nil {
			Logger.Error("failed to initialize OTel provider", "error", err)
		} else {
			otelLogProvider = OTelProvider.LoggerProvider()
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	if config.GetBool("graylog.enabled") {
		addr := config.GetString("graylog.address")
		if gw, err := gelf.NewWriter(addr); err != nil {
			Logger.Warn("failed to connect graylog writer, continuing without it", "error", err, "address", addr)
		} else {
			SlogManager.SetGraylogWriter(gw)
			Logger.Info("graylog writer connected", "address", addr)
		}
	}

	SlogManager.Setup(LogFile, config.GetString("logLevel"), otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("logging to file", "path", logPath)

	zLog = zerolog.New(LogFile).With().Timestamp().Logger()

	dispatcherLogger := logging.NewDispatcherLogger(zLog)
	eventDispatcher, err = dispatcher.New(dispatcherLogger)
	if err != nil {
		Logger.Error("failed to create dispatcher", "error", err)
		return
	}

	if err := setupWorker(); err != nil {
		Logger.Error("failed to set up worker manager", "error", err)
		return
	}

	setupMonitor()
	setupInflux()
	setupAPI()

	pluginabi.SetVersion(CurrentVersion)
	pluginabi.SetDispatcher(eventDispatcher)

	Logger.Info("principiad ready", "version", CurrentVersion, "buildDate", BuildDate)
}

// setupWorker builds the storage backend, the optional live-streaming
// backend, and the worker.Manager, restoring a previous session's
// Plugin from the backend's last snapshot if one exists (spec §6
// "Persistence": the restored Plugin's next observable behavior must
// equal the original's).
func setupWorker() error {
	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, zLog)
	if err != nil {
		return fmt.Errorf("creating storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing %s storage backend: %w", storageCfg.Type, err)
	}
	storageBackend = backend
	Logger.Info("storage backend initialized", "type", storageCfg.Type)

	wsCfg := config.GetWebSocketConfig()
	if wsCfg.Enabled {
		ws := wsstorage.New(wsstorage.Config{URL: wsCfg.URL, Secret: wsCfg.Secret})
		if err := ws.Init(); err != nil {
			Logger.Warn("failed to connect live-streaming backend, continuing without it", "error", err, "url", wsCfg.URL)
		} else {
			streamer = ws
			Logger.Info("live-streaming backend connected", "url", wsCfg.URL)
		}
	}

	parserSvc := parser.New(Logger)

	if data, ok, err := storageBackend.ReadSnapshot(); err != nil {
		Logger.Warn("failed to read prior snapshot, starting fresh", "error", err)
		workerManager = worker.NewManager(parserSvc, storageBackend, streamer)
	} else if ok {
		snapshot, err := plugin.Deserialize(data)
		if err != nil {
			Logger.Warn("failed to decode prior snapshot, starting fresh", "error", err)
			workerManager = worker.NewManager(parserSvc, storageBackend, streamer)
		} else {
			workerManager = worker.Restore(parserSvc, storageBackend, streamer, snapshot)
			Logger.Info("restored session from prior snapshot", "sunIndex", snapshot.SunIndex, "currentTime", snapshot.CurrentTime)
		}
	} else {
		workerManager = worker.NewManager(parserSvc, storageBackend, streamer)
	}

	workerManager.RegisterHandlers(eventDispatcher)
	Logger.Info("worker handlers registered with dispatcher")
	return nil
}

// setupMonitor starts the periodic state-sampling goroutine. A Postgres
// connection is opened independently of storageBackend for hypertable
// validation and sample persistence: the snapshot backend's own DB
// handle (if any) isn't exposed across the storage.Backend interface.
func setupMonitor() {
	storageCfg := config.GetStorageConfig()

	deps := monitor.Dependencies{
		LogManager:    SlogManager,
		WorkerManager: workerManager,
		AddonFolder:   ConfigDir,
	}

	if storageCfg.Type == "postgres" {
		dsn := database.PostgresDSN(storageCfg.Postgres.Host, storageCfg.Postgres.Port,
			storageCfg.Postgres.Username, storageCfg.Postgres.Password, storageCfg.Postgres.Database)
		db, err := database.OpenPostgres(dsn)
		if err != nil {
			Logger.Warn("failed to open monitor's postgres connection, status samples won't persist", "error", err)
		} else {
			monitorDB = db
			deps.DB = db
			deps.IsDatabaseValid = func() bool { return monitorDB != nil }
		}
	}

	monitorService = monitor.NewService(deps)
	if err := monitorService.Start(); err != nil {
		Logger.Error("failed to start status monitor", "error", err)
	}
}

// setupInflux connects the telemetry writer if enabled in config. A
// failed connection degrades to the gzipped backup file rather than
// blocking startup: telemetry is an observability concern, not a
// correctness one.
func setupInflux() {
	influxCfg := config.GetInfluxConfig()
	if !influxCfg.Enabled {
		return
	}
	backupPath := filepath.Join(ConfigDir, fmt.Sprintf("%s_influx_backup_%s.log.gz", ExtensionName, SessionStartTime.Format("20060102_150405")))
	influxManager = influx.NewManager(zLog, backupPath)
	if err := influxManager.Connect(); err != nil {
		Logger.Warn("influxdb connection failed, writing backup file instead", "error", err)
	} else {
		Logger.Info("influxdb connected")
	}
}

// setupAPI builds the upload Client used at shutdown to archive the
// session, and starts the read-only debug HTTP surface if a port is
// configured.
func setupAPI() {
	apiClient = api.New(config.GetString("api.serverUrl"), config.GetString("api.apiKey"))
	debugServer = api.NewDebugServer(workerManager)

	port := config.GetString("debug.listenAddr")
	if port == "" {
		return
	}
	debugHTTPServer = &http.Server{Addr: port, Handler: debugServer.Handler()}
	go func() {
		if err := debugHTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			Logger.Error("debug HTTP server stopped", "error", err)
		}
	}()
	Logger.Info("debug HTTP surface listening", "addr", port)
}

// main blocks until the host (or an operator, for standalone runs)
// asks principiad to stop. The C exports pkg/pluginabi installs are
// the real entry points once this shared library is loaded; main is
// only required by the Go toolchain's -buildmode=c-shared and matters
// on its own when principiad is run as a plain debugging binary.
func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	Logger.Info("shutdown signal received")
	shutdown()
}

// shutdown tears down every component init started, in roughly
// reverse order, archiving the final snapshot before closing storage.
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if debugHTTPServer != nil {
		_ = debugHTTPServer.Shutdown(ctx)
	}

	if workerManager != nil {
		if err := workerManager.Close(); err != nil {
			Logger.Warn("error ending streamer session", "error", err)
		}
	}

	archiveSession()

	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Warn("error closing storage backend", "error", err)
		}
	}

	if influxManager != nil {
		if influxManager.IsValid {
			influxManager.Client.Close()
		}
		if influxManager.BackupWriter != nil {
			_ = influxManager.BackupWriter.Close()
		}
	}

	if monitorService != nil {
		monitorService.Stop()
	}

	if OTelProvider != nil {
		_ = SlogManager.Flush(ctx)
		_ = OTelProvider.Shutdown(ctx)
	}

	if LogFile != nil {
		_ = LogFile.Close()
	}
	if InitLogFile != nil {
		_ = InitLogFile.Close()
	}
}
