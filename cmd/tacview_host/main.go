package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/OCAP2/tacview/internal/api"
	"github.com/OCAP2/tacview/internal/config"
	"github.com/OCAP2/tacview/internal/database"
	"github.com/OCAP2/tacview/internal/dispatcher"
	"github.com/OCAP2/tacview/internal/geo"
	"github.com/OCAP2/tacview/internal/handshake"
	"github.com/OCAP2/tacview/internal/influx"
	"github.com/OCAP2/tacview/internal/logging"
	"github.com/OCAP2/tacview/internal/mission"
	"github.com/OCAP2/tacview/internal/monitor"
	intOtel "github.com/OCAP2/tacview/internal/otel"
	"github.com/OCAP2/tacview/internal/recorder"
	"github.com/OCAP2/tacview/internal/session"
	"github.com/OCAP2/tacview/internal/storage"
	"github.com/OCAP2/tacview/internal/stream"
	"github.com/OCAP2/tacview/internal/transport"
	"github.com/OCAP2/tacview/internal/transport/tcp"
	"github.com/OCAP2/tacview/internal/transport/websocket"
)

// BuildVersion and BuildDate can be set at build time via ldflags.
var (
	BuildVersion = "0.0.1"
	BuildDate    = "unknown"
)

const binaryName = "tacview_host"

func main() {
	flags := pflag.NewFlagSet(binaryName, pflag.ExitOnError)
	configDir := flags.StringP("config", "c", ".", "directory containing "+config.FileName)
	flags.String("log-level", "", "override logLevel")
	flags.String("host-name", "", "override stream.hostName")
	flags.Int("aircraft", 4, "number of simulated aircraft")
	flags.Bool("version", false, "print version and exit")
	_ = flags.Parse(os.Args[1:])

	if v, _ := flags.GetBool("version"); v {
		fmt.Printf("%s %s (%s)\n", binaryName, BuildVersion, BuildDate)
		return
	}

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config, using defaults: %v\n", err)
	}
	bindFlag(flags, "logLevel", "log-level")
	bindFlag(flags, "stream.hostName", "host-name")

	args := flags.Args()
	if len(args) > 0 {
		if err := runCommand(args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	aircraft, _ := flags.GetInt("aircraft")
	if err := run(aircraft); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bindFlag(flags *pflag.FlagSet, key, name string) {
	if f := flags.Lookup(name); f != nil && f.Changed {
		_ = viper.BindPFlag(key, f)
	}
}

type app struct {
	start      time.Time
	logManager *logging.SlogManager
	logger     *slog.Logger
	logFile    *os.File
	otel       *intOtel.Provider
	closers    []func() error
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Shutdown step failed", "error", err)
		}
	}
}

// setupLogging opens the session log file, the optional Graylog writer and
// the OTel provider, then installs the combined slog handler.
func (a *app) setupLogging(provider logging.ContextProvider) error {
	a.logManager = logging.NewSlogManager()
	a.logManager.SetContextProvider(provider)

	file, path, err := logging.OpenLogFile(viper.GetString("logsDir"), binaryName, a.start)
	if err != nil {
		return err
	}
	a.logFile = file
	a.onClose(file.Close)

	var extra []io.Writer
	var gelfErr error
	if viper.GetBool("graylog.enabled") {
		gw, err := gelf.NewWriter(viper.GetString("graylog.address"))
		if err != nil {
			gelfErr = err
		} else {
			extra = append(extra, gw)
			a.onClose(gw.Close)
		}
	}

	var otelErr error
	otelCfg := config.GetOTelConfig()
	a.otel, otelErr = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		HostName:     viper.GetString("stream.hostName"),
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    file,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	var logProvider *sdklog.LoggerProvider
	if a.otel != nil {
		logProvider = a.otel.LoggerProvider()
	}

	a.logManager.Setup(file, viper.GetString("logLevel"), logProvider, extra...)
	a.logger = a.logManager.Logger()
	a.logger.Info("Starting up", "version", BuildVersion, "build", BuildDate, "log", path)

	if gelfErr != nil {
		a.logger.Error("Failed to connect Graylog writer", "address", viper.GetString("graylog.address"), "error", gelfErr)
	}
	if otelErr != nil {
		a.logger.Error("Failed to initialize OTel provider", "error", otelErr)
	}
	return nil
}

func zeroLogger(w io.Writer, component string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(viper.GetString("logLevel"))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", component).Logger()
}

func run(aircraft int) error {
	a := &app{start: time.Now()}

	var (
		sessMu sync.RWMutex
		sess   *session.Session
	)
	err := a.setupLogging(func() []slog.Attr {
		sessMu.RLock()
		defer sessMu.RUnlock()
		if sess == nil {
			return nil
		}
		return sess.LogAttrs()
	})
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	streamCfg := config.GetStreamConfig()

	meta, err := config.GetMetadata()
	if err != nil {
		logger.Warn("Ignoring mission reference time", "error", err)
	}
	missionCtx := mission.NewContext()
	missionCtx.SetMetadata(meta)
	startedAt := missionCtx.StartRecording(a.start)

	inbox, err := dispatcher.NewWithSize(logging.NewDispatcherLogger(logger), streamCfg.InboxSize)
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}
	engine, err := stream.New(logger)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	mux := transport.NewMux()
	hs := handshake.New(streamCfg.HostName, missionCtx, mux, engine, logger)
	hs.Register(inbox)

	area, proj, err := loadArea(logger)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 2)
	if streamCfg.TCPEnabled {
		srv := tcp.New(tcp.Config{
			Addr:       streamCfg.TCPAddr,
			Password:   streamCfg.TCPPassword,
			SendBuffer: streamCfg.SendBuffer,
		}, logger)
		if err := srv.Listen(); err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Serve(ctx, mux.Route(srv, inbox)); err != nil {
				serveErr <- err
			}
		}()
	}
	if streamCfg.WebSocketEnabled {
		srv := websocket.New(websocket.Config{
			Addr:       streamCfg.WebSocketAddr,
			Path:       streamCfg.WebSocketPath,
			Secret:     streamCfg.WebSocketSecret,
			SendBuffer: streamCfg.SendBuffer,
		}, logger)
		if err := srv.Listen(); err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Serve(ctx, mux.Route(srv, inbox)); err != nil {
				serveErr <- err
			}
		}()
	}

	host := newDemoHost(proj, aircraft)
	s := session.New(session.Config{TickRate: streamCfg.TickRate, Area: area},
		inbox, engine, host, mux, missionCtx, startedAt, logger)
	sessMu.Lock()
	sess = s
	sessMu.Unlock()

	rec, err := a.setupRecorder(ctx, streamCfg.HostName, hs, mux, missionCtx)
	if err != nil {
		logger.Error("Recording disabled", "error", err)
	}
	if rec != nil {
		if err := rec.Start(time.Now()); err != nil {
			logger.Error("Failed to start recording", "error", err)
			rec = nil
		}
	}

	mon := a.setupMonitor(ctx, streamCfg.HostName, s.Stats, inbox)
	_ = mon.Start()

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	select {
	case err = <-serveErr:
		logger.Error("Transport stopped", "error", err)
		stop()
		<-runErr
	case err = <-runErr:
	}

	mon.Stop()
	if rec != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		sum, stopErr := rec.Stop(shutdownCtx, s.Stats().Frame)
		cancel()
		if stopErr != nil {
			logger.Error("Failed to finish recording", "error", stopErr)
		} else {
			logger.Info("Recording finished", "name", sum.Name, "path", sum.Path,
				"duration", sum.Duration, "bytes", sum.Bytes, "uploaded", sum.Uploaded)
		}
	}

	stop()
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.logManager.Flush(flushCtx); err != nil {
		logger.Warn("Failed to flush logs", "error", err)
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(flushCtx); err != nil {
			logger.Warn("Failed to shut down OTel", "error", err)
		}
	}
	return err
}

func loadArea(logger *slog.Logger) (geo.Area, geo.Projection, error) {
	cfg := config.GetAreaConfig()
	proj, err := geo.NewProjection(cfg.ReferenceLongitude, cfg.ReferenceLatitude)
	if err != nil {
		return geo.Area{}, geo.Projection{}, fmt.Errorf("area reference: %w", err)
	}
	if !cfg.Enabled || cfg.Polygon == "" {
		return geo.Area{}, proj, nil
	}
	area, err := geo.ParseArea(cfg.Polygon)
	if err != nil {
		return geo.Area{}, proj, fmt.Errorf("area polygon: %w", err)
	}
	logger.Info("Area of interest loaded", "wkt", area.WKT())
	return area, proj, nil
}

// setupRecorder returns nil without error when recording is disabled.
func (a *app) setupRecorder(ctx context.Context, host string, hs *handshake.Handshake, mux *transport.Mux, meta *mission.Context) (*recorder.Recorder, error) {
	recCfg := config.GetRecordingConfig()
	if !recCfg.Enabled {
		return nil, nil
	}
	backend, err := storage.NewBackend(recCfg, a.logger)
	if err != nil {
		return nil, err
	}

	var opts recorder.Options
	if catalogCfg := config.GetCatalogConfig(); catalogCfg.Enabled {
		catalog := database.NewManager(catalogCfg, zeroLogger(a.logFile, "catalog"))
		if err := catalog.Connect(); err != nil {
			a.logger.Error("Recording catalog unavailable", "error", err)
		} else {
			a.onClose(catalog.Close)
			opts.Catalog = catalog
		}
	}
	if recCfg.Upload {
		client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
		if err := client.Healthcheck(ctx); err != nil {
			a.logger.Warn("Upload server not reachable yet", "error", err)
		}
		opts.Uploader = client
	}

	return recorder.New(host, backend, hs, mux, meta, opts, a.logger), nil
}

func (a *app) setupMonitor(ctx context.Context, host string, stats func() session.Stats, inbox monitor.Inbox) *monitor.Service {
	monCfg := config.GetMonitorConfig()
	deps := monitor.Dependencies{
		Stats:      stats,
		Inbox:      inbox,
		Logger:     a.logger,
		StatusFile: monCfg.StatusFile,
		HostName:   host,
		Interval:   monCfg.Interval,
	}

	influxCfg := config.GetInfluxConfig()
	backup := filepath.Join(viper.GetString("logsDir"), "influx_backup.lp.gz")
	im := influx.NewManager(influxCfg, zeroLogger(a.logFile, "influx"), backup)
	switch err := im.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
	case err != nil:
		a.logger.Error("Failed to initialize InfluxDB", "error", err)
	default:
		a.onClose(im.Close)
		deps.Points = im
	}
	return monitor.NewService(deps)
}
