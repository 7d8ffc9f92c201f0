package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/inject"
	mlog "github.com/ayusman/mudra/internal/log"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		envFile    = flag.String("env", ".env", "Optional .env file loaded before config resolution")
		dryRun     = flag.Bool("dry-run", false, "Log actions instead of injecting them")

		addr      = flag.String("addr", "", "HTTP listen address")
		staticDir = flag.String("static", "", "Directory with the web UI")
		storePath = flag.String("db", "", "SQLite database path")
		pluginDir = flag.String("plugins", "", "Plugin directory")
		injector  = flag.String("injector", "", "Name of the input-injection plugin")
		cameraID  = flag.Int("camera", 0, "Camera device id")
		noCamera  = flag.Bool("no-camera", false, "Disable the camera pipeline")
		noTray    = flag.Bool("no-tray", false, "Disable the system tray")
		voice     = flag.Bool("voice", true, "Enable voice commands")
		logLevel  = flag.String("log-level", "", "Log level: debug, info, warn, error")
		logFormat = flag.String("log-format", "", "Log format: text or json")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// Only flags given on the command line override the file and environment.
	var o config.FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			o.Addr = addr
		case "static":
			o.StaticDir = staticDir
		case "db":
			o.StorePath = storePath
		case "plugins":
			o.PluginDir = pluginDir
		case "injector":
			o.Injector = injector
		case "camera":
			o.CameraID = cameraID
		case "no-camera":
			o.NoCamera = noCamera
		case "no-tray":
			o.NoTray = noTray
		case "voice":
			o.Voice = voice
		case "log-level":
			o.LogLevel = logLevel
		case "log-format":
			o.LogFormat = logFormat
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := mlog.Init(mlog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}

	dbPath := config.ExpandPath(cfg.Store.Path)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	inj, err := newInjector(cfg, *dryRun, logger)
	if err != nil {
		return err
	}

	voiceSwitch := gesture.NewSwitch(cfg.Voice.Enabled)
	opts := app.Options{
		Config:   cfg,
		Store:    st,
		Injector: inj,
		Voice:    voiceSwitch,
		Logger:   logger,
	}

	if cfg.Camera.Enabled {
		det, err := detector.NewMediaPipeDetector(detector.Config{
			MaxHands:        1,
			MinConfidence:   0.5,
			MinTrackingConf: 0.5,
			Faces:           cfg.Face.Enabled,
			Script:          config.ExpandPath(cfg.Camera.LandmarkerPath),
		})
		if err != nil {
			logger.Warn("camera gestures disabled", "error", err)
		} else {
			opts.Detector = det
			opts.Camera = capture.NewCamera(capture.CameraConfig{
				DeviceID: cfg.Camera.DeviceID,
				FPS:      cfg.Camera.IdleFPS,
			})
		}
	}

	if len(cfg.Voice.Command) > 0 {
		phrases, err := capture.NewPhraseSource(capture.PhraseConfig{
			Command:      cfg.Voice.Command,
			RestartDelay: time.Duration(cfg.Voice.RestartDelayMS) * time.Millisecond,
		}, voiceSwitch, logger.With("component", "speech"))
		if err != nil {
			logger.Warn("voice commands disabled", "error", err)
		} else {
			opts.Phrases = phrases
		}
	}

	events := server.NewEventsHandler(logger.With("component", "events"))

	var tr *tray.Tray
	opts.OnResult = func(r dispatch.Result) {
		events.PublishResult(r)
		if tr != nil && r.Outcome == dispatch.OutcomeOK {
			tr.SetLastAction(r.Event.Label())
		}
	}

	a, err := app.New(opts)
	if err != nil {
		return err
	}

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		logger.Info("serving web UI", "dir", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Controller: a,
		Store:      st,
		Camera:     opts.Camera,
		Events:     events,
	}).HTTPServer(cfg.Server.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tray.Enabled {
		tr = tray.New(a, logger.With("component", "tray"))
		tr.OnQuit(stop)
		tr.OnOpen(func() { openBrowser(logger, "http://"+cfg.Server.Addr) })
	}

	var wg sync.WaitGroup
	goRun := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	goRun(func() { a.Run(ctx) })

	statusUpdates, unsubscribe := a.Hub().Subscribe(16)
	defer unsubscribe()
	goRun(func() { events.Run(ctx, statusUpdates) })

	if tr != nil {
		trayUpdates, unsubscribeTray := a.Hub().Subscribe(4)
		defer unsubscribeTray()
		goRun(func() { tr.Follow(ctx, trayUpdates) })
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if tr != nil {
		// The tray owns the main goroutine until ctx ends.
		go func() {
			<-ctx.Done()
			tr.Quit()
		}()
		tr.Run()
		stop()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
		stop()
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	wg.Wait()

	return runErr
}

// newInjector returns the plugin-backed injector, or a logging one for dry runs.
func newInjector(cfg config.Config, dryRun bool, logger *slog.Logger) (dispatch.Injector, error) {
	if dryRun {
		logger.Info("dry run: actions are logged, not injected")
		return inject.NewLogInjector(logger.With("component", "inject")), nil
	}

	pluginCfg, err := cfg.PluginConfig()
	if err != nil {
		return nil, err
	}

	mgr := plugin.NewManager(config.ExpandPath(cfg.Plugins.Dir), logger.With("component", "plugins"))
	if err := mgr.Discover(); err != nil {
		logger.Warn("plugin discovery failed", "dir", mgr.PluginDir(), "error", err)
	}

	icfg := inject.DefaultConfig()
	icfg.Plugin = cfg.Plugins.Injector
	icfg.SwipeDuration = time.Duration(cfg.Dispatch.SwipeDurationMS) * time.Millisecond
	icfg.PluginConfig = pluginCfg

	inj := inject.New(icfg, mgr, plugin.NewExecutor(cfg.Plugins.TimeoutMS), logger.With("component", "inject"))
	// First check in the background so the first action sees a result.
	inj.IsAvailable()
	return inj, nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web", "~/.mudra/web"} {
		p = config.ExpandPath(p)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func openBrowser(logger *slog.Logger, url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("opening browser", "url", url, "error", err)
		return
	}
	go cmd.Wait()
}
