package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/scenecore/internal/app"
	"github.com/l1jgo/scenecore/internal/clock"
	"github.com/l1jgo/scenecore/internal/config"
	"github.com/l1jgo/scenecore/internal/core/event"
	coresys "github.com/l1jgo/scenecore/internal/core/system"
	"github.com/l1jgo/scenecore/internal/data"
	"github.com/l1jgo/scenecore/internal/input"
	"github.com/l1jgo/scenecore/internal/metrics"
	"github.com/l1jgo/scenecore/internal/persist"
	"github.com/l1jgo/scenecore/internal/scene"
	"github.com/l1jgo/scenecore/internal/scripting"
	"github.com/l1jgo/scenecore/internal/sequence"
	"github.com/l1jgo/scenecore/internal/system"
	"github.com/pkg/profile"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	inputQueueSize   = 256
	maxKeysPerTick   = 64
	diagnosticsLimit = 4096
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/scenecore.toml"
	if p := os.Getenv("SCENECORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	switch cfg.Profile.Mode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.Profile.Path), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(cfg.Profile.Path), profile.NoShutdownHook).Stop()
	}

	// 3. Metrics
	reg := prom.NewRegistry()
	exporter, err := metrics.New(cfg.Metrics.Namespace, reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if cfg.Metrics.ListenAddress != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.ListenAddress,
			Handler:           metrics.Handler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics listener stopped", zap.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	// 4. Diagnostics storage, optional
	printSection("diagnostics")
	var writer persist.FailureWriter
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		version, err := persist.MigrateDiagnostics(ctx, db)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		writer = persist.NewFailureRepo(db)
		printOK(fmt.Sprintf("PostgreSQL connected, schema version %d", version))
	} else {
		printOK("no database, failures are only logged")
	}
	recorder := persist.NewRecorder(writer, diagnosticsLimit, log)
	fmt.Println()

	// 5. Scene
	bus := event.NewBus()
	sched := sequence.NewScheduler(log, exporter)
	sc := scene.New(sched, scene.Options{
		StrictHooks: cfg.Teardown.StrictHooks,
		Log:         log,
		Metrics:     exporter,
		Bus:         bus,
		Diagnostics: recorder,
	})
	event.Subscribe(bus, func(e event.EntityDestroyed) {
		if e.Failures > 0 {
			log.Warn("entity destroyed with hook failures",
				zap.Uint64("entity", uint64(e.EntityID)),
				zap.String("name", e.Name),
				zap.Int("failures", e.Failures),
			)
		}
	})

	keys := input.NewState()
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, sc, keys, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()

	printSection("scene")
	printStat("behaviours", len(engine.Behaviours()))
	if cfg.Scene.PrefabFile != "" {
		prefabs, err := data.LoadPrefabTable(cfg.Scene.PrefabFile)
		if err != nil {
			return fmt.Errorf("load scene: %w", err)
		}
		if _, err := prefabs.Instantiate(sc, engine); err != nil {
			return fmt.Errorf("instantiate scene: %w", err)
		}
		printStat("prefabs", prefabs.Count())
	}
	printStat("entities", sc.Len())
	fmt.Println()

	// 6. Systems
	frames := clock.New(nil, cfg.Loop.TimeScale)
	frames.SetPaused(cfg.Loop.StartPaused)

	runner := coresys.NewRunner()
	loop := app.NewLoop(runner, frames, cfg.Loop.TickRate, log)

	inputSys := system.NewInputSystem(keys, bus, inputQueueSize, maxKeysPerTick, log)
	inputSys.AddListener(engine)
	persistSys := system.NewPersistenceSystem(recorder, cfg.Database.FlushEvery, log)

	runner.Register(inputSys)
	runner.Register(event.NewSystem(bus))
	runner.Register(sequence.NewSystem(sched, loop.Frame))
	runner.Register(persistSys)
	runner.Register(system.NewCleanupSystem(sc, log))

	go func() {
		if err := app.ReadKeys(os.Stdin, inputSys.Send, log); err != nil {
			log.Warn("key reader stopped", zap.Error(err))
		}
	}()

	// 7. Run until signalled
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printSection("ready")
	printReady(fmt.Sprintf("loop running (tick: %s, scale: %g)", cfg.Loop.TickRate, cfg.Loop.TimeScale))
	if cfg.Metrics.ListenAddress != "" {
		printReady(fmt.Sprintf("metrics on %s", cfg.Metrics.ListenAddress))
	}
	fmt.Println()

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if err := sc.Shutdown(); err != nil {
		log.Warn("shutdown teardown reported hook failures", zap.Error(err))
	}
	persistSys.FlushNow()
	log.Info("scene stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
