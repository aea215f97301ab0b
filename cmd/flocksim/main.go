package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/flockcity/sim/internal/config"
	"github.com/flockcity/sim/internal/core/event"
	coresys "github.com/flockcity/sim/internal/core/system"
	"github.com/flockcity/sim/internal/data"
	"github.com/flockcity/sim/internal/flock"
	gonet "github.com/flockcity/sim/internal/net"
	"github.com/flockcity/sim/internal/persist"
	"github.com/flockcity/sim/internal/projectile"
	"github.com/flockcity/sim/internal/scripting"
	"github.com/flockcity/sim/internal/system"
	"github.com/flockcity/sim/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/width"
)

const defaultConfigPath = "config/flocksim.toml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var printer = message.NewPrinter(language.TraditionalChinese)

func printBanner(seed int64) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            FlockCity  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        城市鳥群模擬 · Go 無頭引擎         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m亂數種子:\033[0m %d\n\n", seed)
}

// displayWidth counts terminal columns, two per East Asian wide rune.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func printSection(title string) {
	lineLen := 46 - displayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := printer.Sprintf("%d", count)
	dotsLen := 42 - displayWidth(label) - len(numStr)
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

// ── Main simulation logic ─────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := defaultConfigPath
	if p := os.Getenv("FLOCKSIM_CONFIG"); p != "" {
		cfgPath = p
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "path to the TOML config")
	flag.Parse()

	cfg, err := config.Load(cfgPath, cfgPath == defaultConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	printBanner(seed)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Boids
	bus := event.NewBus()
	boids := flock.NewManager(cfg.Boids, cfg.Steering, flock.NewSpawnQueue(), rand.New(rand.NewSource(seed)), bus, log)

	// 4. City
	printSection("資料載入")
	layout, err := loadCity(cfg.City, boids)
	if err != nil {
		return err
	}
	city := world.NewCity(layout.Obstacles())
	printStat("摩天大樓", city.Len())

	// 5. Camera and projectiles
	camera := world.NewCamera(mgl64.Vec3(cfg.Camera.Position), mgl64.Vec3(cfg.Camera.Direction))
	if cfg.Camera.OrbitSpeed != 0 {
		camera.Orbit(boids.Bounds().Center, cfg.Camera.OrbitSpeed)
	}
	projectiles := projectile.NewController(cfg.Projectile, camera, city, boids, bus, log)

	boids.Spawn(cfg.Boids.InitialCount)
	printStat("初始鳥群", boids.Count())
	printStat("群組數", boids.Flocks())
	fmt.Println()

	clock := &system.Clock{}
	runner := coresys.NewRunner()
	runner.Register(system.NewClockSystem(clock))

	// 6. Scenario
	if cfg.Script.Path != "" {
		printSection("劇本")
		scenario := scripting.NewScenario(system.NewControls(boids, projectiles, camera), log)
		defer scenario.Close()
		if err := scenario.LoadFile(cfg.Script.Path); err != nil {
			return err
		}
		runner.Register(system.NewScriptSystem(scenario, clock))
		printOK(fmt.Sprintf("劇本已載入 %s", cfg.Script.Path))
		fmt.Println()
	}

	runner.Register(system.NewCameraSystem(camera))
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewBoidSystem(boids, camera, city, projectiles))
	runner.Register(system.NewProjectileSystem(projectiles))

	// 7. Output feed
	var recorder *gonet.Recorder
	var sink system.FrameSink
	if cfg.Viewer.RecordPath != "" {
		recorder, err = gonet.CreateRecorder(cfg.Viewer.RecordPath)
		if err != nil {
			return err
		}
		sink = recorder
		defer func() {
			if err := recorder.Close(); err != nil {
				log.Error("錄製檔關閉失敗", zap.Error(err))
			}
		}()
	}
	var viewers *gonet.ViewerServer
	if cfg.Viewer.BindAddress != "" {
		viewers, err = gonet.NewViewerServer(cfg.Viewer.BindAddress, cfg.Viewer.OutQueueSize, log)
		if err != nil {
			return fmt.Errorf("viewer server: %w", err)
		}
		viewers.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := viewers.Shutdown(sctx); err != nil {
				log.Warn("觀看伺服器關閉失敗", zap.Error(err))
			}
		}()
	}
	if sink != nil || viewers != nil {
		runner.Register(system.NewOutputSystem(boids, projectiles, camera, clock, sink, viewers, log, cfg.Viewer.Every))
	}

	// 8. Journal
	var journal *persist.Journal
	if cfg.Journal.Driver != "" {
		printSection("資料庫")
		octx, cancel := context.WithTimeout(ctx, 30*time.Second)
		journal, err = persist.Open(octx, cfg.Journal, log)
		cancel()
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer journal.Close()
		printOK(fmt.Sprintf("%s 連線成功，遷移完成", cfg.Journal.Driver))

		runID, err := journal.BeginRun(ctx, persist.RunInfo{
			Seed:         seed,
			Flocks:       boids.Flocks(),
			InitialBoids: boids.Count(),
			Obstacles:    city.Len(),
			TickRate:     cfg.Simulation.TickRate,
		})
		if err != nil {
			return fmt.Errorf("begin run: %w", err)
		}
		printStat("執行編號", int(runID))
		fmt.Println()
		runner.Register(system.NewJournalSystem(context.Background(), journal, boids, projectiles, clock, bus, log, cfg.Journal.SampleEvery))
	}

	runner.Register(system.NewCleanupSystem(boids, projectiles))

	printSection("模擬就緒")
	if viewers != nil {
		printReady(fmt.Sprintf("觀看端點 ws://%s/ws", viewers.Addr().String()))
	}
	printReady(fmt.Sprintf("模擬迴圈啟動 (tick: %s)", cfg.Simulation.TickRate))
	fmt.Println()

	// 9. Tick loop
	overruns := loop(ctx, cfg.Simulation, runner, log)

	log.Info("模擬已停止",
		zap.Uint64("ticks", runner.Ticks()),
		zap.Int("overruns", overruns),
		zap.Duration("worst_tick", runner.WorstTickDuration()),
		zap.Int("boids", boids.Count()),
		zap.Int("projectiles", projectiles.Count()),
	)
	if journal != nil {
		ectx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := journal.EndRun(ectx, runner.Ticks(), boids.Count()); err != nil {
			log.Error("結束執行紀錄失敗", zap.Error(err))
		}
	}
	return nil
}

// loop steps the runner until ctx ends or max_ticks is reached and returns
// how many ticks overran the tick rate. Realtime runs pace ticks with a
// ticker; otherwise ticks run back to back with the same fixed step.
func loop(ctx context.Context, cfg config.SimulationConfig, runner *coresys.Runner, log *zap.Logger) int {
	overruns := 0
	step := func() {
		runner.Tick(cfg.TickRate)
		if runner.LastTickDuration() > cfg.TickRate {
			overruns++
		}
	}
	done := func() bool {
		return cfg.MaxTicks > 0 && runner.Ticks() >= cfg.MaxTicks
	}

	if !cfg.Realtime {
		for !done() {
			select {
			case <-ctx.Done():
				log.Info("收到關閉信號")
				return overruns
			default:
			}
			step()
		}
		return overruns
	}

	ticker := time.NewTicker(cfg.TickRate)
	defer ticker.Stop()
	for !done() {
		select {
		case <-ticker.C:
			step()
		case <-ctx.Done():
			log.Info("收到關閉信號")
			return overruns
		}
	}
	return overruns
}

// loadCity reads the configured layout, or generates one over the boid
// volume when no path is set.
func loadCity(cfg config.CityConfig, boids *flock.Manager) (*data.CityLayout, error) {
	if cfg.Path == "" {
		return data.GenerateCity(cfg.GenerateCount, cfg.Seed, boids.Bounds()), nil
	}
	layout, err := data.LoadCity(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load city: %w", err)
	}
	return layout, nil
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
