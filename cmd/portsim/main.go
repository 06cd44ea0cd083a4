// Command portsim runs the station economy simulation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/port-authority/internal/api"
	"github.com/talgya/port-authority/internal/catalogs"
	"github.com/talgya/port-authority/internal/config"
	"github.com/talgya/port-authority/internal/economy"
	"github.com/talgya/port-authority/internal/engine"
	"github.com/talgya/port-authority/internal/history"
	"github.com/talgya/port-authority/internal/station"
)

func main() {
	configPath := flag.String("config", "", "path to config file (built-in defaults when empty)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("portsim failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadAndValidate(configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))
	slog.SetDefault(logger)
	slog.Info("starting portsim", "config", configPath, "seed", cfg.Sim.Seed)

	// ── Catalog and market ───────────────────────────────────────────
	cat := catalogs.Default()
	if cfg.Catalog.Path != "" {
		var err error
		if cat, err = catalogs.Load(cfg.Catalog.Path); err != nil {
			return err
		}
		slog.Info("catalog loaded", "path", cfg.Catalog.Path)
	}
	market := cat.Build(cfg.Sim.StartingWealth, cfg.Sim.PriceAdjustment)
	food := economy.ResourceID(cfg.Food.Resource)
	if _, ok := market.Market(food); !ok {
		return fmt.Errorf("food resource %q is not in the catalog", food)
	}

	schedule := make(map[int]economy.Quantity, len(cfg.Food.Schedule))
	for hour, q := range cfg.Food.Schedule {
		schedule[hour] = q
	}

	game := engine.NewGame(market, station.Config{
		Facilities:   cfg.Sim.Facilities,
		Population:   cfg.Sim.Population,
		FoodResource: food,
		FoodSchedule: schedule,
		Recipes:      cat.Recipes,
	}, engine.Options{
		Seed:             cfg.Sim.Seed,
		MerchantInterval: cfg.Merchants.Interval,
		MerchantDuration: cfg.Merchants.Duration,
		EventHistory:     cfg.Sim.EventHistory,
		Merchants:        cat.Merchants,
	})

	// ── History ──────────────────────────────────────────────────────
	var db *history.DB
	if cfg.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.History.DBPath), 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
		var err error
		if db, err = history.Open(cfg.History.DBPath); err != nil {
			return err
		}
		tickDir := filepath.Join(cfg.History.TickLogDir, fmt.Sprintf("run-%04d", db.RunID()))
		rec := history.NewRecorder(db, history.NewTickLog(tickDir))
		defer func() {
			if err := rec.Close(); err != nil {
				slog.Error("close history", "error", err)
			}
		}()
		rec.Attach(game, cfg.Sim.Seed)
		slog.Info("history enabled", "db", cfg.History.DBPath, "run", db.RunID(), "tick_log", tickDir)
	}

	// ── Engine ───────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Interval = cfg.Sim.TickInterval
	eng.MaxTicks = cfg.Sim.MaxTicks
	eng.SetSpeed(cfg.Sim.Speed)
	eng.OnTick = func(uint64) { game.Tick() }
	eng.OnDay = game.DailyReport

	var srv *api.Server
	if cfg.API.Enabled {
		srv = api.NewServer(game, eng, db, cfg.API.Port, cfg.API.AdminKey)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		// A finished run stops the API too.
		defer cancel()
		return eng.Run(gctx)
	})
	if srv != nil {
		g.Go(func() error { return srv.Run(gctx) })
	}

	err := g.Wait()
	state := game.Snapshot()
	slog.Info("portsim stopped",
		"ticks", game.TickCount(),
		"sim_time", engine.SimTime(game.TickCount()),
		"population", state.Population,
		"wealth", economy.FormatPrice(state.Wealth),
	)
	return err
}
