package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/port-authority/internal/economy"
	"github.com/talgya/port-authority/internal/station"
)

// printSummary logs the per-tick market, facility and recipe overview.
func (g *Game) printSummary() {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	s := g.Station
	slog.Debug("market", "tick", g.tickCount, "wealth", economy.FormatPrice(s.Market.Wealth()))
	for _, m := range s.Market.Markets() {
		slog.Debug("resource", "tick", g.tickCount, "resource", m.ResourceID(),
			"stock", humanize.Ftoa(m.Stock()), "price", economy.FormatPrice(m.Price()))
	}
	for _, f := range s.FacilitySnapshot() {
		if f.Agent == "" {
			slog.Debug("facility", "tick", g.tickCount, "index", f.Index, "agent", "none")
			continue
		}
		slog.Debug("facility", "tick", g.tickCount, "index", f.Index, "agent", f.Agent,
			"recipes", strings.Join(f.Recipes, ", "), "state", f.State)
	}
	for _, r := range s.AvailableRecipes {
		slog.Debug("recipe", "tick", g.tickCount, "recipe", r.DisplayName,
			"profit", economy.FormatPrice(s.Market.Profitability(r)))
	}
}

// DailyReport logs a summary of the station at the end of the day that
// contains lastTick.
func (g *Game) DailyReport(lastTick uint64) {
	state := g.Snapshot()
	state.Day = station.Clock{Count: lastTick}.Day()
	staffed := 0
	for _, f := range state.Facilities {
		if f.Agent != "" {
			staffed++
		}
	}
	slog.Info("daily report",
		"day", state.Day,
		"wealth", humanize.CommafWithDigits(state.Wealth, 2),
		"population", humanize.Comma(int64(state.Population)),
		"starving", state.StarvingPopulation,
		"facilities", staffed,
		"merchants", len(state.Merchants),
	)
	for _, r := range state.Resources {
		slog.Info("daily price",
			"day", state.Day,
			"resource", r.Resource,
			"stock", humanize.CommafWithDigits(r.Stock, 1),
			"price", economy.FormatPrice(r.Price),
		)
	}
}
