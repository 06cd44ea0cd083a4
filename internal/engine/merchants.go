package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/port-authority/internal/agents"
	"github.com/talgya/port-authority/internal/catalogs"
	"github.com/talgya/port-authority/internal/economy"
	"github.com/talgya/port-authority/internal/entropy"
	"github.com/talgya/port-authority/internal/station"
)

// updateMerchants rolls a new arrival when one is due, lets every visitor
// trade, then sends off those whose stay is over.
func (g *Game) updateMerchants(clock station.Clock) {
	if clock.Count-g.lastArrival >= g.opts.MerchantInterval {
		g.lastArrival = clock.Count
		g.arrive(clock)
	}

	for _, v := range g.visiting {
		for _, tr := range v.merchant.Tick() {
			g.logEvent(MerchantTrade, tr.String())
		}
	}

	staying := g.visiting[:0]
	for _, v := range g.visiting {
		if clock.Count-v.since+1 >= g.opts.MerchantDuration {
			g.depart(v, clock)
			continue
		}
		staying = append(staying, v)
	}
	g.visiting = staying
}

func (g *Game) arrive(clock station.Clock) {
	defs := g.opts.Merchants
	weights := make([]float64, len(defs))
	for i, d := range defs {
		weights[i] = Attractiveness(d, g.Station.Market)
	}
	def, err := entropy.Pick(g.opts.Seed, clock.Count, defs, weights)
	if err != nil {
		slog.Debug("no merchant arrival", "tick", clock.Count, "error", err)
		return
	}

	name := def.Name
	if name == "" {
		name = fmt.Sprintf("Merchant %d", clock.Count)
	}
	m := agents.NewMerchant(name, def.Wealth, g.cargo.Roll(def, clock.Count), def.WantsToBuy, def.ProfitMargin, g.Station.Market)
	g.visiting = append(g.visiting, visit{since: clock.Count, merchant: m})
	g.logEvent(ShipArrival, fmt.Sprintf("%s arrived with %s wealth", m.Name, economy.FormatPrice(m.Wealth)))
}

func (g *Game) depart(v visit, clock station.Clock) {
	g.logEvent(ShipDeparture, fmt.Sprintf("%s departed with %s wealth", v.merchant.Name, economy.FormatPrice(v.merchant.Wealth)))
	for _, fn := range g.departures {
		fn(v.merchant, clock.Count)
	}
}

// Attractiveness weighs how likely a merchant kind is to call, given the
// current trade policy. Each resource the merchant would sell contributes
// its import factor and each one it wants contributes its export factor; a
// ban zeroes the factor. The def's weight scales the mean factor.
func Attractiveness(def catalogs.MerchantDef, market *economy.GlobalMarket) float64 {
	if def.Weight <= 0 {
		return 0
	}
	wants := make(map[economy.ResourceID]bool, len(def.WantsToBuy))
	for _, id := range def.WantsToBuy {
		wants[id] = true
	}

	var sum float64
	var n int
	for _, cg := range def.Cargo {
		if wants[cg.Resource] {
			continue
		}
		m, ok := market.Market(cg.Resource)
		if !ok {
			continue
		}
		n++
		if p := m.Policy(); !p.ImportForbidden {
			sum += math.Max(0, 1+p.ImportPriceModifier)
		}
	}
	for _, id := range def.WantsToBuy {
		m, ok := market.Market(id)
		if !ok {
			continue
		}
		n++
		if p := m.Policy(); !p.ExportForbidden {
			sum += math.Max(0, 1-p.ExportPriceModifier)
		}
	}
	if n == 0 {
		return def.Weight
	}
	return def.Weight * sum / float64(n)
}
