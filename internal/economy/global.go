package economy

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Treasury is the wealth account shared by every market of a station.
type Treasury struct {
	wealth Price
}

// NewTreasury opens an account with the given balance.
func NewTreasury(wealth Price) *Treasury {
	t := &Treasury{}
	t.Set(wealth)
	return t
}

func (t *Treasury) Balance() Price { return t.wealth }

// Set overwrites the balance. Negative balances panic.
func (t *Treasury) Set(wealth Price) {
	if wealth < 0 || math.IsNaN(wealth) {
		panic(fmt.Sprintf("economy: treasury set to invalid balance %v", wealth))
	}
	t.wealth = wealth
}

func (t *Treasury) debit(amount Price) {
	next := t.wealth - amount
	if next < -epsilon {
		panic(fmt.Sprintf("economy: debit of %v overdraws treasury holding %v", amount, t.wealth))
	}
	t.wealth = math.Max(next, 0)
}

func (t *Treasury) credit(amount Price) { t.wealth += amount }

// GlobalMarket maps resources to their markets. All markets draw on one
// Treasury. Iteration follows insertion order.
type GlobalMarket struct {
	order    []ResourceID
	markets  map[ResourceID]*ResourceMarket
	treasury *Treasury
	adjust   Fraction
}

// NewGlobalMarket creates an empty market with the given starting wealth and
// per-tick price adjustment fraction (0 selects DefaultPriceAdjustment).
func NewGlobalMarket(wealth Price, adjust Fraction) *GlobalMarket {
	if adjust == 0 {
		adjust = DefaultPriceAdjustment
	}
	if adjust <= 0 || adjust >= 1 {
		panic(fmt.Sprintf("economy: price adjustment %v outside (0, 1)", adjust))
	}
	return &GlobalMarket{
		markets:  make(map[ResourceID]*ResourceMarket),
		treasury: NewTreasury(wealth),
		adjust:   adjust,
	}
}

// AddResource registers a market for id. Registering an id twice panics.
func (g *GlobalMarket) AddResource(id ResourceID, price Price, stock Quantity) *ResourceMarket {
	if _, dup := g.markets[id]; dup {
		panic(fmt.Sprintf("economy: duplicate market %q", id))
	}
	m := newResourceMarket(id, price, stock, g.treasury, g.adjust)
	g.markets[id] = m
	g.order = append(g.order, id)
	return m
}

// Market looks up the market for id.
func (g *GlobalMarket) Market(id ResourceID) (*ResourceMarket, bool) {
	m, ok := g.markets[id]
	return m, ok
}

// Markets returns every market in insertion order.
func (g *GlobalMarket) Markets() []*ResourceMarket {
	out := make([]*ResourceMarket, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.markets[id])
	}
	return out
}

func (g *GlobalMarket) Treasury() *Treasury       { return g.treasury }
func (g *GlobalMarket) Wealth() Price             { return g.treasury.Balance() }
func (g *GlobalMarket) SetWealth(w Price)         { g.treasury.Set(w) }
func (g *GlobalMarket) PriceAdjustment() Fraction { return g.adjust }

// Tick runs price discovery on every market.
func (g *GlobalMarket) Tick() {
	for _, id := range g.order {
		g.markets[id].Tick()
	}
}

// Snapshot returns the stats of every market in insertion order.
func (g *GlobalMarket) Snapshot() []MarketStats {
	out := make([]MarketStats, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.markets[id].Stats())
	}
	return out
}

// Profitability values a recipe at current prices: outputs minus inputs.
// Resources without a market are skipped.
func (g *GlobalMarket) Profitability(r *Recipe) Price {
	var total Price
	for _, id := range SortedIDs(r.Outputs) {
		m, ok := g.markets[id]
		if !ok {
			slog.Warn("recipe output has no market", "recipe", r.DisplayName, "resource", id)
			continue
		}
		total += r.Outputs[id] * m.price
	}
	for _, id := range SortedIDs(r.Inputs) {
		m, ok := g.markets[id]
		if !ok {
			slog.Warn("recipe input has no market", "recipe", r.DisplayName, "resource", id)
			continue
		}
		total -= r.Inputs[id] * m.price
	}
	return total
}

// Recipe converts fixed input quantities into fixed output quantities.
// Recipes are shared by pointer and never mutated after construction.
type Recipe struct {
	DisplayName string                  `json:"name" yaml:"name"`
	Inputs      map[ResourceID]Quantity `json:"inputs" yaml:"inputs"`
	Outputs     map[ResourceID]Quantity `json:"outputs" yaml:"outputs"`
}

// SortedIDs returns the keys of a resource map in lexical order.
func SortedIDs(m map[ResourceID]Quantity) []ResourceID {
	ids := make([]ResourceID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FormatPrice renders an amount of wealth with two decimals.
func FormatPrice(p Price) string {
	return decimal.NewFromFloat(p).StringFixed(2)
}
