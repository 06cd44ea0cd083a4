// Game ties the station to visiting merchants, the event log and listeners.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/port-authority/internal/agents"
	"github.com/talgya/port-authority/internal/catalogs"
	"github.com/talgya/port-authority/internal/economy"
	"github.com/talgya/port-authority/internal/station"
)

// agentNamespace scopes generated agent IDs.
var agentNamespace = uuid.MustParse("6f1c1f4e-8d0b-4c59-9a55-2f4f3e7d1a20")

// Options configures a Game.
type Options struct {
	Seed             int64
	MerchantInterval uint64 // ticks between arrivals
	MerchantDuration uint64 // ticks a merchant trades before leaving
	EventHistory     int    // capacity of the event ring
	Merchants        []catalogs.MerchantDef
}

// Command mutates the game between ticks.
type Command func(g *Game)

// DepartureHook runs when a merchant leaves port.
type DepartureHook func(m *agents.Merchant, tick uint64)

type visit struct {
	since    uint64
	merchant *agents.Merchant
}

// Game is the single-threaded simulation. Only Do is safe to call from
// other goroutines.
type Game struct {
	Station *station.Station

	opts        Options
	tickCount   uint64
	lastArrival uint64
	visiting    []visit
	cargo       *catalogs.CargoRoller
	hires       uint64

	events      *Ring[LogEvent]
	seq         uint64
	subscribers []Listener
	departures  []DepartureHook

	mu      sync.Mutex
	pending []Command
}

// NewGame builds a game around market. Facilities start empty and are
// staffed one per tick by the station's hiring policy.
func NewGame(market *economy.GlobalMarket, cfg station.Config, opts Options) *Game {
	if opts.EventHistory < 1 {
		opts.EventHistory = 1
	}
	if opts.MerchantInterval == 0 {
		opts.MerchantInterval = 1
	}
	g := &Game{
		opts:   opts,
		cargo:  catalogs.NewCargoRoller(opts.Seed),
		events: NewRing[LogEvent](opts.EventHistory),
	}
	g.Station = station.New(market, cfg, g.hire)
	return g
}

// TickCount is the number of ticks simulated so far.
func (g *Game) TickCount() uint64 { return g.tickCount }

// Hour is the hour of day of the next tick.
func (g *Game) Hour() int { return station.Clock{Count: g.tickCount}.Hour() }

// Day is the day number of the next tick.
func (g *Game) Day() int { return station.Clock{Count: g.tickCount}.Day() }

// Subscribe registers a listener called after every tick.
func (g *Game) Subscribe(fn Listener) { g.subscribers = append(g.subscribers, fn) }

// OnMerchantDeparture registers a hook run whenever a merchant leaves.
func (g *Game) OnMerchantDeparture(fn DepartureHook) { g.departures = append(g.departures, fn) }

// Do queues cmd to run at the start of the next tick.
func (g *Game) Do(cmd Command) {
	g.mu.Lock()
	g.pending = append(g.pending, cmd)
	g.mu.Unlock()
}

// Tick advances the game by one step and returns the published state.
func (g *Game) Tick() GameState {
	g.runCommands()

	clock := station.Clock{Count: g.tickCount}
	slog.Debug("tick", "tick", clock.Count, "day", clock.Day(), "hour", clock.Hour())

	g.updateMerchants(clock)

	for _, ev := range g.Station.Tick(clock) {
		g.logEvent(LogKind(ev.Kind), ev.Message)
	}

	g.printSummary()
	state := g.Snapshot()
	g.notify()

	g.tickCount++
	return state
}

// Events returns the recent event log, oldest first.
func (g *Game) Events() []LogEvent { return g.events.Items() }

// Snapshot captures the current aggregate state.
func (g *Game) Snapshot() GameState {
	s := g.Station
	clock := station.Clock{Count: g.tickCount}
	state := GameState{
		Tick:               g.tickCount,
		Day:                clock.Day(),
		Hour:               clock.Hour(),
		Population:         s.Population,
		StarvingPopulation: s.StarvingPopulation,
		Wealth:             s.Market.Wealth(),
		Resources:          s.Market.Snapshot(),
		Facilities:         s.FacilitySnapshot(),
		Merchants:          make([]MerchantStats, 0, len(g.visiting)),
	}
	for _, v := range g.visiting {
		cargo := make(map[economy.ResourceID]economy.Quantity, len(v.merchant.Cargo))
		for id, q := range v.merchant.Cargo {
			cargo[id] = q
		}
		state.Merchants = append(state.Merchants, MerchantStats{
			Name:   v.merchant.Name,
			Wealth: v.merchant.Wealth,
			Cargo:  cargo,
			Since:  v.since,
		})
	}
	return state
}

func (g *Game) notify() {
	for _, fn := range g.subscribers {
		fn(g.Snapshot(), g.events.Items())
	}
}

func (g *Game) runCommands() {
	g.mu.Lock()
	cmds := g.pending
	g.pending = nil
	g.mu.Unlock()

	for _, cmd := range cmds {
		cmd(g)
	}
}

func (g *Game) logEvent(kind LogKind, msg string) {
	g.seq++
	g.events.Push(LogEvent{Seq: g.seq, Tick: g.tickCount, Kind: kind, Message: msg})
	slog.Info(msg, "tick", g.tickCount, "type", string(kind))
}

// hire staffs a facility with a fresh agent. IDs are derived from the seed
// so replays name agents identically.
func (g *Game) hire(recipe *economy.Recipe) station.Occupant {
	g.hires++
	name := fmt.Sprintf("%d/%d", g.opts.Seed, g.hires)
	id := uuid.NewSHA1(agentNamespace, []byte(name)).String()[:8]
	return agents.NewAgent(id, g.Station.Market, recipe)
}
