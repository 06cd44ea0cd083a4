// Package station runs one port: its market, a fixed roster of production
// facilities, and a population that eats on a daily schedule.
package station

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/talgya/port-authority/internal/agents"
	"github.com/talgya/port-authority/internal/economy"
)

// Clock identifies the tick being simulated.
type Clock struct {
	Count uint64
}

// Hour is the hour of day, 0 to 23.
func (c Clock) Hour() int { return int(c.Count % 24) }

// Day is the 1-based day number.
func (c Clock) Day() int { return int(c.Count/24) + 1 }

// Occupant is anything that can run a facility.
type Occupant interface {
	ID() string
	RecipeNames() []string
	State() agents.State
	Tick()
	PrepareForEviction()
}

// Facility is a slot that hosts at most one occupant.
type Facility struct {
	Occupant Occupant
}

func (f *Facility) Vacant() bool { return f.Occupant == nil }

// HireFunc creates an occupant that will run recipe.
type HireFunc func(recipe *economy.Recipe) Occupant

// EventKind classifies station events.
type EventKind string

const (
	AgentAdded    EventKind = "AGENT_ADDITION"
	AgentEvicted  EventKind = "AGENT_EVICTION"
	PopulationLow EventKind = "POP_LOSS"
)

// Event is a notable station occurrence.
type Event struct {
	Kind    EventKind
	Message string
}

// Config is the static setup of a station.
type Config struct {
	Facilities   int
	Population   int
	FoodResource economy.ResourceID
	FoodSchedule map[int]economy.Quantity // hour → per-capita demand
	Recipes      []*economy.Recipe
}

// Station owns the market and the facility roster.
type Station struct {
	Market             *economy.GlobalMarket
	Facilities         []*Facility
	AvailableRecipes   []*economy.Recipe
	Population         int
	// StarvingPopulation is the number of residents who went without food
	// this tick, rounded up: any shortfall starves at least one resident.
	StarvingPopulation int
	FoodResource       economy.ResourceID
	FoodSchedule       map[int]economy.Quantity

	hire HireFunc
}

// New builds a station. Starting occupants fill facilities in order;
// passing more occupants than facilities panics.
func New(market *economy.GlobalMarket, cfg Config, hire HireFunc, starting ...Occupant) *Station {
	if len(starting) > cfg.Facilities {
		panic(fmt.Sprintf("station: %d starting agents for %d facilities", len(starting), cfg.Facilities))
	}
	facilities := make([]*Facility, cfg.Facilities)
	for i := range facilities {
		facilities[i] = &Facility{}
		if i < len(starting) {
			facilities[i].Occupant = starting[i]
		}
	}
	schedule := make(map[int]economy.Quantity, len(cfg.FoodSchedule))
	for h, q := range cfg.FoodSchedule {
		schedule[h] = q
	}
	return &Station{
		Market:           market,
		Facilities:       facilities,
		AvailableRecipes: cfg.Recipes,
		Population:       cfg.Population,
		FoodResource:     cfg.FoodResource,
		FoodSchedule:     schedule,
		hire:             hire,
	}
}

// Tick advances the station one step: occupants work, prices adjust, the
// population eats, then facilities are staffed and cleared.
func (s *Station) Tick(clock Clock) []Event {
	for _, f := range s.Facilities {
		if !f.Vacant() {
			f.Occupant.Tick()
		}
	}

	s.Market.Tick()

	var events []Event
	if ev, ok := s.feedPopulation(clock); ok {
		events = append(events, ev)
	}
	events = append(events, s.manageFacilities()...)
	return events
}

// feedPopulation draws the hour's food demand from the market.
func (s *Station) feedPopulation(clock Clock) (Event, bool) {
	needed := s.FoodSchedule[clock.Hour()] * economy.Quantity(s.Population)
	if needed <= 0 {
		s.StarvingPopulation = 0
		return Event{}, false
	}

	var got economy.Quantity
	if m, ok := s.Market.Market(s.FoodResource); ok {
		got = m.ConsumeFromMarket(needed).Quantity
	} else {
		slog.Warn("food resource has no market", "resource", s.FoodResource)
	}
	if got >= needed {
		s.StarvingPopulation = 0
		return Event{}, false
	}
	s.StarvingPopulation = int(math.Ceil(float64(s.Population) * (1 - got/needed)))
	return Event{
		Kind: PopulationLow,
		Message: fmt.Sprintf("Day %d %02d:00: %d of %d residents went hungry",
			clock.Day(), clock.Hour(), s.StarvingPopulation, s.Population),
	}, true
}

// manageFacilities makes one ordered pass over the roster. The first vacant
// facility gets at most one hire; every starved occupant is evicted.
func (s *Station) manageFacilities() []Event {
	var events []Event
	hired := false
	for i, f := range s.Facilities {
		if f.Vacant() {
			if hired {
				continue
			}
			hired = true
			if ev, ok := s.hireInto(i, f); ok {
				events = append(events, ev)
			}
			continue
		}
		if f.Occupant.State() == agents.InsufficientProduction {
			occ := f.Occupant
			occ.PrepareForEviction()
			f.Occupant = nil
			slog.Info("agent evicted", "agent", occ.ID(), "facility", i)
			events = append(events, Event{
				Kind:    AgentEvicted,
				Message: fmt.Sprintf("Agent %s (%s) evicted from facility %d", occ.ID(), strings.Join(occ.RecipeNames(), ", "), i),
			})
		}
	}
	return events
}

func (s *Station) hireInto(i int, f *Facility) (Event, bool) {
	recipe := s.MostProfitableRecipe()
	if recipe == nil || s.hire == nil {
		return Event{}, false
	}
	occ := s.hire(recipe)
	f.Occupant = occ
	slog.Info("agent hired", "agent", occ.ID(), "recipe", recipe.DisplayName, "facility", i)
	return Event{
		Kind:    AgentAdded,
		Message: fmt.Sprintf("Agent %s hired to %s in facility %d", occ.ID(), recipe.DisplayName, i),
	}, true
}

// MostProfitableRecipe returns the available recipe with the highest
// positive profitability, the first one on ties, or nil.
func (s *Station) MostProfitableRecipe() *economy.Recipe {
	var best *economy.Recipe
	var bestProfit economy.Price
	for _, r := range s.AvailableRecipes {
		p := s.Market.Profitability(r)
		if p > bestProfit {
			best, bestProfit = r, p
		}
	}
	return best
}

// FacilityStats is a read-only view of one facility.
type FacilityStats struct {
	Index   int      `json:"index"`
	Agent   string   `json:"agent,omitempty"`
	Recipes []string `json:"recipes,omitempty"`
	State   string   `json:"state,omitempty"`
}

// FacilitySnapshot describes every facility in order.
func (s *Station) FacilitySnapshot() []FacilityStats {
	out := make([]FacilityStats, len(s.Facilities))
	for i, f := range s.Facilities {
		out[i] = FacilityStats{Index: i}
		if !f.Vacant() {
			out[i].Agent = f.Occupant.ID()
			out[i].Recipes = f.Occupant.RecipeNames()
			out[i].State = f.Occupant.State().String()
		}
	}
	return out
}
