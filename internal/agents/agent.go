// Package agents implements the station's economic actors: production
// agents that occupy facilities and the merchants that visit the port.
package agents

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/port-authority/internal/economy"
)

// MaxTicksWithoutProduction is how many idle ticks an agent tolerates before
// it reports insufficient production.
const MaxTicksWithoutProduction = 5

// State is the production state of an agent.
type State int

const (
	Producing State = iota
	InsufficientProduction
)

func (s State) String() string {
	switch s {
	case Producing:
		return "producing"
	case InsufficientProduction:
		return "insufficient production"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON snapshots.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Agent runs one or more recipes in a facility. Each tick it tops up inputs
// from the market, produces as many full cycles as storage allows, and hands
// every output back to the market.
type Agent struct {
	id      string
	recipes []*economy.Recipe
	market  *economy.GlobalMarket
	log     *slog.Logger

	state                  State
	storage                map[economy.ResourceID]economy.Quantity
	ticksWithoutProduction int
}

// NewAgent creates a producing agent with empty storage.
func NewAgent(id string, market *economy.GlobalMarket, recipes ...*economy.Recipe) *Agent {
	return &Agent{
		id:      id,
		recipes: recipes,
		market:  market,
		log:     slog.With("agent", id),
		state:   Producing,
		storage: make(map[economy.ResourceID]economy.Quantity),
	}
}

func (a *Agent) ID() string                  { return a.id }
func (a *Agent) State() State                { return a.state }
func (a *Agent) Recipes() []*economy.Recipe  { return a.recipes }
func (a *Agent) TicksWithoutProduction() int { return a.ticksWithoutProduction }

// RecipeNames lists the display names of the agent's recipes.
func (a *Agent) RecipeNames() []string {
	names := make([]string, len(a.recipes))
	for i, r := range a.recipes {
		names[i] = r.DisplayName
	}
	return names
}

// Storage returns a copy of the agent's stored resources.
func (a *Agent) Storage() map[economy.ResourceID]economy.Quantity {
	out := make(map[economy.ResourceID]economy.Quantity, len(a.storage))
	for id, q := range a.storage {
		out[id] = q
	}
	return out
}

// Tick runs one production round.
func (a *Agent) Tick() {
	needs := a.inputNeeds()
	a.buyInputs(needs)

	cycles := producibleCycles(needs, a.storage)
	for i := 0; i < cycles; i++ {
		a.produce()
	}

	sold := a.sellOutputs()

	if cycles == 0 && sold == 0 {
		a.ticksWithoutProduction++
	} else {
		a.ticksWithoutProduction = 0
		a.state = Producing
	}
	if a.ticksWithoutProduction > MaxTicksWithoutProduction {
		a.state = InsufficientProduction
	}

	a.log.Debug("agent tick", "cycles", cycles, "sold", sold, "state", a.state, "idle", a.ticksWithoutProduction)
}

// PrepareForEviction hands all remaining storage to the market.
func (a *Agent) PrepareForEviction() {
	for _, id := range economy.SortedIDs(a.storage) {
		m, ok := a.market.Market(id)
		if !ok {
			a.log.Warn("no market to liquidate into", "resource", id)
			continue
		}
		m.GiveToMarket(a.storage[id])
		delete(a.storage, id)
	}
}

// inputNeeds sums the per-cycle input requirement of every recipe.
func (a *Agent) inputNeeds() map[economy.ResourceID]economy.Quantity {
	needs := make(map[economy.ResourceID]economy.Quantity)
	for _, r := range a.recipes {
		for id, q := range r.Inputs {
			needs[id] += q
		}
	}
	return needs
}

func (a *Agent) buyInputs(needs map[economy.ResourceID]economy.Quantity) {
	for _, id := range economy.SortedIDs(needs) {
		shortfall := needs[id] - a.storage[id]
		if shortfall <= 0 {
			continue
		}
		m, ok := a.market.Market(id)
		if !ok {
			a.log.Warn("input has no market", "resource", id)
			continue
		}
		tx := m.ConsumeFromMarket(shortfall)
		if tx.Quantity > 0 {
			a.storage[id] += tx.Quantity
		}
	}
}

// producibleCycles is the number of full cycles the tightest input allows.
// With no inputs at all nothing can be produced.
func producibleCycles(needs, storage map[economy.ResourceID]economy.Quantity) int {
	if len(needs) == 0 {
		return 0
	}
	cycles := math.MaxInt
	for id, need := range needs {
		if need <= 0 {
			continue
		}
		n := int(math.Floor(storage[id] / need))
		if n < cycles {
			cycles = n
		}
	}
	if cycles == math.MaxInt {
		return 0
	}
	return cycles
}

func (a *Agent) produce() {
	for _, r := range a.recipes {
		for _, id := range economy.SortedIDs(r.Inputs) {
			need := r.Inputs[id]
			if a.storage[id] < need {
				panic(fmt.Sprintf("agents: %s cannot run %q: has %v %s, needs %v",
					a.id, r.DisplayName, a.storage[id], id, need))
			}
			a.storage[id] -= need
		}
		for id, q := range r.Outputs {
			a.storage[id] += q
		}
	}
}

func (a *Agent) sellOutputs() economy.Quantity {
	var sold economy.Quantity
	outputs := make(map[economy.ResourceID]economy.Quantity)
	for _, r := range a.recipes {
		for id, q := range r.Outputs {
			outputs[id] += q
		}
	}
	for _, id := range economy.SortedIDs(outputs) {
		held := a.storage[id]
		if held <= 0 {
			continue
		}
		m, ok := a.market.Market(id)
		if !ok {
			a.log.Warn("output has no market", "resource", id)
			continue
		}
		tx := m.GiveToMarket(held)
		a.storage[id] -= tx.Quantity
		sold += tx.Quantity
	}
	return sold
}
