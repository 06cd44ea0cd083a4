package station

import (
	"fmt"
	"strings"
	"testing"

	"github.com/talgya/port-authority/internal/agents"
	"github.com/talgya/port-authority/internal/economy"
)

type fakeOccupant struct {
	id      string
	state   agents.State
	ticks   int
	evicted bool
}

func (f *fakeOccupant) ID() string            { return f.id }
func (f *fakeOccupant) RecipeNames() []string { return []string{"fake"} }
func (f *fakeOccupant) State() agents.State   { return f.state }
func (f *fakeOccupant) Tick()                 { f.ticks++ }
func (f *fakeOccupant) PrepareForEviction()   { f.evicted = true }

var (
	makeFood = &economy.Recipe{
		DisplayName: "Make food",
		Inputs:      map[economy.ResourceID]economy.Quantity{"biomass": 1},
		Outputs:     map[economy.ResourceID]economy.Quantity{"food": 1},
	}
	makeFuel = &economy.Recipe{
		DisplayName: "Make fuel",
		Inputs:      map[economy.ResourceID]economy.Quantity{"biomass": 2},
		Outputs:     map[economy.ResourceID]economy.Quantity{"fuel": 1},
	}
)

func newMarket() *economy.GlobalMarket {
	g := economy.NewGlobalMarket(100, 0)
	g.AddResource("biomass", 1, 20)
	g.AddResource("food", 5, 250)
	g.AddResource("fuel", 10, 30)
	return g
}

func counterHire() (HireFunc, *[]*fakeOccupant) {
	var hired []*fakeOccupant
	return func(r *economy.Recipe) Occupant {
		o := &fakeOccupant{id: fmt.Sprintf("h%d", len(hired))}
		hired = append(hired, o)
		return o
	}, &hired
}

func TestClock(t *testing.T) {
	tests := []struct {
		count     uint64
		hour, day int
	}{{0, 0, 1}, {23, 23, 1}, {24, 0, 2}, {50, 2, 3}}
	for _, tt := range tests {
		c := Clock{Count: tt.count}
		if c.Hour() != tt.hour || c.Day() != tt.day {
			t.Errorf("Clock{%d} = hour %d day %d, want %d %d", tt.count, c.Hour(), c.Day(), tt.hour, tt.day)
		}
	}
}

func TestNewPanicsWhenOverstaffed(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(newMarket(), Config{Facilities: 1}, nil, &fakeOccupant{}, &fakeOccupant{})
}

func TestOccupantsTickOncePerTick(t *testing.T) {
	a, b := &fakeOccupant{id: "a"}, &fakeOccupant{id: "b"}
	s := New(newMarket(), Config{Facilities: 2}, nil, a, b)
	for i := 0; i < 3; i++ {
		s.Tick(Clock{Count: uint64(i)})
	}
	if a.ticks != 3 || b.ticks != 3 {
		t.Errorf("ticks = %d, %d; want 3, 3", a.ticks, b.ticks)
	}
}

func TestMarketsTickOncePerTick(t *testing.T) {
	g := newMarket()
	s := New(g, Config{Facilities: 0}, nil)
	food, _ := g.Market("food")
	food.ConsumeFromMarket(1)
	s.Tick(Clock{})
	if food.Price() <= 5 {
		t.Fatalf("price = %v, want above 5", food.Price())
	}
	after := food.Price()
	s.Tick(Clock{Count: 1})
	if food.Price() != after {
		t.Errorf("idle tick moved price %v → %v", after, food.Price())
	}
}

func TestHiresOnePerTick(t *testing.T) {
	hire, hired := counterHire()
	s := New(newMarket(), Config{Facilities: 3, Recipes: []*economy.Recipe{makeFood, makeFuel}}, hire)

	events := s.Tick(Clock{})
	if len(*hired) != 1 {
		t.Fatalf("hired %d agents in one tick", len(*hired))
	}
	if len(events) != 1 || events[0].Kind != AgentAdded {
		t.Errorf("events = %+v", events)
	}
	if s.Facilities[0].Vacant() || !s.Facilities[1].Vacant() {
		t.Error("hire did not fill the first vacant facility")
	}

	s.Tick(Clock{Count: 1})
	s.Tick(Clock{Count: 2})
	if len(*hired) != 3 {
		t.Errorf("hired %d after three ticks", len(*hired))
	}
	s.Tick(Clock{Count: 3})
	if len(*hired) != 3 {
		t.Errorf("hired into a full station: %d", len(*hired))
	}
}

func TestHiresMostProfitableRecipe(t *testing.T) {
	g := newMarket()
	s := New(g, Config{Facilities: 1, Recipes: []*economy.Recipe{makeFood, makeFuel}}, nil)
	if got := s.MostProfitableRecipe(); got != makeFuel {
		t.Fatalf("picked %v, want Make fuel", got.DisplayName)
	}

	fuel, _ := g.Market("fuel")
	for fuel.Price() > 2 {
		fuel.GiveToMarket(1)
		fuel.Tick()
	}
	if got := s.MostProfitableRecipe(); got != makeFood {
		t.Errorf("picked %v after fuel crash, want Make food", got.DisplayName)
	}
}

func TestTieKeepsFirstRecipe(t *testing.T) {
	twin := &economy.Recipe{DisplayName: "Twin", Inputs: makeFood.Inputs, Outputs: makeFood.Outputs}
	s := New(newMarket(), Config{Facilities: 1, Recipes: []*economy.Recipe{makeFood, twin}}, nil)
	if got := s.MostProfitableRecipe(); got != makeFood {
		t.Errorf("picked %v, want Make food", got.DisplayName)
	}
}

func TestNoHireWithoutProfit(t *testing.T) {
	loss := &economy.Recipe{
		DisplayName: "Burn fuel",
		Inputs:      map[economy.ResourceID]economy.Quantity{"fuel": 1},
		Outputs:     map[economy.ResourceID]economy.Quantity{"biomass": 1},
	}
	hire, hired := counterHire()
	s := New(newMarket(), Config{Facilities: 2, Recipes: []*economy.Recipe{loss}}, hire)
	s.Tick(Clock{})
	if len(*hired) != 0 {
		t.Errorf("hired %d agents for a losing recipe", len(*hired))
	}
}

func TestEvictsAllStarvedAgents(t *testing.T) {
	a := &fakeOccupant{id: "a", state: agents.InsufficientProduction}
	b := &fakeOccupant{id: "b"}
	c := &fakeOccupant{id: "c", state: agents.InsufficientProduction}
	s := New(newMarket(), Config{Facilities: 4}, nil, a, b, c)

	events := s.Tick(Clock{})

	if !a.evicted || b.evicted || !c.evicted {
		t.Fatalf("evicted a=%v b=%v c=%v", a.evicted, b.evicted, c.evicted)
	}
	if !s.Facilities[0].Vacant() || s.Facilities[1].Vacant() || !s.Facilities[2].Vacant() {
		t.Error("facilities not cleared")
	}
	evictions := 0
	for _, ev := range events {
		if ev.Kind == AgentEvicted {
			evictions++
		}
	}
	if evictions != 2 {
		t.Errorf("eviction events = %d, want 2", evictions)
	}

	s.Tick(Clock{Count: 1})
	s.Tick(Clock{Count: 2})
	if a.ticks != 1 || c.ticks != 1 {
		t.Errorf("evicted agents ticked again: a=%d c=%d", a.ticks, c.ticks)
	}
}

func TestEvictionDoesNotRefillSameTick(t *testing.T) {
	hire, hired := counterHire()
	a := &fakeOccupant{id: "a", state: agents.InsufficientProduction}
	s := New(newMarket(), Config{Facilities: 1, Recipes: []*economy.Recipe{makeFuel}}, hire, a)

	s.Tick(Clock{})
	if len(*hired) != 0 || !s.Facilities[0].Vacant() {
		t.Fatalf("refilled in the eviction tick")
	}
	s.Tick(Clock{Count: 1})
	if len(*hired) != 1 {
		t.Errorf("hired %d on the next tick, want 1", len(*hired))
	}
}

func TestEventsUseSnapshotIndex(t *testing.T) {
	hire, _ := counterHire()
	a := &fakeOccupant{id: "a", state: agents.InsufficientProduction}
	s := New(newMarket(), Config{Facilities: 2, Recipes: []*economy.Recipe{makeFuel}}, hire, a)

	events := s.Tick(Clock{})
	if len(events) != 2 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Kind != AgentEvicted || !strings.HasSuffix(events[0].Message, "facility 0") {
		t.Errorf("eviction event = %+v", events[0])
	}
	if events[1].Kind != AgentAdded || !strings.HasSuffix(events[1].Message, "facility 1") {
		t.Errorf("hire event = %+v", events[1])
	}
	if snap := s.FacilitySnapshot(); snap[1].Index != 1 || snap[1].Agent != "h0" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestStarvesWithoutFoodMarket(t *testing.T) {
	s := New(newMarket(), Config{
		Population:   10,
		FoodResource: "algae",
		FoodSchedule: map[int]economy.Quantity{8: 1},
	}, nil)

	events := s.Tick(Clock{Count: 8})
	if s.StarvingPopulation != 10 {
		t.Errorf("starving = %d, want 10", s.StarvingPopulation)
	}
	if len(events) != 1 || events[0].Kind != PopulationLow {
		t.Errorf("events = %+v", events)
	}

	s.Tick(Clock{Count: 9})
	if s.StarvingPopulation != 0 {
		t.Errorf("starving count carried into an hour without a meal: %d", s.StarvingPopulation)
	}
}

func TestPopulationEats(t *testing.T) {
	tests := []struct {
		name         string
		hour         uint64
		stock        economy.Quantity
		wantStock    economy.Quantity
		wantStarving int
	}{
		{"fed at mealtime", 8, 250, 240, 0},
		{"no meal scheduled", 9, 250, 250, 0},
		{"half fed", 8, 5, 0, 5},
		{"nothing to eat", 8, 0, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := economy.NewGlobalMarket(0, 0)
			food := g.AddResource("food", 5, tt.stock)
			s := New(g, Config{
				Population:   10,
				FoodResource: "food",
				FoodSchedule: map[int]economy.Quantity{8: 1},
			}, nil)

			events := s.Tick(Clock{Count: tt.hour})

			if food.Stock() != tt.wantStock {
				t.Errorf("food stock = %v, want %v", food.Stock(), tt.wantStock)
			}
			if s.StarvingPopulation != tt.wantStarving {
				t.Errorf("starving = %d, want %d", s.StarvingPopulation, tt.wantStarving)
			}
			if (tt.wantStarving > 0) != (len(events) == 1 && events[0].Kind == PopulationLow) {
				t.Errorf("events = %+v", events)
			}
		})
	}
}

func TestWithRealAgents(t *testing.T) {
	g := newMarket()
	hire := func(r *economy.Recipe) Occupant {
		return agents.NewAgent("real", g, r)
	}
	s := New(g, Config{Facilities: 1, Recipes: []*economy.Recipe{makeFuel}}, hire)
	fuel, _ := g.Market("fuel")

	s.Tick(Clock{})
	s.Tick(Clock{Count: 1})

	if fuel.Stock() != 31 {
		t.Errorf("fuel stock = %v, want 31", fuel.Stock())
	}
	snap := s.FacilitySnapshot()
	if snap[0].Agent != "real" || snap[0].State != "producing" {
		t.Errorf("snapshot = %+v", snap)
	}
}
