package engine

import (
	"github.com/talgya/port-authority/internal/economy"
	"github.com/talgya/port-authority/internal/station"
)

// LogKind classifies entries of the game's event log.
type LogKind string

const (
	ShipArrival    LogKind = "SHIP_ARRIVAL"
	ShipDeparture  LogKind = "SHIP_DEPARTURE"
	MerchantTrade  LogKind = "MERCHANT_TRADE"
	AgentAddition  LogKind = LogKind(station.AgentAdded)
	AgentEviction  LogKind = LogKind(station.AgentEvicted)
	PopulationLoss LogKind = LogKind(station.PopulationLow)
)

// LogEvent is one entry of the game's event log.
type LogEvent struct {
	Seq     uint64  `json:"seq"` // monotonic across the run
	Tick    uint64  `json:"tick"`
	Kind    LogKind `json:"type"`
	Message string  `json:"message"`
}

// MerchantStats describes a visiting merchant.
type MerchantStats struct {
	Name   string                                  `json:"name"`
	Wealth economy.Price                           `json:"wealth"`
	Cargo  map[economy.ResourceID]economy.Quantity `json:"cargo"`
	Since  uint64                                  `json:"since"`
}

// GameState is the per-tick snapshot handed to listeners. Each listener gets
// its own copy.
type GameState struct {
	Tick               uint64                  `json:"tick"`
	Day                int                     `json:"day"`
	Hour               int                     `json:"hour"`
	Population         int                     `json:"population"`
	StarvingPopulation int                     `json:"starving_population"` // rounded up
	Wealth             economy.Price           `json:"wealth"`
	Resources          []economy.MarketStats   `json:"resources"`
	Facilities         []station.FacilityStats `json:"facilities"`
	Merchants          []MerchantStats         `json:"merchants"`
}

// Listener receives the state and recent events after every tick.
type Listener func(state GameState, events []LogEvent)
