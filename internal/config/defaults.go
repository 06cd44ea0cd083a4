package config

import (
	"os"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultSeed             = 42
	DefaultFacilities       = 5
	DefaultPopulation       = 100
	DefaultStartingWealth   = 1000
	DefaultPriceAdjustment  = 0.1
	DefaultTickInterval     = time.Second
	DefaultSpeed            = 1.0
	DefaultEventHistory     = 3
	DefaultMerchantInterval = 24
	DefaultMerchantDuration = 5
	DefaultFoodResource     = "food"
	DefaultDBPath           = "data/portsim.db"
	DefaultTickLogDir       = "data/ticks"
	DefaultAPIPort          = 8080
	DefaultLogLevel         = "info"
)

// AdminKeyEnv overrides api.admin_key when set.
const AdminKeyEnv = "PORTSIM_ADMIN_KEY"

// DefaultFoodSchedule feeds the population three meals a day.
func DefaultFoodSchedule() map[int]float64 {
	return map[int]float64{7: 0.1, 12: 0.1, 18: 0.1}
}

func (c *Config) applyDefaults() {
	// Sim defaults
	if c.Sim.Seed == 0 {
		c.Sim.Seed = DefaultSeed
	}
	if c.Sim.Facilities == 0 {
		c.Sim.Facilities = DefaultFacilities
	}
	if c.Sim.Population == 0 {
		c.Sim.Population = DefaultPopulation
	}
	if c.Sim.StartingWealth == 0 {
		c.Sim.StartingWealth = DefaultStartingWealth
	}
	if c.Sim.PriceAdjustment == 0 {
		c.Sim.PriceAdjustment = DefaultPriceAdjustment
	}
	if c.Sim.TickInterval == 0 {
		c.Sim.TickInterval = DefaultTickInterval
	}
	if c.Sim.Speed == 0 {
		c.Sim.Speed = DefaultSpeed
	}
	if c.Sim.EventHistory == 0 {
		c.Sim.EventHistory = DefaultEventHistory
	}

	// Merchant defaults
	if c.Merchants.Interval == 0 {
		c.Merchants.Interval = DefaultMerchantInterval
	}
	if c.Merchants.Duration == 0 {
		c.Merchants.Duration = DefaultMerchantDuration
	}

	// Food defaults
	if c.Food.Resource == "" {
		c.Food.Resource = DefaultFoodResource
	}
	if c.Food.Schedule == nil {
		c.Food.Schedule = DefaultFoodSchedule()
	}

	// History defaults
	if c.History.DBPath == "" {
		c.History.DBPath = DefaultDBPath
	}
	if c.History.TickLogDir == "" {
		c.History.TickLogDir = DefaultTickLogDir
	}

	// API defaults
	if c.API.Port == 0 {
		c.API.Port = DefaultAPIPort
	}
	if key := os.Getenv(AdminKeyEnv); key != "" {
		c.API.AdminKey = key
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}
