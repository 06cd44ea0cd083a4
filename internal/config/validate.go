package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Sim.Facilities < 0 {
		return errors.New("sim.facilities must be >= 0")
	}
	if c.Sim.Population < 0 {
		return errors.New("sim.population must be >= 0")
	}
	if c.Sim.StartingWealth < 0 {
		return errors.New("sim.starting_wealth must be >= 0")
	}
	if c.Sim.PriceAdjustment <= 0 || c.Sim.PriceAdjustment >= 1 {
		return fmt.Errorf("sim.price_adjustment (%v) must be in (0, 1)", c.Sim.PriceAdjustment)
	}
	if c.Sim.TickInterval <= 0 {
		return errors.New("sim.tick_interval must be > 0")
	}
	if c.Sim.Speed < 0 {
		return errors.New("sim.speed must be >= 0")
	}
	if c.Sim.EventHistory < 1 {
		return errors.New("sim.event_history must be >= 1")
	}

	if c.Merchants.Interval < 1 {
		return errors.New("merchants.interval must be >= 1")
	}
	if c.Merchants.Duration < 1 {
		return errors.New("merchants.duration must be >= 1")
	}

	if c.Food.Resource == "" {
		return errors.New("food.resource is required")
	}
	for hour, q := range c.Food.Schedule {
		if hour < 0 || hour > 23 {
			return fmt.Errorf("food.schedule hour %d must be in 0-23", hour)
		}
		if q < 0 {
			return fmt.Errorf("food.schedule[%d] must be >= 0", hour)
		}
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return errors.New("history.db_path is required when history is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		return errors.New("api.port must be between 1 and 65535")
	}

	return nil
}
