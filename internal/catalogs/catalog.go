// Package catalogs holds the static definitions a station is built from:
// resources with their opening price and stock, production recipes, and the
// merchants that may call at the port.
package catalogs

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/port-authority/internal/economy"
)

// ResourceDef seeds one resource market.
type ResourceDef struct {
	ID           economy.ResourceID `yaml:"id" json:"id"`
	InitialPrice economy.Price      `yaml:"price" json:"price"`
	InitialStock economy.Quantity   `yaml:"stock" json:"stock"`
	Unit         string             `yaml:"unit" json:"unit"`
}

// CargoDef is a range of a resource a merchant may arrive with. Max of zero
// means exactly Min.
type CargoDef struct {
	Resource economy.ResourceID `yaml:"resource" json:"resource"`
	Min      economy.Quantity   `yaml:"min" json:"min"`
	Max      economy.Quantity   `yaml:"max" json:"max"`
}

// MerchantDef describes a kind of visiting merchant.
type MerchantDef struct {
	Name         string               `yaml:"name" json:"name"`
	Weight       float64              `yaml:"weight" json:"weight"`
	Wealth       economy.Price        `yaml:"wealth" json:"wealth"`
	Cargo        []CargoDef           `yaml:"cargo" json:"cargo"`
	WantsToBuy   []economy.ResourceID `yaml:"wants_to_buy" json:"wants_to_buy"`
	ProfitMargin economy.Fraction     `yaml:"profit_margin" json:"profit_margin"`
}

// Catalog is the full set of definitions.
type Catalog struct {
	Resources []ResourceDef     `yaml:"resources" json:"resources"`
	Recipes   []*economy.Recipe `yaml:"recipes" json:"recipes"`
	Merchants []MerchantDef     `yaml:"merchants" json:"merchants"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Resources: []ResourceDef{
			{ID: "biomass", InitialPrice: 1, InitialStock: 20, Unit: "kg"},
			{ID: "food", InitialPrice: 5, InitialStock: 250, Unit: "kg"},
			{ID: "fuel", InitialPrice: 10, InitialStock: 30, Unit: "L"},
			{ID: "plastic", InitialPrice: 10, InitialStock: 0, Unit: "kg"},
			{ID: "steel", InitialPrice: 20, InitialStock: 0, Unit: "kg"},
		},
		Recipes: []*economy.Recipe{
			{
				DisplayName: "Make food",
				Inputs:      map[economy.ResourceID]economy.Quantity{"biomass": 1},
				Outputs:     map[economy.ResourceID]economy.Quantity{"food": 1},
			},
			{
				DisplayName: "Make fuel",
				Inputs:      map[economy.ResourceID]economy.Quantity{"biomass": 2},
				Outputs:     map[economy.ResourceID]economy.Quantity{"fuel": 1},
			},
			{
				DisplayName: "Make plastic",
				Inputs:      map[economy.ResourceID]economy.Quantity{"fuel": 1},
				Outputs:     map[economy.ResourceID]economy.Quantity{"plastic": 1},
			},
		},
		Merchants: []MerchantDef{
			{
				Name:   "Biomass importer",
				Weight: 1,
				Wealth: 100,
				Cargo:  []CargoDef{{Resource: "biomass", Min: 80, Max: 120}},
			},
			{
				Name:       "Plastic exporter",
				Weight:     1,
				Wealth:     50,
				WantsToBuy: []economy.ResourceID{"plastic"},
			},
		},
	}
}

// Load reads a catalog from a YAML file and validates it.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	for i := range c.Merchants {
		if c.Merchants[i].Weight == 0 {
			c.Merchants[i].Weight = 1
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return &c, nil
}

// Validate checks the catalog is internally consistent.
func (c *Catalog) Validate() error {
	if len(c.Resources) == 0 {
		return errors.New("catalog has no resources")
	}
	known := make(map[economy.ResourceID]bool, len(c.Resources))
	for _, r := range c.Resources {
		if r.ID == "" {
			return errors.New("resource id is required")
		}
		if known[r.ID] {
			return fmt.Errorf("resource %q defined twice", r.ID)
		}
		if r.InitialPrice <= 0 {
			return fmt.Errorf("resource %q: price must be > 0", r.ID)
		}
		if r.InitialStock < 0 {
			return fmt.Errorf("resource %q: stock must be >= 0", r.ID)
		}
		known[r.ID] = true
	}

	for i, r := range c.Recipes {
		if r == nil || r.DisplayName == "" {
			return fmt.Errorf("recipe %d: name is required", i)
		}
		if len(r.Outputs) == 0 {
			return fmt.Errorf("recipe %q: at least one output is required", r.DisplayName)
		}
		for _, side := range []map[economy.ResourceID]economy.Quantity{r.Inputs, r.Outputs} {
			for id, q := range side {
				if !known[id] {
					return fmt.Errorf("recipe %q: unknown resource %q", r.DisplayName, id)
				}
				if q <= 0 {
					return fmt.Errorf("recipe %q: quantity of %q must be > 0", r.DisplayName, id)
				}
			}
		}
	}

	for i, m := range c.Merchants {
		if m.Name == "" {
			return fmt.Errorf("merchant %d: name is required", i)
		}
		if m.Weight < 0 {
			return fmt.Errorf("merchant %q: weight must be >= 0", m.Name)
		}
		if m.Wealth < 0 {
			return fmt.Errorf("merchant %q: wealth must be >= 0", m.Name)
		}
		if m.ProfitMargin < 0 || m.ProfitMargin >= 1 {
			return fmt.Errorf("merchant %q: profit_margin must be in [0, 1)", m.Name)
		}
		for _, cg := range m.Cargo {
			if !known[cg.Resource] {
				return fmt.Errorf("merchant %q: unknown cargo resource %q", m.Name, cg.Resource)
			}
			if cg.Min < 0 || (cg.Max != 0 && cg.Max < cg.Min) {
				return fmt.Errorf("merchant %q: bad cargo range for %q", m.Name, cg.Resource)
			}
		}
		for _, id := range m.WantsToBuy {
			if !known[id] {
				return fmt.Errorf("merchant %q: unknown wanted resource %q", m.Name, id)
			}
		}
	}
	return nil
}

// Build creates a market holding every catalog resource.
func (c *Catalog) Build(wealth economy.Price, adjust economy.Fraction) *economy.GlobalMarket {
	g := economy.NewGlobalMarket(wealth, adjust)
	for _, r := range c.Resources {
		g.AddResource(r.ID, r.InitialPrice, r.InitialStock)
	}
	return g
}
