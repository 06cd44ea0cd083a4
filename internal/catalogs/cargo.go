package catalogs

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/port-authority/internal/economy"
)

// cargoFrequency spaces successive ticks along the noise field so nearby
// arrivals differ but stay correlated.
const cargoFrequency = 0.137

// CargoRoller draws merchant cargo quantities from a seeded noise field.
type CargoRoller struct {
	noise opensimplex.Noise
}

// NewCargoRoller creates a roller for a game seed.
func NewCargoRoller(seed int64) *CargoRoller {
	return &CargoRoller{noise: opensimplex.NewNormalized(seed + 7)}
}

// Roll returns the cargo a merchant of def arriving at tick carries. Fixed
// quantities are returned as-is; ranges are rounded to whole units.
func (r *CargoRoller) Roll(def MerchantDef, tick uint64) map[economy.ResourceID]economy.Quantity {
	cargo := make(map[economy.ResourceID]economy.Quantity, len(def.Cargo))
	for i, cg := range def.Cargo {
		if cg.Max <= cg.Min {
			cargo[cg.Resource] += cg.Min
			continue
		}
		n := r.noise.Eval2(float64(tick)*cargoFrequency, float64(i)*3.1)
		n = math.Max(0, math.Min(1, n))
		cargo[cg.Resource] += math.Round(cg.Min + n*(cg.Max-cg.Min))
	}
	return cargo
}
