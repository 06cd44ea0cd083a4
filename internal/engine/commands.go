package engine

import (
	"log/slog"

	"github.com/talgya/port-authority/internal/economy"
)

// PolicyChange edits one resource's trade policy. Nil fields are left alone.
type PolicyChange struct {
	Resource            economy.ResourceID `json:"resource"`
	ImportPriceModifier *economy.Fraction  `json:"import_price_modifier,omitempty"`
	ExportPriceModifier *economy.Fraction  `json:"export_price_modifier,omitempty"`
	ImportForbidden     *bool              `json:"import_forbidden,omitempty"`
	ExportForbidden     *bool              `json:"export_forbidden,omitempty"`
	ToggleImport        bool               `json:"toggle_import,omitempty"`
	ToggleExport        bool               `json:"toggle_export,omitempty"`
}

// Apply returns policy with the change applied. Toggles flip the ban after
// any explicit value is set.
func (c PolicyChange) Apply(p economy.TradePolicy) economy.TradePolicy {
	if c.ImportPriceModifier != nil {
		p.ImportPriceModifier = *c.ImportPriceModifier
	}
	if c.ExportPriceModifier != nil {
		p.ExportPriceModifier = *c.ExportPriceModifier
	}
	if c.ImportForbidden != nil {
		p.ImportForbidden = *c.ImportForbidden
	}
	if c.ExportForbidden != nil {
		p.ExportForbidden = *c.ExportForbidden
	}
	if c.ToggleImport {
		p.ImportForbidden = !p.ImportForbidden
	}
	if c.ToggleExport {
		p.ExportForbidden = !p.ExportForbidden
	}
	return p
}

// SetPolicy returns a command that applies change to its resource market.
func SetPolicy(change PolicyChange) Command {
	return func(g *Game) {
		m, ok := g.Station.Market.Market(change.Resource)
		if !ok {
			slog.Warn("policy change for unknown resource", "resource", change.Resource)
			return
		}
		m.SetPolicy(change.Apply(m.Policy()))
		slog.Info("trade policy changed", "tick", g.tickCount, "resource", change.Resource, "policy", m.Policy())
	}
}

// SetWealth returns a command that overwrites the station's wealth.
func SetWealth(w economy.Price) Command {
	return func(g *Game) {
		if w < 0 {
			slog.Warn("ignoring negative wealth", "wealth", w)
			return
		}
		g.Station.Market.SetWealth(w)
		slog.Info("wealth set", "tick", g.tickCount, "wealth", economy.FormatPrice(w))
	}
}
