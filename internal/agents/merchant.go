package agents

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/port-authority/internal/economy"
)

// Merchant is a visiting trader. It sells cargo to the market when the
// market's import price beats its margin, and buys what it wants when the
// market's export price undercuts its margin.
type Merchant struct {
	Name         string
	Wealth       economy.Price
	Cargo        map[economy.ResourceID]economy.Quantity
	WantsToBuy   map[economy.ResourceID]bool
	ProfitMargin economy.Fraction

	market *economy.GlobalMarket
	log    *slog.Logger
}

// NewMerchant creates a merchant trading against market.
func NewMerchant(name string, wealth economy.Price, cargo map[economy.ResourceID]economy.Quantity,
	wantsToBuy []economy.ResourceID, margin economy.Fraction, market *economy.GlobalMarket) *Merchant {
	hold := make(map[economy.ResourceID]economy.Quantity, len(cargo))
	for id, q := range cargo {
		hold[id] = q
	}
	wants := make(map[economy.ResourceID]bool, len(wantsToBuy))
	for _, id := range wantsToBuy {
		wants[id] = true
	}
	return &Merchant{
		Name:         name,
		Wealth:       wealth,
		Cargo:        hold,
		WantsToBuy:   wants,
		ProfitMargin: margin,
		market:       market,
		log:          slog.With("merchant", name),
	}
}

// Trade is one completed merchant transaction.
type Trade struct {
	Merchant string
	Sold     bool // merchant sold to the market; false means it bought
	economy.Transaction
}

func (t Trade) String() string {
	verb := "bought"
	if t.Sold {
		verb = "sold"
	}
	return fmt.Sprintf("%s %s %v %s for %s", t.Merchant, verb, t.Quantity, t.ResourceID,
		economy.FormatPrice(t.TotalPrice))
}

// Tick sells unwanted cargo, then buys wanted resources. Only trades that
// moved goods are returned.
func (m *Merchant) Tick() []Trade {
	var trades []Trade
	for _, id := range economy.SortedIDs(m.Cargo) {
		if m.WantsToBuy[id] || m.Cargo[id] <= 0 {
			continue
		}
		if tx := m.sell(id); !tx.IsZero() {
			trades = append(trades, Trade{Merchant: m.Name, Sold: true, Transaction: tx})
		}
	}
	for _, id := range m.wanted() {
		if tx := m.buy(id); !tx.IsZero() {
			trades = append(trades, Trade{Merchant: m.Name, Transaction: tx})
		}
	}
	return trades
}

func (m *Merchant) sell(id economy.ResourceID) economy.Transaction {
	none := economy.Transaction{ResourceID: id}
	mk, ok := m.market.Market(id)
	if !ok {
		m.log.Warn("cannot sell: no market", "resource", id)
		return none
	}

	price := mk.Price()
	importPrice := mk.Policy().ImportPrice(price)
	desired := price * (1 + m.ProfitMargin)
	if importPrice < desired {
		return none
	}

	tx := mk.QuotePurchase(m.Cargo[id], price)
	if tx.IsZero() {
		return none
	}
	mk.CommitPurchase(tx)
	m.Wealth += tx.TotalPrice
	m.Cargo[id] -= tx.Quantity
	m.log.Debug("sold", "resource", id, "quantity", tx.Quantity, "total", tx.TotalPrice)
	return tx
}

func (m *Merchant) buy(id economy.ResourceID) economy.Transaction {
	none := economy.Transaction{ResourceID: id}
	mk, ok := m.market.Market(id)
	if !ok {
		m.log.Warn("cannot buy: no market", "resource", id)
		return none
	}

	price := mk.Price()
	exportPrice := mk.Policy().ExportPrice(price)
	desired := price * (1 - m.ProfitMargin)
	if exportPrice > desired || exportPrice <= 0 {
		return none
	}

	qty := math.Min(math.Floor(m.Wealth/exportPrice), mk.Stock())
	if qty <= 0 {
		return none
	}
	tx := mk.QuoteSale(qty, price)
	if tx.IsZero() || tx.TotalPrice > m.Wealth {
		return none
	}
	mk.CommitSale(tx)
	m.Wealth -= tx.TotalPrice
	m.Cargo[id] += tx.Quantity
	m.log.Debug("bought", "resource", id, "quantity", tx.Quantity, "total", tx.TotalPrice)
	return tx
}

func (m *Merchant) wanted() []economy.ResourceID {
	set := make(map[economy.ResourceID]economy.Quantity, len(m.WantsToBuy))
	for id, ok := range m.WantsToBuy {
		if ok {
			set[id] = 0
		}
	}
	return economy.SortedIDs(set)
}
