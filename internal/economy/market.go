// Package economy provides the station market: per-resource stock and price,
// trade policy, the quote/commit trade protocol, and price discovery.
package economy

import (
	"fmt"
	"math"
)

// ResourceID identifies a tradeable good ("food", "steel").
type ResourceID string

// Quantity is an amount of a resource. Never negative.
type Quantity = float64

// Price is an amount of wealth. Never negative.
type Price = float64

// Fraction is a signed percentage modifier (0.1 = +10%).
type Fraction = float64

// DefaultPriceAdjustment is the fraction a price moves per tick when
// production and consumption are out of balance.
const DefaultPriceAdjustment Fraction = 0.1

// epsilon absorbs float drift when a commit drains stock or wealth to zero.
const epsilon = 1e-9

// Transaction is the result of every trade operation. A zero Quantity means
// nothing happened; it is not an error.
type Transaction struct {
	ResourceID ResourceID `json:"resource"`
	Quantity   Quantity   `json:"quantity"`
	TotalPrice Price      `json:"total_price"`
}

// IsZero reports whether the transaction moved nothing.
func (t Transaction) IsZero() bool { return t.Quantity == 0 }

// TradePolicy gates and prices external (merchant) trade for one resource.
// The zero value applies no modifier and forbids nothing.
type TradePolicy struct {
	ImportPriceModifier Fraction `json:"import_price_modifier"`
	ExportPriceModifier Fraction `json:"export_price_modifier"`
	ImportForbidden     bool     `json:"import_forbidden"`
	ExportForbidden     bool     `json:"export_forbidden"`
}

// ImportPrice is what the market pays per unit when buying at unitPrice.
func (p TradePolicy) ImportPrice(unitPrice Price) Price {
	return unitPrice * (1 + p.ImportPriceModifier)
}

// ExportPrice is what the market charges per unit when selling at unitPrice.
func (p TradePolicy) ExportPrice(unitPrice Price) Price {
	return unitPrice * (1 + p.ExportPriceModifier)
}

// Direction is the side the market takes in a trade.
type Direction int

const (
	// Buy: the market takes goods in (import, production).
	Buy Direction = iota
	// Sell: the market hands goods out (export, consumption).
	Sell
)

func (d Direction) String() string {
	if d == Buy {
		return "buy"
	}
	return "sell"
}

// TradeKind selects one of the four trade paths. Costed trades move wealth
// and obey trade policy; uncosted ones are internal transfers that do neither.
type TradeKind struct {
	Direction Direction
	Costed    bool
}

var (
	purchase = TradeKind{Direction: Buy, Costed: true}
	sale     = TradeKind{Direction: Sell, Costed: true}
	give     = TradeKind{Direction: Buy}
	consume  = TradeKind{Direction: Sell}
)

// ResourceMarket holds the authoritative stock and price of one resource.
// Stock, price and the shared treasury are only written by Commit and Tick.
type ResourceMarket struct {
	id       ResourceID
	stock    Quantity
	price    Price
	policy   TradePolicy
	treasury *Treasury
	adjust   Fraction

	production  Quantity // since last Tick
	consumption Quantity

	lastProduction  Quantity
	lastConsumption Quantity
}

func newResourceMarket(id ResourceID, price Price, stock Quantity, t *Treasury, adjust Fraction) *ResourceMarket {
	if price <= 0 {
		panic(fmt.Sprintf("economy: market %q created with non-positive price %v", id, price))
	}
	if stock < 0 {
		panic(fmt.Sprintf("economy: market %q created with negative stock %v", id, stock))
	}
	return &ResourceMarket{id: id, stock: stock, price: price, treasury: t, adjust: adjust}
}

func (m *ResourceMarket) ResourceID() ResourceID { return m.id }
func (m *ResourceMarket) Stock() Quantity        { return m.stock }
func (m *ResourceMarket) Price() Price           { return m.price }
func (m *ResourceMarket) Policy() TradePolicy    { return m.policy }

// SetPolicy replaces the trade policy. Used by the operator layer.
func (m *ResourceMarket) SetPolicy(p TradePolicy) { m.policy = p }

// Quote prices a trade without touching any state. Calling it twice in a row
// gives the same answer.
func (m *ResourceMarket) Quote(kind TradeKind, qty Quantity, unitPrice Price) Transaction {
	none := Transaction{ResourceID: m.id}
	if qty <= 0 || math.IsNaN(qty) {
		return none
	}

	switch {
	case kind.Direction == Buy && kind.Costed:
		if m.policy.ImportForbidden {
			return none
		}
		final := m.policy.ImportPrice(unitPrice)
		if final <= 0 {
			return none
		}
		affordable := math.Floor(m.treasury.Balance() / final)
		q := math.Min(qty, affordable)
		if q <= 0 {
			return none
		}
		return Transaction{ResourceID: m.id, Quantity: q, TotalPrice: q * final}

	case kind.Direction == Sell && kind.Costed:
		if m.policy.ExportForbidden || m.stock < qty {
			return none
		}
		final := m.policy.ExportPrice(unitPrice)
		if final < 0 {
			return none
		}
		return Transaction{ResourceID: m.id, Quantity: qty, TotalPrice: qty * final}

	case kind.Direction == Buy:
		return Transaction{ResourceID: m.id, Quantity: qty}

	default:
		q := math.Min(qty, m.stock)
		if q <= 0 {
			return none
		}
		return Transaction{ResourceID: m.id, Quantity: q}
	}
}

// Commit applies a transaction previously returned by Quote with the same
// kind. Committing a stale quote that would drive stock or wealth negative
// panics.
func (m *ResourceMarket) Commit(kind TradeKind, tx Transaction) {
	if tx.Quantity == 0 {
		return
	}
	if tx.ResourceID != m.id {
		panic(fmt.Sprintf("economy: %q transaction committed to %q market", tx.ResourceID, m.id))
	}
	if tx.Quantity < 0 || tx.TotalPrice < 0 {
		panic(fmt.Sprintf("economy: negative transaction %+v", tx))
	}

	switch kind.Direction {
	case Buy:
		if kind.Costed {
			m.treasury.debit(tx.TotalPrice)
		}
		m.stock += tx.Quantity
		m.production += tx.Quantity
	case Sell:
		remaining := m.stock - tx.Quantity
		if remaining < -epsilon {
			panic(fmt.Sprintf("economy: %q sale of %v exceeds stock %v", m.id, tx.Quantity, m.stock))
		}
		m.stock = math.Max(remaining, 0)
		if kind.Costed {
			m.treasury.credit(tx.TotalPrice)
		}
		m.consumption += tx.Quantity
	}
}

// QuotePurchase quotes the market importing qty from a counterparty.
func (m *ResourceMarket) QuotePurchase(qty Quantity, unitPrice Price) Transaction {
	return m.Quote(purchase, qty, unitPrice)
}

// CommitPurchase pays for and stocks a quoted import.
func (m *ResourceMarket) CommitPurchase(tx Transaction) { m.Commit(purchase, tx) }

// QuoteSale quotes the market exporting qty to a counterparty.
func (m *ResourceMarket) QuoteSale(qty Quantity, unitPrice Price) Transaction {
	return m.Quote(sale, qty, unitPrice)
}

// CommitSale releases stock and collects payment for a quoted export.
func (m *ResourceMarket) CommitSale(tx Transaction) { m.Commit(sale, tx) }

// GiveToMarket adds qty to stock at no cost.
func (m *ResourceMarket) GiveToMarket(qty Quantity) Transaction {
	tx := m.Quote(give, qty, 0)
	m.Commit(give, tx)
	return tx
}

// ConsumeFromMarket removes up to qty from stock at no cost.
func (m *ResourceMarket) ConsumeFromMarket(qty Quantity) Transaction {
	tx := m.Quote(consume, qty, 0)
	m.Commit(consume, tx)
	return tx
}

// Tick moves the price by the adjustment fraction toward whichever side of
// the last tick's flow dominated, then resets the flow counters.
func (m *ResourceMarket) Tick() {
	switch {
	case m.consumption > m.production:
		m.price *= 1 + m.adjust
	case m.production > m.consumption:
		m.price *= 1 - m.adjust
	}
	m.lastProduction, m.lastConsumption = m.production, m.consumption
	m.production, m.consumption = 0, 0
}

// MarketStats is a read-only view of one resource market.
type MarketStats struct {
	Resource        ResourceID `json:"resource"`
	Stock           Quantity   `json:"stock"`
	Price           Price      `json:"price"`
	LastProduction  Quantity   `json:"last_production"`
	LastConsumption Quantity   `json:"last_consumption"`
	TradePolicy
}

// Stats snapshots the market.
func (m *ResourceMarket) Stats() MarketStats {
	return MarketStats{
		Resource:        m.id,
		Stock:           m.stock,
		Price:           m.price,
		LastProduction:  m.lastProduction,
		LastConsumption: m.lastConsumption,
		TradePolicy:     m.policy,
	}
}
