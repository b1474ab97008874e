package core

import (
	"sort"

	"github.com/google/uuid"
)

// DexSide is which side of the book an order sits on (spec.md §3, §6 `x`
// move verb).
type DexSide int

const (
	SideBid DexSide = iota
	SideAsk
)

// DexOrder is a resting order in a building's orderbook (spec.md §3).
// Grounded on the DEX/order-book shape of the teacher's cmd/dexserver and
// walletserver/services, adapted onto this spec's Building-scoped,
// fungible-item orderbook instead of the teacher's token-pair AMM/DEX.
type DexOrder struct {
	Id         Id
	BuildingId Id
	Account    string
	Side       DexSide
	Item       string
	Quantity   uint64
	Price      uint64 // minor units per unit of Item
}

// DexOrderTable is the DexOrder row store.
type DexOrderTable = Table[Id, DexOrder]

func NewDexOrderTable() *DexOrderTable { return NewTable[Id, DexOrder]() }

// TradeRecord is one matched trade, the supplementary feature backing
// spec.md §6's `trade_history(item, building)` export (SPEC_FULL.md §4 —
// the distilled spec names the export but never specifies what feeds it;
// something must observe each match, so the matching engine below
// appends one row per fill).
type TradeRecord struct {
	Height     Height
	Item       string
	BuildingId Id
	Price      uint64
	Quantity   uint64
	Buyer      string
	Seller     string

	// CorrelationId is a non-consensus, purely-for-logs tag (never
	// serialized into any consensus-visible state) so an operator can
	// correlate a trade back to the RPC call that produced it. Grounded
	// on the teacher's use of google/uuid in core/storage.go for the same
	// kind of non-consensus request tagging.
	CorrelationId string
}

// TradeTable stores historical trades, append-only.
type TradeTable struct {
	rowsByBuilding map[Id][]TradeRecord
}

func NewTradeTable() *TradeTable {
	return &TradeTable{rowsByBuilding: make(map[Id][]TradeRecord)}
}

func (t *TradeTable) append(r TradeRecord) {
	t.rowsByBuilding[r.BuildingId] = append(t.rowsByBuilding[r.BuildingId], r)
}

// History returns every trade for (item, building), oldest first — the
// backing for spec.md §6's trade_history(item, building).
func (t *TradeTable) History(item string, building Id) []TradeRecord {
	var out []TradeRecord
	for _, r := range t.rowsByBuilding[building] {
		if r.Item == item {
			out = append(out, r)
		}
	}
	return out
}

// MatchOrder attempts to match a freshly-placed order against the
// opposite side of the book for the same building and item, price-time
// priority (best price first; ties broken by ascending order id, the
// natural deterministic tie-break given spec.md §5's "ascending (kind,
// id)" convention applied here to order ids). It consumes both the new
// order and any orders it fully matches, partially reduces a remainder
// order's Quantity, and appends one TradeRecord per fill. Matching is a
// natural completion of "DexOrder ... created by place; deleted on
// match" (spec.md §3) — something has to perform the match.
func MatchOrder(orders *DexOrderTable, trades *TradeTable, order *DexOrder, height Height) []TradeRecord {
	var fills []TradeRecord
	remaining := order.Quantity

	candidates := make([]Id, 0)
	for _, id := range orders.Keys() {
		row, ok := orders.Peek(id)
		if !ok {
			continue
		}
		if row.BuildingId != order.BuildingId || row.Item != order.Item {
			continue
		}
		if row.Side == order.Side {
			continue
		}
		if order.Side == SideBid && row.Price > order.Price {
			continue
		}
		if order.Side == SideAsk && row.Price < order.Price {
			continue
		}
		candidates = append(candidates, id)
	}

	sort.Slice(candidates, func(i, j int) bool {
		ri, _ := orders.Peek(candidates[i])
		rj, _ := orders.Peek(candidates[j])
		if ri.Price != rj.Price {
			if order.Side == SideBid {
				return ri.Price < rj.Price // cheapest ask first
			}
			return ri.Price > rj.Price // priciest bid first
		}
		return candidates[i] < candidates[j]
	})

	for _, id := range candidates {
		if remaining == 0 {
			break
		}
		h, ok := orders.Fetch(id)
		if !ok {
			continue
		}
		counter := h.Get()
		qty := remaining
		if counter.Quantity < qty {
			qty = counter.Quantity
		}

		buyer, seller := order.Account, counter.Account
		if order.Side == SideAsk {
			buyer, seller = counter.Account, order.Account
		}

		rec := TradeRecord{
			Height:        height,
			Item:          order.Item,
			BuildingId:    order.BuildingId,
			Price:         counter.Price,
			Quantity:      qty,
			Buyer:         buyer,
			Seller:        seller,
			CorrelationId: uuid.NewString(),
		}
		trades.append(rec)
		fills = append(fills, rec)

		remaining -= qty
		counter.Quantity -= qty
		if counter.Quantity == 0 {
			h.Delete()
		} else {
			h.TouchColumns()
		}
		h.Release()
	}

	order.Quantity = remaining
	return fills
}
