package core

import "testing"

func TestMatchOrderFullFill(t *testing.T) {
	orders := NewDexOrderTable()
	trades := NewTradeTable()

	ask := DexOrder{Id: 1, BuildingId: 10, Account: "seller", Side: SideAsk, Item: "ore", Quantity: 5, Price: 100}
	orders.Create(ask.Id, ask).Release()

	bid := DexOrder{Id: 2, BuildingId: 10, Account: "buyer", Side: SideBid, Item: "ore", Quantity: 5, Price: 100}
	fills := MatchOrder(orders, trades, &bid, 42)

	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	if fills[0].Quantity != 5 || fills[0].Buyer != "buyer" || fills[0].Seller != "seller" {
		t.Errorf("unexpected fill: %+v", fills[0])
	}
	if bid.Quantity != 0 {
		t.Errorf("bid should be fully consumed, remaining quantity = %d", bid.Quantity)
	}
	if orders.Has(ask.Id) {
		t.Errorf("fully-matched ask should be removed from the book")
	}
	history := trades.History("ore", 10)
	if len(history) != 1 {
		t.Fatalf("trade history should have 1 entry, got %d", len(history))
	}
}

func TestMatchOrderPartialFillLeavesRemainder(t *testing.T) {
	orders := NewDexOrderTable()
	trades := NewTradeTable()

	ask := DexOrder{Id: 1, BuildingId: 10, Account: "seller", Side: SideAsk, Item: "ore", Quantity: 3, Price: 100}
	orders.Create(ask.Id, ask).Release()

	bid := DexOrder{Id: 2, BuildingId: 10, Account: "buyer", Side: SideBid, Item: "ore", Quantity: 5, Price: 100}
	fills := MatchOrder(orders, trades, &bid, 1)

	if len(fills) != 1 || fills[0].Quantity != 3 {
		t.Fatalf("expected single 3-unit fill, got %+v", fills)
	}
	if bid.Quantity != 2 {
		t.Errorf("bid remainder should be 2, got %d", bid.Quantity)
	}
	if orders.Has(ask.Id) {
		t.Errorf("fully-consumed ask should have been deleted")
	}
}

func TestMatchOrderPriceTimePriority(t *testing.T) {
	orders := NewDexOrderTable()
	trades := NewTradeTable()

	cheap := DexOrder{Id: 1, BuildingId: 10, Account: "cheap-seller", Side: SideAsk, Item: "ore", Quantity: 2, Price: 90}
	pricey := DexOrder{Id: 2, BuildingId: 10, Account: "pricey-seller", Side: SideAsk, Item: "ore", Quantity: 2, Price: 95}
	orders.Create(cheap.Id, cheap).Release()
	orders.Create(pricey.Id, pricey).Release()

	bid := DexOrder{Id: 3, BuildingId: 10, Account: "buyer", Side: SideBid, Item: "ore", Quantity: 2, Price: 100}
	fills := MatchOrder(orders, trades, &bid, 1)

	if len(fills) != 1 || fills[0].Seller != "cheap-seller" {
		t.Fatalf("expected the cheaper ask to fill first, got %+v", fills)
	}
	if !orders.Has(pricey.Id) {
		t.Errorf("the pricier ask should still be resting on the book")
	}
}

func TestMatchOrderNoCrossLeavesBookUntouched(t *testing.T) {
	orders := NewDexOrderTable()
	trades := NewTradeTable()

	ask := DexOrder{Id: 1, BuildingId: 10, Account: "seller", Side: SideAsk, Item: "ore", Quantity: 5, Price: 120}
	orders.Create(ask.Id, ask).Release()

	bid := DexOrder{Id: 2, BuildingId: 10, Account: "buyer", Side: SideBid, Item: "ore", Quantity: 5, Price: 100}
	fills := MatchOrder(orders, trades, &bid, 1)

	if len(fills) != 0 {
		t.Fatalf("bid below ask price should not match, got %d fills", len(fills))
	}
	if bid.Quantity != 5 {
		t.Errorf("unmatched bid quantity should be untouched, got %d", bid.Quantity)
	}
	if !orders.Has(ask.Id) {
		t.Errorf("unmatched ask should remain resting")
	}
}

func TestMatchOrderIgnoresOtherBuildingsAndItems(t *testing.T) {
	orders := NewDexOrderTable()
	trades := NewTradeTable()

	wrongBuilding := DexOrder{Id: 1, BuildingId: 99, Account: "a", Side: SideAsk, Item: "ore", Quantity: 5, Price: 100}
	wrongItem := DexOrder{Id: 2, BuildingId: 10, Account: "b", Side: SideAsk, Item: "gas", Quantity: 5, Price: 100}
	orders.Create(wrongBuilding.Id, wrongBuilding).Release()
	orders.Create(wrongItem.Id, wrongItem).Release()

	bid := DexOrder{Id: 3, BuildingId: 10, Account: "buyer", Side: SideBid, Item: "ore", Quantity: 5, Price: 100}
	fills := MatchOrder(orders, trades, &bid, 1)

	if len(fills) != 0 {
		t.Fatalf("expected no fills against orders in other buildings/items, got %d", len(fills))
	}
}
