package core

import (
	"strings"
	"testing"
)

func TestValidateCleanStateReportsNoErrors(t *testing.T) {
	store := NewMemStore(OpenMap())
	store.Accounts().Create("alice", Account{Name: "alice", Faction: FactionRed}).Release()
	pos := Hex{0, 0}
	cid := store.NextId()
	store.Characters().Create(cid, Character{Id: cid, Owner: "alice", Faction: FactionRed, Position: &pos}).Release()

	errs := Validate(store, DefaultParams(), 10)
	if len(errs) != 0 {
		t.Fatalf("expected a clean state to validate with no errors, got %v", errs)
	}
}

func TestValidateFlagsPositionBuildingExclusivity(t *testing.T) {
	store := NewMemStore(OpenMap())
	store.Accounts().Create("alice", Account{Name: "alice", Faction: FactionRed}).Release()
	pos := Hex{0, 0}
	cid := store.NextId()
	store.Characters().Create(cid, Character{Id: cid, Owner: "alice", Faction: FactionRed, Position: &pos, BuildingId: 5}).Release()

	errs := Validate(store, DefaultParams(), 10)
	if !containsSubstring(errs, "mutually exclusive") {
		t.Fatalf("expected a mutual-exclusivity violation, got %v", errs)
	}
}

func TestValidateFlagsFactionMismatch(t *testing.T) {
	store := NewMemStore(OpenMap())
	store.Accounts().Create("alice", Account{Name: "alice", Faction: FactionRed}).Release()
	pos := Hex{0, 0}
	cid := store.NextId()
	store.Characters().Create(cid, Character{Id: cid, Owner: "alice", Faction: FactionGreen, Position: &pos}).Release()

	errs := Validate(store, DefaultParams(), 10)
	if !containsSubstring(errs, "Faction mismatch") {
		t.Fatalf("expected a faction mismatch violation, got %v", errs)
	}
}

func TestValidateFlagsCargoOverflow(t *testing.T) {
	store := NewMemStore(OpenMap())
	store.Accounts().Create("alice", Account{Name: "alice", Faction: FactionRed}).Release()
	pos := Hex{0, 0}
	cid := store.NextId()
	store.Characters().Create(cid, Character{
		Id: cid, Owner: "alice", Faction: FactionRed, Position: &pos,
		Inventory: Inventory{"ore": 10}, Proto: CharacterProto{CargoSpace: 5},
	}).Release()

	errs := Validate(store, DefaultParams(), 10)
	if !containsSubstring(errs, "exceeds cargo space") {
		t.Fatalf("expected a cargo-overflow violation, got %v", errs)
	}
}

func TestValidateFlagsOwnerlessNonAncientBuilding(t *testing.T) {
	store := NewMemStore(OpenMap())
	bid := store.NextId()
	store.Buildings().Create(bid, Building{Id: bid, Owner: "", Faction: FactionRed}).Release()

	errs := Validate(store, DefaultParams(), 10)
	if !containsSubstring(errs, "Ancient-owned") {
		t.Fatalf("expected an ownerless-building violation, got %v", errs)
	}
}

func TestValidateFlagsFutureFoundedBuilding(t *testing.T) {
	store := NewMemStore(OpenMap())
	bid := store.NextId()
	store.Buildings().Create(bid, Building{Id: bid, Owner: "alice", Faction: FactionRed, Age: AgeData{FoundedHeight: 100}}).Release()

	errs := Validate(store, DefaultParams(), 10)
	if !containsSubstring(errs, "founded in the future") {
		t.Fatalf("expected a founded-in-the-future violation, got %v", errs)
	}
}

func TestValidateFlagsDanglingOngoingCarrier(t *testing.T) {
	store := NewMemStore(OpenMap())
	opId := store.NextId()
	store.Ongoing().Create(opId, OngoingOp{Id: opId, CharacterId: 999, StartHeight: 1, EndHeight: 2}).Release()

	errs := Validate(store, DefaultParams(), 10)
	if !containsSubstring(errs, "refers to non-existing character") {
		t.Fatalf("expected a dangling-carrier violation, got %v", errs)
	}
}

func TestValidateFlagsCharacterLimitExceeded(t *testing.T) {
	store := NewMemStore(OpenMap())
	store.Accounts().Create("alice", Account{Name: "alice", Faction: FactionRed}).Release()
	params := DefaultParams()
	params.CharacterLimit = 1
	for i := 0; i < 2; i++ {
		pos := Hex{0, 0}
		cid := store.NextId()
		store.Characters().Create(cid, Character{Id: cid, Owner: "alice", Faction: FactionRed, Position: &pos}).Release()
	}

	errs := Validate(store, params, 10)
	if !containsSubstring(errs, "exceeds character_limit") {
		t.Fatalf("expected a character-limit violation, got %v", errs)
	}
}

func TestValidateFlagsDexOrderOnFoundationBuilding(t *testing.T) {
	store := NewMemStore(OpenMap())
	store.Accounts().Create("alice", Account{Name: "alice", Faction: FactionRed}).Release()
	bid := store.NextId()
	store.Buildings().Create(bid, Building{Id: bid, Owner: "alice", Faction: FactionRed, Foundation: true}).Release()
	oid := store.NextId()
	store.DexOrders().Create(oid, DexOrder{Id: oid, BuildingId: bid, Account: "alice", Side: SideBid, Item: "ore", Quantity: 1, Price: 1}).Release()

	errs := Validate(store, DefaultParams(), 10)
	if !containsSubstring(errs, "still a foundation") {
		t.Fatalf("expected a dex-order-on-foundation violation, got %v", errs)
	}
}

func TestValidateFlagsDexOrderDanglingAccount(t *testing.T) {
	store := NewMemStore(OpenMap())
	bid := store.NextId()
	store.Buildings().Create(bid, Building{Id: bid, Owner: "alice", Faction: FactionRed}).Release()
	oid := store.NextId()
	store.DexOrders().Create(oid, DexOrder{Id: oid, BuildingId: bid, Account: "ghost", Side: SideAsk, Item: "ore", Quantity: 1, Price: 1}).Release()

	errs := Validate(store, DefaultParams(), 10)
	if !containsSubstring(errs, "dex order") {
		t.Fatalf("expected a dex-order account violation, got %v", errs)
	}
}

func TestValidateFlagsProspectingCharacterNotBusy(t *testing.T) {
	store := NewMemStore(OpenMap())
	store.Accounts().Create("alice", Account{Name: "alice", Faction: FactionRed}).Release()
	pos := Hex{0, 0}
	regionId := RegionIdAt(pos)
	store.Regions().Create(regionId, Region{Id: regionId, ProspectingCharacter: 0}).Release()
	cid := store.NextId()
	store.Characters().Create(cid, Character{Id: cid, Owner: "alice", Faction: FactionRed, Position: &pos}).Release()
	rh, _ := store.Regions().Fetch(regionId)
	rh.Get().ProspectingCharacter = cid
	rh.TouchColumns()
	rh.Release()

	errs := Validate(store, DefaultParams(), 10)
	if !containsSubstring(errs, "is not busy on an ongoing operation") {
		t.Fatalf("expected a prospecting-character-not-busy violation, got %v", errs)
	}
}

func TestValidateFlagsProspectingCharacterOutsideRegion(t *testing.T) {
	store := NewMemStore(OpenMap())
	store.Accounts().Create("alice", Account{Name: "alice", Faction: FactionRed}).Release()
	pos := Hex{0, 0}
	regionId := RegionIdAt(pos)
	far := Hex{X: regionSize * 10, Y: regionSize * 10}
	store.Regions().Create(regionId, Region{Id: regionId, ProspectingCharacter: 0}).Release()
	cid := store.NextId()
	store.Characters().Create(cid, Character{Id: cid, Owner: "alice", Faction: FactionRed, Position: &far, Busy: true}).Release()
	opId := store.NextId()
	store.Ongoing().Create(opId, OngoingOp{Id: opId, CharacterId: cid, Kind: OpProspection, Prospection: &ProspectionPayload{RegionId: regionId}}).Release()
	ch, _ := store.Characters().Fetch(cid)
	ch.Get().OngoingId = opId
	ch.TouchColumns()
	ch.Release()
	rh, _ := store.Regions().Fetch(regionId)
	rh.Get().ProspectingCharacter = cid
	rh.TouchColumns()
	rh.Release()

	errs := Validate(store, DefaultParams(), 10)
	if !containsSubstring(errs, "not positioned inside the region") {
		t.Fatalf("expected a prospecting-character-outside-region violation, got %v", errs)
	}
}

func TestValidateFlagsStaleDamageListEntry(t *testing.T) {
	store := NewMemStore(OpenMap())
	pos := Hex{0, 0}
	cid := store.NextId()
	store.Accounts().Create("alice", Account{Name: "alice", Faction: FactionRed}).Release()
	store.Characters().Create(cid, Character{Id: cid, Owner: "alice", Faction: FactionRed, Position: &pos}).Release()
	store.DamageLists().Create(DamageKey{VictimId: cid, AttackerId: 2}, DamageEntry{LastHitHeight: 0}).Release()

	errs := Validate(store, DefaultParams(), 200)
	if !containsSubstring(errs, "aging-out threshold") {
		t.Fatalf("expected a stale-damage-list-entry violation, got %v", errs)
	}
}

func containsSubstring(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
