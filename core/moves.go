package core

import (
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
)

// HexJSON is the wire shape of a hex coordinate in a move: a 2-element
// [x, y] array (spec.md §6 `wp`).
type HexJSON [2]int32

// ToHex converts the wire coordinate to a Hex.
func (h HexJSON) ToHex() Hex { return Hex{X: h[0], Y: h[1]} }

// ItemQty names a quantity of a fungible item (spec.md §6 `drop`, `pu`).
type ItemQty struct {
	Item string `json:"item"`
	Num  uint64 `json:"num"`
}

// FoundBuildingIntent is the `fb` sub-intent payload: found a new
// building of the given type, rotated `rot` sixths of a turn (spec.md §6
// `fb`; rotation normalized modulo 6, DESIGN.md Open Question decisions).
type FoundBuildingIntent struct {
	Type BuildingType `json:"t"`
	Rot  int          `json:"rot"`
}

// SendIntent transfers a quantity of a carried item from the sending
// character, who must be standing inside a building, into the named
// recipient account's inventory at that same building (spec.md §6 `send`
// names the sub-intent but leaves its exact payload to the
// implementation; here it is a peer-to-peer in-building gift, distinct
// from the open `x` orderbook).
type SendIntent struct {
	To   string `json:"to"`
	Item string `json:"item"`
	Num  uint64 `json:"num"`
}

// BlueprintCopyIntent starts a multi-copy blueprint duplication job
// (spec.md §4.6).
type BlueprintCopyIntent struct {
	Type BuildingType `json:"t"`
	Num  int          `json:"num"`
}

// ItemConstructionIntent starts a multi-item construction job.
type ItemConstructionIntent struct {
	Item string `json:"item"`
	Num  int    `json:"num"`
}

// BuildingConfigIntent is the new config a `cfg` service request stores
// as the building's PendingConfig, taking effect only after
// Params.BuildingUpdateDelay blocks (spec.md §4.6).
type BuildingConfigIntent struct {
	ServiceFeePercent int `json:"fee"`
	DexFeeBps         int `json:"dexfee"`
}

// ServiceIntent is the `s` sub-intent: a character standing inside a
// building requests one of the building's services. Exactly one field
// should be set; if more than one is, the first in this declared order
// wins and the rest are ignored.
type ServiceIntent struct {
	ArmourRepair  *struct{}               `json:"repair,omitempty"`
	BlueprintCopy *BlueprintCopyIntent    `json:"bp,omitempty"`
	Construct     *ItemConstructionIntent `json:"build,omitempty"`
	UpdateConfig  *BuildingConfigIntent   `json:"cfg,omitempty"`
}

// CharacterIntent is the `c[id]` sub-object: every action a single
// character may take in one move (spec.md §6). Applied in the fixed
// field order below regardless of JSON key order.
type CharacterIntent struct {
	WP            []HexJSON            `json:"wp,omitempty"`
	Send          *SendIntent          `json:"send,omitempty"`
	Prospect      *struct{}            `json:"prospect,omitempty"`
	Mine          *bool                `json:"mine,omitempty"`
	Drop          *ItemQty             `json:"drop,omitempty"`
	PickUp        *ItemQty             `json:"pu,omitempty"`
	EnterBuilding *Id                  `json:"eb,omitempty"`
	ExitBuilding  *struct{}            `json:"xb,omitempty"`
	FoundBuilding *FoundBuildingIntent `json:"fb,omitempty"`
	Service       *ServiceIntent       `json:"s,omitempty"`
}

// NewCharacterIntent is one entry of the `nc` array. Faction only matters
// for an account's very first character (spec.md §3: an account's
// faction is set once, on first valid creation, and never changes
// afterward); it is ignored for every later spawn request.
type NewCharacterIntent struct {
	Faction string `json:"faction,omitempty"`
}

// MoveBody is the `move` object of a move bundle (spec.md §6).
type MoveBody struct {
	NewCharacters []NewCharacterIntent       `json:"nc,omitempty"`
	Characters    map[string]CharacterIntent `json:"c,omitempty"`
	Dex           []DexIntent                `json:"x,omitempty"`
}

// DexIntent places one order on a building's orderbook (spec.md §6 `x`).
type DexIntent struct {
	Building Id     `json:"b"`
	Side     string `json:"side"` // "bid" | "ask"
	Item     string `json:"item"`
	Quantity uint64 `json:"num"`
	Price    uint64 `json:"price"`
}

// MoveBundle is one account's move for the block: `{name, move, out}`
// (spec.md §6). Out records the currency outputs attached to the
// underlying transaction, keyed by destination address — the engine only
// ever reads the developer address's entry, to validate character-
// creation payment.
type MoveBundle struct {
	Name string            `json:"name"`
	Move MoveBody          `json:"move"`
	Out  map[string]Amount `json:"out,omitempty"`
}

// countCharactersOwnedBy scans the character table for owner (spec.md
// §4.7's character-limit check). Character rows carry no owner index, so
// this is a linear scan; acceptable at the population sizes this engine
// is meant for (spec.md §1 Non-goals: at-scale storage is a backend
// concern, not this reference implementation's).
func countCharactersOwnedBy(store RowStore, owner string) int {
	n := 0
	for _, id := range store.Characters().Keys() {
		row, ok := store.Characters().Peek(id)
		if ok && row.Owner == owner {
			n++
		}
	}
	return n
}

// ProcessMoves applies every move bundle, in the order given (spec.md
// §4.8 step 5) — that order is the chain's own transaction order, not
// something this engine is free to re-sort. It returns the queued new-
// character spawn requests for the dedicated placement phase
// (core/spawn.go) to resolve later in the same block.
func ProcessMoves(store RowStore, params Params, obstacles *ObstacleMap, height Height, bundles []MoveBundle, log *logrus.Entry) []SpawnRequest {
	var spawns []SpawnRequest
	for _, b := range bundles {
		spawns = append(spawns, processBundle(store, params, obstacles, height, b, log)...)
	}
	return spawns
}

func processBundle(store RowStore, params Params, obstacles *ObstacleMap, height Height, b MoveBundle, log *logrus.Entry) []SpawnRequest {
	if b.Name == "" {
		return nil
	}

	ah := EnsureAccount(store.Accounts(), b.Name)
	defer ah.Release()

	var developerPaid Amount
	if params.DeveloperAddress != "" {
		developerPaid = b.Out[params.DeveloperAddress]
		if developerPaid > 0 {
			devh := EnsureAccount(store.Accounts(), params.DeveloperAddress)
			devh.Get().CreditDeveloperPayment(developerPaid)
			devh.TouchColumns()
			devh.Release()
		}
	}

	var spawns []SpawnRequest
	if len(b.Move.NewCharacters) > 0 {
		spawns = processNewCharacters(store, params, ah, b.Name, developerPaid, b.Move.NewCharacters, log)
	}

	ids := make([]string, 0, len(b.Move.Characters))
	for k := range b.Move.Characters {
		ids = append(ids, k)
	}
	sort.Slice(ids, func(i, j int) bool {
		vi, _ := strconv.ParseUint(ids[i], 10, 64)
		vj, _ := strconv.ParseUint(ids[j], 10, 64)
		return vi < vj
	})
	for _, idStr := range ids {
		n, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil || strconv.FormatUint(n, 10) != idStr {
			if log != nil {
				log.Debugf("moves: dropping non-canonical character id %q", idStr)
			}
			continue
		}
		applyCharacterIntent(store, params, obstacles, height, b.Name, Id(n), b.Move.Characters[idStr], log)
	}

	for _, dex := range b.Move.Dex {
		if err := applyDexIntent(store, b.Name, dex, height); err != nil && log != nil {
			log.Debugf("moves: dex order from %s dropped: %v", b.Name, err)
		}
	}

	ah.TouchColumns()
	return spawns
}

// processNewCharacters accepts as many of the batch's `nc` entries as the
// account can pay for and fit under its character limit, skipping only
// the entries that don't fit rather than rejecting the whole batch
// (spec.md §4.7.3: payment is checked "up to the remaining paid amount"
// and only the creations that exceed `character_limit` are skipped).
func processNewCharacters(store RowStore, params Params, ah *Handle[string, Account], owner string, paid Amount, intents []NewCharacterIntent, log *logrus.Entry) []SpawnRequest {
	existing := countCharactersOwnedBy(store, owner)
	remainingPaid := paid
	acc := ah.Get()

	var spawns []SpawnRequest
	for _, nc := range intents {
		if remainingPaid < params.CharacterCost {
			if log != nil {
				log.Debugf("moves: %s has insufficient remaining payment for another character (have %d, need %d)", owner, remainingPaid, params.CharacterCost)
			}
			continue
		}
		if existing+len(spawns)+1 > params.CharacterLimit {
			if log != nil {
				log.Debugf("moves: %s would exceed character limit (%d existing + %d already queued + 1 > %d)", owner, existing, len(spawns), params.CharacterLimit)
			}
			continue
		}

		faction := acc.Faction
		if faction == FactionNone {
			f, ok := ParseFaction(nc.Faction)
			if !ok {
				if log != nil {
					log.Debugf("moves: %s has no faction yet and supplied no valid one, dropping nc entry", owner)
				}
				continue
			}
			faction = f
			acc.Faction = faction
		}

		remainingPaid -= params.CharacterCost
		spawns = append(spawns, SpawnRequest{Owner: owner, Faction: faction})
	}
	return spawns
}

func applyCharacterIntent(store RowStore, params Params, obstacles *ObstacleMap, height Height, owner string, id Id, intent CharacterIntent, log *logrus.Entry) {
	h, ok := store.Characters().Fetch(id)
	if !ok {
		if log != nil {
			log.Debugf("moves: %s referenced non-existing character %d", owner, id)
		}
		return
	}
	defer h.Release()
	row := h.Get()
	if row.Owner != owner {
		if log != nil {
			log.Debugf("moves: %s does not own character %d", owner, id)
		}
		return
	}

	if len(intent.WP) > 0 {
		wps := make([]Hex, 0, len(intent.WP))
		for _, w := range intent.WP {
			wps = append(wps, w.ToHex())
		}
		row.Movement.Waypoints = wps
		row.Movement.BlockedTurns = 0
		h.TouchColumns()
	}

	if intent.Send != nil {
		applySend(store, row, *intent.Send, h)
	}

	if intent.Prospect != nil {
		startProspecting(store, params, row, id, height, h)
	}

	if intent.Mine != nil {
		applyMine(row, *intent.Mine, h)
	}

	if intent.Drop != nil {
		applyDrop(store, row, *intent.Drop, h)
	}

	if intent.PickUp != nil {
		applyPickup(store, row, *intent.PickUp, h)
	}

	enteredThisMove := false
	if intent.EnterBuilding != nil {
		if applyEnterBuilding(store, row, *intent.EnterBuilding, h) {
			enteredThisMove = true
		}
	}

	if intent.ExitBuilding != nil && !enteredThisMove {
		if err := ExitBuilding(store, obstacles, id); err != nil && log != nil {
			log.Debugf("moves: character %d exit-building failed: %v", id, err)
		}
	}

	if intent.FoundBuilding != nil {
		foundBuilding(store, params, obstacles, row, height, *intent.FoundBuilding, log)
	}

	if intent.Service != nil {
		applyService(store, params, row, height, *intent.Service, log)
	}
}

func applySend(store RowStore, row *Character, intent SendIntent, h *Handle[Id, Character]) {
	if !row.InBuilding() || intent.Num == 0 || intent.To == "" {
		return
	}
	if !row.Inventory.Remove(intent.Item, intent.Num) {
		return
	}
	h.TouchColumns()

	key := BuildingInventoryKey{BuildingId: row.BuildingId, Account: intent.To}
	if bh, ok := store.BuildingInventories().Fetch(key); ok {
		bh.Get().Inventory.Add(intent.Item, intent.Num)
		bh.TouchColumns()
		bh.Release()
		return
	}
	inv := make(Inventory)
	inv.Add(intent.Item, intent.Num)
	store.BuildingInventories().Create(key, BuildingInventory{Key: key, Inventory: inv}).Release()
}

func startProspecting(store RowStore, params Params, row *Character, charId Id, height Height, h *Handle[Id, Character]) {
	if row.InBuilding() || row.Busy || row.Position == nil || !row.Proto.Prospection.Capable {
		return
	}
	if len(row.Movement.Waypoints) > 0 {
		// A character mid-journey cannot simultaneously start prospecting
		// (spec.md §8's prospect-after-cross-region-waypoint scenario: the
		// prospect sub-intent must be resubmitted once the character has
		// actually arrived).
		return
	}

	regionId := RegionIdAt(*row.Position)
	rh, ok := store.Regions().Fetch(regionId)
	if !ok {
		rh = store.Regions().Create(regionId, Region{Id: regionId})
	}
	defer rh.Release()
	region := rh.Get()
	if region.ProspectingCharacter != 0 {
		return
	}
	if region.Prospection != nil && !region.Stale(height, params.ProspectionStaleBlocks) {
		return
	}

	opId := store.NextId()
	op := OngoingOp{
		Id:          opId,
		StartHeight: height,
		EndHeight:   height + 1,
		CharacterId: charId,
		Kind:        OpProspection,
		Prospection: &ProspectionPayload{RegionId: regionId},
	}
	store.Ongoing().Create(opId, op).Release()

	region.ProspectingCharacter = charId
	region.LastTouchedHeight = height
	rh.TouchColumns()

	row.Busy = true
	row.OngoingId = opId
	h.TouchColumns()
}

func applyMine(row *Character, start bool, h *Handle[Id, Character]) {
	if !row.Proto.Mining.Capable || row.InBuilding() || row.Position == nil {
		return
	}
	if !start {
		if row.Proto.Mining.Active {
			row.Proto.Mining.Active = false
			h.TouchColumns()
		}
		return
	}
	if row.Busy {
		return
	}
	row.Proto.Mining.Active = true
	row.Proto.Mining.RegionId = RegionIdAt(*row.Position)
	h.TouchColumns()
}

func applyDrop(store RowStore, row *Character, item ItemQty, h *Handle[Id, Character]) {
	if row.InBuilding() || row.Position == nil || item.Num == 0 {
		return
	}
	if !row.Inventory.Remove(item.Item, item.Num) {
		return
	}
	h.TouchColumns()

	pos := *row.Position
	if lh, ok := store.GroundLoot().Fetch(pos); ok {
		lh.Get().Inventory.Add(item.Item, item.Num)
		lh.TouchFull()
		lh.Release()
		return
	}
	inv := make(Inventory)
	inv.Add(item.Item, item.Num)
	store.GroundLoot().Create(pos, GroundLoot{Position: pos, Inventory: inv}).Release()
}

func applyPickup(store RowStore, row *Character, item ItemQty, h *Handle[Id, Character]) {
	if row.InBuilding() || row.Position == nil || item.Num == 0 {
		return
	}
	pos := *row.Position
	lh, ok := store.GroundLoot().Fetch(pos)
	if !ok {
		return
	}
	defer lh.Release()
	if row.Inventory.Total()+item.Num > row.Proto.CargoSpace {
		return
	}
	if !lh.Get().Inventory.Remove(item.Item, item.Num) {
		return
	}
	row.Inventory.Add(item.Item, item.Num)
	h.TouchColumns()
	if lh.Get().Inventory.Empty() {
		lh.Delete()
	} else {
		lh.TouchFull()
	}
}

// applyEnterBuilding validates and records an `eb` intent; the actual
// teleport happens once the character reaches the building's centre tile
// (core/movement.go ResolveBuildingEntry). It reports whether the intent
// was accepted, so a same-move `xb` can be suppressed (spec.md §6 "both
// eb and xb in one move resolves enter-only").
func applyEnterBuilding(store RowStore, row *Character, buildingId Id, h *Handle[Id, Character]) bool {
	if row.InBuilding() || row.Position == nil {
		return false
	}
	bh, ok := store.Buildings().Peek(buildingId)
	if !ok || !bh.Finished() {
		return false
	}
	row.EnterBuildingIntent = buildingId
	if len(row.Movement.Waypoints) == 0 || row.Movement.Waypoints[len(row.Movement.Waypoints)-1] != bh.Centre {
		row.Movement.Waypoints = append(row.Movement.Waypoints, bh.Centre)
	}
	h.TouchColumns()
	return true
}

func foundBuilding(store RowStore, params Params, obstacles *ObstacleMap, row *Character, height Height, intent FoundBuildingIntent, log *logrus.Entry) {
	if row.InBuilding() || row.Position == nil || row.Busy {
		return
	}
	duration, known := params.ConstructionBlocks[intent.Type]
	if !known || duration == 0 {
		if log != nil {
			log.Debugf("moves: unknown building type %q, dropping fb", intent.Type)
		}
		return
	}
	pos := *row.Position
	for _, bid := range store.Buildings().Keys() {
		if existing, ok := store.Buildings().Peek(bid); ok && existing.Centre == pos {
			return
		}
	}

	buildingId := store.NextId()
	building := Building{
		Id:       buildingId,
		Type:     intent.Type,
		Owner:    row.Owner,
		Faction:  row.Faction,
		Centre:   pos,
		Rotation: ((intent.Rot % 6) + 6) % 6,
		Age:      AgeData{FoundedHeight: height},
		Foundation: true,
		ConstructionInventory: make(Inventory),
		HP: HP{Armour: 50, MaxArmour: 50},
		LastTouchedHeight: height,
	}

	opId := store.NextId()
	op := OngoingOp{
		Id:                   opId,
		StartHeight:          height,
		EndHeight:            height + duration,
		BuildingId:           buildingId,
		Kind:                 OpBuildingConstruction,
		BuildingConstruction: &BuildingConstructionPayload{},
	}
	building.OngoingConstruction = opId

	store.Buildings().Create(buildingId, building).Release()
	store.Ongoing().Create(opId, op).Release()
	obstacles.Set(pos, row.Faction)
}

// armourRepairBlocks is the whole duration of an armour repair;
// itemConstructionBlocks is the block cost per constructed item. These
// are simplified flat constants (spec.md §1 Non-
// goals: balance numbers are opaque parameters) standing in for a real
// per-item/per-type duration table the distilled spec never supplies
// beyond bp_copy_blocks and construction_blocks.
const (
	armourRepairBlocks     = 5
	itemConstructionBlocks = 1
)

func applyService(store RowStore, params Params, row *Character, height Height, intent ServiceIntent, log *logrus.Entry) {
	if !row.InBuilding() {
		return
	}
	buildingId := row.BuildingId
	bh, ok := store.Buildings().Fetch(buildingId)
	if !ok {
		return
	}
	defer bh.Release()
	if !bh.Get().Finished() {
		return
	}
	if buildingHasActiveOp(store, buildingId) {
		if log != nil {
			log.Debugf("moves: building %d already has an active service op", buildingId)
		}
		return
	}

	switch {
	case intent.ArmourRepair != nil:
		opId := store.NextId()
		op := OngoingOp{
			Id: opId, StartHeight: height, EndHeight: height + armourRepairBlocks,
			BuildingId: buildingId, Kind: OpArmourRepair, ArmourRepair: &ArmourRepairPayload{},
		}
		store.Ongoing().Create(opId, op).Release()

	case intent.BlueprintCopy != nil && intent.BlueprintCopy.Num > 0:
		perCopy, known := params.BPCopyBlocks[intent.BlueprintCopy.Type]
		if !known || perCopy == 0 {
			return
		}
		opId := store.NextId()
		op := OngoingOp{
			Id: opId, StartHeight: height, EndHeight: height + perCopy*Height(intent.BlueprintCopy.Num),
			BuildingId: buildingId, Kind: OpBlueprintCopy,
			BlueprintCopy: &BlueprintCopyPayload{BlueprintType: intent.BlueprintCopy.Type, NumCopies: intent.BlueprintCopy.Num, Account: row.Owner},
		}
		store.Ongoing().Create(opId, op).Release()

	case intent.Construct != nil && intent.Construct.Num > 0:
		opId := store.NextId()
		op := OngoingOp{
			Id: opId, StartHeight: height, EndHeight: height + Height(itemConstructionBlocks*intent.Construct.Num),
			BuildingId: buildingId, Kind: OpItemConstruction,
			ItemConstruction: &ItemConstructionPayload{Item: intent.Construct.Item, NumItems: intent.Construct.Num, Account: row.Owner},
		}
		store.Ongoing().Create(opId, op).Release()

	case intent.UpdateConfig != nil:
		bh.Get().PendingConfig = PendingConfigUpdate{
			Config: BuildingConfig{
				ServiceFeePercent: intent.UpdateConfig.ServiceFeePercent,
				DexFeeBps:         intent.UpdateConfig.DexFeeBps,
			},
			EffectiveAt: height + params.BuildingUpdateDelay,
			Set:         true,
		}
		bh.TouchColumns()
	}
}

func buildingHasActiveOp(store RowStore, buildingId Id) bool {
	for _, id := range store.Ongoing().Keys() {
		row, ok := store.Ongoing().Peek(id)
		if ok && row.BuildingId == buildingId {
			return true
		}
	}
	return false
}

func applyDexIntent(store RowStore, account string, intent DexIntent, height Height) *MoveError {
	if intent.Quantity == 0 || intent.Price == 0 {
		return moveErrorf("dex order must have positive quantity and price")
	}
	var side DexSide
	switch intent.Side {
	case "bid":
		side = SideBid
	case "ask":
		side = SideAsk
	default:
		return moveErrorf("unknown dex side %q", intent.Side)
	}
	if _, ok := store.Buildings().Peek(intent.Building); !ok {
		return moveErrorf("dex order references non-existing building %d", intent.Building)
	}

	id := store.NextId()
	order := DexOrder{
		Id: id, BuildingId: intent.Building, Account: account,
		Side: side, Item: intent.Item, Quantity: intent.Quantity, Price: intent.Price,
	}
	MatchOrder(store.DexOrders(), store.Trades(), &order, height)
	if order.Quantity > 0 {
		store.DexOrders().Create(id, order).Release()
	}
	return nil
}
