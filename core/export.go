package core

import (
	"encoding/json"
	"sort"
	"strconv"
)

// hpJSON renders HP the way spec.md §6 describes: an integer when the
// milli-remainder is zero, otherwise the fractional form
// (integer + millis/1000.0) — so typical full-HP and full-heal states stay
// compact integers, and only a genuinely fractional shield prints the
// extra precision. Ids are decimal strings throughout this file to avoid
// float64 precision loss in any downstream JSON consumer (spec.md §6).
type hpJSON struct {
	Armour float64 `json:"armour"`
	Shield float64 `json:"shield"`
}

func renderHP(hp HP) hpJSON {
	return hpJSON{
		Armour: float64(hp.Armour),
		Shield: float64(hp.Shield) + float64(hp.ShieldMilli)/1000.0,
	}
}

type characterJSON struct {
	Id         string   `json:"id"`
	Owner      string   `json:"owner"`
	Faction    string   `json:"faction"`
	Position   *HexJSON `json:"position,omitempty"`
	BuildingId string   `json:"buildingid,omitempty"`
	HP         hpJSON   `json:"hp"`
	Busy       bool     `json:"busy,omitempty"`
	Inventory  Inventory `json:"inventory,omitempty"`
}

type buildingJSON struct {
	Id         string  `json:"id"`
	Type       string  `json:"type"`
	Owner      string  `json:"owner,omitempty"`
	Faction    string  `json:"faction"`
	Centre     HexJSON `json:"centre"`
	Rotation   int     `json:"rotation"`
	Foundation bool    `json:"foundation"`
	HP         hpJSON  `json:"hp"`
}

type fullStateJSON struct {
	Height     Height                   `json:"height"`
	Characters []characterJSON          `json:"characters"`
	Buildings  []buildingJSON           `json:"buildings"`
	Accounts   []accountJSON            `json:"accounts"`
}

type accountJSON struct {
	Name    string `json:"name"`
	Faction string `json:"faction"`
	Balance Amount `json:"balance"`
}

// FullState renders the entire RowStore as spec.md §6's full_state()
// export, every collection sorted ascending by id for a stable diff
// across nodes (spec.md §5).
func FullState(store RowStore, height Height) ([]byte, error) {
	charIds := store.Characters().Keys()
	sort.Slice(charIds, func(i, j int) bool { return charIds[i] < charIds[j] })
	chars := make([]characterJSON, 0, len(charIds))
	for _, id := range charIds {
		row, ok := store.Characters().Peek(id)
		if !ok {
			continue
		}
		entry := characterJSON{
			Id:      strconv.FormatUint(uint64(id), 10),
			Owner:   row.Owner,
			Faction: row.Faction.String(),
			HP:      renderHP(row.HP),
			Busy:    row.Busy,
		}
		if row.Position != nil {
			hj := HexJSON{row.Position.X, row.Position.Y}
			entry.Position = &hj
		}
		if row.BuildingId != 0 {
			entry.BuildingId = strconv.FormatUint(uint64(row.BuildingId), 10)
		}
		if !row.Inventory.Empty() {
			entry.Inventory = row.Inventory
		}
		chars = append(chars, entry)
	}

	buildIds := store.Buildings().Keys()
	sort.Slice(buildIds, func(i, j int) bool { return buildIds[i] < buildIds[j] })
	buildings := make([]buildingJSON, 0, len(buildIds))
	for _, id := range buildIds {
		row, ok := store.Buildings().Peek(id)
		if !ok {
			continue
		}
		buildings = append(buildings, buildingJSON{
			Id:         strconv.FormatUint(uint64(id), 10),
			Type:       string(row.Type),
			Owner:      row.Owner,
			Faction:    row.Faction.String(),
			Centre:     HexJSON{row.Centre.X, row.Centre.Y},
			Rotation:   row.Rotation,
			Foundation: row.Foundation,
			HP:         renderHP(row.HP),
		})
	}

	accNames := store.Accounts().Keys()
	sort.Strings(accNames)
	accounts := make([]accountJSON, 0, len(accNames))
	for _, name := range accNames {
		row, ok := store.Accounts().Peek(name)
		if !ok {
			continue
		}
		accounts = append(accounts, accountJSON{Name: name, Faction: row.Faction.String(), Balance: row.Balance})
	}

	return json.Marshal(fullStateJSON{
		Height:     height,
		Characters: chars,
		Buildings:  buildings,
		Accounts:   accounts,
	})
}

// bootstrapDataJSON is the trimmed subset of full_state() a fresh client
// needs before it can start replaying blocks (spec.md §6 bootstrap_data):
// Ancient buildings and the configured spawn areas, neither of which
// changes during normal chain operation.
type bootstrapDataJSON struct {
	Buildings  []buildingJSON         `json:"buildings"`
	SpawnAreas map[string]spawnAreaJSON `json:"spawnareas"`
}

type spawnAreaJSON struct {
	Centre HexJSON `json:"centre"`
	Radius int     `json:"radius"`
}

// BootstrapData renders spec.md §6's bootstrap_data() export.
func BootstrapData(store RowStore, params Params) ([]byte, error) {
	buildIds := store.Buildings().Keys()
	sort.Slice(buildIds, func(i, j int) bool { return buildIds[i] < buildIds[j] })
	var ancients []buildingJSON
	for _, id := range buildIds {
		row, ok := store.Buildings().Peek(id)
		if !ok || row.Faction != FactionAncient {
			continue
		}
		ancients = append(ancients, buildingJSON{
			Id: strconv.FormatUint(uint64(id), 10), Type: string(row.Type),
			Faction: row.Faction.String(), Centre: HexJSON{row.Centre.X, row.Centre.Y},
			Rotation: row.Rotation, Foundation: row.Foundation, HP: renderHP(row.HP),
		})
	}

	areas := make(map[string]spawnAreaJSON, len(params.SpawnAreaPerFaction))
	for faction, area := range params.SpawnAreaPerFaction {
		areas[faction.String()] = spawnAreaJSON{Centre: HexJSON{area.Centre.X, area.Centre.Y}, Radius: area.Radius}
	}

	return json.Marshal(bootstrapDataJSON{Buildings: ancients, SpawnAreas: areas})
}

type tradeJSON struct {
	Height Height `json:"height"`
	Price  uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
	Buyer  string `json:"buyer"`
	Seller string `json:"seller"`
}

// TradeHistory renders spec.md §6's trade_history(item, building) export,
// oldest trade first (core/dex.go's TradeTable already stores them in
// append order, which is chronological).
func TradeHistory(store RowStore, item string, building Id) ([]byte, error) {
	records := store.Trades().History(item, building)
	out := make([]tradeJSON, 0, len(records))
	for _, r := range records {
		out = append(out, tradeJSON{Height: r.Height, Price: r.Price, Quantity: r.Quantity, Buyer: r.Buyer, Seller: r.Seller})
	}
	return json.Marshal(out)
}

type regionJSON struct {
	Id           string  `json:"id"`
	ResourceLeft uint64  `json:"resourceleft,omitempty"`
	Resource     string  `json:"resource,omitempty"`
	LastTouched  Height  `json:"lasttouched"`
}

// Regions renders spec.md §6's regions(h) export: every region whose
// LastTouchedHeight is >= h, the incremental-export cursor a client polls
// with to avoid re-fetching the whole (potentially huge) region table
// every time (SPEC_FULL.md §4 supplemented feature — the distilled spec
// names the export but not its incremental-fetch contract).
func Regions(store RowStore, since Height) ([]byte, error) {
	ids := store.Regions().Keys()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]regionJSON, 0)
	for _, id := range ids {
		row, ok := store.Regions().Peek(id)
		if !ok || row.LastTouchedHeight < since {
			continue
		}
		entry := regionJSON{Id: strconv.FormatUint(uint64(id), 10), ResourceLeft: row.ResourceLeft, LastTouched: row.LastTouchedHeight}
		if row.Prospection != nil {
			entry.Resource = row.Prospection.Resource
		}
		out = append(out, entry)
	}
	return json.Marshal(out)
}
