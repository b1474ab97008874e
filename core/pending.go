package core

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

// PendingState is a read-only mempool preview, never consensus state: it
// projects the sub-intents seen across every move bundle still sitting
// unconfirmed in the local mempool, so a game client can render an
// optimistic view before the next block confirms (spec.md §6
// pending_state — a convenience RPC, not part of block processing).
// ProcessMoves (core/moves.go) never reads from or writes to this type.
type PendingState struct {
	// byAccount groups queued new-character counts by (account, faction).
	byAccount map[pendingSpawnKey]int
	// byCharacter keeps only the latest waypoint/prospect/mine intent seen
	// for each character id, overwriting as later mempool moves arrive —
	// a client only cares what would apply if everything confirmed now.
	byCharacter map[Id]*pendingCharacter
}

type pendingSpawnKey struct {
	Account string
	Faction Faction
}

type pendingCharacter struct {
	Waypoints []Hex
	// Prospect/Mining hold the region id a pending prospect/mine intent
	// would target, or nil if no such intent is currently pending
	// (spec.md §4.9: "(c) per-character prospecting target (region id),
	// (d) per-character mining target (region id)").
	Prospect *Id
	Mining   *Id
}

// regionForCharacter resolves the region id a character's prospect/mine
// intent would apply to: wherever it currently, confirmedly stands.
// Returns ok=false if the character can't be resolved to an outdoor tile
// (not found, indoors, or no position yet).
func regionForCharacter(store RowStore, id Id) (Id, bool) {
	if store == nil {
		return 0, false
	}
	row, ok := store.Characters().Peek(id)
	if !ok || row.Position == nil {
		return 0, false
	}
	return RegionIdAt(*row.Position), true
}

// NewPendingState returns an empty projection.
func NewPendingState() *PendingState {
	return &PendingState{
		byAccount:   make(map[pendingSpawnKey]int),
		byCharacter: make(map[Id]*pendingCharacter),
	}
}

// Observe folds one mempool move bundle into the projection. Bundles
// should be observed in the order the mempool returns them; since only
// the latest per-character intent is kept, later observations win. store
// is consulted read-only, to resolve the region a prospect/mine intent
// would target from the character's last confirmed position; Observe
// never mutates it.
func (p *PendingState) Observe(store RowStore, b MoveBundle) {
	if b.Name == "" {
		return
	}
	for _, nc := range b.Move.NewCharacters {
		faction := FactionNone
		if nc.Faction != "" {
			if f, ok := ParseFaction(nc.Faction); ok {
				faction = f
			}
		}
		p.byAccount[pendingSpawnKey{Account: b.Name, Faction: faction}]++
	}

	for idStr, intent := range b.Move.Characters {
		id64, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		id := Id(id64)
		pc := p.byCharacter[id]
		if pc == nil {
			pc = &pendingCharacter{}
			p.byCharacter[id] = pc
		}

		// Field order mirrors CharacterIntent's declared order (wp, then
		// prospect, then mine) so the exclusion rules below see each
		// other's effects in the same order a confirmed block would.
		if len(intent.WP) > 0 {
			wps := make([]Hex, 0, len(intent.WP))
			for _, w := range intent.WP {
				wps = append(wps, w.ToHex())
			}
			pc.Waypoints = wps
			// A waypoints intent clears a mining intent: mining is
			// impossible while moving (spec.md §4.9).
			pc.Mining = nil
		}

		if intent.Prospect != nil {
			if region, ok := regionForCharacter(store, id); ok {
				if pc.Prospect != nil && *pc.Prospect != region {
					fatalf("pending.prospect_region_mismatch",
						"character %d: pending prospect targets region %d, newly observed prospect targets region %d",
						id, *pc.Prospect, region)
				}
				pc.Prospect = &region
			}
		}

		if intent.Mine != nil {
			region, ok := regionForCharacter(store, id)
			canMine := ok && *intent.Mine && len(pc.Waypoints) == 0 && pc.Prospect == nil
			if canMine {
				if row, found := store.Characters().Peek(id); found {
					canMine = row.Proto.Mining.Capable
				}
			}
			if canMine {
				pc.Mining = &region
			} else {
				pc.Mining = nil
			}
		}
	}
}

// Clear empties the projection (called once the mempool itself is known
// to be empty, or a new block has confirmed and every pending move has
// either landed or been re-observed).
func (p *PendingState) Clear() {
	p.byAccount = make(map[pendingSpawnKey]int)
	p.byCharacter = make(map[Id]*pendingCharacter)
}

type pendingCharacterJSON struct {
	Id                string    `json:"id"`
	Waypoints         []HexJSON `json:"waypoints,omitempty"`
	ProspectingRegion *string   `json:"prospectingregion,omitempty"`
	MiningRegion      *string   `json:"miningregion,omitempty"`
}

type pendingNewCharacterJSON struct {
	Account string `json:"account"`
	Faction string `json:"faction"`
	Count   int    `json:"count"`
}

type pendingStateJSON struct {
	SnapshotId    string                    `json:"snapshotid"`
	Characters    []pendingCharacterJSON    `json:"characters"`
	NewCharacters []pendingNewCharacterJSON `json:"newcharacters"`
}

// ToJSON renders the projection as `{snapshotid, characters,
// newcharacters}`, where snapshotid is a fresh UUID per call and the two
// lists are sorted for a stable diff between polls: characters ascending by id,
// new-character groups ascending by (account, faction).
func (p *PendingState) ToJSON() ([]byte, error) {
	ids := make([]Id, 0, len(p.byCharacter))
	for id := range p.byCharacter {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	chars := make([]pendingCharacterJSON, 0, len(ids))
	for _, id := range ids {
		pc := p.byCharacter[id]
		entry := pendingCharacterJSON{Id: strconv.FormatUint(uint64(id), 10)}
		if pc.Prospect != nil {
			s := strconv.FormatUint(uint64(*pc.Prospect), 10)
			entry.ProspectingRegion = &s
		}
		if pc.Mining != nil {
			s := strconv.FormatUint(uint64(*pc.Mining), 10)
			entry.MiningRegion = &s
		}
		for _, h := range pc.Waypoints {
			entry.Waypoints = append(entry.Waypoints, HexJSON{h.X, h.Y})
		}
		chars = append(chars, entry)
	}

	keys := make([]pendingSpawnKey, 0, len(p.byAccount))
	for k := range p.byAccount {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Account != keys[j].Account {
			return keys[i].Account < keys[j].Account
		}
		return keys[i].Faction < keys[j].Faction
	})
	newChars := make([]pendingNewCharacterJSON, 0, len(keys))
	for _, k := range keys {
		newChars = append(newChars, pendingNewCharacterJSON{Account: k.Account, Faction: k.Faction.String(), Count: p.byAccount[k]})
	}

	out := pendingStateJSON{
		SnapshotId:    uuid.NewString(),
		Characters:    chars,
		NewCharacters: newChars,
	}
	return json.Marshal(out)
}
