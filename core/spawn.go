package core

import (
	"github.com/sirupsen/logrus"
)

// SpawnRequest is one new character queued by a confirmed `nc` move
// (core/moves.go) for placement by PlaceSpawns later in the same block
// (spec.md §4.8 step 10). It deliberately carries no position yet — that
// is decided here, not at move-processing time, so the placement search
// always runs against the obstacle map as it stands right before
// placement, not as it stood mid move-processing.
type SpawnRequest struct {
	Owner   string
	Faction Faction
}

// defaultProto is the one character class this engine ships (spec.md §1
// Non-goals: balance/class data is opaque and out of scope). A production
// chain would load per-class proto definitions from its own config; every
// spawned character here gets the same starting capability bundle.
func defaultProto() CharacterProto {
	return CharacterProto{
		BaseSpeed:  1000,
		CargoSpace: 100,
		Combat: CombatData{
			HasAttack:   true,
			AttackMin:   1,
			AttackMax:   5,
			AttackRange: 3,
		},
		Mining:      MiningData{Capable: true},
		Prospection: ProspectionCapability{Capable: true},
	}
}

// PlaceSpawns creates a Character row for every queued request, in the
// order the requests were queued (spec.md §5's ordering guarantee — moves
// are processed in their given order, so the spawn queue built from them
// inherits that order). Each character is placed by drawing a random
// point in its faction's spawn L1 disk and then expanding L1 rings from
// that point until a passable, unoccupied tile is found (spec.md §4.2
// draw order (d), §4.8 step 10).
func PlaceSpawns(store RowStore, params Params, obstacles *ObstacleMap, rng *Stream, requests []SpawnRequest, log *logrus.Entry) {
	for _, req := range requests {
		area, ok := params.SpawnAreaPerFaction[req.Faction]
		if !ok {
			if log != nil {
				log.Warnf("spawn: no spawn area configured for faction %v, dropping request for %s", req.Faction, req.Owner)
			}
			continue
		}

		start := Pick(rng, L1Disk(area.Centre, area.Radius))

		var landing *Hex
		maxRadius := area.Radius + 50
		for r := 0; r <= maxRadius; r++ {
			ring := L1Ring(start, r)
			for _, tile := range ring {
				if !obstacles.Blocked(tile, req.Faction) {
					t := tile
					landing = &t
					break
				}
			}
			if landing != nil {
				break
			}
		}
		if landing == nil {
			if log != nil {
				log.Warnf("spawn: no free tile found near faction %v spawn area for %s", req.Faction, req.Owner)
			}
			continue
		}

		id := store.NextId()
		proto := defaultProto()
		row := Character{
			Id:      id,
			Owner:   req.Owner,
			Faction: req.Faction,
			Position: landing,
			HP: HP{
				Armour:    100,
				MaxArmour: 100,
			},
			Inventory: make(Inventory),
			Proto:     proto,
		}
		store.Characters().Create(id, row).Release()
		obstacles.Set(*landing, req.Faction)

		if log != nil {
			log.Infof("spawn: character %d created for %s at %v", id, req.Owner, *landing)
		}
	}
}
