package core

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// movementPatience is how many consecutive blocked blocks a character
// tolerates before its waypoint queue is dropped outright (spec.md §4.5
// "a patience counter ... waypoints are dropped once patience is
// exceeded"). The distilled spec never pins a number; three blocks gives
// a transient traffic jam time to clear without leaving a character
// wedged forever against a permanent obstacle.
const movementPatience = 3

// alwaysInBounds is the map-bounds predicate passed to BuildDistanceField
// when no external static-map boundary is wired in (tests, and the
// reference in-memory store, have no finite map edge).
func alwaysInBounds(Hex) bool { return true }

// fieldRadius sizes the per-step BFS search generously beyond the
// straight-line distance so a detour around a handful of obstacles still
// resolves, without flooding the whole map every block.
func fieldRadius(from, to Hex) int {
	d := from.Distance(to)
	return d*3 + 10
}

// StepMovement is spec.md §4.5 / §4.8 step 8: every outdoor, non-dead
// character with a non-empty waypoint queue advances by its effective
// speed this block, one tile at a time via the shared pathfinder, against
// the obstacle map built at the top of the block (spec.md §4.8 step 2)
// and kept live here as each character steps off/onto tiles. Characters
// are processed in ascending id order so the obstacle map update order
// (and thus who "wins" a race for a tile) is reproducible.
func StepMovement(store RowStore, obstacles *ObstacleMap, log *logrus.Entry) {
	ids := store.Characters().Keys()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		h, ok := store.Characters().Fetch(id)
		if !ok {
			continue
		}
		row := h.Get()
		if row.InBuilding() || row.HP.Dead() || len(row.Movement.Waypoints) == 0 || row.Position == nil {
			h.Release()
			continue
		}

		pos := *row.Position
		budget := row.Movement.PartialStep + row.EffectiveSpeed()
		blocked := false

		for budget >= 1000 && len(row.Movement.Waypoints) > 0 {
			target := row.Movement.Waypoints[0]
			if pos == target {
				row.Movement.Waypoints = row.Movement.Waypoints[1:]
				continue
			}

			// The mover's own tile is marked occupied; lift it while the
			// field is built so the search can reach the mover at all.
			obstacles.Clear(pos)
			field := BuildDistanceField([]Hex{target}, alwaysInBounds, obstacles.Passable(row.Faction), fieldRadius(pos, target))
			obstacles.Set(pos, row.Faction)
			sp, err := field.NewStepPath(pos)
			if err != nil {
				row.Movement.BlockedTurns++
				blocked = true
				break
			}
			if sp.Done() {
				row.Movement.Waypoints = row.Movement.Waypoints[1:]
				continue
			}
			if _, ok := sp.Next(); !ok {
				row.Movement.BlockedTurns++
				blocked = true
				break
			}

			next := sp.Current()
			obstacles.Clear(pos)
			obstacles.Set(next, row.Faction)
			pos = next
			budget -= 1000
			row.Movement.BlockedTurns = 0
		}

		row.Position = &pos
		if len(row.Movement.Waypoints) == 0 {
			row.Movement.PartialStep = 0
		} else {
			row.Movement.PartialStep = budget
		}
		if row.Movement.BlockedTurns > movementPatience {
			row.Movement.Clear()
			if log != nil {
				log.Debugf("movement: character %d dropped waypoints, exceeded patience", id)
			}
		}

		h.TouchColumns()
		h.Release()

		if blocked && log != nil {
			log.Debugf("movement: character %d blocked at %v", id, pos)
		}
	}
}

// ResolveBuildingEntry is the "enter-building intent resolution" half of
// spec.md §4.5: a character that issued `eb` moves toward the target
// building as an ordinary waypoint, and once it is standing on the
// building's centre tile at the end of the movement phase, it is
// teleported indoors — cleared from the obstacle map, its Position set
// to nil and BuildingId set to the target (spec.md invariant 4: Position
// and BuildingId are mutually exclusive). Must run after StepMovement.
func ResolveBuildingEntry(store RowStore, obstacles *ObstacleMap, log *logrus.Entry) {
	ids := store.Characters().Keys()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		h, ok := store.Characters().Fetch(id)
		if !ok {
			continue
		}
		row := h.Get()
		if row.EnterBuildingIntent == 0 || row.InBuilding() || row.Position == nil {
			h.Release()
			continue
		}

		bh, ok := store.Buildings().Peek(row.EnterBuildingIntent)
		if !ok {
			row.EnterBuildingIntent = 0
			h.TouchColumns()
			h.Release()
			continue
		}
		if *row.Position != bh.Centre {
			h.Release()
			continue
		}

		obstacles.Clear(*row.Position)
		row.BuildingId = row.EnterBuildingIntent
		row.EnterBuildingIntent = 0
		row.Position = nil
		row.Movement.Clear()
		h.TouchColumns()
		h.Release()

		if log != nil {
			log.Debugf("movement: character %d entered building %d", id, bh.Id)
		}
	}
}

// ExitBuilding implements the `xb` sub-intent (spec.md §4.6): the
// character is placed back outdoors on the building's centre tile (or,
// if occupied, the closest free tile on an expanding ring around it —
// the same disk-search order spawn placement uses, spec.md §4.8 step 10)
// and BuildingId is cleared. If `eb` and `xb` both appear in the same
// move, core/moves.go skips the exit whenever the enter was accepted, so
// one move never does both.
func ExitBuilding(store RowStore, obstacles *ObstacleMap, charId Id) *MoveError {
	h, ok := store.Characters().Fetch(charId)
	if !ok {
		return moveErrorf("unknown character")
	}
	defer h.Release()
	row := h.Get()
	if !row.InBuilding() {
		return moveErrorf("character is not inside a building")
	}
	bh, ok := store.Buildings().Peek(row.BuildingId)
	if !ok {
		return moveErrorf("building no longer exists")
	}

	var landing *Hex
	for r := 0; r <= 20; r++ {
		for _, tile := range L1Ring(bh.Centre, r) {
			if !obstacles.Blocked(tile, row.Faction) {
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
		return moveErrorf("no free tile to exit building onto")
	}

	row.BuildingId = 0
	row.Position = landing
	obstacles.Set(*landing, row.Faction)
	h.TouchColumns()
	return nil
}
