package core

// StaticMap is the externally-supplied base-map passability oracle
// (spec.md §1: "the static map data files" are an external collaborator).
// The engine only ever asks it yes/no questions.
type StaticMap interface {
	Passable(h Hex) bool
}

// ObstacleMap is the in-memory, per-block view of which tiles are
// occupied by which faction's vehicles (spec.md §4.3). It is rebuilt at
// the start of every block from the character table and then kept in
// sync by the movement subsystem as positions change within the block.
type ObstacleMap struct {
	occupied map[Hex]Faction
	static   StaticMap
}

// NewObstacleMap wires a fresh obstacle map against the given static
// base-map oracle.
func NewObstacleMap(static StaticMap) *ObstacleMap {
	return &ObstacleMap{occupied: make(map[Hex]Faction), static: static}
}

// BuildFromCharacters populates the dynamic layer from every outdoor
// character's current position plus every building's centre tile
// (spec.md §4.3 "the static base map plus building placements at block
// start", §4.8 step 2). Characters inside buildings don't occupy a map
// tile; buildings occupy theirs for as long as they exist, not just the
// block they were founded in.
func BuildFromCharacters(static StaticMap, chars *CharacterTable, buildings *BuildingTable) *ObstacleMap {
	m := NewObstacleMap(static)
	for _, id := range buildings.Keys() {
		row, ok := buildings.Peek(id)
		if !ok {
			continue
		}
		m.occupied[row.Centre] = row.Faction
	}
	for _, id := range chars.Keys() {
		row, ok := chars.Peek(id)
		if !ok || row.InBuilding() || row.Position == nil {
			continue
		}
		m.occupied[*row.Position] = row.Faction
	}
	return m
}

// Set marks h as occupied by faction f (called by movement when a
// character steps onto a tile, and by foundation placement — spec.md
// §4.3, §4.8 step 5 "Foundation creation ... blocks other vehicles in the
// same block").
func (m *ObstacleMap) Set(h Hex, f Faction) { m.occupied[h] = f }

// Clear marks h as unoccupied (called by movement when a character steps
// off a tile).
func (m *ObstacleMap) Clear(h Hex) { delete(m.occupied, h) }

// OccupiedBy returns the occupying faction and whether h is occupied at
// all by the dynamic layer.
func (m *ObstacleMap) OccupiedBy(h Hex) (Faction, bool) {
	f, ok := m.occupied[h]
	return f, ok
}

// Blocked reports whether a mover of the given faction cannot enter h:
// either the static map refuses it, or any vehicle already sits there —
// same faction blocks just as much as an opposing one; only genuinely
// empty tiles may be entered (spec.md §4.5).
func (m *ObstacleMap) Blocked(h Hex, mover Faction) bool {
	if m.static != nil && !m.static.Passable(h) {
		return true
	}
	_, occ := m.occupied[h]
	return occ
}

// Passable adapts the obstacle map into an EdgeFunc for PathFinder,
// faction-aware per spec.md §4.1 ("passable + faction-aware").
func (m *ObstacleMap) Passable(mover Faction) EdgeFunc {
	return func(_ Hex, to Hex) bool {
		return !m.Blocked(to, mover)
	}
}
