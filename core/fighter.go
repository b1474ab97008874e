package core

// FighterKind tags which table a FighterRef points into (spec.md §9:
// "Polymorphic fighter ... tagged variant Character(id) | Building(id)").
type FighterKind int

const (
	FighterNone FighterKind = iota
	FighterCharacter
	FighterBuilding
)

// FighterRef identifies a fighter by tag+id without borrowing a handle —
// cheap to store on a Character row as its current Target, or in a
// DamageKey-like pairing (spec.md §3 Character.target).
type FighterRef struct {
	Kind FighterKind
	Id   Id
}

// IsNone reports whether the ref points at nothing.
func (r FighterRef) IsNone() bool { return r.Kind == FighterNone || r.Id == 0 }

// Fighter is the capability interface combat code dispatches through
// instead of inheritance (spec.md §9): {get_id, get_faction,
// get_position, get_combat_data, get_hp, mutable_hp, get_target,
// set_target, clear_target}. Two concrete implementations —
// characterFighter and buildingFighter — wrap a leased handle each. The
// phases in core/combat.go do not build these; they switch on
// FighterRef.Kind directly.
type Fighter interface {
	Ref() FighterRef
	Faction() Faction
	Position() (Hex, bool) // false if indoors (a character inside a building cannot fight)
	Combat() CombatData
	HP() *HP
	Target() FighterRef
	SetTarget(FighterRef)
	ClearTarget()
}

type characterFighter struct {
	h *Handle[Id, Character]
}

// NewCharacterFighter wraps an already-leased Character handle as a
// Fighter.
func NewCharacterFighter(h *Handle[Id, Character]) Fighter { return characterFighter{h: h} }

func (f characterFighter) Ref() FighterRef { return FighterRef{Kind: FighterCharacter, Id: f.h.Key()} }
func (f characterFighter) Faction() Faction { return f.h.Get().Faction }
func (f characterFighter) Position() (Hex, bool) {
	row := f.h.Get()
	if row.Position == nil {
		return Hex{}, false
	}
	return *row.Position, true
}
func (f characterFighter) Combat() CombatData { return f.h.Get().Proto.Combat }
func (f characterFighter) HP() *HP            { return &f.h.Get().HP }
func (f characterFighter) Target() FighterRef { return f.h.Get().Target }
func (f characterFighter) SetTarget(r FighterRef) {
	f.h.Get().Target = r
	f.h.TouchColumns()
}
func (f characterFighter) ClearTarget() {
	f.h.Get().Target = FighterRef{}
	f.h.TouchColumns()
}

type buildingFighter struct {
	h *Handle[Id, Building]
	// target is tracked out-of-band since Building doesn't carry a
	// Target field in spec.md §3 — buildings are largely passive
	// defensive fighters (turrets) that still need a slot for the
	// capability interface to compile against the same shape.
	target FighterRef
}

// NewBuildingFighter wraps an already-leased Building handle as a
// Fighter.
func NewBuildingFighter(h *Handle[Id, Building]) Fighter { return &buildingFighter{h: h} }

func (f *buildingFighter) Ref() FighterRef { return FighterRef{Kind: FighterBuilding, Id: f.h.Key()} }
func (f *buildingFighter) Faction() Faction { return f.h.Get().Faction }
func (f *buildingFighter) Position() (Hex, bool) {
	return f.h.Get().Centre, true
}
func (f *buildingFighter) Combat() CombatData    { return f.h.Get().Combat }
func (f *buildingFighter) HP() *HP               { return &f.h.Get().HP }
func (f *buildingFighter) Target() FighterRef    { return f.target }
func (f *buildingFighter) SetTarget(r FighterRef) { f.target = r }
func (f *buildingFighter) ClearTarget()           { f.target = FighterRef{} }
