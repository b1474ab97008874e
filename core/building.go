package core

// BuildingType names a building blueprint; opaque beyond its identity and
// the bp/construction-duration tables it indexes into (spec.md §1
// Non-goals: balance values are opaque parameters).
type BuildingType string

// AgeData tracks a building's construction lifecycle (spec.md §3
// invariant 7).
type AgeData struct {
	FoundedHeight  Height
	FinishedHeight *Height // nil while still a foundation
}

// BuildingConfig holds the tunables a BuildingUpdate op can change
// (spec.md §4.6, §8 scenario 6).
type BuildingConfig struct {
	ServiceFeePercent int
	DexFeeBps         int
}

// PendingConfigUpdate holds a config update that a config service request
// (applyService in core/moves.go) stored but that has not taken effect
// yet; EffectiveConfig applies it from EffectiveAt onward — the delay is
// deliberate (spec.md §4.6): fees in effect when moves are processed
// reflect the old config until the delay elapses.
type PendingConfigUpdate struct {
	Config      BuildingConfig
	EffectiveAt Height
	Set         bool
}

// Building is a player- or Ancient-owned structure (spec.md §3). Owner =
// "" marks an Ancient building (invariant 2).
type Building struct {
	Id       Id
	Type     BuildingType
	Owner    string
	Faction  Faction
	Centre   Hex
	Rotation int

	Age    AgeData
	Config BuildingConfig
	PendingConfig PendingConfigUpdate

	Foundation            bool
	ConstructionInventory Inventory
	OngoingConstruction   Id

	HP     HP
	Combat CombatData

	LastTouchedHeight Height // drives regions(h)-style incremental export
}

// BuildingTable is the Building row store.
type BuildingTable = Table[Id, Building]

func NewBuildingTable() *BuildingTable { return NewTable[Id, Building]() }

// EffectiveConfig returns the config that applies at the given height:
// the pending update only once its EffectiveAt has passed (spec.md
// §4.6, §8 scenario 6).
func (b *Building) EffectiveConfig(at Height) BuildingConfig {
	if b.PendingConfig.Set && at >= b.PendingConfig.EffectiveAt {
		return b.PendingConfig.Config
	}
	return b.Config
}

// Finished reports whether construction has completed.
func (b *Building) Finished() bool { return !b.Foundation && b.Age.FinishedHeight != nil }
