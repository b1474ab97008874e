package core

// SpawnArea is a faction's spawn disk centre and radius (spec.md §4.8 step
// 10, §6 `spawn_area_per_faction`).
type SpawnArea struct {
	Centre Hex
	Radius int
}

// Params is the immutable per-chain parameter block (spec.md §6). It is
// loaded once (see pkg/config) and then passed by value/pointer into every
// engine instance — there is deliberately no package-level global here,
// per the design note in spec.md §9 ("dependency-injected context
// handles, not ambient globals") and SPEC_FULL.md §2.2, so tests can load
// as many differently-configured engines as they like in one process.
type Params struct {
	CharacterCost       Amount
	CharacterLimit      int
	SpawnAreaPerFaction map[Faction]SpawnArea

	DamageListAge       Height
	BuildingUpdateDelay Height

	// ProspectionStaleBlocks resolves the Open Question in spec.md §9:
	// how many blocks an unrefreshed Prospection result must age before
	// the region can be re-prospected. Decided in DESIGN.md rather than
	// hard-coded.
	ProspectionStaleBlocks Height

	BPCopyBlocks       map[BuildingType]Height
	ConstructionBlocks map[BuildingType]Height

	DeveloperAddress string
	BurnsaleStages   []BurnsaleStage
	PrizeTable       []PrizeEntry

	// AdminEnabled is loaded from config (default off) but is not read by
	// the engine: no admin moves are processed (spec.md §9 Open Question).
	AdminEnabled bool
}

// BurnsaleStages and PrizeTable entries are opaque to the engine beyond
// their shape; combat-balance and economic tuning values are explicitly
// out of scope (spec.md §1 Non-goals) so these are plain data records,
// never interpreted by pipeline logic.
type BurnsaleStage struct {
	Amount Amount
	Price  Amount
}

type PrizeEntry struct {
	Rank   int
	Prize  Amount
	Name   string
}

// DefaultParams returns a sane, fully-populated Params block suitable for
// unit tests and the regtest chain; production chains load their own via
// pkg/config.
func DefaultParams() Params {
	return Params{
		CharacterCost:  Amount(1000),
		CharacterLimit: 20,
		SpawnAreaPerFaction: map[Faction]SpawnArea{
			FactionRed:   {Centre: Hex{X: -20, Y: 0}, Radius: 5},
			FactionGreen: {Centre: Hex{X: 20, Y: -20}, Radius: 5},
			FactionBlue:  {Centre: Hex{X: 0, Y: 20}, Radius: 5},
		},
		DamageListAge:          100,
		BuildingUpdateDelay:    10,
		ProspectionStaleBlocks: 100,
		BPCopyBlocks:           map[BuildingType]Height{},
		ConstructionBlocks:     map[BuildingType]Height{},
		DeveloperAddress:       "",
		AdminEnabled:           false,
	}
}
