package core

// OngoingKind tags which payload an OngoingOp carries (spec.md §3, §4.6).
// Modeled as a single tagged variant per spec.md §9's "avoid inheritance,
// dispatch on the tag" design note.
type OngoingKind int

const (
	OpProspection OngoingKind = iota
	OpArmourRepair
	OpBlueprintCopy
	OpItemConstruction
	OpBuildingConstruction
	OpBuildingUpdate
)

// ProspectionPayload names the region a Prospection op targets.
type ProspectionPayload struct {
	RegionId Id
}

// ArmourRepairPayload has no extra fields beyond the op's own
// start/end height; kept as a distinct type for symmetry with the tagged
// union and to leave room for a repair-rate override later.
type ArmourRepairPayload struct{}

// BlueprintCopyPayload describes a multi-copy blueprint duplication job
// (spec.md §4.6: "effective end-height is start_height + num_copies *
// bp_copy_blocks"). Account names whose BuildingInventory at the carrier
// building receives the finished copies (spec.md §4.6: output lands in
// "the account's inventory at the carrier building", not the building's
// own construction inventory).
type BlueprintCopyPayload struct {
	BlueprintType BuildingType
	NumCopies     int
	Account       string
}

// ItemConstructionPayload describes a multi-item construction job.
// Account names whose BuildingInventory at the carrier building receives
// the finished items (spec.md §4.6).
type ItemConstructionPayload struct {
	Item     string
	NumItems int
	Account  string
}

// BuildingConstructionPayload marks a foundation's construction-to-finish
// job; it carries no extra data beyond the carrier building id already on
// the OngoingOp.
type BuildingConstructionPayload struct{}

// BuildingUpdatePayload carries the new config a BuildingUpdate op will
// write once it completes (spec.md §4.6, §8 scenario 6).
type BuildingUpdatePayload struct {
	NewConfig BuildingConfig
}

// OngoingOp is a multi-block action (spec.md §3, GLOSSARY). Exactly one
// of CharacterId/BuildingId is the carrier (invariant 3); the payload
// fields are a tagged union selected by Kind.
type OngoingOp struct {
	Id          Id
	StartHeight Height
	EndHeight   Height
	CharacterId Id
	BuildingId  Id
	Kind        OngoingKind

	Prospection          *ProspectionPayload
	ArmourRepair         *ArmourRepairPayload
	BlueprintCopy        *BlueprintCopyPayload
	ItemConstruction     *ItemConstructionPayload
	BuildingConstruction *BuildingConstructionPayload
	BuildingUpdate       *BuildingUpdatePayload
}

// OngoingOpTable is the OngoingOp row store.
type OngoingOpTable = Table[Id, OngoingOp]

func NewOngoingOpTable() *OngoingOpTable { return NewTable[Id, OngoingOp]() }

// CarrierIsCharacter reports whether the op's carrier is a character
// (invariant 3: exactly one of CharacterId/BuildingId is non-zero).
func (o *OngoingOp) CarrierIsCharacter() bool { return o.CharacterId != 0 }
