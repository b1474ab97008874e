package core

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// PendingProspection defers the actual resource roll for a just-completed
// Prospection op to the end of the block (spec.md §4.2: the prospection
// roll is the last draw from the block's RNG stream, after target
// acquisition, damage, loot, and spawn placement have all drawn from it).
type PendingProspection struct {
	RegionId Id
	Owner    string
	Height   Height
}

// CompleteOngoingOps runs at the start of every block (spec.md §4.8 step
// 1, before move processing): every OngoingOp whose EndHeight equals the
// current height is resolved by its Kind and deleted, in ascending op-id
// order (spec.md §5's ordering guarantee). It performs every op's
// bookkeeping immediately, but Prospection's resource roll is only queued:
// the caller must pass the returned list to FinishProspections once every
// other phase of the block has drawn from the RNG stream (spec.md §4.2).
func CompleteOngoingOps(store RowStore, params Params, height Height, log *logrus.Entry) []PendingProspection {
	var due []Id
	for _, id := range store.Ongoing().Keys() {
		row, ok := store.Ongoing().Peek(id)
		if ok && row.EndHeight == height {
			due = append(due, id)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })

	var pending []PendingProspection
	for _, id := range due {
		h, ok := store.Ongoing().Fetch(id)
		if !ok {
			continue
		}
		op := *h.Get()
		h.Delete()
		h.Release()

		switch op.Kind {
		case OpProspection:
			if p := completeProspection(store, op, height, log); p != nil {
				pending = append(pending, *p)
			}
		case OpArmourRepair:
			completeArmourRepair(store, op, log)
		case OpBlueprintCopy:
			completeBlueprintCopy(store, op, log)
		case OpItemConstruction:
			completeItemConstruction(store, op, log)
		case OpBuildingConstruction:
			completeBuildingConstruction(store, op, height, log)
		case OpBuildingUpdate:
			completeBuildingUpdate(store, op, log)
		}
	}
	return pending
}

// prospectResources is the fixed resource palette a prospection roll
// picks from — opaque balance content (spec.md §1 Non-goals), here reduced
// to a small fixed list so the roll has something real to choose among.
var prospectResources = []string{"crystal", "ore", "gas", "relic"}

// completeProspection clears the carrier character and the region's
// ProspectingCharacter, but does not touch the RNG: the resource roll
// itself is deferred to FinishProspections.
func completeProspection(store RowStore, op OngoingOp, height Height, log *logrus.Entry) *PendingProspection {
	if op.Prospection == nil {
		return nil
	}
	rh, ok := store.Regions().Fetch(op.Prospection.RegionId)
	if !ok {
		return nil
	}
	region := rh.Get()

	owner := ""
	if op.CharacterId != 0 {
		if ch, ok := store.Characters().Fetch(op.CharacterId); ok {
			owner = ch.Get().Owner
			ch.Get().Busy = false
			ch.Get().OngoingId = 0
			ch.TouchColumns()
			ch.Release()
		}
	}

	region.ProspectingCharacter = 0
	region.LastTouchedHeight = height
	rh.TouchColumns()
	rh.Release()

	return &PendingProspection{RegionId: op.Prospection.RegionId, Owner: owner, Height: height}
}

// FinishProspections draws the deferred resource roll for every
// prospection that completed this block. Called after every other
// RNG-consuming phase of the block (spec.md §4.2's mandated draw order).
func FinishProspections(store RowStore, rng *Stream, pending []PendingProspection, log *logrus.Entry) {
	for _, p := range pending {
		rh, ok := store.Regions().Fetch(p.RegionId)
		if !ok {
			continue
		}
		region := rh.Get()
		resource := Pick(rng, prospectResources)
		region.Prospection = &ProspectionResult{Name: p.Owner, Height: p.Height, Resource: resource}
		region.ResourceLeft = 1000
		rh.TouchColumns()
		rh.Release()

		if log != nil {
			log.Infof("ongoing: region %d prospected by %s, found %s", region.Id, p.Owner, resource)
		}
	}
}

func completeArmourRepair(store RowStore, op OngoingOp, log *logrus.Entry) {
	if op.CarrierIsCharacter() {
		h, ok := store.Characters().Fetch(op.CharacterId)
		if !ok {
			return
		}
		defer h.Release()
		row := h.Get()
		row.HP.Armour = row.HP.MaxArmour
		row.Busy = false
		row.OngoingId = 0
		h.TouchColumns()
		return
	}
	h, ok := store.Buildings().Fetch(op.BuildingId)
	if !ok {
		return
	}
	defer h.Release()
	h.Get().HP.Armour = h.Get().HP.MaxArmour
	h.TouchColumns()
	if log != nil {
		log.Infof("ongoing: building %d repaired", op.BuildingId)
	}
}

// addToBuildingInventory appends n of item to the account's BuildingInventory
// row at buildingId, creating it if absent (spec.md §4.6: finished
// blueprint-copy/construction jobs land in "the account's inventory at
// the carrier building", not the building's own construction inventory).
func addToBuildingInventory(store RowStore, buildingId Id, account string, item string, n uint64) {
	key := BuildingInventoryKey{BuildingId: buildingId, Account: account}
	if bh, ok := store.BuildingInventories().Fetch(key); ok {
		bh.Get().Inventory.Add(item, n)
		bh.TouchColumns()
		bh.Release()
		return
	}
	inv := make(Inventory)
	inv.Add(item, n)
	store.BuildingInventories().Create(key, BuildingInventory{Key: key, Inventory: inv}).Release()
}

func completeBlueprintCopy(store RowStore, op OngoingOp, log *logrus.Entry) {
	if op.BlueprintCopy == nil {
		return
	}
	if !store.Buildings().Has(op.BuildingId) {
		return
	}
	item := string(op.BlueprintCopy.BlueprintType) + ":blueprint"
	addToBuildingInventory(store, op.BuildingId, op.BlueprintCopy.Account, item, uint64(op.BlueprintCopy.NumCopies))
	if log != nil {
		log.Infof("ongoing: building %d finished %d copies of %s for %s", op.BuildingId, op.BlueprintCopy.NumCopies, op.BlueprintCopy.BlueprintType, op.BlueprintCopy.Account)
	}
}

func completeItemConstruction(store RowStore, op OngoingOp, log *logrus.Entry) {
	if op.ItemConstruction == nil {
		return
	}
	if !store.Buildings().Has(op.BuildingId) {
		return
	}
	addToBuildingInventory(store, op.BuildingId, op.ItemConstruction.Account, op.ItemConstruction.Item, uint64(op.ItemConstruction.NumItems))
	if log != nil {
		log.Infof("ongoing: building %d finished constructing %d x %s for %s", op.BuildingId, op.ItemConstruction.NumItems, op.ItemConstruction.Item, op.ItemConstruction.Account)
	}
}

func completeBuildingConstruction(store RowStore, op OngoingOp, height Height, log *logrus.Entry) {
	h, ok := store.Buildings().Fetch(op.BuildingId)
	if !ok {
		return
	}
	defer h.Release()
	row := h.Get()
	row.Foundation = false
	finishedAt := height
	row.Age.FinishedHeight = &finishedAt
	row.OngoingConstruction = 0
	h.TouchFull()
	if log != nil {
		log.Infof("ongoing: building %d finished construction", op.BuildingId)
	}
}

func completeBuildingUpdate(store RowStore, op OngoingOp, log *logrus.Entry) {
	if op.BuildingUpdate == nil {
		return
	}
	h, ok := store.Buildings().Fetch(op.BuildingId)
	if !ok {
		return
	}
	defer h.Release()
	h.Get().Config = op.BuildingUpdate.NewConfig
	h.Get().PendingConfig = PendingConfigUpdate{}
	h.TouchColumns()
	if log != nil {
		log.Infof("ongoing: building %d config updated", op.BuildingId)
	}
}
