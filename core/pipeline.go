package core

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// BlockMeta carries the per-block identifiers the pipeline needs but
// cannot derive from the move JSON itself (spec.md §4.2, §4.8).
type BlockMeta struct {
	Height    Height
	BlockHash []byte
}

// Pipeline runs one block through the full phase sequence (spec.md §4.8).
// It owns nothing itself beyond the logger; all mutable state lives in
// the RowStore passed to ProcessBlock, so a process can hold as many
// Pipelines (or none at all — the zero value works) as it needs (spec.md
// §9's "dependency-injected context, not ambient globals").
type Pipeline struct {
	Log *logrus.Entry
}

// NewPipeline wires a Pipeline against the given logger (SPEC_FULL.md
// §2.1); pass nil to run silently (tests typically do).
func NewPipeline(log *logrus.Entry) *Pipeline {
	return &Pipeline{Log: log}
}

// ProcessBlock runs the exact ordering of spec.md §4.8:
//
//  1. seed the block's RNG stream from its hash
//  2. build the dynamic obstacle map from current character positions
//  3. age out stale damage-list entries
//  4. complete ongoing ops whose end height is this block
//  5. process moves, in order, queuing new-character spawn requests
//  6. acquire combat targets
//  7. apply damage and collect kills
//  8. process kills
//  9. step movement
//  10. resolve building-entry intents
//  11. place queued spawns
//  12. draw the resource rolls of prospections completed in step 4
//  13. apply regeneration
//  14. tick active mining
//  15. promote this block's pending combat effects to active effects
//  16. prune emptied ground loot and building inventories
//
// A single recover() at this function's boundary converts a
// *ConsistencyError panic raised anywhere in the phases above into a
// returned error. Nothing is rolled back: writes made by the phases that
// ran before the panic stay in the RowStore, which has no transaction
// rollback of its own, so discarding the block is up to the caller and
// its store (spec.md §5, §9).
func (p *Pipeline) ProcessBlock(store RowStore, params Params, meta BlockMeta, bundles []MoveBundle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*ConsistencyError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()

	log := p.Log
	height := meta.Height

	rng := NewStream(meta.BlockHash)
	obstacles := BuildFromCharacters(store.StaticMap(), store.Characters(), store.Buildings())

	AgeOut(store.DamageLists(), height, params.DamageListAge)

	pendingProspections := CompleteOngoingOps(store, params, height, log)

	spawns := ProcessMoves(store, params, obstacles, height, bundles, log)

	AcquireTargets(store, rng, log)
	kills := ApplyDamagePhase(store, rng, store.DamageLists(), height, log)
	ProcessKills(store, kills, height, log)

	StepMovement(store, obstacles, log)
	ResolveBuildingEntry(store, obstacles, log)

	PlaceSpawns(store, params, obstacles, rng, spawns, log)

	FinishProspections(store, rng, pendingProspections, log)

	ApplyRegeneration(store)
	ApplyMiningTick(store, height, log)
	PromotePendingEffects(store)

	pruneEmptyLoot(store)

	if log != nil {
		log.Infof("pipeline: processed block %d (%d moves, %d kills, %d spawns)", height, len(bundles), len(kills), len(spawns))
	}
	return nil
}

// pruneEmptyLoot deletes ground-loot and building-inventory rows that
// have been emptied out over the course of the block (spec.md §3 "auto-
// removed when empty") — most paths that empty one already delete it
// inline, but this is the single place that guarantees the invariant
// holds no matter which path emptied it.
func pruneEmptyLoot(store RowStore) {
	for _, pos := range store.GroundLoot().Keys() {
		h, ok := store.GroundLoot().Fetch(pos)
		if !ok {
			continue
		}
		if h.Get().Inventory.Empty() {
			h.Delete()
		}
		h.Release()
	}
	for _, key := range store.BuildingInventories().Keys() {
		h, ok := store.BuildingInventories().Fetch(key)
		if !ok {
			continue
		}
		if h.Get().Inventory.Empty() {
			h.Delete()
		}
		h.Release()
	}
}

// ErrInvalidBlock wraps a parse or structural error in the block input
// (as opposed to a *ConsistencyError from mid-pipeline, or a *MoveError
// from one dropped sub-intent).
type ErrInvalidBlock struct {
	Detail string
}

func (e *ErrInvalidBlock) Error() string { return fmt.Sprintf("invalid block: %s", e.Detail) }
