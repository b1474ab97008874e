package core

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// miningYieldPerBlock is how many resource units an active miner pulls
// from its region each block, capped by the character's remaining cargo
// space and the region's remaining resource (spec.md §4.7 `mine`; the
// exact rate is an opaque balance parameter per spec.md §1 Non-goals, so
// a single flat constant stands in for a real per-proto yield table).
const miningYieldPerBlock = 5

// ApplyMiningTick extracts resources for every character currently
// mining (spec.md §4.8's "mining ticks" phase, run after regeneration).
// Mining stops on its own once the character goes indoors, the region
// runs dry, or cargo fills up — there is no separate "stop" move needed
// for those cases, only for a voluntary early stop (`mine: false`).
func ApplyMiningTick(store RowStore, height Height, log *logrus.Entry) {
	ids := store.Characters().Keys()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		h, ok := store.Characters().Fetch(id)
		if !ok {
			continue
		}
		row := h.Get()
		if !row.Proto.Mining.Active || row.HP.Dead() || row.InBuilding() {
			if row.Proto.Mining.Active && row.InBuilding() {
				row.Proto.Mining.Active = false
				h.TouchColumns()
			}
			h.Release()
			continue
		}

		rh, ok := store.Regions().Fetch(row.Proto.Mining.RegionId)
		if !ok {
			row.Proto.Mining.Active = false
			h.TouchColumns()
			h.Release()
			continue
		}

		region := rh.Get()
		if region.Prospection == nil || region.ResourceLeft == 0 {
			row.Proto.Mining.Active = false
			h.TouchColumns()
			h.Release()
			rh.Release()
			continue
		}

		room := row.Proto.CargoSpace - row.Inventory.Total()
		yield := uint64(miningYieldPerBlock)
		if yield > room {
			yield = room
		}
		if yield > region.ResourceLeft {
			yield = region.ResourceLeft
		}

		if yield > 0 {
			row.Inventory.Add(region.Prospection.Resource, yield)
			region.ResourceLeft -= yield
			region.LastTouchedHeight = height
			h.TouchColumns()
			rh.TouchColumns()
		}
		if room == 0 || region.ResourceLeft == 0 {
			row.Proto.Mining.Active = false
			h.TouchColumns()
			if log != nil {
				log.Debugf("mining: character %d stopped mining region %d (cargo full or exhausted)", id, region.Id)
			}
		}

		h.Release()
		rh.Release()
	}
}
