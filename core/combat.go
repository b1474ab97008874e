package core

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// fighterSnapshot is a read-only view over one fighter used for the
// candidate search in target acquisition (spec.md §4.4 C1). It is built
// via Table.Peek rather than Fetch so the whole population can be
// examined at once without tripping the single-lease-per-row assertion
// (core/store.go) — only the one fighter actually being targeted is
// later re-fetched for a real write.
type fighterSnapshot struct {
	Ref     FighterRef
	Faction Faction
	Pos     Hex
	Indoor  bool
	Combat  CombatData
	Dead    bool
}

// snapshotFighters returns every character and building, ordered
// ascending by (kind, id) per spec.md §5's ordering guarantee.
func snapshotFighters(store RowStore) []fighterSnapshot {
	out := make([]fighterSnapshot, 0, store.Characters().Len()+store.Buildings().Len())

	charIds := store.Characters().Keys()
	sort.Slice(charIds, func(i, j int) bool { return charIds[i] < charIds[j] })
	for _, id := range charIds {
		row, ok := store.Characters().Peek(id)
		if !ok {
			continue
		}
		snap := fighterSnapshot{
			Ref:     FighterRef{Kind: FighterCharacter, Id: id},
			Faction: row.Faction,
			Indoor:  row.InBuilding(),
			Combat:  row.Proto.Combat,
			Dead:    row.HP.Dead(),
		}
		if !snap.Indoor && row.Position != nil {
			snap.Pos = *row.Position
		}
		out = append(out, snap)
	}

	buildingIds := store.Buildings().Keys()
	sort.Slice(buildingIds, func(i, j int) bool { return buildingIds[i] < buildingIds[j] })
	for _, id := range buildingIds {
		row, ok := store.Buildings().Peek(id)
		if !ok {
			continue
		}
		out = append(out, fighterSnapshot{
			Ref:     FighterRef{Kind: FighterBuilding, Id: id},
			Faction: row.Faction,
			Pos:     row.Centre,
			Combat:  row.Combat,
			Dead:    row.HP.Dead(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ref.Kind != out[j].Ref.Kind {
			return out[i].Ref.Kind < out[j].Ref.Kind
		}
		return out[i].Ref.Id < out[j].Ref.Id
	})
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// AcquireTargets is phase C1 (spec.md §4.4). For every live, outdoor
// fighter with an attack or a friendly-buff capability, it searches
// candidates within max(attack_range, friendly_range), picks uniformly
// among the strictly-closest, and writes the result into the fighter's
// Target (clearing it if no candidate exists). Area attacks never need a
// target and are skipped here entirely.
func AcquireTargets(store RowStore, rng *Stream, log *logrus.Entry) {
	fighters := snapshotFighters(store)

	for _, f := range fighters {
		if f.Dead || f.Indoor {
			continue
		}
		if f.Combat.AreaAttack {
			continue
		}
		if !f.Combat.HasAttack && !f.Combat.HasFriendlyBuff {
			continue
		}

		maxRange := 0
		if f.Combat.HasAttack {
			maxRange = maxInt(maxRange, f.Combat.AttackRange)
		}
		if f.Combat.HasFriendlyBuff {
			maxRange = maxInt(maxRange, f.Combat.FriendlyRange)
		}

		var best []FighterRef
		bestDist := -1
		for _, g := range fighters {
			if g.Dead || g.Indoor || g.Ref == f.Ref {
				continue
			}
			eligible := false
			if f.Combat.HasAttack && f.Faction.Opposes(g.Faction) {
				eligible = true
			}
			if f.Combat.HasFriendlyBuff && g.Faction == f.Faction {
				eligible = true
			}
			if !eligible {
				continue
			}
			d := f.Pos.Distance(g.Pos)
			if d > maxRange {
				continue
			}
			if bestDist == -1 || d < bestDist {
				bestDist = d
				best = []FighterRef{g.Ref}
			} else if d == bestDist {
				best = append(best, g.Ref)
			}
		}

		chosen := FighterRef{}
		if len(best) > 0 {
			chosen = Pick(rng, best)
		}
		setFighterTarget(store, f.Ref, chosen)
		if log != nil {
			if chosen.IsNone() {
				log.Debugf("combat: %v cleared target", f.Ref)
			} else {
				log.Debugf("combat: %v acquired target %v", f.Ref, chosen)
			}
		}
	}
}

func setFighterTarget(store RowStore, ref FighterRef, target FighterRef) {
	switch ref.Kind {
	case FighterCharacter:
		h := store.Characters().MustFetch(ref.Id, "refers to non-existing character")
		h.Get().Target = target
		h.TouchColumns()
		h.Release()
	case FighterBuilding:
		// Buildings hold their combat target out-of-band
		// (core/fighter.go buildingFighter) since spec.md §3 doesn't
		// give Building a Target column; turrets in this port are
		// always stateless area defenders, so there is nothing to
		// persist here.
	}
}

func fighterTarget(store RowStore, ref FighterRef) FighterRef {
	switch ref.Kind {
	case FighterCharacter:
		row, ok := store.Characters().Peek(ref.Id)
		if !ok {
			return FighterRef{}
		}
		return row.Target
	default:
		return FighterRef{}
	}
}

// fighterHP leases ref's row and returns its HP together with the
// Release that writes the row back; call it once the HP has been changed.
func fighterHP(store RowStore, ref FighterRef) (*HP, func()) {
	switch ref.Kind {
	case FighterCharacter:
		h, ok := store.Characters().Fetch(ref.Id)
		if !ok {
			return nil, nil
		}
		h.TouchColumns()
		return &h.Get().HP, h.Release
	case FighterBuilding:
		h, ok := store.Buildings().Fetch(ref.Id)
		if !ok {
			return nil, nil
		}
		h.TouchColumns()
		return &h.Get().HP, h.Release
	}
	return nil, nil
}

// applyDamage reduces shield first, then armour, per spec.md §4.4.
func applyDamage(hp *HP, amount int64) {
	if amount <= 0 {
		return
	}
	if hp.Shield > 0 {
		absorbed := amount
		if absorbed > hp.Shield {
			absorbed = hp.Shield
		}
		hp.Shield -= absorbed
		amount -= absorbed
	}
	if amount > 0 {
		hp.Armour -= amount
		if hp.Armour < 0 {
			hp.Armour = 0
		}
	}
}

func applyPendingEffects(store RowStore, ref FighterRef, rangeBonus int, speedBonus int64, mentecon bool) {
	if ref.Kind != FighterCharacter {
		return
	}
	h, ok := store.Characters().Fetch(ref.Id)
	if !ok {
		return
	}
	defer h.Release()
	row := h.Get()
	row.Pending.RangeBonus += rangeBonus
	row.Pending.SpeedBonus += speedBonus
	if mentecon {
		row.Pending.Mentecon = true
	}
	row.Pending.Set = true
	h.TouchColumns()
}

// ApplyDamagePhase is phase C2 (spec.md §4.4). Fighters are iterated
// ascending by (kind, id); every in-range attack rolls uniformly in
// [min, max] via the block's RNG stream, in that same iteration order, so
// the draw sequence is reproducible across nodes (spec.md §4.2). Kills
// are collected, not applied mid-phase, so identity resolution stays
// stable for the rest of the block (spec.md §4.4).
func ApplyDamagePhase(store RowStore, rng *Stream, damage *DamageListTable, height Height, log *logrus.Entry) []FighterRef {
	fighters := snapshotFighters(store)
	var kills []FighterRef
	killSet := make(map[FighterRef]bool)

	markKill := func(ref FighterRef) {
		if !killSet[ref] {
			killSet[ref] = true
			kills = append(kills, ref)
		}
	}

	for _, f := range fighters {
		if f.Dead || f.Indoor || !f.Combat.HasAttack {
			continue
		}

		if f.Combat.AreaAttack {
			for _, tile := range L1Ring(f.Pos, f.Combat.AreaRadius) {
				for _, g := range fighters {
					if g.Dead || g.Indoor || g.Pos != tile {
						continue
					}
					if g.Ref == f.Ref {
						continue
					}
					if !f.Combat.AreaFriendly && g.Faction == f.Faction {
						continue
					}
					if f.Combat.AreaFriendly && f.Faction.Opposes(g.Faction) {
						continue
					}
					roll := rng.Int64Range(f.Combat.AttackMin, f.Combat.AttackMax)
					hp, release := fighterHP(store, g.Ref)
					if hp == nil {
						continue
					}
					applyDamage(hp, roll)
					release()
					RecordHit(damage, g.Ref.Id, f.Ref.Id, height)
					if f.Combat.AppliesRange != 0 || f.Combat.AppliesSpeed != 0 || f.Combat.Mentecon {
						applyPendingEffects(store, g.Ref, f.Combat.AppliesRange, f.Combat.AppliesSpeed, f.Combat.Mentecon)
					}
					if hp.Dead() {
						markKill(g.Ref)
					}
				}
			}
			continue
		}

		target := fighterTarget(store, f.Ref)
		if target.IsNone() {
			continue
		}
		var tgt *fighterSnapshot
		for i := range fighters {
			if fighters[i].Ref == target {
				tgt = &fighters[i]
				break
			}
		}
		if tgt == nil || tgt.Dead {
			continue
		}
		if f.Pos.Distance(tgt.Pos) > f.Combat.AttackRange {
			continue
		}

		roll := rng.Int64Range(f.Combat.AttackMin, f.Combat.AttackMax)
		hp, release := fighterHP(store, target)
		if hp == nil {
			continue
		}
		applyDamage(hp, roll)
		release()
		RecordHit(damage, target.Id, f.Ref.Id, height)
		if log != nil {
			log.Debugf("combat: %v hits %v for %d", f.Ref, target, roll)
		}
		if f.Combat.AppliesRange != 0 || f.Combat.AppliesSpeed != 0 || f.Combat.Mentecon {
			applyPendingEffects(store, target, f.Combat.AppliesRange, f.Combat.AppliesSpeed, f.Combat.Mentecon)
		}
		if hp.Dead() {
			markKill(target)
		}
	}

	return kills
}

// ProcessKills is phase C3 (spec.md §4.4). Victims are processed in the
// order they were collected during C2 (deterministic: that order itself
// came from the (kind, id)-ascending attacker loop).
func ProcessKills(store RowStore, kills []FighterRef, height Height, log *logrus.Entry) {
	for _, ref := range kills {
		switch ref.Kind {
		case FighterCharacter:
			killCharacter(store, ref.Id, height, log)
		case FighterBuilding:
			killBuilding(store, ref.Id, height, log)
		}
	}
}

func killCharacter(store RowStore, id Id, height Height, log *logrus.Entry) {
	h, ok := store.Characters().Fetch(id)
	if !ok {
		return
	}
	row := *h.Get()
	h.Delete()
	h.Release()

	if row.Position != nil && !row.Inventory.Empty() {
		pos := *row.Position
		if lh, ok := store.GroundLoot().Fetch(pos); ok {
			lh.Get().Inventory.Merge(row.Inventory)
			lh.TouchFull()
			lh.Release()
		} else {
			store.GroundLoot().Create(pos, GroundLoot{Position: pos, Inventory: row.Inventory}).Release()
		}
	}

	for _, rid := range store.Regions().Keys() {
		rh, ok := store.Regions().Fetch(rid)
		if !ok {
			continue
		}
		if rh.Get().ProspectingCharacter == id {
			rh.Get().ProspectingCharacter = 0
			rh.TouchColumns()
		}
		rh.Release()
	}

	if row.OngoingId != 0 {
		if oh, ok := store.Ongoing().Fetch(row.OngoingId); ok {
			oh.Delete()
			oh.Release()
		}
	}

	if log != nil {
		log.Infof("combat: character %d killed at height %d", id, height)
	}
}

func killBuilding(store RowStore, id Id, height Height, log *logrus.Entry) {
	h, ok := store.Buildings().Fetch(id)
	if !ok {
		return
	}
	row := *h.Get()
	h.Delete()
	h.Release()

	if !row.ConstructionInventory.Empty() {
		if lh, ok := store.GroundLoot().Fetch(row.Centre); ok {
			lh.Get().Inventory.Merge(row.ConstructionInventory)
			lh.TouchFull()
			lh.Release()
		} else {
			store.GroundLoot().Create(row.Centre, GroundLoot{Position: row.Centre, Inventory: row.ConstructionInventory}).Release()
		}
	}

	if row.OngoingConstruction != 0 {
		if oh, ok := store.Ongoing().Fetch(row.OngoingConstruction); ok {
			oh.Delete()
			oh.Release()
		}
	}

	for _, oid := range store.DexOrders().Keys() {
		oh, ok := store.DexOrders().Fetch(oid)
		if !ok {
			continue
		}
		if oh.Get().BuildingId == id {
			oh.Delete()
		}
		oh.Release()
	}

	if log != nil {
		log.Infof("combat: building %d destroyed at height %d", id, height)
	}
}

// ApplyRegeneration is phase C4 (spec.md §4.4). Dead fighters were
// already removed in C3, so every remaining row with nonzero shield
// regen below max is topped up. Milli-HP accumulates fractional regen
// without floating point (spec.md GLOSSARY "Milli-HP").
func ApplyRegeneration(store RowStore) {
	for _, id := range store.Characters().Keys() {
		h, ok := store.Characters().Fetch(id)
		if !ok {
			continue
		}
		regenHP(&h.Get().HP)
		h.TouchColumns()
		h.Release()
	}
	for _, id := range store.Buildings().Keys() {
		h, ok := store.Buildings().Fetch(id)
		if !ok {
			continue
		}
		regenHP(&h.Get().HP)
		h.TouchColumns()
		h.Release()
	}
}

func regenHP(hp *HP) {
	if hp.RegenMilli == 0 || hp.Shield >= hp.MaxShield {
		return
	}
	hp.ShieldMilli += hp.RegenMilli
	for hp.ShieldMilli >= 1000 && hp.Shield < hp.MaxShield {
		hp.Shield++
		hp.ShieldMilli -= 1000
	}
	if hp.Shield >= hp.MaxShield {
		hp.Shield = hp.MaxShield
		hp.ShieldMilli = 0
	}
}

// PromotePendingEffects copies each character's Pending effects (applied
// by hits landed this block) into its live Effects, so they become
// active starting next block (spec.md §4.4, §4.8's last ordering note).
// It must run once per block, after combat and before the block is
// finalized.
func PromotePendingEffects(store RowStore) {
	for _, id := range store.Characters().Keys() {
		h, ok := store.Characters().Fetch(id)
		if !ok {
			continue
		}
		row := h.Get()
		if row.Pending.Set {
			row.Effects = Effects{
				RangeBonus: row.Pending.RangeBonus,
				SpeedBonus: row.Pending.SpeedBonus,
				Mentecon:   row.Pending.Mentecon,
			}
		} else {
			row.Effects = Effects{}
		}
		row.Pending = PendingEffects{}
		h.TouchColumns()
		h.Release()
	}
}
