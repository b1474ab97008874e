package core

import "fmt"

// Validate runs every invariant in spec.md §3/§8 against the current
// state, purely as a read-only check — no row is ever leased or mutated.
// It returns every violation found (empty slice means the state is
// consistent), using the exact diagnostic wording spec.md names so an
// operator diffing two validator runs across implementations sees the
// same strings.
func Validate(store RowStore, params Params, height Height) []string {
	var errs []string

	ownedCount := make(map[string]int)
	for _, id := range store.Characters().Keys() {
		row, ok := store.Characters().Peek(id)
		if ok {
			ownedCount[row.Owner]++
		}
	}
	for owner, n := range ownedCount {
		if n > params.CharacterLimit {
			errs = append(errs, fmt.Sprintf("account %s: owns %d characters, exceeds character_limit %d", owner, n, params.CharacterLimit))
		}
	}

	for _, id := range store.Characters().Keys() {
		row, ok := store.Characters().Peek(id)
		if !ok {
			continue
		}
		if (row.Position == nil) == (row.BuildingId == 0) {
			errs = append(errs, fmt.Sprintf("character %d: position and building membership are not mutually exclusive", id))
		}
		if row.BuildingId != 0 {
			if _, ok := store.Buildings().Peek(row.BuildingId); !ok {
				errs = append(errs, fmt.Sprintf("character %d: refers to non-existing building", id))
			}
		}
		if row.Faction == FactionNone || row.Faction == FactionAncient {
			errs = append(errs, fmt.Sprintf("character %d: invalid faction", id))
		}
		if acc, ok := store.Accounts().Peek(row.Owner); ok {
			if acc.Faction != FactionNone && acc.Faction != row.Faction {
				errs = append(errs, fmt.Sprintf("character %d: Faction mismatch", id))
			}
		} else {
			errs = append(errs, fmt.Sprintf("character %d: refers to non-existing account", id))
		}
		if row.Inventory.Total() > row.Proto.CargoSpace {
			errs = append(errs, fmt.Sprintf("character %d: inventory exceeds cargo space", id))
		}
		if !row.Target.IsNone() {
			switch row.Target.Kind {
			case FighterCharacter:
				if _, ok := store.Characters().Peek(row.Target.Id); !ok {
					errs = append(errs, fmt.Sprintf("character %d: target refers to non-existing character", id))
				}
			case FighterBuilding:
				if _, ok := store.Buildings().Peek(row.Target.Id); !ok {
					errs = append(errs, fmt.Sprintf("character %d: target refers to non-existing building", id))
				}
			}
		}
		if row.OngoingId != 0 {
			op, ok := store.Ongoing().Peek(row.OngoingId)
			if !ok {
				errs = append(errs, fmt.Sprintf("character %d: refers to non-existing ongoing operation", id))
			} else if op.CharacterId != id {
				errs = append(errs, fmt.Sprintf("character %d: ongoing operation carrier mismatch", id))
			}
		}
	}

	for _, id := range store.Buildings().Keys() {
		row, ok := store.Buildings().Peek(id)
		if !ok {
			continue
		}
		if row.Owner == "" && row.Faction != FactionAncient {
			errs = append(errs, fmt.Sprintf("building %d: ownerless building must be Ancient-owned", id))
		}
		if row.Owner != "" && row.Faction == FactionAncient {
			errs = append(errs, fmt.Sprintf("building %d: Ancient faction on an owned building", id))
		}
		if row.Age.FoundedHeight > height {
			errs = append(errs, fmt.Sprintf("building %d: founded in the future", id))
		}
		if row.Age.FinishedHeight != nil && *row.Age.FinishedHeight < row.Age.FoundedHeight {
			errs = append(errs, fmt.Sprintf("building %d: finished before it was founded", id))
		}
		if row.Foundation == (row.Age.FinishedHeight != nil) {
			errs = append(errs, fmt.Sprintf("building %d: foundation flag inconsistent with finish height", id))
		}
		if row.OngoingConstruction != 0 {
			if _, ok := store.Ongoing().Peek(row.OngoingConstruction); !ok {
				errs = append(errs, fmt.Sprintf("building %d: refers to non-existing ongoing operation", id))
			}
		}
	}

	for _, id := range store.Regions().Keys() {
		row, ok := store.Regions().Peek(id)
		if !ok {
			continue
		}
		if row.ProspectingCharacter != 0 {
			ch, ok := store.Characters().Peek(row.ProspectingCharacter)
			if !ok {
				errs = append(errs, fmt.Sprintf("region %d: refers to non-existing character", id))
			} else {
				if !ch.Busy || ch.OngoingId == 0 {
					errs = append(errs, fmt.Sprintf("region %d: prospecting character %d is not busy on an ongoing operation", id, row.ProspectingCharacter))
				} else if op, ok := store.Ongoing().Peek(ch.OngoingId); !ok || op.Kind != OpProspection || op.Prospection == nil || op.Prospection.RegionId != id {
					errs = append(errs, fmt.Sprintf("region %d: prospecting character %d is not busy on a matching Prospection operation", id, row.ProspectingCharacter))
				}
				if ch.Position == nil || RegionIdAt(*ch.Position) != id {
					errs = append(errs, fmt.Sprintf("region %d: prospecting character %d is not positioned inside the region", id, row.ProspectingCharacter))
				}
			}
		}
		if row.Prospection != nil && row.Prospection.Height > height {
			errs = append(errs, fmt.Sprintf("region %d: prospection result from the future", id))
		}
	}

	for _, id := range store.Ongoing().Keys() {
		row, ok := store.Ongoing().Peek(id)
		if !ok {
			continue
		}
		if (row.CharacterId == 0) == (row.BuildingId == 0) {
			errs = append(errs, fmt.Sprintf("ongoing operation %d: exactly one of character/building carrier must be set", id))
		}
		if row.EndHeight < row.StartHeight {
			errs = append(errs, fmt.Sprintf("ongoing operation %d: ends before it starts", id))
		}
		if row.CharacterId != 0 {
			if _, ok := store.Characters().Peek(row.CharacterId); !ok {
				errs = append(errs, fmt.Sprintf("ongoing operation %d: refers to non-existing character", id))
			}
		}
		if row.BuildingId != 0 {
			if _, ok := store.Buildings().Peek(row.BuildingId); !ok {
				errs = append(errs, fmt.Sprintf("ongoing operation %d: refers to non-existing building", id))
			}
		}
	}

	for _, key := range store.DamageLists().Keys() {
		if _, ok := store.Characters().Peek(key.VictimId); !ok {
			errs = append(errs, fmt.Sprintf("damage list entry (%d, %d): refers to non-existing victim", key.VictimId, key.AttackerId))
		}
		if entry, ok := store.DamageLists().Peek(key); ok {
			if entry.LastHitHeight+params.DamageListAge <= height {
				errs = append(errs, fmt.Sprintf("damage list entry (%d, %d): older than the aging-out threshold and should have been removed", key.VictimId, key.AttackerId))
			}
		}
	}

	for _, id := range store.DexOrders().Keys() {
		row, ok := store.DexOrders().Peek(id)
		if !ok {
			continue
		}
		if _, ok := store.Accounts().Peek(row.Account); !ok {
			errs = append(errs, fmt.Sprintf("dex order %d: refers to non-existing account", id))
		}
		building, ok := store.Buildings().Peek(row.BuildingId)
		if !ok {
			errs = append(errs, fmt.Sprintf("dex order %d: refers to non-existing building", id))
		} else if building.Foundation {
			errs = append(errs, fmt.Sprintf("dex order %d: carrier building is still a foundation", id))
		}
	}

	for _, pos := range store.GroundLoot().Keys() {
		row, ok := store.GroundLoot().Peek(pos)
		if ok && row.Inventory.Empty() {
			errs = append(errs, fmt.Sprintf("ground loot at %v: empty inventory should have been removed", pos))
		}
	}

	for _, key := range store.BuildingInventories().Keys() {
		row, ok := store.BuildingInventories().Peek(key)
		if ok && row.Inventory.Empty() {
			errs = append(errs, fmt.Sprintf("building inventory %v: empty inventory should have been removed", key))
		}
	}

	return errs
}
