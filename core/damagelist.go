package core

// DamageKey composite-keys a (victim, attacker) damage-list entry
// (spec.md §3).
type DamageKey struct {
	VictimId   Id
	AttackerId Id
}

// DamageEntry records the last block an attacker hit a victim. Entries
// age out after Params.DamageListAge blocks of no refresh (spec.md §3,
// §4.4 "Damage list aging").
type DamageEntry struct {
	LastHitHeight Height
}

// DamageListTable is the DamageList row store.
type DamageListTable = Table[DamageKey, DamageEntry]

func NewDamageListTable() *DamageListTable { return NewTable[DamageKey, DamageEntry]() }

// RecordHit refreshes (or creates) the entry for attacker having hit victim
// at height.
func RecordHit(t *DamageListTable, victim, attacker Id, height Height) {
	key := DamageKey{VictimId: victim, AttackerId: attacker}
	if h, ok := t.Fetch(key); ok {
		h.Get().LastHitHeight = height
		h.TouchColumns()
		h.Release()
		return
	}
	t.Create(key, DamageEntry{LastHitHeight: height}).Release()
}

// AgeOut removes every entry whose LastHitHeight + maxAge <= now (spec.md
// §4.4). It runs once per block, before move processing and combat
// (step 3 of Pipeline.ProcessBlock), so ageing is checked against the
// *start* of the block, before this block's own hits are recorded.
func AgeOut(t *DamageListTable, now Height, maxAge Height) {
	for _, key := range t.Keys() {
		h, ok := t.Fetch(key)
		if !ok {
			continue
		}
		if h.Get().LastHitHeight+maxAge <= now {
			h.Delete()
		}
		h.Release()
	}
}
