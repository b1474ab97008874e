package core

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func discardLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func newCharacter(store RowStore, pos Hex, faction Faction, combat CombatData, hp HP) Id {
	id := store.NextId()
	store.Characters().Create(id, Character{
		Id:       id,
		Owner:    "owner",
		Faction:  faction,
		Position: &pos,
		HP:       hp,
		Proto:    CharacterProto{Combat: combat},
	}).Release()
	return id
}

func attackerCombat() CombatData {
	return CombatData{HasAttack: true, AttackMin: 5, AttackMax: 5, AttackRange: 3}
}

func TestAcquireTargetsPicksClosestOpponent(t *testing.T) {
	store := NewMemStore(OpenMap())
	a := newCharacter(store, Hex{0, 0}, FactionRed, attackerCombat(), HP{Armour: 100, MaxArmour: 100})
	near := newCharacter(store, Hex{1, 0}, FactionGreen, CombatData{}, HP{Armour: 50, MaxArmour: 50})
	far := newCharacter(store, Hex{2, 0}, FactionGreen, CombatData{}, HP{Armour: 50, MaxArmour: 50})

	rng := NewStream([]byte("acquire"))
	AcquireTargets(store, rng, discardLog())

	row, _ := store.Characters().Peek(a)
	want := FighterRef{Kind: FighterCharacter, Id: near}
	if row.Target != want {
		t.Fatalf("attacker should target the closest opponent %v, got %v (far=%v)", want, row.Target, far)
	}
}

func TestAcquireTargetsIgnoresSameFaction(t *testing.T) {
	store := NewMemStore(OpenMap())
	a := newCharacter(store, Hex{0, 0}, FactionRed, attackerCombat(), HP{Armour: 100, MaxArmour: 100})
	newCharacter(store, Hex{1, 0}, FactionRed, CombatData{}, HP{Armour: 50, MaxArmour: 50})

	AcquireTargets(store, NewStream([]byte("same-faction")), discardLog())

	row, _ := store.Characters().Peek(a)
	if !row.Target.IsNone() {
		t.Fatalf("attacker should not target a same-faction character, got %v", row.Target)
	}
}

func TestAcquireTargetsOutOfRange(t *testing.T) {
	store := NewMemStore(OpenMap())
	a := newCharacter(store, Hex{0, 0}, FactionRed, attackerCombat(), HP{Armour: 100, MaxArmour: 100})
	newCharacter(store, Hex{10, 0}, FactionGreen, CombatData{}, HP{Armour: 50, MaxArmour: 50})

	AcquireTargets(store, NewStream([]byte("range")), discardLog())

	row, _ := store.Characters().Peek(a)
	if !row.Target.IsNone() {
		t.Fatalf("attacker should not acquire a target beyond its attack range, got %v", row.Target)
	}
}

// TestMutualKillBothDie exercises the scenario where two fighters with
// lethal attack rolls and low HP, already mutually targeted, both die in
// the same damage phase (no priority: kills are collected, not applied
// mid-phase, so one side's death cannot save it from the other's hit).
func TestMutualKillBothDie(t *testing.T) {
	store := NewMemStore(OpenMap())
	combat := CombatData{HasAttack: true, AttackMin: 10, AttackMax: 10, AttackRange: 3}
	a := newCharacter(store, Hex{0, 0}, FactionRed, combat, HP{Armour: 5, MaxArmour: 100})
	b := newCharacter(store, Hex{1, 0}, FactionGreen, combat, HP{Armour: 5, MaxArmour: 100})

	ha, _ := store.Characters().Fetch(a)
	ha.Get().Target = FighterRef{Kind: FighterCharacter, Id: b}
	ha.TouchColumns()
	ha.Release()
	hb, _ := store.Characters().Fetch(b)
	hb.Get().Target = FighterRef{Kind: FighterCharacter, Id: a}
	hb.TouchColumns()
	hb.Release()

	damage := NewDamageListTable()
	kills := ApplyDamagePhase(store, NewStream([]byte("mutual")), damage, 1, discardLog())
	if len(kills) != 2 {
		t.Fatalf("expected both fighters to be marked dead, got %d kills", len(kills))
	}

	ProcessKills(store, kills, 1, discardLog())
	if store.Characters().Has(a) || store.Characters().Has(b) {
		t.Fatalf("both characters should have been removed after ProcessKills")
	}
}

func TestApplyDamageShieldBeforeArmour(t *testing.T) {
	hp := &HP{Armour: 50, Shield: 10, MaxArmour: 50, MaxShield: 10}
	applyDamage(hp, 4)
	if hp.Shield != 6 || hp.Armour != 50 {
		t.Fatalf("damage should come out of shield first, got shield=%d armour=%d", hp.Shield, hp.Armour)
	}
	applyDamage(hp, 20)
	if hp.Shield != 0 || hp.Armour != 36 {
		t.Fatalf("overflow damage should spill into armour, got shield=%d armour=%d", hp.Shield, hp.Armour)
	}
}

func TestApplyDamageArmourFloorsAtZero(t *testing.T) {
	hp := &HP{Armour: 5, Shield: 0, MaxArmour: 50}
	applyDamage(hp, 100)
	if hp.Armour != 0 {
		t.Fatalf("armour should floor at 0, got %d", hp.Armour)
	}
	if !hp.Dead() {
		t.Fatalf("a fighter at 0 armour and 0 shield should be Dead()")
	}
}

func TestRegenHPAccumulatesMilliAndCapsAtMax(t *testing.T) {
	hp := &HP{Shield: 0, MaxShield: 3, RegenMilli: 400}
	for i := 0; i < 2; i++ {
		regenHP(hp)
	}
	if hp.Shield != 0 || hp.ShieldMilli != 800 {
		t.Fatalf("after 2 ticks of 400 milli, expected shield=0 milli=800, got shield=%d milli=%d", hp.Shield, hp.ShieldMilli)
	}
	regenHP(hp)
	if hp.Shield != 1 || hp.ShieldMilli != 200 {
		t.Fatalf("third tick should roll over into 1 whole shield point, got shield=%d milli=%d", hp.Shield, hp.ShieldMilli)
	}
	for i := 0; i < 10; i++ {
		regenHP(hp)
	}
	if hp.Shield != 3 || hp.ShieldMilli != 0 {
		t.Fatalf("shield should cap at MaxShield with milli reset, got shield=%d milli=%d", hp.Shield, hp.ShieldMilli)
	}
}

func TestPromotePendingEffectsAppliesNextBlock(t *testing.T) {
	store := NewMemStore(OpenMap())
	id := newCharacter(store, Hex{0, 0}, FactionRed, CombatData{}, HP{Armour: 10, MaxArmour: 10})

	h, _ := store.Characters().Fetch(id)
	h.Get().Pending = PendingEffects{RangeBonus: 2, SpeedBonus: 500, Mentecon: true, Set: true}
	h.TouchColumns()
	h.Release()

	PromotePendingEffects(store)

	row, _ := store.Characters().Peek(id)
	if row.Effects.RangeBonus != 2 || row.Effects.SpeedBonus != 500 || !row.Effects.Mentecon {
		t.Fatalf("pending effects should be promoted into live effects, got %+v", row.Effects)
	}
	if row.Pending.Set {
		t.Fatalf("pending should be reset to zero-value after promotion")
	}
}

func TestPromotePendingEffectsClearsWhenNotSet(t *testing.T) {
	store := NewMemStore(OpenMap())
	id := newCharacter(store, Hex{0, 0}, FactionRed, CombatData{}, HP{Armour: 10, MaxArmour: 10})
	h, _ := store.Characters().Fetch(id)
	h.Get().Effects = Effects{RangeBonus: 9}
	h.TouchFull()
	h.Release()

	PromotePendingEffects(store)

	row, _ := store.Characters().Peek(id)
	if row.Effects != (Effects{}) {
		t.Fatalf("effects should clear to zero-value once no new pending was set, got %+v", row.Effects)
	}
}

func TestProcessKillsDropsInventoryAsGroundLoot(t *testing.T) {
	store := NewMemStore(OpenMap())
	pos := Hex{3, 3}
	id := store.NextId()
	store.Characters().Create(id, Character{
		Id:       id,
		Position: &pos,
		HP:        HP{Armour: 0},
		Inventory: Inventory{"ore": 7},
	}).Release()

	ProcessKills(store, []FighterRef{{Kind: FighterCharacter, Id: id}}, 5, discardLog())

	loot, ok := store.GroundLoot().Peek(pos)
	if !ok {
		t.Fatalf("expected ground loot at %v after a character with inventory died", pos)
	}
	if loot.Inventory["ore"] != 7 {
		t.Fatalf("expected 7 ore dropped, got %d", loot.Inventory["ore"])
	}
	if store.Characters().Has(id) {
		t.Fatalf("dead character row should have been removed")
	}
}
