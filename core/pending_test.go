package core

import (
	"encoding/json"
	"strconv"
	"testing"
)

func TestPendingStateObserveLatestWaypointWins(t *testing.T) {
	store := NewMemStore(OpenMap())
	p := NewPendingState()
	p.Observe(store, MoveBundle{Name: "alice", Move: MoveBody{Characters: map[string]CharacterIntent{
		"1": {WP: []HexJSON{{1, 1}}},
	}}})
	p.Observe(store, MoveBundle{Name: "alice", Move: MoveBody{Characters: map[string]CharacterIntent{
		"1": {WP: []HexJSON{{9, 9}}},
	}}})

	raw, err := p.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded pendingStateJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Characters) != 1 {
		t.Fatalf("expected 1 pending character, got %d", len(decoded.Characters))
	}
	if len(decoded.Characters[0].Waypoints) != 1 || decoded.Characters[0].Waypoints[0] != (HexJSON{9, 9}) {
		t.Fatalf("expected the latest-observed waypoint to win, got %v", decoded.Characters[0].Waypoints)
	}
}

func TestPendingStateObserveCountsNewCharacters(t *testing.T) {
	store := NewMemStore(OpenMap())
	p := NewPendingState()
	p.Observe(store, MoveBundle{Name: "alice", Move: MoveBody{NewCharacters: []NewCharacterIntent{{Faction: "r"}, {Faction: "r"}}}})
	p.Observe(store, MoveBundle{Name: "bob", Move: MoveBody{NewCharacters: []NewCharacterIntent{{Faction: "g"}}}})

	raw, err := p.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded pendingStateJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.NewCharacters) != 2 {
		t.Fatalf("expected 2 distinct (account, faction) groups, got %d", len(decoded.NewCharacters))
	}
	var aliceCount int
	for _, nc := range decoded.NewCharacters {
		if nc.Account == "alice" {
			aliceCount = nc.Count
		}
	}
	if aliceCount != 2 {
		t.Fatalf("expected alice's pending count to be 2, got %d", aliceCount)
	}
}

func TestPendingStateClearEmptiesProjection(t *testing.T) {
	store := NewMemStore(OpenMap())
	p := NewPendingState()
	p.Observe(store, MoveBundle{Name: "alice", Move: MoveBody{Characters: map[string]CharacterIntent{
		"1": {WP: []HexJSON{{1, 1}}},
	}}})
	p.Clear()

	raw, err := p.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded pendingStateJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Characters) != 0 || len(decoded.NewCharacters) != 0 {
		t.Fatalf("expected an empty projection after Clear, got %+v", decoded)
	}
}

func TestPendingStateIgnoresNamelessBundle(t *testing.T) {
	store := NewMemStore(OpenMap())
	p := NewPendingState()
	p.Observe(store, MoveBundle{Move: MoveBody{NewCharacters: []NewCharacterIntent{{Faction: "r"}}}})

	raw, _ := p.ToJSON()
	var decoded pendingStateJSON
	json.Unmarshal(raw, &decoded)
	if len(decoded.NewCharacters) != 0 {
		t.Fatalf("a bundle with no account name should be ignored entirely")
	}
}

func TestPendingStateObserveCountsTwoFactionsSeparately(t *testing.T) {
	store := NewMemStore(OpenMap())
	p := NewPendingState()
	p.Observe(store, MoveBundle{Name: "alice", Move: MoveBody{NewCharacters: []NewCharacterIntent{
		{Faction: "r"}, {Faction: "g"},
	}}})

	raw, err := p.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded pendingStateJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.NewCharacters) != 2 {
		t.Fatalf("a batch mixing two factions for the same account must not collapse into one group, got %+v", decoded.NewCharacters)
	}
	for _, nc := range decoded.NewCharacters {
		if nc.Count != 1 {
			t.Fatalf("expected each faction group to have count 1, got %+v", nc)
		}
	}
}

func TestPendingStateObserveTracksProspectRegion(t *testing.T) {
	store := NewMemStore(OpenMap())
	pos := Hex{0, 0}
	cid := store.NextId()
	store.Characters().Create(cid, Character{Id: cid, Position: &pos}).Release()

	p := NewPendingState()
	p.Observe(store, MoveBundle{Name: "alice", Move: MoveBody{Characters: map[string]CharacterIntent{
		idKey(cid): {Prospect: &struct{}{}},
	}}})

	raw, err := p.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded pendingStateJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Characters) != 1 || decoded.Characters[0].ProspectingRegion == nil {
		t.Fatalf("expected a pending prospecting region, got %+v", decoded.Characters)
	}
	wantRegion := RegionIdAt(pos)
	if *decoded.Characters[0].ProspectingRegion != idKey(wantRegion) {
		t.Fatalf("expected prospecting region %d, got %s", wantRegion, *decoded.Characters[0].ProspectingRegion)
	}
}

func TestPendingStateObserveFailsLoudlyOnProspectRegionMismatch(t *testing.T) {
	store := NewMemStore(OpenMap())
	cid := store.NextId()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected a panic when a character's pending prospect region changes")
		}
		if _, ok := r.(*ConsistencyError); !ok {
			t.Fatalf("expected a *ConsistencyError panic, got %T", r)
		}
	}()

	p := NewPendingState()
	pos1 := Hex{0, 0}
	store.Characters().Create(cid, Character{Id: cid, Position: &pos1}).Release()
	p.Observe(store, MoveBundle{Name: "alice", Move: MoveBody{Characters: map[string]CharacterIntent{
		idKey(cid): {Prospect: &struct{}{}},
	}}})

	h, _ := store.Characters().Fetch(cid)
	pos2 := Hex{100, 100}
	h.Get().Position = &pos2
	h.TouchColumns()
	h.Release()

	p.Observe(store, MoveBundle{Name: "alice", Move: MoveBody{Characters: map[string]CharacterIntent{
		idKey(cid): {Prospect: &struct{}{}},
	}}})
}

func TestPendingStateObserveWaypointsClearMiningIntent(t *testing.T) {
	store := NewMemStore(OpenMap())
	pos := Hex{0, 0}
	cid := store.NextId()
	store.Characters().Create(cid, Character{
		Id: cid, Position: &pos, Proto: CharacterProto{Mining: MiningData{Capable: true}},
	}).Release()

	p := NewPendingState()
	start := true
	p.Observe(store, MoveBundle{Name: "alice", Move: MoveBody{Characters: map[string]CharacterIntent{
		idKey(cid): {Mine: &start},
	}}})
	p.Observe(store, MoveBundle{Name: "alice", Move: MoveBody{Characters: map[string]CharacterIntent{
		idKey(cid): {WP: []HexJSON{{1, 1}}},
	}}})

	raw, err := p.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded pendingStateJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Characters[0].MiningRegion != nil {
		t.Fatalf("a later waypoints intent should clear a pending mining intent, got %+v", decoded.Characters[0])
	}
}

func TestPendingStateObserveMiningIntentNulledWhileProspecting(t *testing.T) {
	store := NewMemStore(OpenMap())
	pos := Hex{0, 0}
	cid := store.NextId()
	store.Characters().Create(cid, Character{
		Id: cid, Position: &pos, Proto: CharacterProto{Mining: MiningData{Capable: true}},
	}).Release()

	p := NewPendingState()
	start := true
	p.Observe(store, MoveBundle{Name: "alice", Move: MoveBody{Characters: map[string]CharacterIntent{
		idKey(cid): {Prospect: &struct{}{}, Mine: &start},
	}}})

	raw, err := p.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded pendingStateJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Characters[0].MiningRegion != nil {
		t.Fatalf("a mining intent observed alongside a prospect intent in the same bundle should be nulled, got %+v", decoded.Characters[0])
	}
	if decoded.Characters[0].ProspectingRegion == nil {
		t.Fatalf("the prospect intent itself should still be recorded")
	}
}

func idKey(id Id) string {
	return strconv.FormatUint(uint64(id), 10)
}
