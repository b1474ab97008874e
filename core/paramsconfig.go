package core

import "hexrealm/pkg/config"

// ParamsFromRaw converts a loaded config.RawParams into the engine's own
// Params (spec.md §6). It lives on this side of the import (core depends
// on pkg/config, never the reverse) so pkg/config stays free to be reused
// by tooling that has no reason to pull in the whole game engine.
func ParamsFromRaw(raw *config.RawParams) Params {
	p := Params{
		CharacterCost:          Amount(raw.CharacterCost),
		CharacterLimit:         raw.CharacterLimit,
		DamageListAge:          Height(raw.DamageListAge),
		BuildingUpdateDelay:    Height(raw.BuildingUpdateDelay),
		ProspectionStaleBlocks: Height(raw.ProspectionStaleBlocks),
		DeveloperAddress:       raw.DeveloperAddress,
		AdminEnabled:           raw.AdminEnabled,
		BPCopyBlocks:           make(map[BuildingType]Height, len(raw.BPCopyBlocks)),
		ConstructionBlocks:     make(map[BuildingType]Height, len(raw.ConstructionBlocks)),
		SpawnAreaPerFaction:    make(map[Faction]SpawnArea, len(raw.SpawnAreas)),
	}
	for t, blocks := range raw.BPCopyBlocks {
		p.BPCopyBlocks[BuildingType(t)] = Height(blocks)
	}
	for t, blocks := range raw.ConstructionBlocks {
		p.ConstructionBlocks[BuildingType(t)] = Height(blocks)
	}
	for letter, area := range raw.SpawnAreas {
		f, ok := ParseFaction(letter)
		if !ok {
			continue
		}
		p.SpawnAreaPerFaction[f] = SpawnArea{Centre: Hex{X: area.X, Y: area.Y}, Radius: area.Radius}
	}
	return p
}
