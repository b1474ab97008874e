// Package config provides a reusable loader for hexrealm's per-chain
// engine parameters and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"hexrealm/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// RawParams mirrors the on-disk YAML shape of a chain's Params block
// (spec.md §6). It is unmarshalled by viper and then converted into
// core.Params by the caller, which keeps this package free of an import
// cycle with core.
type RawParams struct {
	CharacterCost          uint64           `mapstructure:"character_cost" json:"character_cost"`
	CharacterLimit         int              `mapstructure:"character_limit" json:"character_limit"`
	DamageListAge          uint64           `mapstructure:"damage_list_age" json:"damage_list_age"`
	BuildingUpdateDelay    uint64           `mapstructure:"building_update_delay" json:"building_update_delay"`
	ProspectionStaleBlocks uint64           `mapstructure:"prospection_stale_blocks" json:"prospection_stale_blocks"`
	DeveloperAddress       string           `mapstructure:"developer_address" json:"developer_address"`
	AdminEnabled           bool             `mapstructure:"admin_enabled" json:"admin_enabled"`
	BPCopyBlocks           map[string]int64 `mapstructure:"bp_copy_blocks" json:"bp_copy_blocks"`
	ConstructionBlocks     map[string]int64 `mapstructure:"construction_blocks" json:"construction_blocks"`

	SpawnAreas map[string]struct {
		X      int32 `mapstructure:"x" json:"x"`
		Y      int32 `mapstructure:"y" json:"y"`
		Radius int   `mapstructure:"radius" json:"radius"`
	} `mapstructure:"spawn_areas" json:"spawn_areas"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
	} `mapstructure:"logging" json:"logging"`
}

// Load reads the chain's parameter file (main/test/regtest) merged over
// config/default.yaml and returns the raw, unmarshalled view. It never
// writes to a package-level variable: callers own the returned value so
// multiple engines (e.g. one per chain under test) can be loaded side by
// side in the same process.
func Load(chain string) (*RawParams, error) {
	v := viper.New()
	v.SetConfigName("default")
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	if err := v.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load default params")
	}

	if chain != "" {
		v.SetConfigName(chain)
		if err := v.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s params", chain))
		}
	}

	v.AutomaticEnv()

	var raw RawParams
	if err := v.Unmarshal(&raw); err != nil {
		return nil, utils.Wrap(err, "unmarshal params")
	}
	return &raw, nil
}

// LoadFromEnv loads configuration using the HEXREALM_CHAIN environment
// variable, defaulting to "main".
func LoadFromEnv() (*RawParams, error) {
	return Load(utils.EnvOrDefault("HEXREALM_CHAIN", "main"))
}
