// Package config maps the environment-variable table of spec §6
// (component C8) onto the sketch.Kind values the query plans are built
// with. Grounded on the teacher's envconfig.Process usage in
// test/integration/integration_test.go, generalized from a test-only
// prefix-scoped struct into the program's one configuration surface.
package config

import (
	"github.com/kelseyhightower/envconfig"

	"github.com/shayanshabanzadeh/netquery/src/sketch"
)

// Settings is the full environment-driven configuration table of spec
// §6. Every field carries its spec-mandated default so a bare
// environment (no variables set) reproduces the deterministic,
// non-approximate baseline.
type Settings struct {
	ReduceType string `envconfig:"REDUCE_TYPE" default:"deterministic"`

	CMMemory int    `envconfig:"CM_MEMORY" default:"524288"`
	CMDepth  int    `envconfig:"CM_DEPTH" default:"3"`
	CMSeed   uint32 `envconfig:"CM_SEED" default:"42"`

	FCMDepth      int    `envconfig:"FCM_DEPTH" default:"2"`
	FCMWidthL1    int    `envconfig:"FCM_WIDTH_L1" default:"524288"`
	FCMWidthL2    int    `envconfig:"FCM_WIDTH_L2" default:"65536"`
	FCMWidthL3    int    `envconfig:"FCM_WIDTH_L3" default:"8192"`
	FCMThresholdL1 uint32 `envconfig:"FCM_THRESHOLD_L1" default:"254"`
	FCMThresholdL2 uint32 `envconfig:"FCM_THRESHOLD_L2" default:"65534"`
	FCMSeed       uint32 `envconfig:"FCM_SEED" default:"42"`

	BCRows    int    `envconfig:"BC_ROWS" default:"8"`
	BCCoupons int    `envconfig:"BC_COUPONS" default:"32768"`
	BCD       int    `envconfig:"BC_D" default:"3"`
	BCMax     int    `envconfig:"BC_MAX" default:"2"`
	BCSeed    uint32 `envconfig:"BC_SEED" default:"42"`

	DistinctType string `envconfig:"DISTINCT_TYPE" default:"deterministic"`

	BFSize   int    `envconfig:"BF_SIZE" default:"300000"`
	BFHashes int    `envconfig:"BF_HASHES" default:"5"`
	BFSeed   uint32 `envconfig:"BF_SEED" default:"42"`

	// ElasticDepth/ElasticWidth are not part of spec §6's table; they
	// parameterize the Elastic variant that REDUCE_TYPE=elastic selects
	// in ReduceKind (seeded with CM_SEED).
	ElasticDepth int `envconfig:"ELASTIC_DEPTH" default:"4"`
	ElasticWidth int `envconfig:"ELASTIC_WIDTH" default:"1024"`

	// DebugPort, when nonzero, starts the optional debug HTTP surface
	// (src/server) exposing /healthz and /stats. Off by default: this
	// is a single-process offline CLI, not a long-running service.
	DebugPort int `envconfig:"DEBUG_PORT" default:"0"`
}

// Load reads Settings from the process environment, applying the
// spec-mandated defaults for every unset variable. An error here is a
// Configuration error (spec §7) and aborts startup.
func Load() (Settings, error) {
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ReduceKind builds the sketch.Kind the configured REDUCE_TYPE selects
// (spec §6).
func (s Settings) ReduceKind() sketch.Kind {
	switch s.ReduceType {
	case "cms":
		return sketch.Kind{Variant: sketch.CountMin, MemoryBytes: s.CMMemory, Depth: s.CMDepth, Seed: s.CMSeed}
	case "fcm":
		return sketch.Kind{
			Variant:     sketch.FastCountMin,
			Depth:       s.FCMDepth,
			WidthL1:     s.FCMWidthL1,
			WidthL2:     s.FCMWidthL2,
			WidthL3:     s.FCMWidthL3,
			ThresholdL1: s.FCMThresholdL1,
			ThresholdL2: s.FCMThresholdL2,
			Seed:        s.FCMSeed,
		}
	case "beaucoup":
		return sketch.Kind{
			Variant:   sketch.BeauCoup,
			BCRows:    s.BCRows,
			BCCoupons: s.BCCoupons,
			BCD:       s.BCD,
			BCMax:     s.BCMax,
			Seed:      s.BCSeed,
		}
	case "elastic":
		return sketch.Kind{Variant: sketch.Elastic, Depth: s.ElasticDepth, Width: s.ElasticWidth, Seed: s.CMSeed}
	default:
		return sketch.Kind{Variant: sketch.Deterministic}
	}
}

// DistinctKind builds the sketch.Kind the configured DISTINCT_TYPE
// selects (spec §6).
func (s Settings) DistinctKind() sketch.Kind {
	switch s.DistinctType {
	case "bloom":
		return sketch.Kind{Variant: sketch.Bloom, BFSize: s.BFSize, BFHashes: s.BFHashes, Seed: s.BFSeed}
	default:
		return sketch.Kind{Variant: sketch.Deterministic}
	}
}
