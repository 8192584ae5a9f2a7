package config

import (
	"testing"

	"github.com/shayanshabanzadeh/netquery/src/sketch"
)

func TestDefaultsProduceDeterministicKinds(t *testing.T) {
	t.Setenv("REDUCE_TYPE", "")
	t.Setenv("DISTINCT_TYPE", "")
	s, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ReduceKind().Variant != sketch.Deterministic {
		t.Fatalf("expected deterministic reduce kind by default, got %v", s.ReduceKind().Variant)
	}
	if s.DistinctKind().Variant != sketch.Deterministic {
		t.Fatalf("expected deterministic distinct kind by default, got %v", s.DistinctKind().Variant)
	}
}

func TestCMSReduceKindFromEnv(t *testing.T) {
	t.Setenv("REDUCE_TYPE", "cms")
	t.Setenv("CM_MEMORY", "1024")
	t.Setenv("CM_DEPTH", "4")
	s, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	k := s.ReduceKind()
	if k.Variant != sketch.CountMin || k.MemoryBytes != 1024 || k.Depth != 4 {
		t.Fatalf("unexpected kind: %+v", k)
	}
}

func TestBloomDistinctKindFromEnv(t *testing.T) {
	t.Setenv("DISTINCT_TYPE", "bloom")
	t.Setenv("BF_SIZE", "8192")
	s, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	k := s.DistinctKind()
	if k.Variant != sketch.Bloom || k.BFSize != 8192 {
		t.Fatalf("unexpected kind: %+v", k)
	}
}
