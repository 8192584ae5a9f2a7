package queryplan

import (
	"testing"

	"github.com/shayanshabanzadeh/netquery/src/config"
)

func defaultSettings(t *testing.T) config.Settings {
	t.Helper()
	s, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}
	return s
}

func TestByIDBuildsAllCanonicalQueries(t *testing.T) {
	s := defaultSettings(t)
	for id := 1; id <= 8; id++ {
		if _, err := ByID(id, s); err != nil {
			t.Fatalf("query %d: unexpected error: %v", id, err)
		}
	}
}

func TestByIDUnknownID(t *testing.T) {
	s := defaultSettings(t)
	if _, err := ByID(99, s); err == nil {
		t.Fatalf("expected error for unknown query id")
	}
}

func TestQuery1Shape(t *testing.T) {
	s := defaultSettings(t)
	plan, err := ByID(1, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Operations) != 4 {
		t.Fatalf("expected 4 operations, got %d", len(plan.Operations))
	}
	if plan.Operations[0].Kind != OpFilter {
		t.Fatalf("expected first operation to be Filter")
	}
	if plan.Operations[len(plan.Operations)-1].Kind != OpFilterResult {
		t.Fatalf("expected last operation to be FilterResult")
	}
}

func TestQuery6IsAJoin(t *testing.T) {
	s := defaultSettings(t)
	plan, err := ByID(6, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Operations[0].Kind != OpJoin {
		t.Fatalf("expected first operation to be Join")
	}
	join := plan.Operations[0].Join
	if len(join.Left.Operations) == 0 || len(join.Right.Operations) == 0 {
		t.Fatalf("expected both join sub-plans to be populated")
	}
}
