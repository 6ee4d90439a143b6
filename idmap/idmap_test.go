package idmap

import "testing"

func TestAddLookupRefcounts(t *testing.T) {
	tbl := New()
	rec := tbl.Add(1, 0, func() uint64 { return 42 })
	if rec.GID != 42 || rec.LIDRefcount != 1 || rec.GIDRefcount != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if got, ok := tbl.LookupByLID(1); !ok || got != rec {
		t.Fatalf("lookup by lid failed")
	}
	if got, ok := tbl.LookupByGID(42); !ok || got != rec {
		t.Fatalf("lookup by gid failed")
	}
}

func TestRemovedExactlyWhenBothZero(t *testing.T) {
	tbl := New()
	rec := tbl.Add(1, 99, nil)
	tbl.GIDIncref(rec)
	tbl.LIDDecref(rec)
	if _, ok := tbl.LookupByLID(1); !ok {
		t.Fatalf("record should still be active: GID refcount not zero")
	}
	tbl.GIDDecref(rec)
	if _, ok := tbl.LookupByGID(99); ok {
		t.Fatalf("record should be reclaimed once both refcounts are zero")
	}
}

func TestReserveRecycled(t *testing.T) {
	tbl := New()
	r1 := tbl.Add(1, 1, nil)
	tbl.LIDDecref(r1)
	if len(tbl.arena) != 1 {
		t.Fatalf("expected arena len 1 before recycle, got %d", len(tbl.arena))
	}
	tbl.Add(2, 2, nil)
	if len(tbl.arena) != 1 {
		t.Fatalf("expected reserve slot recycled, arena grew to %d", len(tbl.arena))
	}
}

func TestResolveReleaseRace(t *testing.T) {
	tbl := New()
	rec := tbl.Add(5, 500, nil)
	rec.ReleasedLocally = true

	if _, action := tbl.Resolve(500, true, true); action != ActionIgnore {
		t.Fatalf("expected ActionIgnore for value update during release race, got %v", action)
	}
	if _, action := tbl.Resolve(500, false, true); action != ActionRelease {
		t.Fatalf("expected ActionRelease for the release message itself, got %v", action)
	}
}

func TestResolveNoRecord(t *testing.T) {
	tbl := New()
	if _, action := tbl.Resolve(777, false, true); action != ActionDiscard {
		t.Fatalf("release with no record and no values must discard, got %v", action)
	}
	if _, action := tbl.Resolve(777, true, true); action != ActionBind {
		t.Fatalf("update with no record and values must bind, got %v", action)
	}
	if _, action := tbl.Resolve(777, true, false); action != ActionDiscard {
		t.Fatalf("update with activation disallowed must discard, got %v", action)
	}
}
