package storage

import (
	"testing"
)

type record struct {
	Name  string
	Count uint64
}

func TestStateRoundTrip(t *testing.T) {
	state := NewState(NewMemDB())
	if err := state.KVPut([]byte("k"), record{Name: "pool", Count: 3}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var out record
	ok, err := state.KVGet([]byte("k"), &out)
	if err != nil || !ok {
		t.Fatalf("get: %v ok=%v", err, ok)
	}
	if out.Name != "pool" || out.Count != 3 {
		t.Fatalf("unexpected record %+v", out)
	}
	ok, err = state.KVGet([]byte("missing"), nil)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if ok {
		t.Fatalf("expected missing key")
	}
}

func TestStateRevertRestoresPriorValues(t *testing.T) {
	state := NewState(NewMemDB())
	if err := state.KVPut([]byte("a"), record{Name: "before", Count: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	state.DiscardJournal()

	snap := state.Snapshot()
	if err := state.KVPut([]byte("a"), record{Name: "after", Count: 2}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := state.KVPut([]byte("b"), record{Name: "new", Count: 9}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := state.RevertToSnapshot(snap); err != nil {
		t.Fatalf("revert: %v", err)
	}

	var out record
	ok, err := state.KVGet([]byte("a"), &out)
	if err != nil || !ok {
		t.Fatalf("get a: %v ok=%v", err, ok)
	}
	if out.Name != "before" || out.Count != 1 {
		t.Fatalf("expected pre-snapshot value, got %+v", out)
	}
	ok, err = state.KVGet([]byte("b"), nil)
	if err != nil {
		t.Fatalf("get b: %v", err)
	}
	if ok {
		t.Fatalf("expected inserted key to be removed on revert")
	}
}

func TestStateNestedSnapshots(t *testing.T) {
	state := NewState(NewMemDB())
	outer := state.Snapshot()
	if err := state.KVPut([]byte("x"), record{Name: "outer", Count: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	inner := state.Snapshot()
	if err := state.KVPut([]byte("x"), record{Name: "inner", Count: 2}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := state.RevertToSnapshot(inner); err != nil {
		t.Fatalf("revert inner: %v", err)
	}
	var out record
	if ok, err := state.KVGet([]byte("x"), &out); err != nil || !ok {
		t.Fatalf("get: %v ok=%v", err, ok)
	}
	if out.Name != "outer" {
		t.Fatalf("expected outer value, got %+v", out)
	}
	if err := state.RevertToSnapshot(outer); err != nil {
		t.Fatalf("revert outer: %v", err)
	}
	if ok, _ := state.KVGet([]byte("x"), nil); ok {
		t.Fatalf("expected key removed after outer revert")
	}
}

func TestStateDeleteJournalled(t *testing.T) {
	state := NewState(NewMemDB())
	if err := state.KVPut([]byte("d"), record{Name: "keep", Count: 7}); err != nil {
		t.Fatalf("put: %v", err)
	}
	state.DiscardJournal()
	snap := state.Snapshot()
	if err := state.KVDelete([]byte("d")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := state.KVGet([]byte("d"), nil); ok {
		t.Fatalf("expected key deleted")
	}
	if err := state.RevertToSnapshot(snap); err != nil {
		t.Fatalf("revert: %v", err)
	}
	var out record
	if ok, err := state.KVGet([]byte("d"), &out); err != nil || !ok {
		t.Fatalf("get: %v ok=%v", err, ok)
	}
	if out.Count != 7 {
		t.Fatalf("unexpected record %+v", out)
	}
}

func TestStateCommitReleasesJournal(t *testing.T) {
	state := NewState(NewMemDB())
	snap := state.Snapshot()
	if err := state.KVPut([]byte("c"), record{Name: "first", Count: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := state.KVPut([]byte("c"), record{Name: "second", Count: 2}); err != nil {
		t.Fatalf("put: %v", err)
	}
	state.Commit(snap)
	if got := len(state.journal); got != 0 {
		t.Fatalf("expected empty journal after commit, have %d entries", got)
	}
	var out record
	if ok, err := state.KVGet([]byte("c"), &out); err != nil || !ok {
		t.Fatalf("get: %v ok=%v", err, ok)
	}
	if out.Name != "second" {
		t.Fatalf("unexpected record %+v", out)
	}
}

func TestStateCommitPreservesOuterEntries(t *testing.T) {
	state := NewState(NewMemDB())
	outer := state.Snapshot()
	if err := state.KVPut([]byte("o"), record{Name: "outer", Count: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	inner := state.Snapshot()
	if err := state.KVPut([]byte("i"), record{Name: "inner", Count: 2}); err != nil {
		t.Fatalf("put: %v", err)
	}
	state.Commit(inner)
	if err := state.RevertToSnapshot(outer); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if ok, _ := state.KVGet([]byte("o"), nil); ok {
		t.Fatalf("expected outer write undone")
	}
	// The committed inner write is no longer revertable.
	if ok, _ := state.KVGet([]byte("i"), nil); !ok {
		t.Fatalf("expected committed inner write to survive the outer revert")
	}
}
