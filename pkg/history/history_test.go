package history

import (
	"encoding/json"
	"testing"

	"github.com/psantana5/promptmesh/pkg/models"
)

func TestStorePrependsNewestFirst(t *testing.T) {
	store, err := NewStore(NewMemoryKV(), nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	store.Append(models.KindEvaluation, "j-1", models.JobDetails{Task: "sentiment"})
	store.Append(models.KindComparison, "j-2", models.JobDetails{Task: "summarize"})
	store.Append(models.KindEvolution, "j-3", models.JobDetails{Task: "fact-check"})

	entries := store.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].JobID != "j-3" || entries[2].JobID != "j-1" {
		t.Errorf("order = [%s %s %s], want newest first",
			entries[0].JobID, entries[1].JobID, entries[2].JobID)
	}
}

func TestStoreIDsStrictlyIncreasing(t *testing.T) {
	store, err := NewStore(NewMemoryKV(), nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	var last int64
	for i := 0; i < 50; i++ {
		entry, err := store.Append(models.KindEvaluation, "j", models.JobDetails{})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if entry.ID <= last {
			t.Fatalf("id %d not greater than previous %d", entry.ID, last)
		}
		last = entry.ID
	}
}

func TestStoreRoundTripsThroughPersistence(t *testing.T) {
	kv := NewMemoryKV()

	first, err := NewStore(kv, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	first.Append(models.KindEvaluation, "j-1", models.JobDetails{
		Task:    "sentiment",
		Version: "v1",
		Models:  []string{"m1", "m2"},
		Mode:    models.ModeFromRegistry,
	})
	first.Append(models.KindEvolution, "j-2", models.JobDetails{Model: "m1"})

	// A fresh store over the same KV sees the identical list.
	second, err := NewStore(kv, nil)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	got := second.Entries()
	want := first.Entries()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		gj, _ := json.Marshal(got[i])
		wj, _ := json.Marshal(want[i])
		if string(gj) != string(wj) {
			t.Errorf("entry %d = %s, want %s", i, gj, wj)
		}
	}
}

func TestStoreDiscardsMalformedPersistedList(t *testing.T) {
	kv := NewMemoryKV()
	kv.Save(HistoryKey, []byte("{this is not json"))

	store, err := NewStore(kv, nil)
	if err != nil {
		t.Fatalf("NewStore() must not fail on corrupt bytes, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("len = %d, want 0", store.Len())
	}

	// The store still works after discarding the corrupt slot.
	if _, err := store.Append(models.KindEvaluation, "j-1", models.JobDetails{}); err != nil {
		t.Errorf("Append() after discard error = %v", err)
	}
}

func TestStoreIDsSurviveReload(t *testing.T) {
	kv := NewMemoryKV()
	first, _ := NewStore(kv, nil)
	entry, _ := first.Append(models.KindEvaluation, "j-1", models.JobDetails{})

	second, _ := NewStore(kv, nil)
	next, _ := second.Append(models.KindEvaluation, "j-2", models.JobDetails{})
	if next.ID <= entry.ID {
		t.Errorf("reloaded store issued id %d, not above %d", next.ID, entry.ID)
	}
}

func TestStoreGet(t *testing.T) {
	store, _ := NewStore(NewMemoryKV(), nil)
	entry, _ := store.Append(models.KindComparison, "j-1", models.JobDetails{Task: "sentiment"})

	got, ok := store.Get(entry.ID)
	if !ok || got.JobID != "j-1" {
		t.Errorf("Get(%d) = %+v, %v", entry.ID, got, ok)
	}
	if _, ok := store.Get(entry.ID + 999); ok {
		t.Error("Get() found a nonexistent id")
	}
}
