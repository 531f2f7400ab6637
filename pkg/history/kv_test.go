package history

import (
	"path/filepath"
	"testing"

	"github.com/psantana5/promptmesh/pkg/models"
)

func TestOpenKVLocators(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		locator string
		wantErr bool
	}{
		{"memory", "memory:", false},
		{"file", "file:" + dir, false},
		{"sqlite", "sqlite:" + filepath.Join(dir, "history.db"), false},
		{"unknown scheme", "redis:localhost", true},
		{"empty file dir", "file:", true},
		{"empty sqlite path", "sqlite:", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, err := OpenKV(tt.locator)
			if tt.wantErr {
				if err == nil {
					kv.Close()
					t.Errorf("OpenKV(%q) should fail", tt.locator)
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenKV(%q) error = %v", tt.locator, err)
			}
			kv.Close()
		})
	}
}

// exerciseKV runs the shared backend contract.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()

	if _, ok, err := kv.Load("absent"); err != nil || ok {
		t.Errorf("Load(absent) = %v, %v; want missing", ok, err)
	}

	if err := kv.Save("slot", []byte(`["a"]`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, ok, err := kv.Load("slot")
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
	if string(data) != `["a"]` {
		t.Errorf("data = %s", data)
	}

	// Save replaces, never appends.
	if err := kv.Save("slot", []byte(`["b"]`)); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	data, _, _ = kv.Load("slot")
	if string(data) != `["b"]` {
		t.Errorf("after overwrite data = %s", data)
	}
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	defer kv.Close()
	exerciseKV(t, kv)
}

func TestFileKV(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV() error = %v", err)
	}
	defer kv.Close()
	exerciseKV(t, kv)
}

func TestSQLiteKV(t *testing.T) {
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewSQLiteKV() error = %v", err)
	}
	defer kv.Close()
	exerciseKV(t, kv)
}

func TestFileKVSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	kv, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("NewFileKV() error = %v", err)
	}
	store, _ := NewStore(kv, nil)
	store.Append(models.KindEvaluation, "j-1", models.JobDetails{Task: "sentiment"})
	kv.Close()

	kv2, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer kv2.Close()
	store2, err := NewStore(kv2, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store2.Len() != 1 {
		t.Errorf("len after reopen = %d, want 1", store2.Len())
	}
}

func TestSQLiteKVSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	kv, err := NewSQLiteKV(path)
	if err != nil {
		t.Fatalf("NewSQLiteKV() error = %v", err)
	}
	if err := kv.Save(HistoryKey, []byte(`[]`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	kv.Close()

	kv2, err := NewSQLiteKV(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer kv2.Close()
	if _, ok, err := kv2.Load(HistoryKey); err != nil || !ok {
		t.Errorf("Load() after reopen = %v, %v", ok, err)
	}
}
