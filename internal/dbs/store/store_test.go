package store

// Tests for the saved snapshot catalogue.
//
// Focus: List (filtering, sorting), Load/Save round trip, missing snapshots.

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/OpenGG/asdbs/internal/dbs/domain"
	"github.com/OpenGG/asdbs/internal/dbs/snapshot"
	"github.com/OpenGG/asdbs/internal/dbs/storage"
)

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/store", 0o700); err != nil {
		t.Fatalf("setup store: %v", err)
	}
	return New(storage.New(fs), "/store"), fs
}

func TestList_Empty(t *testing.T) {
	st, _ := newTestStore(t)

	labels, err := st.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(labels) != 0 {
		t.Errorf("expected 0 labels, got %d", len(labels))
	}
}

func TestList_MissingDirectory(t *testing.T) {
	st := New(storage.New(afero.NewMemMapFs()), "/not/created")

	labels, err := st.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(labels) != 0 {
		t.Errorf("expected no labels, got %v", labels)
	}
}

func TestList_SortedAndFiltered(t *testing.T) {
	st, fs := newTestStore(t)

	files := []string{
		"server.config.json",
		"local.config.json",
		"demo.config.json",
		"readme.txt",
		"plain.json",
		".config.json",
	}
	for _, file := range files {
		if err := afero.WriteFile(fs, filepath.Join("/store", file), []byte("{}"), 0o644); err != nil {
			t.Fatalf("create %s: %v", file, err)
		}
	}
	if err := fs.MkdirAll("/store/nested.config.json", 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}

	labels, err := st.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	expected := []string{"demo", "local", "server"}
	if len(labels) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, labels)
	}
	for i, label := range labels {
		if label != expected[i] {
			t.Errorf("position %d: expected %q, got %q", i, expected[i], label)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st, fs := newTestStore(t)

	snap, err := snapshot.NewSteel("server", domain.AS2019, []snapshot.DataSource{
		{Name: "AstorBase", Value: "Data Source=srv"},
	}, true, `\\srv\share\Support\`)
	if err != nil {
		t.Fatalf("NewSteel: %v", err)
	}

	if err := st.Save("server", snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if exists, _ := afero.Exists(fs, "/store/server.config.json"); !exists {
		t.Fatal("expected snapshot file on disk")
	}

	loaded, err := st.Load("server")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !snapshot.Equal(snap, loaded, true) {
		t.Errorf("loaded snapshot differs: %v", snapshot.Diff(snap, loaded))
	}
	steel, _ := loaded.Steel()
	if steel.SupportDirLinkTarget != `\\srv\share\Support` {
		t.Errorf("unexpected link target %q", steel.SupportDirLinkTarget)
	}
}

func TestSaveOverwrites(t *testing.T) {
	st, _ := newTestStore(t)

	first, _ := snapshot.NewRevit("r", domain.RVT2020, []snapshot.DataSource{{Name: "A", Value: "1"}}, "")
	second, _ := snapshot.NewRevit("r", domain.RVT2020, []snapshot.DataSource{{Name: "A", Value: "2"}}, "")
	if err := st.Save("r", first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := st.Save("r", second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := st.Load("r")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.DataSources[0].Value != "2" {
		t.Errorf("expected overwritten value, got %q", loaded.DataSources[0].Value)
	}
}

func TestLoad_Missing(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.Load("ghost")
	if !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestLoad_Broken(t *testing.T) {
	st, fs := newTestStore(t)

	if err := afero.WriteFile(fs, "/store/broken.config.json", []byte("{not json"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, err := st.Load("broken")
	if err == nil {
		t.Fatal("expected decode error")
	}
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Errorf("broken file must not look missing: %v", err)
	}
}

func TestDelete(t *testing.T) {
	st, _ := newTestStore(t)

	snap, _ := snapshot.NewRevit("r", domain.RVT2023, nil, "")
	if err := st.Save("r", snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.Delete("r"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if exists, _ := st.Exists("r"); exists {
		t.Error("snapshot should be gone")
	}
	if err := st.Delete("r"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
}
