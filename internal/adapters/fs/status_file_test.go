package fs

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/bft-labs/pillship/internal/domain"
)

func TestStatusFileRepository_LoadMissing(t *testing.T) {
	repo := NewStatusFileRepository(afero.NewMemMapFs(), "/sd")

	status, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if status != (domain.Status{}) {
		t.Errorf("Load() = %+v, want zero status", status)
	}
}

func TestStatusFileRepository_RoundTrip(t *testing.T) {
	fs := afero.NewOsFs()
	dir := t.TempDir()
	repo := NewStatusFileRepository(fs, dir)
	ctx := context.Background()

	want := domain.Status{
		LastCommitAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		LastReloadAt: time.Date(2026, 5, 1, 8, 0, 1, 0, time.UTC),
		Entries:      3,
		Groups:       2,
		StorageReady: true,
		LastError:    "pillship: storage busy",
	}
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.LastCommitAt.Equal(want.LastCommitAt) || !got.LastReloadAt.Equal(want.LastReloadAt) {
		t.Errorf("timestamps = %v/%v, want %v/%v", got.LastCommitAt, got.LastReloadAt, want.LastCommitAt, want.LastReloadAt)
	}
	if got.Entries != 3 || got.Groups != 2 || !got.StorageReady || got.LastError != want.LastError {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if exists, _ := afero.Exists(fs, repo.Path()+".tmp"); exists {
		t.Error("temp file left behind after Save")
	}
}

func TestStatusFileRepository_Corrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := NewStatusFileRepository(fs, "/sd")
	if err := afero.WriteFile(fs, repo.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.Load(context.Background()); err == nil {
		t.Error("Load() expected error for corrupt file")
	}
}
