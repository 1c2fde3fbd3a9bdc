package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/imagepress/imagepress/internal/domain"
	"github.com/imagepress/imagepress/internal/records"
	"github.com/imagepress/imagepress/internal/storage"
)

type brokenStore struct{ storage.ArtifactStore }

func (brokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("permission denied")
}

func setup(t *testing.T) (*records.Memory, *storage.LocalStorage) {
	t.Helper()
	return records.NewMemory(), storage.NewLocalStorage(t.TempDir())
}

func seed(t *testing.T, repo records.Repository, store storage.ArtifactStore, name string, compressed []byte) domain.ImageRecord {
	t.Helper()
	ctx := context.Background()
	key := storage.NewKey(storage.KindCompressed, testNow, ".jpg")
	if compressed != nil {
		if err := store.Put(ctx, key, compressed, "image/jpeg"); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	rec, err := repo.Create(ctx, domain.ImageRecord{
		OriginalName:   name,
		OriginalSize:   100,
		CompressedSize: int64(len(compressed)),
		CompressedPath: key,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return rec
}

func TestGetDownload(t *testing.T) {
	repo, store := setup(t)
	svc := NewService(repo, store, zap.NewNop())
	rec := seed(t, repo, store, "cat photo.png", []byte("\xff\xd8\xffjpeg"))

	dl, err := svc.GetDownload(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("GetDownload: %v", err)
	}
	if string(dl.Bytes) != "\xff\xd8\xffjpeg" {
		t.Errorf("Bytes = %q", dl.Bytes)
	}
	if dl.Filename != "compressed-cat photo.png" {
		t.Errorf("Filename = %q", dl.Filename)
	}
	if dl.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q", dl.ContentType)
	}
}

func TestGetDownloadErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, repo *records.Memory, store *storage.LocalStorage) (string, storage.ArtifactStore)
		wantKind domain.Kind
	}{
		{
			name: "unknown id",
			setup: func(t *testing.T, repo *records.Memory, store *storage.LocalStorage) (string, storage.ArtifactStore) {
				return "6f1c1e9e-0000-4000-8000-000000000000", store
			},
			wantKind: domain.KindNotFound,
		},
		{
			name: "artifact deleted",
			setup: func(t *testing.T, repo *records.Memory, store *storage.LocalStorage) (string, storage.ArtifactStore) {
				return seed(t, repo, store, "a.png", nil).ID, store
			},
			wantKind: domain.KindArtifactMissing,
		},
		{
			name: "artifact empty",
			setup: func(t *testing.T, repo *records.Memory, store *storage.LocalStorage) (string, storage.ArtifactStore) {
				return seed(t, repo, store, "a.png", []byte{}).ID, store
			},
			wantKind: domain.KindArtifactMissing,
		},
		{
			name: "store failure",
			setup: func(t *testing.T, repo *records.Memory, store *storage.LocalStorage) (string, storage.ArtifactStore) {
				return seed(t, repo, store, "a.png", []byte("x")).ID, brokenStore{store}
			},
			wantKind: domain.KindStorage,
		},
		{
			name: "repository closed",
			setup: func(t *testing.T, repo *records.Memory, store *storage.LocalStorage) (string, storage.ArtifactStore) {
				id := seed(t, repo, store, "a.png", []byte("x")).ID
				repo.Close()
				return id, store
			},
			wantKind: domain.KindStorage,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, store := setup(t)
			id, s := tc.setup(t, repo, store)
			dl, err := NewService(repo, s, zap.NewNop()).GetDownload(context.Background(), id)
			if got := domain.KindOf(err); got != tc.wantKind {
				t.Fatalf("KindOf(%v) = %q, want %q", err, got, tc.wantKind)
			}
			if len(dl.Bytes) != 0 {
				t.Errorf("returned %d bytes alongside an error", len(dl.Bytes))
			}
		})
	}
}

func TestListImages(t *testing.T) {
	repo, store := setup(t)
	svc := NewService(repo, store, zap.NewNop())

	got, err := svc.ListImages(context.Background())
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListImages on empty store returned %d records", len(got))
	}

	seed(t, repo, store, "a.png", []byte("x"))
	seed(t, repo, store, "b.png", []byte("y"))
	got, err = svc.ListImages(context.Background())
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ListImages returned %d records, want 2", len(got))
	}
}

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
