package records

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/imagepress/imagepress/internal/domain"
	"github.com/imagepress/imagepress/internal/platform"
)

func sample(name string, orig, comp int64) domain.ImageRecord {
	return domain.ImageRecord{
		OriginalName:     name,
		OriginalSize:     orig,
		OriginalPath:     "originals/" + name,
		CompressedSize:   comp,
		CompressedPath:   "compressed/" + name + ".jpg",
		CompressionRatio: domain.CompressionRatio(orig, comp),
	}
}

// testRepository runs the behaviour every backend must share.
func testRepository(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		repo := newRepo(t)
		all, err := repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll: %v", err)
		}
		if all == nil || len(all) != 0 {
			t.Errorf("FindAll on empty store = %v, want empty non-nil slice", all)
		}
		agg, err := repo.Aggregate(ctx)
		if err != nil {
			t.Fatalf("Aggregate: %v", err)
		}
		if agg != (domain.Aggregate{}) {
			t.Errorf("Aggregate on empty store = %+v, want zero", agg)
		}
	})

	t.Run("create assigns id and timestamp", func(t *testing.T) {
		repo := newRepo(t)
		in := sample("a.png", 1000, 250)
		got, err := repo.Create(ctx, in)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if got.ID == "" {
			t.Error("expected id to be assigned")
		}
		if got.CreatedAt.IsZero() {
			t.Error("expected createdAt to be assigned")
		}

		found, err := repo.FindByID(ctx, got.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if !found.CreatedAt.Equal(got.CreatedAt) {
			t.Errorf("createdAt = %v, want %v", found.CreatedAt, got.CreatedAt)
		}
		found.CreatedAt = got.CreatedAt
		if found != got {
			t.Errorf("FindByID = %+v, want %+v", found, got)
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		repo := newRepo(t)
		const n = 20
		ids := make(chan string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec, err := repo.Create(ctx, sample(fmt.Sprintf("f%d", i), 100, 50))
				if err != nil {
					t.Errorf("Create: %v", err)
					return
				}
				ids <- rec.ID
			}(i)
		}
		wg.Wait()
		close(ids)

		seen := map[string]bool{}
		for id := range ids {
			if seen[id] {
				t.Fatalf("duplicate id %s", id)
			}
			seen[id] = true
		}
		if len(seen) != n {
			t.Errorf("got %d ids, want %d", len(seen), n)
		}
	})

	t.Run("find by unknown id", func(t *testing.T) {
		repo := newRepo(t)
		for _, id := range []string{"00000000-0000-0000-0000-000000000000", "not-a-uuid", ""} {
			_, err := repo.FindByID(ctx, id)
			if !domain.IsKind(err, domain.KindNotFound) {
				t.Errorf("FindByID(%q) err = %v, want not_found", id, err)
			}
		}
	})

	t.Run("find all newest first", func(t *testing.T) {
		repo := newRepo(t)
		for _, name := range []string{"first", "second", "third"} {
			if _, err := repo.Create(ctx, sample(name, 10, 5)); err != nil {
				t.Fatalf("Create: %v", err)
			}
			time.Sleep(2 * time.Millisecond)
		}
		all, err := repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll: %v", err)
		}
		var names []string
		for _, r := range all {
			names = append(names, r.OriginalName)
		}
		if fmt.Sprint(names) != "[third second first]" {
			t.Errorf("order = %v, want [third second first]", names)
		}
	})

	t.Run("aggregate", func(t *testing.T) {
		repo := newRepo(t)
		for _, r := range []domain.ImageRecord{
			sample("a", 1000, 250), // 75%
			sample("b", 200, 300),  // -50%
			sample("c", 400, 100),  // 75%
		} {
			if _, err := repo.Create(ctx, r); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}
		agg, err := repo.Aggregate(ctx)
		if err != nil {
			t.Fatalf("Aggregate: %v", err)
		}
		if agg.Count != 3 || agg.SumOriginalSize != 1600 || agg.SumCompressedSize != 650 {
			t.Errorf("Aggregate = %+v", agg)
		}
		if math.Abs(agg.AvgCompressionRatio-100.0/3) > 1e-9 {
			t.Errorf("AvgCompressionRatio = %v, want %v", agg.AvgCompressionRatio, 100.0/3)
		}
	})
}

func TestMemoryRepository(t *testing.T) {
	testRepository(t, func(t *testing.T) Repository { return NewMemory() })
}

func TestMemoryTiesKeepInsertionOrder(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := fixed
	repo := NewMemory(WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		if _, err := repo.Create(ctx, sample(name, 10, 5)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	clock = fixed.Add(time.Second)
	if _, err := repo.Create(ctx, sample("c", 10, 5)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	clock = fixed
	if _, err := repo.Create(ctx, sample("d", 10, 5)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	var names []string
	for _, r := range all {
		names = append(names, r.OriginalName)
	}
	if fmt.Sprint(names) != "[c a b d]" {
		t.Errorf("order = %v, want [c a b d]", names)
	}
}

func TestMemoryClosed(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	if err := repo.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := repo.Create(ctx, sample("x", 1, 1))
	if !domain.IsKind(err, domain.KindStorage) || !errors.Is(err, domain.ErrClosed) {
		t.Errorf("Create after Close err = %v, want storage/closed", err)
	}
	if _, err := repo.FindAll(ctx); !domain.IsKind(err, domain.KindStorage) {
		t.Errorf("FindAll after Close err = %v, want storage", err)
	}
	if _, err := repo.Aggregate(ctx); !domain.IsKind(err, domain.KindStorage) {
		t.Errorf("Aggregate after Close err = %v, want storage", err)
	}
	if err := repo.Ping(ctx); err == nil {
		t.Error("Ping after Close should fail")
	}
}

func TestMemoryFindAllReturnsCopy(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	if _, err := repo.Create(ctx, sample("a", 10, 5)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	all, _ := repo.FindAll(ctx)
	all[0].OriginalName = "mutated"

	again, _ := repo.FindAll(ctx)
	if again[0].OriginalName != "a" {
		t.Errorf("repository state changed through returned slice: %q", again[0].OriginalName)
	}
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("IMAGEPRESS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("IMAGEPRESS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	testRepository(t, func(t *testing.T) Repository {
		db, err := platform.OpenDB(ctx, dsn)
		if err != nil {
			t.Fatalf("OpenDB: %v", err)
		}
		if err := platform.AutoMigrate(db, zap.NewNop()); err != nil {
			t.Fatalf("AutoMigrate: %v", err)
		}
		if _, err := db.ExecContext(ctx, `TRUNCATE images`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		repo := NewPostgres(db)
		t.Cleanup(func() { repo.Close() })
		return repo
	})
}
