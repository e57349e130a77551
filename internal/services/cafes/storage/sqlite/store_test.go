package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/louisbranch/cafes/internal/services/cafes/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenCreatesParentDirAndReopens(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "cafes.db")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.CreateCafe(context.Background(), sampleCafe("Kept")); err != nil {
		t.Fatalf("create cafe: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	cafes, err := reopened.ListCafes(context.Background(), storage.Condition{})
	if err != nil {
		t.Fatalf("list cafes: %v", err)
	}
	if len(cafes) != 1 || cafes[0].Name != "Kept" {
		t.Fatalf("cafes = %+v, want one Kept", cafes)
	}
}

func TestCreateGetCafeRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	price := "£2.40"
	input := sampleCafe("Science Gallery London")
	input.HasWifi = true
	input.CanTakeCalls = true
	input.CoffeePrice = &price

	created, err := store.CreateCafe(context.Background(), input)
	if err != nil {
		t.Fatalf("create cafe: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("id = %d, want positive", created.ID)
	}

	got, err := store.GetCafe(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get cafe: %v", err)
	}
	if got.Name != input.Name {
		t.Fatalf("name = %q, want %q", got.Name, input.Name)
	}
	if got.Location != input.Location {
		t.Fatalf("location = %q, want %q", got.Location, input.Location)
	}
	if !got.HasWifi || !got.CanTakeCalls || got.HasToilet || got.HasSockets {
		t.Fatalf("amenities = %+v", got)
	}
	if got.CoffeePrice == nil || *got.CoffeePrice != price {
		t.Fatalf("coffee_price = %v, want %q", got.CoffeePrice, price)
	}
}

func TestCreateCafeWithoutPriceStoresNull(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	created, err := store.CreateCafe(context.Background(), sampleCafe("No Price"))
	if err != nil {
		t.Fatalf("create cafe: %v", err)
	}
	got, err := store.GetCafe(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get cafe: %v", err)
	}
	if got.CoffeePrice != nil {
		t.Fatalf("coffee_price = %q, want nil", *got.CoffeePrice)
	}
}

func TestCreateCafeReturnsAlreadyExistsOnDuplicateName(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.CreateCafe(context.Background(), sampleCafe("Dup")); err != nil {
		t.Fatalf("create initial cafe: %v", err)
	}
	other := sampleCafe("Dup")
	other.Location = "Elsewhere"
	_, err := store.CreateCafe(context.Background(), other)
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate create error = %v, want %v", err, storage.ErrAlreadyExists)
	}
}

func TestCreateCafeRejectsMissingFields(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	input := sampleCafe("  ")
	_, err := store.CreateCafe(context.Background(), input)
	if !errors.Is(err, storage.ErrInvalidCafe) {
		t.Fatalf("create error = %v, want %v", err, storage.ErrInvalidCafe)
	}
	cafes, err := store.ListCafes(context.Background(), storage.Condition{})
	if err != nil {
		t.Fatalf("list cafes: %v", err)
	}
	if len(cafes) != 0 {
		t.Fatalf("cafes = %d, want 0", len(cafes))
	}
}

func TestGetCafeNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.GetCafe(context.Background(), 42)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestListCafesInsertionOrderAndCondition(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	for _, name := range []string{"B", "A", "C"} {
		cafe := sampleCafe(name)
		cafe.HasWifi = name != "A"
		if _, err := store.CreateCafe(context.Background(), cafe); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	all, err := store.ListCafes(context.Background(), storage.Condition{})
	if err != nil {
		t.Fatalf("list cafes: %v", err)
	}
	if got := names(all); got != "B,A,C" {
		t.Fatalf("order = %s, want B,A,C", got)
	}

	filtered, err := store.ListCafes(context.Background(), storage.Condition{
		Clause: "has_wifi = ? AND name != ?",
		Args:   []any{1, "C"},
	})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if got := names(filtered); got != "B" {
		t.Fatalf("filtered = %s, want B", got)
	}
}

func TestListCafesByLocationExactMatch(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	for _, tc := range []struct{ name, loc string }{
		{"One", "Peckham"},
		{"Two", "Peckham Rye"},
		{"Three", "Peckham"},
	} {
		cafe := sampleCafe(tc.name)
		cafe.Location = tc.loc
		if _, err := store.CreateCafe(context.Background(), cafe); err != nil {
			t.Fatalf("create %s: %v", tc.name, err)
		}
	}

	got, err := store.ListCafesByLocation(context.Background(), "Peckham")
	if err != nil {
		t.Fatalf("list by location: %v", err)
	}
	if names(got) != "One,Three" {
		t.Fatalf("matches = %s, want One,Three", names(got))
	}

	none, err := store.ListCafesByLocation(context.Background(), "Atlantis")
	if err != nil {
		t.Fatalf("list by location: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("matches = %#v, want empty slice", none)
	}
}

func TestRandomCafe(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.RandomCafe(context.Background()); !errors.Is(err, storage.ErrEmptyStore) {
		t.Fatalf("random on empty = %v, want %v", err, storage.ErrEmptyStore)
	}

	for _, name := range []string{"X", "Y"} {
		if _, err := store.CreateCafe(context.Background(), sampleCafe(name)); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	seen := map[string]bool{}
	for i := 0; i < 200 && len(seen) < 2; i++ {
		cafe, err := store.RandomCafe(context.Background())
		if err != nil {
			t.Fatalf("random cafe: %v", err)
		}
		seen[cafe.Name] = true
	}
	if !seen["X"] || !seen["Y"] {
		t.Fatalf("seen = %v, want both cafes", seen)
	}
}

func TestUpdateCafePriceChangesOnlyPrice(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	created, err := store.CreateCafe(context.Background(), sampleCafe("Priced"))
	if err != nil {
		t.Fatalf("create cafe: %v", err)
	}

	updated, err := store.UpdateCafePrice(context.Background(), created.ID, "£3.00")
	if err != nil {
		t.Fatalf("update price: %v", err)
	}
	if updated.CoffeePrice == nil || *updated.CoffeePrice != "£3.00" {
		t.Fatalf("coffee_price = %v, want £3.00", updated.CoffeePrice)
	}
	updated.CoffeePrice = nil
	if updated != created {
		t.Fatalf("updated = %+v, want %+v apart from price", updated, created)
	}
}

func TestUpdateCafePriceErrors(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	created, err := store.CreateCafe(context.Background(), sampleCafe("Errors"))
	if err != nil {
		t.Fatalf("create cafe: %v", err)
	}

	if _, err := store.UpdateCafePrice(context.Background(), created.ID, "  "); !errors.Is(err, storage.ErrMissingArgument) {
		t.Fatalf("blank price error = %v, want %v", err, storage.ErrMissingArgument)
	}
	if _, err := store.UpdateCafePrice(context.Background(), created.ID+100, "£1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing id error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestDeleteCafe(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	created, err := store.CreateCafe(context.Background(), sampleCafe("Closing"))
	if err != nil {
		t.Fatalf("create cafe: %v", err)
	}
	if err := store.DeleteCafe(context.Background(), created.ID); err != nil {
		t.Fatalf("delete cafe: %v", err)
	}
	if _, err := store.GetCafe(context.Background(), created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after delete = %v, want %v", err, storage.ErrNotFound)
	}
	if err := store.DeleteCafe(context.Background(), created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.GetCafe(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("get error = %v, want %v", err, context.Canceled)
	}
}

func TestNilStore(t *testing.T) {
	t.Parallel()

	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
	if _, err := store.ListCafes(context.Background(), storage.Condition{}); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestOpenAppliesConnectionPragmas(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	var journalMode string
	if err := store.sqlDB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Fatalf("journal_mode = %q, want %q", journalMode, "wal")
	}
	var busyTimeout int
	if err := store.sqlDB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("read busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Fatalf("busy_timeout = %d, want 5000", busyTimeout)
	}
}

func TestConcurrentWritesAreSerialized(t *testing.T) {
	t.Parallel()

	const writers = 50
	store := openTempStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := store.CreateCafe(ctx, sampleCafe(fmt.Sprintf("Cafe %02d", i)))
			if err != nil {
				errs <- fmt.Errorf("create %d: %w", i, err)
				return
			}
			if _, err := store.UpdateCafePrice(ctx, created.ID, fmt.Sprintf("£%d.00", i)); err != nil {
				errs <- fmt.Errorf("update %d: %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent write: %v", err)
	}

	cafes, err := store.ListCafes(ctx, storage.Condition{})
	if err != nil {
		t.Fatalf("list cafes: %v", err)
	}
	if len(cafes) != writers {
		t.Fatalf("stored cafes = %d, want %d", len(cafes), writers)
	}
	for _, cafe := range cafes {
		if cafe.CoffeePrice == nil {
			t.Fatalf("cafe %q has no price after update", cafe.Name)
		}
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cafes.db")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func sampleCafe(name string) storage.Cafe {
	return storage.Cafe{
		Name:     name,
		MapURL:   "https://maps.example.com/" + name,
		ImgURL:   "https://img.example.com/" + name + ".jpg",
		Location: "Peckham",
		Seats:    "20-30",
	}
}

func names(cafes []storage.Cafe) string {
	out := ""
	for i, cafe := range cafes {
		if i > 0 {
			out += ","
		}
		out += cafe.Name
	}
	return out
}
