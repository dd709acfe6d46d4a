package society

import (
	"context"
	"testing"
)

func TestCreateValidatesName(t *testing.T) {
	store := NewInMemory()
	if err := store.Create(context.Background(), &Society{Name: "  "}); err != ErrInvalidName {
		t.Fatalf("want ErrInvalidName, got %v", err)
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	soc := &Society{Name: "Green Acres", City: "Pune", CreatedBy: "01ADMIN"}
	if err := store.Create(ctx, soc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if soc.ID == "" || soc.CreatedAt.IsZero() {
		t.Fatalf("create did not stamp the row: %+v", soc)
	}

	got, err := store.Find(ctx, soc.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Name != "Green Acres" {
		t.Fatalf("unexpected society: %+v", got)
	}

	if _, err := store.Find(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	second := &Society{Name: "Blue Ridge", CreatedBy: "01ADMIN"}
	if err := store.Create(ctx, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}
	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Blue Ridge" {
		t.Fatalf("list not name-ordered: %+v", all)
	}
}
