package memory

import (
	"context"
	"errors"
	"testing"

	"prettify/internal/storage"
)

func TestStore_SaveLoadList(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.Load(ctx, "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	_ = s.Save(ctx, storage.Record{ID: "b", Output: "1"})
	_ = s.Save(ctx, storage.Record{ID: "a", Output: "2"})
	_ = s.Save(ctx, storage.Record{ID: "b", Output: "3"})

	got, err := s.Load(ctx, "b")
	if err != nil || got.Output != "3" || got.UpdatedAt.IsZero() {
		t.Fatalf("Load(b) = %+v, %v", got, err)
	}
	ids, _ := s.List(ctx)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("List = %v", ids)
	}
}
