package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"kincore/internal/filterstore/core"
)

func TestStoreMissingKey(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false, got %v %v", ok, err)
	}
}

func TestStorePutReplacesAndLists(t *testing.T) {
	store := New()
	ctx := context.Background()
	first, err := store.Put(ctx, "libraries/default.yaml", strings.NewReader("v1"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := store.Put(ctx, "libraries/default.yaml", strings.NewReader("v2-longer"))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if first.ETag == second.ETag || second.Size != int64(len("v2-longer")) {
		t.Fatalf("expected replaced document metadata, got %+v", second)
	}
	if _, err := store.Put(ctx, "other.yaml", strings.NewReader("x")); err != nil {
		t.Fatalf("put other: %v", err)
	}

	_, rc, err := store.Get(ctx, "libraries/default.yaml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "v2-longer" {
		t.Fatalf("unexpected body %q", body)
	}

	list, err := store.List(ctx, "libraries/")
	if err != nil || len(list) != 1 {
		t.Fatalf("list prefix: %v %d", err, len(list))
	}
	if all, _ := store.List(ctx, ""); len(all) != 2 || all[0].Key != "libraries/default.yaml" {
		t.Fatalf("expected sorted listing, got %+v", all)
	}
	if ok, err := store.Delete(ctx, "other.yaml"); err != nil || !ok {
		t.Fatalf("expected delete true, got %v %v", ok, err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("fail") }

func TestStorePutReadErrorAndDriver(t *testing.T) {
	store := New()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
	if _, err := store.Put(context.Background(), "bad", failingReader{}); err == nil {
		t.Fatalf("expected read error")
	}
}
