package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_SetGetDelete(t *testing.T) {
	store := NewStore(time.Minute)
	ctx := context.Background()

	if _, ok := store.Get(ctx, "missing"); ok {
		t.Fatalf("expected miss for unknown key")
	}

	store.Set(ctx, "key", "value")
	got, ok := store.Get(ctx, "key")
	if !ok || got != "value" {
		t.Fatalf("expected cached value, got %v ok=%v", got, ok)
	}

	store.Delete(ctx, "key")
	if _, ok := store.Get(ctx, "key"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestStore_DisabledWhenTTLNonPositive(t *testing.T) {
	store := NewStore(0)
	ctx := context.Background()

	store.Set(ctx, "key", "value")
	if _, ok := store.Get(ctx, "key"); ok {
		t.Fatalf("expected storage disabled with zero ttl")
	}

	// GetOrLoad still works, it just loads every time.
	calls := 0
	for i := 0; i < 2; i++ {
		got, err := store.GetOrLoad(ctx, "key", func(context.Context) (any, error) {
			calls++
			return "loaded", nil
		})
		if err != nil || got != "loaded" {
			t.Fatalf("unexpected load result: %v err=%v", got, err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected loader called per read when disabled, got %d", calls)
	}
}

func TestStore_ExpiredEntriesAreMisses(t *testing.T) {
	store := NewStore(time.Nanosecond)
	ctx := context.Background()

	store.Set(ctx, "key", "value")
	time.Sleep(time.Millisecond)
	if _, ok := store.Get(ctx, "key"); ok {
		t.Fatalf("expected expired entry evicted")
	}
}

func TestStore_GetOrLoad_CachesFirstResult(t *testing.T) {
	store := NewStore(time.Minute)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return "loaded", nil
	}
	for i := 0; i < 3; i++ {
		got, err := store.GetOrLoad(ctx, "key", loader)
		if err != nil || got != "loaded" {
			t.Fatalf("unexpected load result: %v err=%v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single load, got %d", calls)
	}

	if _, err := store.GetOrLoad(ctx, "boom", func(context.Context) (any, error) {
		return nil, fmt.Errorf("load failed")
	}); err == nil {
		t.Fatalf("expected loader error surfaced")
	}
	if _, ok := store.Get(ctx, "boom"); ok {
		t.Fatalf("expected failed load not cached")
	}
}

func TestStore_GetOrLoad_CollapsesConcurrentLoads(t *testing.T) {
	store := NewStore(time.Minute)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "loaded", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.GetOrLoad(ctx, "key", loader)
			if err != nil || got != "loaded" {
				t.Errorf("unexpected load result: %v err=%v", got, err)
			}
		}()
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected concurrent loads collapsed into one, got %d", got)
	}
}

func TestStore_DeletePrefix(t *testing.T) {
	store := NewStore(time.Minute)
	ctx := context.Background()

	store.Set(ctx, "leaderboard:org-1:event-1", 1)
	store.Set(ctx, "leaderboard:org-1:event-2", 2)
	store.Set(ctx, "leaderboard:org-2:event-1", 3)

	store.DeletePrefix(ctx, "leaderboard:org-1:")
	if _, ok := store.Get(ctx, "leaderboard:org-1:event-1"); ok {
		t.Fatalf("expected org-1 entries dropped")
	}
	if _, ok := store.Get(ctx, "leaderboard:org-1:event-2"); ok {
		t.Fatalf("expected org-1 entries dropped")
	}
	if _, ok := store.Get(ctx, "leaderboard:org-2:event-1"); !ok {
		t.Fatalf("expected other org entries kept")
	}
}
