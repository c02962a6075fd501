package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type slotView struct {
	ID        string `json:"id"`
	Available bool   `json:"available"`
}

func newLayer(t *testing.T) (*Layer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLayer(NewRedis(rdb), time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestFetchEntityReadsThrough(t *testing.T) {
	l, _ := newLayer(t)
	ctx := context.Background()
	loads := 0
	load := func(context.Context) (slotView, error) {
		loads++
		return slotView{ID: "s1", Available: true}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := FetchEntity(ctx, l, SlotScope("s1"), load)
		if err != nil || v.ID != "s1" {
			t.Fatalf("unexpected %+v %v", v, err)
		}
	}
	if loads != 1 {
		t.Fatalf("expected a single store load, got %d", loads)
	}

	l.Invalidate(ctx, SlotScope("s1"))
	if _, err := FetchEntity(ctx, l, SlotScope("s1"), load); err != nil {
		t.Fatal(err)
	}
	if loads != 2 {
		t.Fatalf("invalidation must force a reload, got %d loads", loads)
	}
}

func TestConcurrentMissesShareOneLoad(t *testing.T) {
	l, _ := newLayer(t)
	ctx := context.Background()
	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (slotView, error) {
		loads.Add(1)
		<-release
		return slotView{ID: "s2", Available: true}, nil
	}

	const n = 8
	var wg sync.WaitGroup
	got := make([]slotView, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = FetchEntity(ctx, l, SlotScope("s2"), load)
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if c := loads.Load(); c != 1 {
		t.Fatalf("expected one shared load, got %d", c)
	}
	for i, v := range got {
		if v.ID != "s2" {
			t.Fatalf("caller %d got %+v", i, v)
		}
	}
}

func TestInvalidateDropsSupersededEntry(t *testing.T) {
	l, mr := newLayer(t)
	ctx := context.Background()
	_, _ = FetchEntity(ctx, l, SlotScope("s1"), func(context.Context) (slotView, error) { return slotView{ID: "s1"}, nil })
	if !mr.Exists("slotbook:slot:s1|slot:s1=0") {
		t.Fatalf("expected entry to be cached, keys: %v", mr.Keys())
	}
	l.Invalidate(ctx, SlotScope("s1"))
	if mr.Exists("slotbook:slot:s1|slot:s1=0") {
		t.Fatal("superseded entry should be deleted")
	}
	if ttl := mr.TTL("slotbook:v:slot:s1"); ttl <= 0 {
		t.Fatalf("version key must carry a ttl, got %s", ttl)
	}
}

func TestLoadRacingWithInvalidationIsNotServed(t *testing.T) {
	l, _ := newLayer(t)
	ctx := context.Background()
	scopes := []Scope{ConsultantSlotsScope("c1")}

	// The load observes pre-write data while the write commits and invalidates.
	stale, err := Fetch(ctx, l, "slots:list", scopes, func(ctx context.Context) ([]slotView, error) {
		l.Invalidate(ctx, scopes...)
		return []slotView{{ID: "s1", Available: true}}, nil
	})
	if err != nil || len(stale) != 1 {
		t.Fatalf("unexpected %v %v", stale, err)
	}

	fresh, err := Fetch(ctx, l, "slots:list", scopes, func(context.Context) ([]slotView, error) {
		return []slotView{{ID: "s1", Available: false}}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if fresh[0].Available {
		t.Fatal("entry written by the racing load was served after invalidation")
	}
}

func TestCacheFailureIsBypassed(t *testing.T) {
	l, mr := newLayer(t)
	mr.Close()
	ctx := context.Background()
	v, err := FetchEntity(ctx, l, SlotScope("s1"), func(context.Context) (slotView, error) {
		return slotView{ID: "s1"}, nil
	})
	if err != nil || v.ID != "s1" {
		t.Fatalf("cache outage must not fail reads: %+v %v", v, err)
	}
	l.Invalidate(ctx, SlotScope("s1"))
}

func TestLoadErrorIsNotCached(t *testing.T) {
	l, _ := newLayer(t)
	ctx := context.Background()
	boom := errors.New("db down")
	if _, err := FetchEntity(ctx, l, SlotScope("s1"), func(context.Context) (slotView, error) {
		return slotView{}, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	v, err := FetchEntity(ctx, l, SlotScope("s1"), func(context.Context) (slotView, error) {
		return slotView{ID: "s1"}, nil
	})
	if err != nil || v.ID != "s1" {
		t.Fatalf("unexpected %+v %v", v, err)
	}
}

func TestNopAlwaysMisses(t *testing.T) {
	l := NewLayer(nil, 0, nil)
	loads := 0
	for i := 0; i < 2; i++ {
		_, _ = FetchEntity(context.Background(), l, SlotScope("s1"), func(context.Context) (int, error) {
			loads++
			return 1, nil
		})
	}
	if loads != 2 {
		t.Fatalf("nop cache should load every time, got %d", loads)
	}
}
