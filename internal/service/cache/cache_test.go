package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	c, err := NewCacheService(CacheConfig{Addr: mr.Addr()}, nil)
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

type probe struct {
	Move string `json:"move"`
	CP   int    `json:"cp"`
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", probe{Move: "e2e4", CP: 34}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got probe
	if err := c.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Move != "e2e4" || got.CP != 34 {
		t.Fatalf("got %+v", got)
	}
}

func TestCacheMissLeavesDestUntouched(t *testing.T) {
	c, _ := newTestCache(t)

	got := probe{Move: "sentinel"}
	if err := c.Get(context.Background(), "absent", &got); err != nil {
		t.Fatalf("Get miss: %v", err)
	}
	if got.Move != "sentinel" {
		t.Fatalf("miss overwrote destination: %+v", got)
	}
}

func TestCacheTTLExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", probe{Move: "e2e4"}, time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(2 * time.Second)

	var got probe
	if err := c.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Get after expiry: %v", err)
	}
	if got.Move != "" {
		t.Fatalf("expired key still served: %+v", got)
	}
}

func TestCacheDel(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", probe{Move: "e2e4"}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}

	var got probe
	if err := c.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Get after del: %v", err)
	}
	if got.Move != "" {
		t.Fatalf("deleted key still served: %+v", got)
	}
}
