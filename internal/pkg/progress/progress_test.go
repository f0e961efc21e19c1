package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/progress"
)

func testCache(t *testing.T) (*progress.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return progress.NewCache(client, time.Minute), mr
}

func TestSetGetRoundTrip(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "camp-1", progress.New(2500, 1000)); err != nil {
		t.Fatalf("set: %v", err)
	}

	p, ok, err := c.Get(ctx, "camp-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if p.Total != 2500 || p.Processed != 1000 || p.Percent != 40 {
		t.Fatalf("unexpected progress: %+v", p)
	}
}

func TestGetMissing(t *testing.T) {
	c, _ := testCache(t)
	if _, ok, err := c.Get(context.Background(), "nope"); ok || err != nil {
		t.Fatalf("missing key should be (false, nil), got ok=%v err=%v", ok, err)
	}
}

func TestKeyExpires(t *testing.T) {
	c, mr := testCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "camp-2", progress.New(10, 10)); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, ok, _ := c.Get(ctx, "camp-2"); ok {
		t.Fatal("progress should expire with the key TTL")
	}
}

func TestPercentZeroTotal(t *testing.T) {
	if p := progress.New(0, 0); p.Percent != 0 {
		t.Fatalf("zero total must not divide: %+v", p)
	}
}
