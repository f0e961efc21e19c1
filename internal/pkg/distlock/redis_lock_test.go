package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func TestRedisLockMutualExclusion(t *testing.T) {
	client, _ := testClient(t)
	ctx := context.Background()

	a := NewRedisLock(client, "campaign-edit:c1", time.Minute)
	b := NewRedisLock(client, "campaign-edit:c1", time.Minute)

	ok, err := a.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, _ := b.Acquire(ctx); ok {
		t.Fatal("second holder must not acquire a held lock")
	}

	if err := a.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := b.Acquire(ctx); !ok {
		t.Fatal("released lock must be acquirable")
	}
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	client, mr := testClient(t)
	ctx := context.Background()

	a := NewRedisLock(client, "campaign-edit:c2", time.Minute)
	b := NewRedisLock(client, "campaign-edit:c2", time.Minute)

	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}
	// b never acquired; releasing must not free a's lock.
	if err := b.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !mr.Exists("lock:campaign-edit:c2") {
		t.Fatal("foreign release must not remove the key")
	}
}

func TestRedisLockExpires(t *testing.T) {
	client, mr := testClient(t)
	ctx := context.Background()

	a := NewRedisLock(client, "campaign-edit:c3", time.Second)
	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}
	mr.FastForward(2 * time.Second)

	b := NewRedisLock(client, "campaign-edit:c3", time.Minute)
	if ok, _ := b.Acquire(ctx); !ok {
		t.Fatal("expired lock must be acquirable")
	}
}

func TestRedisLockExtend(t *testing.T) {
	client, mr := testClient(t)
	ctx := context.Background()

	a := NewRedisLock(client, "campaign-edit:c4", time.Second)
	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}
	if err := a.Extend(ctx, time.Minute); err != nil {
		t.Fatalf("extend: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if !mr.Exists("lock:campaign-edit:c4") {
		t.Fatal("extended lock must outlive the original TTL")
	}
}
