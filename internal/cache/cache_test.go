package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	var got entry
	if ok, err := c.Get(ctx, "missing", &got); ok || err != nil {
		t.Fatalf("Get(missing) ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "a", entry{Name: "Ali", Count: 2}); err != nil {
		t.Fatal(err)
	}
	if ok, err := c.Get(ctx, "a", &got); !ok || err != nil {
		t.Fatalf("Get(a) ok=%v err=%v", ok, err)
	}
	if got.Name != "Ali" || got.Count != 2 {
		t.Fatalf("got=%+v", got)
	}
	_ = c.Delete(ctx, "a")
	if ok, _ := c.Get(ctx, "a", &got); ok {
		t.Fatal("entry survived Delete")
	}
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(30 * time.Millisecond)
	_ = c.Set(ctx, "k", 1)
	time.Sleep(80 * time.Millisecond)
	var v int
	if ok, _ := c.Get(ctx, "k", &v); ok {
		t.Fatal("entry outlived its ttl")
	}
}

func TestInvalidateDriverClearsAffectedKeys(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	keys := []string{
		DriverKey("D1"),
		SearchKey("ali", false),
		SearchKey("sam", true),
		KeyDriverSummaries,
		KeyTotals,
		KeyDeliveries,
	}
	for _, k := range keys {
		_ = c.Set(ctx, k, 1)
	}
	_ = c.Set(ctx, DriverKey("D2"), 1)

	InvalidateDriver(ctx, c, "D1")

	var v int
	for _, k := range keys {
		if ok, _ := c.Get(ctx, k, &v); ok {
			t.Fatalf("%s survived invalidation", k)
		}
	}
	if ok, _ := c.Get(ctx, DriverKey("D2"), &v); !ok {
		t.Fatal("unrelated driver entry was dropped")
	}
}

func TestSearchKeyFoldsCase(t *testing.T) {
	if SearchKey(" ALI ", false) != SearchKey("ali", false) {
		t.Fatal("search keys should be case-insensitive")
	}
	if SearchKey("ali", false) == SearchKey("ali", true) {
		t.Fatal("single and list search must not share a key")
	}
}

func TestRememberLoadsOnce(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	calls := 0
	load := func() (entry, error) {
		calls++
		return entry{Name: "x", Count: calls}, nil
	}
	for i := 0; i < 3; i++ {
		v, err := Remember(ctx, c, "k", load)
		if err != nil {
			t.Fatal(err)
		}
		if v.Count != 1 {
			t.Fatalf("call %d returned %+v", i, v)
		}
	}
	if calls != 1 {
		t.Fatalf("loader called %d times", calls)
	}
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	boom := errors.New("boom")
	if _, err := Remember(ctx, c, "k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	v, err := Remember(ctx, c, "k", func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("v=%d err=%v", v, err)
	}
}

func TestNopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Cache = Nop{}
	_ = c.Set(ctx, "k", 1)
	var v int
	if ok, _ := c.Get(ctx, "k", &v); ok {
		t.Fatal("Nop returned a hit")
	}
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("set REDIS_ADDRESS to run redis tests")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisCache(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()
	c := NewRedis(rdb, time.Minute)

	_ = c.Set(ctx, DriverKey("RT1"), entry{Name: "A"})
	_ = c.Set(ctx, SearchKey("redis-test", false), entry{Name: "B"})

	var got entry
	if ok, err := c.Get(ctx, DriverKey("RT1"), &got); !ok || err != nil || got.Name != "A" {
		t.Fatalf("ok=%v err=%v got=%+v", ok, err, got)
	}
	InvalidateDriver(ctx, c, "RT1")
	if ok, _ := c.Get(ctx, DriverKey("RT1"), &got); ok {
		t.Fatal("driver key survived invalidation")
	}
	if ok, _ := c.Get(ctx, SearchKey("redis-test", false), &got); ok {
		t.Fatal("search key survived invalidation")
	}
}

func TestRedisLockerSerialises(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()
	l := NewRedisLocker(rdb, 200*time.Millisecond)

	unlock, err := l.Lock(ctx, "RT-lock")
	if err != nil {
		t.Fatal(err)
	}
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(short, "RT-lock"); err == nil {
		t.Fatal("second Lock succeeded while held")
	}
	unlock()
	unlock2, err := l.Lock(ctx, "RT-lock")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	unlock2()
}
