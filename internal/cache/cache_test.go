package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func newCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRedis(rdb, "test:", ttl)
}

func TestGet_Miss(t *testing.T) {
	_, c := newCache(t, time.Minute)
	var got []item
	ok, err := c.Get(context.Background(), "missing", &got)
	if err != nil || ok {
		t.Fatalf("want miss, got ok=%v err=%v", ok, err)
	}
}

func TestSetGetDelete(t *testing.T) {
	mr, c := newCache(t, time.Minute)
	ctx := context.Background()

	in := []item{{ID: "1", Title: "Parasetamol"}, {ID: "2", Title: "İbuprofen"}}
	if err := c.Set(ctx, "drug", in); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:drug") {
		t.Fatal("key must carry the prefix")
	}
	if ttl := mr.TTL("test:drug"); ttl != time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	var got []item
	ok, err := c.Get(ctx, "drug", &got)
	if err != nil || !ok {
		t.Fatalf("want hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[1].Title != "İbuprofen" {
		t.Fatalf("got %+v", got)
	}

	if err := c.Delete(ctx, "drug", "never-set"); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("test:drug") {
		t.Fatal("key should be gone")
	}
	if err := c.Delete(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestGet_CorruptValue(t *testing.T) {
	mr, c := newCache(t, time.Minute)
	if err := mr.Set("test:bad", "{not json"); err != nil {
		t.Fatal(err)
	}
	var got []item
	ok, err := c.Get(context.Background(), "bad", &got)
	if err == nil || ok {
		t.Fatalf("want decode error, got ok=%v err=%v", ok, err)
	}
}

func TestGet_BackendError(t *testing.T) {
	mr, c := newCache(t, time.Minute)
	mr.SetError("ERR injected failure")
	var got []item
	if ok, err := c.Get(context.Background(), "x", &got); err == nil || ok {
		t.Fatalf("want backend error, got ok=%v err=%v", ok, err)
	}
}
