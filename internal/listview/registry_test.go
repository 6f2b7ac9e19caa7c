package listview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"orphanadmin/internal/application"
	"orphanadmin/internal/query"
)

func TestRegistryOpenGetClose(t *testing.T) {
	store := NewMemoryStateStore()
	r := NewRegistry(application.NewInMemory(), nil, store, nil)
	ctx := context.Background()

	v, err := r.Open(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, "bob", v.ID); !errors.Is(err, ErrViewNotFound) {
		t.Fatalf("foreign owner: %v", err)
	}
	got, err := r.Get(ctx, "alice", v.ID)
	if err != nil || got != v {
		t.Fatalf("get: %v %v", got, err)
	}

	if _, err := v.Apply(ctx, func(s query.State) query.State { return query.SetPageSize(s, 50) }); err != nil {
		t.Fatal(err)
	}
	rec, err := store.Load(ctx, v.ID)
	if err != nil || rec.State.Size != 50 {
		t.Fatalf("state not persisted: %+v %v", rec, err)
	}

	if err := r.Close(ctx, "alice", v.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, "alice", v.ID); !errors.Is(err, ErrViewNotFound) {
		t.Fatalf("after close: %v", err)
	}
}

func TestRegistryRestoresFromStore(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()
	first := NewRegistry(application.NewInMemory(), nil, store, nil)
	v, _ := first.Open(ctx, "alice")
	_, _ = v.Apply(ctx, func(s query.State) query.State { return query.SetSort(s, query.SortByFullName) })

	second := NewRegistry(application.NewInMemory(), nil, store, nil)
	restored, err := second.Get(ctx, "alice", v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if restored.State().SortField != query.SortByFullName {
		t.Fatalf("state not restored: %+v", restored.State())
	}
}

func TestEvictAndJanitor(t *testing.T) {
	r := NewRegistry(application.NewInMemory(), nil, nil, nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	ctx := context.Background()

	old, _ := r.Open(ctx, "alice")
	now = now.Add(2 * time.Hour)
	fresh, _ := r.Open(ctx, "alice")

	j := NewJanitor(r, time.Minute, time.Hour)
	if n := j.RunOnce(ctx); n != 1 {
		t.Fatalf("evicted %d", n)
	}
	if _, err := r.Get(ctx, "alice", old.ID); !errors.Is(err, ErrViewNotFound) {
		t.Fatalf("old view survived: %v", err)
	}
	if _, err := r.Get(ctx, "alice", fresh.ID); err != nil {
		t.Fatalf("fresh view evicted: %v", err)
	}
}

type fakeRedis struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttl[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStateStore(t *testing.T) {
	f := &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
	s := NewRedisStateStore(f, "test:", 30*time.Minute)
	ctx := context.Background()

	st := query.SetFilter(query.Default(), query.FilterDistrict, "Khulna")
	if err := s.Save(ctx, Record{ID: "v1", Owner: "alice", State: st}); err != nil {
		t.Fatal(err)
	}
	if f.ttl["test:v1"] != 30*time.Minute {
		t.Fatalf("ttl: %v", f.ttl["test:v1"])
	}
	rec, err := s.Load(ctx, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Owner != "alice" || !rec.State.Equal(st) {
		t.Fatalf("loaded %+v", rec)
	}
	if err := s.Delete(ctx, "v1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "v1"); !errors.Is(err, ErrViewNotFound) {
		t.Fatalf("expected ErrViewNotFound, got %v", err)
	}
}
