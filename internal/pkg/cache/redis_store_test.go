package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/lottosage/lottosage/internal/pkg/models"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rs, err := NewRedisStore(mr.Addr(), "", 0, ttl)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(func() { rs.Close() })
	return rs
}

func TestRedisStoreRoundtrip(t *testing.T) {
	rs := newTestRedisStore(t, time.Hour)

	in := testPayload{Period: "23102", Value: 7}
	if err := rs.Save(models.GameDLT, KindLatest, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var out testPayload
	ok, err := rs.Load(models.GameDLT, KindLatest, &out)
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v; want true, nil", ok, err)
	}
	if out != in {
		t.Errorf("Load() = %+v, want %+v", out, in)
	}
	if !rs.IsValid(models.GameDLT, KindLatest) {
		t.Error("IsValid() = false for a fresh entry")
	}
}

func TestRedisStoreStaleReadable(t *testing.T) {
	rs := newTestRedisStore(t, time.Hour)

	saved := time.Date(2023, 9, 7, 12, 0, 0, 0, time.UTC)
	rs.now = func() time.Time { return saved }
	if err := rs.Save(models.GameSSQ, KindLatest, testPayload{Period: "23102"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rs.now = func() time.Time { return saved.Add(time.Hour) }
	if rs.IsValid(models.GameSSQ, KindLatest) {
		t.Error("IsValid() = true at the exact TTL boundary")
	}
	var out testPayload
	ok, err := rs.Load(models.GameSSQ, KindLatest, &out)
	if err != nil || !ok || out.Period != "23102" {
		t.Errorf("stale Load() = %v, %v, %+v; want readable entry", ok, err, out)
	}
}

func TestRedisStoreMissingKey(t *testing.T) {
	rs := newTestRedisStore(t, time.Hour)

	var out testPayload
	ok, err := rs.Load(models.GameSSQ, "nothing", &out)
	if err != nil {
		t.Fatalf("Load() missing key error = %v", err)
	}
	if ok {
		t.Error("Load() missing key = true, want false")
	}
	if rs.IsValid(models.GameSSQ, "nothing") {
		t.Error("IsValid() missing key = true")
	}
}

func TestRedisStoreClearExpired(t *testing.T) {
	rs := newTestRedisStore(t, time.Hour)

	saved := time.Date(2023, 9, 7, 12, 0, 0, 0, time.UTC)
	rs.now = func() time.Time { return saved }
	if err := rs.Save(models.GameSSQ, HistoryKind(30), testPayload{Period: "old"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rs.now = func() time.Time { return saved.Add(2 * time.Hour) }
	if err := rs.Save(models.GameSSQ, KindLatest, testPayload{Period: "fresh"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := rs.ClearExpired(); err != nil {
		t.Fatalf("ClearExpired() error = %v", err)
	}

	var out testPayload
	if ok, _ := rs.Load(models.GameSSQ, HistoryKind(30), &out); ok {
		t.Error("expired entry survived ClearExpired()")
	}
	if !rs.IsValid(models.GameSSQ, KindLatest) {
		t.Error("fresh entry removed by ClearExpired()")
	}
}

func TestRedisStoreClearAll(t *testing.T) {
	rs := newTestRedisStore(t, time.Hour)

	for _, game := range models.AllGames {
		if err := rs.Save(game, KindLatest, testPayload{Period: "x"}); err != nil {
			t.Fatalf("Save(%s) error = %v", game, err)
		}
	}

	if err := rs.ClearAll(models.GameDLT); err != nil {
		t.Fatalf("ClearAll(dlt) error = %v", err)
	}
	var out testPayload
	if ok, _ := rs.Load(models.GameDLT, KindLatest, &out); ok {
		t.Error("dlt entry survived ClearAll(dlt)")
	}
	if ok, _ := rs.Load(models.GameSSQ, KindLatest, &out); !ok {
		t.Error("ssq entry removed by ClearAll(dlt)")
	}
}
