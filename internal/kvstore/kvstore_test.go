package kvstore

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetDel(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss for unset key, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("expected (v, true, nil), got (%q, %v, %v)", v, ok, err)
	}

	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("unexpected del error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	if err := s.Set(ctx, "k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("expected key to have expired")
	}
}

func TestMemoryHGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory().(*memory)
	m.HSet("trend_data", "BTC", []byte("up"))

	v, ok, err := m.HGet(ctx, "trend_data", "BTC")
	if err != nil || !ok || string(v) != "up" {
		t.Fatalf("expected (up, true, nil), got (%q, %v, %v)", v, ok, err)
	}
	if _, ok, _ := m.HGet(ctx, "trend_data", "ETH"); ok {
		t.Fatalf("expected miss for unset field")
	}
}

func TestMemoryListPushTrimsToMaxLen(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	for i := 0; i < 5; i++ {
		if err := s.ListPush(ctx, "ring", []byte{byte(i)}, 3); err != nil {
			t.Fatalf("unexpected push error: %v", err)
		}
	}
	n, err := s.ListLen(ctx, "ring")
	if err != nil || n != 3 {
		t.Fatalf("expected length 3 after trimming, got %d (err=%v)", n, err)
	}

	vals, err := s.ListRange(ctx, "ring", 0, -1)
	if err != nil {
		t.Fatalf("unexpected range error: %v", err)
	}
	if len(vals) != 3 || vals[0][0] != 2 || vals[2][0] != 4 {
		t.Fatalf("expected the oldest two entries dropped, got %v", vals)
	}
}

func TestMemoryListRangeEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	vals, err := s.ListRange(ctx, "nothing", 0, -1)
	if err != nil || len(vals) != 0 {
		t.Fatalf("expected empty range for unknown key, got %v (err=%v)", vals, err)
	}
}
