package cache

import (
	"context"
	"testing"
)

func byLength(_ string, v string) int64 {
	return int64(len(v))
}

func TestWeightedEvictsByWeight(t *testing.T) {
	c := NewWeighted[string, string](10, byLength)
	c.Add("a", "aaaa")
	c.Add("b", "bbbb")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be cached")
	}

	// a was used more recently than b, so b goes first.
	c.Add("c", "cccc")
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if got := c.Weight(); got != 8 {
		t.Errorf("Weight() = %d, want 8", got)
	}
	if got := c.Evictions(); got != 1 {
		t.Errorf("Evictions() = %d, want 1", got)
	}
}

func TestWeightedReplaceAdjustsWeight(t *testing.T) {
	c := NewWeighted[string, string](100, byLength)
	c.Add("a", "aaaa")
	c.Add("a", "aa")

	if got := c.Weight(); got != 2 {
		t.Errorf("Weight() = %d, want 2", got)
	}
	if got := c.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	c.Remove("a")
	if got := c.Weight(); got != 0 {
		t.Errorf("Weight() after Remove = %d, want 0", got)
	}
}

func TestWeightedDropsOversizedEntry(t *testing.T) {
	c := NewWeighted[string, string](3, byLength)
	c.Add("big", "too large")
	if _, ok := c.Get("big"); ok {
		t.Error("expected oversized entry to be evicted")
	}
	if got := c.Weight(); got != 0 {
		t.Errorf("Weight() = %d, want 0", got)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("Get() on empty store = %v, %v", ok, err)
	}

	value := []byte("v1")
	if err := s.Set(ctx, "k", value); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value[0] = 'x'

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if string(got) != "v1" {
		t.Errorf("Get() = %q, want %q", got, "v1")
	}
}
