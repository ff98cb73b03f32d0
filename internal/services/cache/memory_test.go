package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRoundTrip(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if err := c.SetBytes(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	b, ok, err := c.GetBytes(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("GetBytes: ok=%v err=%v", ok, err)
	}
	if string(b) != "v" {
		t.Errorf("value = %q, want %q", b, "v")
	}
}

func TestMemoryMiss(t *testing.T) {
	c := NewMemory()
	_, ok, err := c.GetBytes(context.Background(), "absent")
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if ok {
		t.Errorf("hit on absent key")
	}
}

func TestMemoryExpiry(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if err := c.SetBytes(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := c.GetBytes(ctx, "k"); ok {
		t.Errorf("expired entry still readable")
	}
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if err := c.SetBytes(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if _, ok, _ := c.GetBytes(ctx, "k"); !ok {
		t.Errorf("zero-TTL entry evicted")
	}
}
