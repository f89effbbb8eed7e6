package cache

import (
	"context"
	"testing"
	"time"
)

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New("nonexistent", Options{})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestFactory_New_DefaultSize(t *testing.T) {
	c, err := New("memory", Options{TTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set(context.Background(), "k", []byte("v"))
	if _, ok := c.Get(context.Background(), "k"); !ok {
		t.Fatal("cache created without a size should still store entries")
	}
}

func TestBackends_Sorted(t *testing.T) {
	names := Backends()

	want := []string{"memory", "redis", "sqlite"}
	if len(names) != len(want) {
		t.Fatalf("Backends() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Backends() = %v, want sorted %v", names, want)
		}
	}
}

func TestFactory_Register_Duplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when registering memory twice")
		}
	}()
	Register("memory", openMemory)
}

func TestFactory_New_Redis_InvalidAddress(t *testing.T) {
	_, err := New("redis", Options{
		Size:         100,
		TTL:          time.Hour,
		RedisAddress: "localhost:59999",
	})
	if err == nil {
		t.Fatal("Expected error when connecting to invalid Redis address")
	}
}
