package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) Error(msg string, _ error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

// newBackend creates a cache for each backend that runs without external services.
func newBackend(t *testing.T, name string, cfg Options) Cache {
	t.Helper()
	if name == "sqlite" && cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(t.TempDir(), "cache", "identifiers.db")
	}
	c, err := New(name, cfg)
	if err != nil {
		t.Fatalf("New(%q): %v", name, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

var localBackends = []string{"memory", "sqlite"}

func TestCache_GetSet(t *testing.T) {
	ctx := context.Background()
	for _, name := range localBackends {
		t.Run(name, func(t *testing.T) {
			c := newBackend(t, name, Options{Size: 10, TTL: time.Hour})

			val, ok := c.Get(ctx, "movie|the matrix")
			if ok || val != nil {
				t.Fatalf("expected miss, got %q, %v", val, ok)
			}

			c.Set(ctx, "movie|the matrix", []byte("603"))
			val, ok = c.Get(ctx, "movie|the matrix")
			if !ok {
				t.Fatal("expected hit after Set")
			}
			if string(val) != "603" {
				t.Fatalf("expected 603, got %q", val)
			}
		})
	}
}

func TestCache_Overwrite(t *testing.T) {
	ctx := context.Background()
	for _, name := range localBackends {
		t.Run(name, func(t *testing.T) {
			c := newBackend(t, name, Options{Size: 10, TTL: time.Hour})

			c.Set(ctx, "key", []byte("v1"))
			c.Set(ctx, "key", []byte("v2"))

			val, ok := c.Get(ctx, "key")
			if !ok || string(val) != "v2" {
				t.Fatalf("expected v2, got %q (hit=%v)", val, ok)
			}
			if c.Len() != 1 {
				t.Fatalf("expected Len 1 after overwrite, got %d", c.Len())
			}
		})
	}
}

func TestCache_ContainsAndLen(t *testing.T) {
	ctx := context.Background()
	for _, name := range localBackends {
		t.Run(name, func(t *testing.T) {
			c := newBackend(t, name, Options{Size: 10, TTL: time.Hour})

			if c.Len() != 0 {
				t.Fatalf("expected Len 0, got %d", c.Len())
			}
			if c.Contains(ctx, "absent") {
				t.Fatal("absent key reported as present")
			}

			c.Set(ctx, "a", []byte("1"))
			c.Set(ctx, "b", []byte("2"))
			if !c.Contains(ctx, "a") {
				t.Fatal("expected a to be present")
			}
			if c.Len() != 2 {
				t.Fatalf("expected Len 2, got %d", c.Len())
			}
		})
	}
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	for _, name := range localBackends {
		t.Run(name, func(t *testing.T) {
			c := newBackend(t, name, Options{Size: 10, TTL: 50 * time.Millisecond})

			c.Set(ctx, "short", []byte("lived"))
			time.Sleep(150 * time.Millisecond)

			if _, ok := c.Get(ctx, "short"); ok {
				t.Fatal("expected expired entry to miss")
			}
			if c.Contains(ctx, "short") {
				t.Fatal("expected expired entry to be absent")
			}
		})
	}
}

func TestCache_Eviction(t *testing.T) {
	ctx := context.Background()
	for _, name := range localBackends {
		t.Run(name, func(t *testing.T) {
			var evicted []string
			onEvict := func(key string, _ []byte) {
				evicted = append(evicted, key)
			}
			c := newBackend(t, name, Options{Size: 2, TTL: time.Hour, OnEvict: onEvict})

			c.Set(ctx, "a", []byte("1"))
			time.Sleep(2 * time.Millisecond)
			c.Set(ctx, "b", []byte("2"))
			time.Sleep(2 * time.Millisecond)
			c.Set(ctx, "c", []byte("3"))

			if len(evicted) != 1 || evicted[0] != "a" {
				t.Fatalf("expected eviction of a, got %v", evicted)
			}
			if c.Contains(ctx, "a") {
				t.Fatal("evicted key a still present")
			}
			if !c.Contains(ctx, "b") || !c.Contains(ctx, "c") {
				t.Fatal("keys b and c should still be present")
			}
		})
	}
}

func TestSQLiteCache_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ids.db")

	first, err := New("sqlite", Options{Size: 10, TTL: time.Hour, SQLitePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first.Set(ctx, "show|dark", []byte("70523"))
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := newBackend(t, "sqlite", Options{Size: 10, TTL: time.Hour, SQLitePath: path})
	val, ok := second.Get(ctx, "show|dark")
	if !ok || string(val) != "70523" {
		t.Fatalf("expected persisted value 70523, got %q (hit=%v)", val, ok)
	}
}

func TestSQLiteCache_RequiresPath(t *testing.T) {
	if _, err := New("sqlite", Options{Size: 10}); err == nil {
		t.Fatal("expected error without a database path")
	}
}

func TestSQLiteCache_ClosedDatabaseReportsToLogger(t *testing.T) {
	logger := &recordingLogger{}
	c, err := New("sqlite", Options{
		Size:       10,
		TTL:        time.Hour,
		SQLitePath: filepath.Join(t.TempDir(), "ids.db"),
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = c.Close()

	if _, ok := c.Get(context.Background(), "x"); ok {
		t.Fatal("expected miss on closed database")
	}
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.msgs) == 0 {
		t.Fatal("expected backend error to be logged")
	}
}
