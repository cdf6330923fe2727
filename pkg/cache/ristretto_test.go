package cache

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()
	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNewRistrettoCache_Validation(t *testing.T) {
	if _, err := NewRistrettoCache(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewRistrettoCache(&RistrettoConfig{NumCounters: 10, MaxCost: 10, BufferItems: 64}); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestRistrettoCache(t *testing.T) {
	c := newTestCache(t)

	t.Run("set-and-get", func(t *testing.T) {
		if !c.Set(KindOdds, "0xe1", "snapshot", time.Hour) {
			t.Fatal("expected Set to succeed")
		}
		c.Wait()

		got, found := c.Get(KindOdds, "0xe1")
		if !found {
			t.Fatal("expected key to be found")
		}
		if got != "snapshot" {
			t.Errorf("expected %q, got %v", "snapshot", got)
		}
	})

	t.Run("kinds-are-namespaced", func(t *testing.T) {
		c.Set(KindHype, "0xe2", 1, time.Hour)
		c.Wait()

		if _, found := c.Get(KindMatch, "0xe2"); found {
			t.Error("expected match lookup to miss a hype snapshot")
		}
	})

	t.Run("delete", func(t *testing.T) {
		c.Set(KindMatch, "0xe3", 2, time.Hour)
		c.Wait()
		c.Delete(KindMatch, "0xe3")

		if _, found := c.Get(KindMatch, "0xe3"); found {
			t.Error("expected key to be deleted")
		}
	})

	t.Run("ttl-expiry", func(t *testing.T) {
		c.Set(KindOdds, "0xe4", 3, 50*time.Millisecond)
		c.Wait()
		time.Sleep(100 * time.Millisecond)

		if _, found := c.Get(KindOdds, "0xe4"); found {
			t.Error("expected key to expire")
		}
	})

	t.Run("clear", func(t *testing.T) {
		c.Set(KindOdds, "0xe5", 4, time.Hour)
		c.Wait()
		c.Clear()

		if _, found := c.Get(KindOdds, "0xe5"); found {
			t.Error("expected cache to be empty after Clear")
		}
	})
}

func TestRistrettoCache_Metrics(t *testing.T) {
	c := newTestCache(t)

	before := testutil.ToFloat64(MissesTotal.WithLabelValues(string(KindHype)))
	c.Get(KindHype, "missing")
	after := testutil.ToFloat64(MissesTotal.WithLabelValues(string(KindHype)))

	if after != before+1 {
		t.Errorf("expected miss counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestKey(t *testing.T) {
	if got := Key(KindOdds, "0xabc"); got != "odds:0xabc" {
		t.Errorf("unexpected key %q", got)
	}
}
