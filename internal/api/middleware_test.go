package api

import (
	"testing"
	"time"
)

func TestLimiterRegistry(t *testing.T) {
	reg := newLimiterRegistry(1, 1, time.Minute)

	t.Run("burst enforced per client", func(t *testing.T) {
		if !reg.allow("10.0.0.1") {
			t.Fatal("first request rejected")
		}
		if reg.allow("10.0.0.1") {
			t.Error("second request allowed past a burst of 1")
		}
		if !reg.allow("10.0.0.2") {
			t.Error("other client rejected by a foreign bucket")
		}
	})

	t.Run("idle buckets evicted", func(t *testing.T) {
		if n := reg.evict(time.Now()); n != 0 {
			t.Errorf("evicted %d active buckets", n)
		}
		if n := reg.evict(time.Now().Add(2 * time.Minute)); n != 2 {
			t.Errorf("evicted %d buckets, want 2", n)
		}
		// Eviction resets the bucket, so the client gets a fresh burst.
		if !reg.allow("10.0.0.1") {
			t.Error("request rejected after eviction")
		}
	})
}
