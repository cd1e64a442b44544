package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLimiterAllowSlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	limiter := Limiter{Client: client, Prefix: "test:"}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "checkout:alice", time.Minute, 3)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("hit %d should be allowed", i)
		}
		if want := 3 - (i + 1); remaining != want {
			t.Fatalf("hit %d remaining = %d, want %d", i, remaining, want)
		}
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "checkout:alice", time.Minute, 3)
	if err != nil {
		t.Fatalf("allow overflow: %v", err)
	}
	if allowed {
		t.Fatal("fourth hit should be rejected")
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
}

func TestLimiterWindowExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	now := time.Now()
	limiter := Limiter{Client: client, Prefix: "test:", Now: func() time.Time { return now }}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if allowed, _, _, err := limiter.Allow(ctx, "login:1.2.3.4", time.Minute, 2); err != nil || !allowed {
			t.Fatalf("warmup hit %d: allowed=%v err=%v", i, allowed, err)
		}
	}
	if allowed, _, _, _ := limiter.Allow(ctx, "login:1.2.3.4", time.Minute, 2); allowed {
		t.Fatal("expected rejection at the limit")
	}

	// Old entries fall out once the clock moves past the window.
	now = now.Add(2 * time.Minute)
	allowed, remaining, _, err := limiter.Allow(ctx, "login:1.2.3.4", time.Minute, 2)
	if err != nil {
		t.Fatalf("allow after expiry: %v", err)
	}
	if !allowed {
		t.Fatal("expected hit to be allowed after window rolled")
	}
	if remaining != 1 {
		t.Fatalf("remaining = %d, want 1", remaining)
	}
}

func TestLimiterDisabledWithoutClient(t *testing.T) {
	limiter := Limiter{}
	allowed, _, _, err := limiter.Allow(context.Background(), "x", time.Minute, 5)
	if err != nil || !allowed {
		t.Fatalf("nil client should allow, got allowed=%v err=%v", allowed, err)
	}
}
