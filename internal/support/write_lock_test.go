package support

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNewRedisWriteLockDefaults(t *testing.T) {
	lock := NewRedisWriteLock(nil, 0, -time.Second)
	if lock.ttl != DefaultWriteLockTTL {
		t.Fatalf("ttl = %v, want %v", lock.ttl, DefaultWriteLockTTL)
	}
	if lock.wait != DefaultWriteLockWait {
		t.Fatalf("wait = %v, want %v", lock.wait, DefaultWriteLockWait)
	}
}

func TestRedisWriteLockWithoutClient(t *testing.T) {
	lock := NewRedisWriteLock(nil, time.Second, time.Second)
	if _, err := lock.Lock(context.Background(), "extfilter:test"); err == nil {
		t.Fatal("expected error when no redis client is configured")
	}
}

func TestGetRedisClientDisabled(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	if err := CloseRedisClient(); err != nil {
		t.Fatalf("CloseRedisClient: %v", err)
	}

	client, err := GetRedisClient()
	if !errors.Is(err, ErrRedisDisabled) {
		t.Fatalf("GetRedisClient error = %v, want ErrRedisDisabled", err)
	}
	if client != nil {
		t.Fatal("expected nil client when redis is disabled")
	}
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func TestRedisWriteLock_SetsTTLAndReleases(t *testing.T) {
	server, client := newMiniredisClient(t)
	lock := NewRedisWriteLock(client, 3*time.Second, time.Second)

	unlock, err := lock.Lock(context.Background(), "extfilter:test")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !server.Exists("extfilter:test") {
		t.Fatal("lock key was not written")
	}
	if ttl := server.TTL("extfilter:test"); ttl != 3*time.Second {
		t.Fatalf("lock ttl = %v, want 3s", ttl)
	}

	unlock()
	unlock()
	if server.Exists("extfilter:test") {
		t.Fatal("lock key still present after unlock")
	}
}

func TestRedisWriteLock_SecondHolderWaitsForRelease(t *testing.T) {
	_, client := newMiniredisClient(t)
	lock := NewRedisWriteLock(client, 5*time.Second, 3*time.Second)
	ctx := context.Background()

	unlockFirst, err := lock.Lock(ctx, "extfilter:test")
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		unlock, err := lock.Lock(ctx, "extfilter:test")
		if err == nil {
			unlock()
		}
		acquired <- err
	}()

	select {
	case err := <-acquired:
		t.Fatalf("second Lock returned while the first was held (err %v)", err)
	case <-time.After(150 * time.Millisecond):
	}

	unlockFirst()

	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("second Lock: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second Lock did not acquire after release")
	}
}

func TestRedisWriteLock_TimesOutWhileHeld(t *testing.T) {
	server, client := newMiniredisClient(t)
	if err := server.Set("extfilter:test", "other-holder"); err != nil {
		t.Fatalf("seed key: %v", err)
	}

	wait := 100 * time.Millisecond
	lock := NewRedisWriteLock(client, time.Second, wait)

	started := time.Now()
	_, err := lock.Lock(context.Background(), "extfilter:test")
	if !errors.Is(err, ErrWriteLockTimeout) {
		t.Fatalf("Lock error = %v, want ErrWriteLockTimeout", err)
	}
	if elapsed := time.Since(started); elapsed < wait {
		t.Fatalf("Lock gave up after %v, before the %v wait budget", elapsed, wait)
	}
	if got, _ := server.Get("extfilter:test"); got != "other-holder" {
		t.Fatalf("held key = %q, want untouched", got)
	}
}

func TestRedisWriteLock_ExpiredHolderDoesNotReleaseNewHolder(t *testing.T) {
	server, client := newMiniredisClient(t)
	lock := NewRedisWriteLock(client, time.Second, time.Second)
	ctx := context.Background()

	unlockStale, err := lock.Lock(ctx, "extfilter:test")
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	server.FastForward(2 * time.Second)

	unlockCurrent, err := lock.Lock(ctx, "extfilter:test")
	if err != nil {
		t.Fatalf("second Lock after expiry: %v", err)
	}
	current, err := server.Get("extfilter:test")
	if err != nil {
		t.Fatalf("read current token: %v", err)
	}

	unlockStale()
	if got, err := server.Get("extfilter:test"); err != nil || got != current {
		t.Fatalf("stale unlock changed the key: got %q err %v, want %q", got, err, current)
	}

	unlockCurrent()
	if server.Exists("extfilter:test") {
		t.Fatal("current holder could not release its lock")
	}
}

func TestRedisWriteLock_ContextCancelled(t *testing.T) {
	server, client := newMiniredisClient(t)
	if err := server.Set("extfilter:test", "other-holder"); err != nil {
		t.Fatalf("seed key: %v", err)
	}
	lock := NewRedisWriteLock(client, time.Second, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := lock.Lock(ctx, "extfilter:test"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Lock error = %v, want context.DeadlineExceeded", err)
	}
}

func TestGetRedisClientFromURL(t *testing.T) {
	server := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+server.Addr())
	if err := CloseRedisClient(); err != nil {
		t.Fatalf("CloseRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = CloseRedisClient() })

	client, err := GetRedisClient()
	if err != nil {
		t.Fatalf("GetRedisClient: %v", err)
	}
	again, err := GetRedisClient()
	if err != nil || again != client {
		t.Fatalf("GetRedisClient did not reuse the client (err %v)", err)
	}
	if err := client.Set(context.Background(), "extfilter:ping", "1", 0).Err(); err != nil {
		t.Fatalf("client.Set: %v", err)
	}
	if got, _ := server.Get("extfilter:ping"); got != "1" {
		t.Fatalf("miniredis value = %q, want 1", got)
	}
}
