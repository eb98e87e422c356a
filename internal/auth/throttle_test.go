package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nawrec86/school-management-backend/internal/model"
	"github.com/nawrec86/school-management-backend/internal/repository"
)

func newThrottledService(t *testing.T, maxAttempts int, window time.Duration) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := repository.NewMemory()
	svc := NewService(store, "test-secret", "test-issuer", time.Hour).
		WithThrottle(NewLoginThrottle(client, maxAttempts, window))
	return svc, mr
}

func TestLoginThrottleBlocksAfterFailures(t *testing.T) {
	svc, mr := newThrottledService(t, 3, time.Minute)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "secret", model.RoleStaff); err != nil {
		t.Fatalf("register error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}

	// Even the correct password is rejected while throttled.
	if _, _, err := svc.Login(ctx, "alice", "secret"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected throttle, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, _, err := svc.Login(ctx, "alice", "secret"); err != nil {
		t.Fatalf("expected login after window, got %v", err)
	}
}

func TestLoginThrottleResetsOnSuccess(t *testing.T) {
	svc, _ := newThrottledService(t, 3, time.Minute)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "secret", model.RoleStaff); err != nil {
		t.Fatalf("register error: %v", err)
	}

	for i := 0; i < 2; i++ {
		_, _, _ = svc.Login(ctx, "alice", "wrong")
	}
	if _, _, err := svc.Login(ctx, "alice", "secret"); err != nil {
		t.Fatalf("expected login below limit, got %v", err)
	}

	// Counter was reset; two more failures stay below the limit.
	for i := 0; i < 2; i++ {
		_, _, _ = svc.Login(ctx, "alice", "wrong")
	}
	if _, _, err := svc.Login(ctx, "alice", "secret"); err != nil {
		t.Fatalf("expected login after reset, got %v", err)
	}
}

func TestThrottleFailsOpenWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := repository.NewMemory()
	svc := NewService(store, "test-secret", "test-issuer", time.Hour).
		WithThrottle(NewLoginThrottle(client, 1, time.Minute))
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "secret", model.RoleStaff); err != nil {
		t.Fatalf("register error: %v", err)
	}
	_, _, _ = svc.Login(ctx, "alice", "wrong")

	mr.Close()

	// Redis is gone; the throttle must not lock the account out.
	if _, _, err := svc.Login(ctx, "alice", "secret"); err != nil {
		t.Fatalf("expected fail-open login, got %v", err)
	}
}
