package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eleven-am/voice-subtitles/internal/shared"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	return NewStore(redisClient, time.Hour), mr
}

func TestStore_CreateAndGet(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	sess := &Session{Verified: true, RemoteAddr: "10.0.0.1"}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if !strings.HasPrefix(sess.ID, "sess_") {
		t.Errorf("ID = %q, want sess_ prefix", sess.ID)
	}
	if sess.CreatedAt.IsZero() || sess.LastActiveAt.IsZero() {
		t.Error("timestamps should be set")
	}
	if ttl := mr.TTL(sess.RedisKey()); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	got, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !got.Verified || got.RemoteAddr != "10.0.0.1" {
		t.Errorf("unexpected session: %+v", got)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetSession(context.Background(), "sess_missing")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Expiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	sess := &Session{Verified: true}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	if _, err := store.GetSession(ctx, sess.ID); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected expired session to be gone, got %v", err)
	}
}

func TestStore_Touch(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	sess := &Session{Verified: true}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	before := sess.LastActiveAt

	mr.FastForward(30 * time.Minute)
	time.Sleep(2 * time.Millisecond)

	if err := store.TouchSession(ctx, sess); err != nil {
		t.Fatalf("TouchSession: %v", err)
	}
	if !sess.LastActiveAt.After(before) {
		t.Error("LastActiveAt should advance")
	}
	if ttl := mr.TTL(sess.RedisKey()); ttl != time.Hour {
		t.Errorf("TTL after touch = %v, want 1h", ttl)
	}
}

func TestStore_DeleteAndCount(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		sess := &Session{Verified: true}
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		ids = append(ids, sess.ID)
	}

	n, err := store.CountSessions(ctx)
	if err != nil {
		t.Fatalf("CountSessions: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	if err := store.DeleteSession(ctx, ids[0]); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	n, _ = store.CountSessions(ctx)
	if n != 2 {
		t.Errorf("count after delete = %d, want 2", n)
	}
}

func TestNewStore_DefaultTTL(t *testing.T) {
	store := NewStore(nil, 0)
	if store.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", store.ttl, DefaultTTL)
	}
}
