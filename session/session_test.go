package session

import (
	"errors"
	"testing"
	"time"

	"github.com/sellscope/accountplan/internal/agent/core"
)

func TestEnsureSessionCreatesAndReuses(t *testing.T) {
	store := NewInMemorySessionStore()

	sess, err := store.EnsureSession("", time.Minute)
	if err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	if sess.ID() == "" {
		t.Fatalf("expected generated session id")
	}

	again, err := store.EnsureSession(sess.ID(), time.Minute)
	if err != nil {
		t.Fatalf("EnsureSession reuse: %v", err)
	}
	if again.ID() != sess.ID() {
		t.Fatalf("expected same session, got %s vs %s", again.ID(), sess.ID())
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := NewInMemorySessionStore()
	if _, err := store.GetSession("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewInMemorySessionStore()
	sess, err := store.EnsureSession("", -time.Second)
	if err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	if _, err := store.GetSession(sess.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be absent, got %v", err)
	}
}

func TestExpiredSessionEvictedFromMap(t *testing.T) {
	store := NewInMemorySessionStore()
	ms := store.(*memoryStore)

	sess, err := store.EnsureSession("", -time.Second)
	if err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	if _, err := store.GetSession(sess.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(ms.sessions) != 0 {
		t.Fatalf("expired session retained in map: %d entries", len(ms.sessions))
	}

	// EnsureSession with an expired id drops the stale entry and mints a new one.
	stale, _ := store.EnsureSession("", -time.Second)
	fresh, err := store.EnsureSession(stale.ID(), time.Minute)
	if err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	if fresh.ID() == stale.ID() {
		t.Fatalf("expired session reused")
	}
	if len(ms.sessions) != 1 {
		t.Fatalf("stale entry retained: %d entries", len(ms.sessions))
	}
}

func TestSnapshotReplaceAndCurrent(t *testing.T) {
	store := NewInMemorySessionStore()
	sess, _ := store.EnsureSession("", time.Minute)

	if _, ok := sess.Current(); ok {
		t.Fatalf("fresh session should have no plan")
	}

	snap := Snapshot{
		Company:   "Acme",
		Plan:      core.Plan{CompanyOverview: "Acme builds widgets.", Confidence: core.ConfidenceHigh},
		Version:   1,
		UpdatedAt: time.Now(),
	}
	if err := sess.Replace(snap); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, ok := sess.Current()
	if !ok {
		t.Fatalf("expected snapshot after Replace")
	}
	if got.Company != "Acme" || got.Version != 1 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestBeginEditSerializes(t *testing.T) {
	store := NewInMemorySessionStore()
	sess, _ := store.EnsureSession("", time.Minute)

	if err := sess.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if err := sess.BeginEdit(); !errors.Is(err, ErrEditInFlight) {
		t.Fatalf("expected ErrEditInFlight, got %v", err)
	}
	sess.EndEdit()
	if err := sess.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit after EndEdit: %v", err)
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	if _, err := NewStore("cassandra", RedisOptions{}); err == nil {
		t.Fatalf("expected error for unsupported store type")
	}
}
