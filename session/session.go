package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/sellscope/accountplan/internal/agent/core"
)

// Snapshot is the caller-owned state of one research session: the current
// plan value plus the company it was researched for. The core components stay
// stateless; this layer is the only place a "current plan" lives.
type Snapshot struct {
	Company   string    `json:"company"`
	Plan      core.Plan `json:"plan"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound     = errors.New("session not found")
	ErrEditInFlight = errors.New("another edit is in flight for this session")
)

// Store interface for session management
type Store interface {
	EnsureSession(id string, ttl time.Duration) (Session, error)
	GetSession(id string) (Session, error)
}

// Session interface for per-session plan snapshot operations. Edits are
// serialized per session: BeginEdit fails with ErrEditInFlight while another
// edit holds the session.
type Session interface {
	ID() string
	Expire(ttl time.Duration)
	Current() (Snapshot, bool)
	Replace(s Snapshot) error
	BeginEdit() error
	EndEdit()
}

type StoreType string

const (
	InMemoryStore StoreType = "inmemory"
	RedisStore    StoreType = "redis"
)

// RedisOptions carries connection settings for the redis-backed store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewStore creates a session store of the given type.
func NewStore(storeType StoreType, opts RedisOptions) (Store, error) {
	switch storeType {
	case InMemoryStore:
		return NewInMemorySessionStore(), nil
	case RedisStore:
		return NewRedisSessionStore(opts), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
