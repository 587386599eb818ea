package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// Store wraps the Postgres connection used for durable state: user accounts
// and the audit trail of plan versions per research session.
type Store struct {
	DB *sql.DB
}

// PlanVersion is one persisted revision of an account plan. Version 1 is the
// synthesized plan; each accepted edit appends the next version.
type PlanVersion struct {
	ID        string
	SessionID string
	UserID    string
	Company   string
	Version   int
	Plan      json.RawMessage
	CreatedAt time.Time
}

func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// Plan version operations
func (s *Store) SavePlanVersion(ctx context.Context, sessionID, userID, company string, version int, plan []byte) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `INSERT INTO plan_versions (session_id, user_id, company, version, plan) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		sessionID, userID, company, version, plan).Scan(&id)
	return id, err
}

func (s *Store) LatestPlanVersion(ctx context.Context, sessionID string) (PlanVersion, error) {
	var pv PlanVersion
	err := s.DB.QueryRowContext(ctx, `SELECT id, session_id, user_id, company, version, plan, created_at FROM plan_versions WHERE session_id=$1 ORDER BY version DESC LIMIT 1`,
		sessionID).Scan(&pv.ID, &pv.SessionID, &pv.UserID, &pv.Company, &pv.Version, &pv.Plan, &pv.CreatedAt)
	return pv, err
}

func (s *Store) ListPlanVersions(ctx context.Context, sessionID string) ([]PlanVersion, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, session_id, user_id, company, version, plan, created_at FROM plan_versions WHERE session_id=$1 ORDER BY version ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PlanVersion
	for rows.Next() {
		var pv PlanVersion
		if err := rows.Scan(&pv.ID, &pv.SessionID, &pv.UserID, &pv.Company, &pv.Version, &pv.Plan, &pv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, pv)
	}
	return out, rows.Err()
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT DISTINCT session_id FROM plan_versions WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
