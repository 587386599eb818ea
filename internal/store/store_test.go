package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestCreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}

	query := regexp.QuoteMeta(`INSERT INTO users (email, password_hash) VALUES ($1,$2)`)
	mock.ExpectExec(query).
		WithArgs("ae@example.com", "hashed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.CreateUser(context.Background(), "ae@example.com", "hashed"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}

	query := regexp.QuoteMeta(`SELECT id, password_hash FROM users WHERE email=$1`)
	mock.ExpectQuery(query).
		WithArgs("ae@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow("user-1", "hashed"))

	id, hash, err := st.GetUserByEmail(context.Background(), "ae@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if id != "user-1" || hash != "hashed" {
		t.Fatalf("unexpected result: %s %s", id, hash)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSavePlanVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	plan := []byte(`{"company_overview":"Acme builds widgets."}`)

	query := regexp.QuoteMeta(`INSERT INTO plan_versions (session_id, user_id, company, version, plan) VALUES ($1,$2,$3,$4,$5) RETURNING id`)
	mock.ExpectQuery(query).
		WithArgs("sess-1", "user-1", "Acme", 1, plan).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("pv-1"))

	id, err := st.SavePlanVersion(context.Background(), "sess-1", "user-1", "Acme", 1, plan)
	if err != nil {
		t.Fatalf("SavePlanVersion: %v", err)
	}
	if id != "pv-1" {
		t.Fatalf("unexpected id: %s", id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestPlanVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	now := time.Now()

	query := regexp.QuoteMeta(`SELECT id, session_id, user_id, company, version, plan, created_at FROM plan_versions WHERE session_id=$1 ORDER BY version DESC LIMIT 1`)
	mock.ExpectQuery(query).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "user_id", "company", "version", "plan", "created_at"}).
			AddRow("pv-2", "sess-1", "user-1", "Acme", 2, []byte(`{}`), now))

	pv, err := st.LatestPlanVersion(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("LatestPlanVersion: %v", err)
	}
	if pv.Version != 2 || pv.Company != "Acme" {
		t.Fatalf("unexpected version: %+v", pv)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListPlanVersions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	now := time.Now()

	query := regexp.QuoteMeta(`SELECT id, session_id, user_id, company, version, plan, created_at FROM plan_versions WHERE session_id=$1 ORDER BY version ASC`)
	mock.ExpectQuery(query).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "user_id", "company", "version", "plan", "created_at"}).
			AddRow("pv-1", "sess-1", "user-1", "Acme", 1, []byte(`{}`), now).
			AddRow("pv-2", "sess-1", "user-1", "Acme", 2, []byte(`{}`), now))

	versions, err := st.ListPlanVersions(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("ListPlanVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].Version != 1 || versions[1].Version != 2 {
		t.Fatalf("unexpected ordering: %+v", versions)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
