package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestUpAppliesPendingMigrationsInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	fsys := fstest.MapFS{
		"sql/0001_a.up.sql": {Data: []byte("create table a (id text);")},
		"sql/0002_b.up.sql": {Data: []byte("create table b (id text);")},
	}

	mock.ExpectExec("create table if not exists schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table if not exists schema_seeds").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))

	// Only the second migration is pending.
	mock.ExpectBegin()
	mock.ExpectExec("create table b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_migrations").
		WillReturnResult(sqlmock.NewResult(1, 1))

	mgr := NewManager(db, fsys, "sql", "seeds")
	if err := mgr.Up(context.Background()); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSplitStatementsRespectsQuotedSemicolons(t *testing.T) {
	stmts := splitStatements("insert into t values ('a;b'); update t set x = 1;")
	if len(stmts) != 2 {
		t.Fatalf("want 2 statements, got %d: %q", len(stmts), stmts)
	}
}

func TestCollectIgnoresMissingDirectory(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mgr := NewManager(db, fstest.MapFS{}, "sql", "seeds")
	names, err := mgr.collect("sql", ".up.sql")
	if err != nil || names != nil {
		t.Fatalf("missing dir should yield nothing: %v %v", names, err)
	}
}
