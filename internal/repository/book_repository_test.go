package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/library-management/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestBuildBookUpdateTitleOnly(t *testing.T) {
	title := "Dune"
	query, args := BuildBookUpdate(5, model.BookPatch{Title: &title})

	if query != "UPDATE books SET title=? WHERE id=?" {
		t.Fatalf("query: got %q", query)
	}
	if len(args) != 2 || args[0] != "Dune" || args[1] != uint64(5) {
		t.Fatalf("args: got %v", args)
	}
	// A title edit must never touch the copy counters a concurrent
	// borrow may be changing.
	if strings.Contains(query, "available_copies") || strings.Contains(query, "total_copies") {
		t.Fatalf("counter column in an unrelated update: %s", query)
	}
}

func TestBuildBookUpdateCounters(t *testing.T) {
	total, available := 3, 2
	query, args := BuildBookUpdate(5, model.BookPatch{TotalCopies: &total, AvailableCopies: &available})

	if query != "UPDATE books SET total_copies=?, available_copies=? WHERE id=?" {
		t.Fatalf("query: got %q", query)
	}
	if len(args) != 3 || args[0] != 3 || args[1] != 2 || args[2] != uint64(5) {
		t.Fatalf("args: got %v", args)
	}
}

func TestBuildBookUpdateClearsISBN(t *testing.T) {
	empty := ""
	query, args := BuildBookUpdate(5, model.BookPatch{ISBN: &empty})

	if query != "UPDATE books SET isbn=? WHERE id=?" {
		t.Fatalf("query: got %q", query)
	}
	if args[0] != nil {
		t.Fatalf("empty isbn should clear to NULL, got %v", args[0])
	}
}

func TestBookRepoUpdateWritesOnlyPatchedColumns(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookRepo(db)

	title := "Dune"
	mock.ExpectExec("UPDATE books SET title=? WHERE id=?").
		WithArgs("Dune", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Update(context.Background(), 5, model.BookPatch{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookRepoSoftDeleteBlockedByOpenLoans(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT is_deleted FROM books WHERE id=? FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"is_deleted"}).AddRow(false))
	mock.ExpectQuery("SELECT COUNT(*) FROM loans WHERE book_id=? AND return_date IS NULL").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	if err := repo.SoftDelete(context.Background(), 5); err != ErrBookHasActiveLoans {
		t.Fatalf("err: got %v, want ErrBookHasActiveLoans", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookRepoSoftDeleteCommits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT is_deleted FROM books WHERE id=? FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"is_deleted"}).AddRow(false))
	mock.ExpectQuery("SELECT COUNT(*) FROM loans WHERE book_id=? AND return_date IS NULL").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("UPDATE books SET is_deleted=1 WHERE id=?").
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SoftDelete(context.Background(), 5); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookRepoSoftDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT is_deleted FROM books WHERE id=? FOR UPDATE").
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"is_deleted"}))
	mock.ExpectRollback()

	if err := repo.SoftDelete(context.Background(), 404); err != ErrBookNotFound {
		t.Fatalf("err: got %v, want ErrBookNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
