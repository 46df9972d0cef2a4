package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestCategoryDeleteInUse(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT(*) FROM books WHERE category_id=? AND is_deleted=0 FOR UPDATE").
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	if err := repo.Delete(context.Background(), 9); err != ErrCategoryInUse {
		t.Fatalf("err: got %v, want ErrCategoryInUse", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCategoryDeleteCommits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT(*) FROM books WHERE category_id=? AND is_deleted=0 FOR UPDATE").
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("DELETE FROM categories WHERE id=?").
		WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Delete(context.Background(), 9); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
