package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/config"
	"github.com/iliyamo/library-management/internal/middleware"
	"github.com/iliyamo/library-management/internal/repository"
	"github.com/iliyamo/library-management/internal/validation"
)

const (
	borrowerID = uint64(7)
	bookID     = uint64(42)
)

func newMockLoanHandler(t *testing.T) (*LoanHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{MaxActiveLoans: 3, LoanPeriodDays: 14}
	return NewLoanHandler(cfg, repository.NewLoanRepo(db), repository.NewBookRepo(db)), mock
}

func borrow(t *testing.T, h *LoanHandler) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = validation.New()
	req := httptest.NewRequest(http.MethodPost, "/api/loans", strings.NewReader(`{"book_id":42}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserID, borrowerID)
	c.Set(middleware.CtxRole, "user")
	c.Set(middleware.CtxEmail, "reader@example.com")

	if err := h.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	return rec
}

// expectBorrowAttempt queues the transaction a borrow opens up to and
// including the availability check under the book row lock.
func expectBorrowAttempt(mock sqlmock.Sqlmock, openLoans, available int) {
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT(*) FROM loans WHERE user_id=? AND return_date IS NULL").
		WithArgs(borrowerID).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(openLoans))
	mock.ExpectQuery("SELECT available_copies, is_deleted FROM books WHERE id=? FOR UPDATE").
		WithArgs(bookID).
		WillReturnRows(sqlmock.NewRows([]string{"available_copies", "is_deleted"}).AddRow(available, false))
}

// expectBorrowSuccess continues expectBorrowAttempt with the loan insert,
// the copy decrement and the commit.
func expectBorrowSuccess(mock sqlmock.Sqlmock, loanID int64) {
	mock.ExpectExec("INSERT INTO loans (user_id, book_id, loan_date, due_date, status, notes) VALUES (?,?,?,?,'active',?)").
		WithArgs(borrowerID, bookID, sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(loanID, 1))
	mock.ExpectQuery("SELECT created_at FROM loans WHERE id=?").
		WithArgs(uint64(loanID)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))
	mock.ExpectExec("UPDATE books SET available_copies = available_copies - 1 WHERE id=?").
		WithArgs(bookID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestLoanCreateSucceedsUnderLimit(t *testing.T) {
	h, mock := newMockLoanHandler(t)

	// Two open loans out of three allowed: the boundary case that must
	// still go through.
	expectBorrowAttempt(mock, 2, 1)
	expectBorrowSuccess(mock, 11)

	rec := borrow(t, h)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoanCreateLimitReached(t *testing.T) {
	h, mock := newMockLoanHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT(*) FROM loans WHERE user_id=? AND return_date IS NULL").
		WithArgs(borrowerID).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectRollback()

	rec := borrow(t, h)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "maximum number of active loans") {
		t.Fatalf("body: %s", rec.Body.String())
	}
	// No insert and no decrement may have run.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoanCreateNoCopies(t *testing.T) {
	h, mock := newMockLoanHandler(t)

	expectBorrowAttempt(mock, 0, 0)
	mock.ExpectRollback()

	rec := borrow(t, h)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no copies available") {
		t.Fatalf("body: %s", rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoanCreateDeletedBook(t *testing.T) {
	h, mock := newMockLoanHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT(*) FROM loans WHERE user_id=? AND return_date IS NULL").
		WithArgs(borrowerID).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("SELECT available_copies, is_deleted FROM books WHERE id=? FOR UPDATE").
		WithArgs(bookID).
		WillReturnRows(sqlmock.NewRows([]string{"available_copies", "is_deleted"}).AddRow(1, true))
	mock.ExpectRollback()

	rec := borrow(t, h)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// TestLoanCreateLastCopySingleWinner plays out two borrows of a book
// with one copy left: the decrement runs under the book row lock, so
// the second attempt reads zero and is refused.
func TestLoanCreateLastCopySingleWinner(t *testing.T) {
	h, mock := newMockLoanHandler(t)

	expectBorrowAttempt(mock, 0, 1)
	expectBorrowSuccess(mock, 21)

	expectBorrowAttempt(mock, 1, 0)
	mock.ExpectRollback()

	first := borrow(t, h)
	if first.Code != http.StatusCreated {
		t.Fatalf("first borrow: got %d, want 201, body %s", first.Code, first.Body.String())
	}
	second := borrow(t, h)
	if second.Code != http.StatusBadRequest {
		t.Fatalf("second borrow: got %d, want 400", second.Code)
	}
	if !strings.Contains(second.Body.String(), "no copies available") {
		t.Fatalf("second borrow body: %s", second.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoanReturnAlreadyReturned(t *testing.T) {
	h, mock := newMockLoanHandler(t)

	loanDate := time.Now().UTC().Add(-10 * 24 * time.Hour)
	dueDate := loanDate.Add(14 * 24 * time.Hour)
	returned := loanDate.Add(5 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT l.id, l.user_id, l.book_id, l.loan_date, l.due_date, l.return_date, l.notes, l.created_at FROM loans l WHERE l.id=? FOR UPDATE").
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "book_id", "loan_date", "due_date", "return_date", "notes", "created_at",
		}).AddRow(11, borrowerID, bookID, loanDate, dueDate, returned, nil, loanDate))
	mock.ExpectRollback()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/loans/11/return", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("11")
	c.Set(middleware.CtxUserID, borrowerID)
	c.Set(middleware.CtxRole, "user")

	if err := h.Return(c); err != nil {
		t.Fatalf("return: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "loan already returned") {
		t.Fatalf("body: %s", rec.Body.String())
	}
	// The copy counter must not have been incremented a second time.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
