package repository

import (
	"context"
	"database/sql"
	"time"
)

// ReportRepo provides the read-only projections behind the CSV export
// endpoints.  No state is ever mutated here.
type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

// LoanReportRow is one line of the loans export: a loan joined with its
// borrower and book.  Status is derived by the caller from the dates.
type LoanReportRow struct {
	ID           uint64
	UserEmail    string
	UserFullName string
	BookTitle    string
	LoanDate     time.Time
	DueDate      time.Time
	ReturnDate   *time.Time
}

// Loans returns every loan in the optional loan_date range, newest first.
func (r *ReportRepo) Loans(ctx context.Context, from, to *time.Time) ([]LoanReportRow, error) {
	where, args := BuildLoanList(LoanListQuery{From: from, To: to})
	rows, err := r.DB.QueryContext(ctx,
		`SELECT l.id, u.email, u.full_name, b.title, l.loan_date, l.due_date, l.return_date
		 FROM loans l
		 JOIN users u ON u.id=l.user_id
		 JOIN books b ON b.id=l.book_id
		 WHERE `+where+` ORDER BY l.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LoanReportRow{}
	for rows.Next() {
		var lr LoanReportRow
		var returnDate sql.NullTime
		if err := rows.Scan(&lr.ID, &lr.UserEmail, &lr.UserFullName, &lr.BookTitle,
			&lr.LoanDate, &lr.DueDate, &returnDate); err != nil {
			return nil, err
		}
		if returnDate.Valid {
			lr.ReturnDate = &returnDate.Time
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

// BookReportRow is one line of the books export.
type BookReportRow struct {
	ID              uint64
	Title           string
	Author          string
	ISBN            *string
	TotalCopies     int
	AvailableCopies int
	PublishedYear   *int
	Language        *string
	CreatedAt       time.Time
}

// Books returns every non-deleted book, optionally restricted to one
// category, newest first.
func (r *ReportRepo) Books(ctx context.Context, categoryID *uint64) ([]BookReportRow, error) {
	where := "is_deleted=0"
	args := []any{}
	if categoryID != nil {
		where += " AND category_id=?"
		args = append(args, *categoryID)
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, title, author, isbn, total_copies, available_copies, published_year, language, created_at
		 FROM books WHERE `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []BookReportRow{}
	for rows.Next() {
		var br BookReportRow
		var isbn, lang sql.NullString
		var year sql.NullInt64
		if err := rows.Scan(&br.ID, &br.Title, &br.Author, &isbn,
			&br.TotalCopies, &br.AvailableCopies, &year, &lang, &br.CreatedAt); err != nil {
			return nil, err
		}
		if isbn.Valid {
			br.ISBN = &isbn.String
		}
		if year.Valid {
			v := int(year.Int64)
			br.PublishedYear = &v
		}
		if lang.Valid {
			br.Language = &lang.String
		}
		out = append(out, br)
	}
	return out, rows.Err()
}
