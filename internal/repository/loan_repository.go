package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/library-management/internal/model"
)

// LoanRepo provides reads over the loans table and the transactional
// primitives used by the borrow/return flow.  All timestamp fields are
// stored in UTC.  The open-loan count, the book row lock and the loan
// insert/update all happen inside one caller-owned transaction so no
// partial state is ever visible.
type LoanRepo struct{ DB *sql.DB }

func NewLoanRepo(db *sql.DB) *LoanRepo { return &LoanRepo{DB: db} }

const loanCols = "l.id, l.user_id, l.book_id, l.loan_date, l.due_date, l.return_date, l.notes, l.created_at"

// LoanWithBook is a loan row joined with its book for reader listings.
type LoanWithBook struct {
	model.Loan
	BookTitle  string
	BookAuthor string
}

// LoanWithUser extends LoanWithBook with borrower details for the admin
// listing and the loans report.
type LoanWithUser struct {
	LoanWithBook
	UserEmail    string
	UserFullName string
}

// LoanListQuery defines the date-range filter and pagination of a loan
// listing.  Status is filtered by the caller after deriving it, since
// "overdue" does not exist as a stored value.
type LoanListQuery struct {
	UserID   *uint64
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// BuildLoanList returns the WHERE clause and arguments for a loan
// listing.  Kept pure for testability.
func BuildLoanList(q LoanListQuery) (string, []any) {
	conds := []string{"1=1"}
	args := []any{}
	if q.UserID != nil {
		conds = append(conds, "l.user_id=?")
		args = append(args, *q.UserID)
	}
	if q.From != nil {
		conds = append(conds, "l.loan_date >= ?")
		args = append(args, *q.From)
	}
	if q.To != nil {
		conds = append(conds, "l.loan_date <= ?")
		args = append(args, *q.To)
	}
	return strings.Join(conds, " AND "), args
}

// List returns a page of loans joined with book data, newest first,
// together with the unfiltered total.
func (r *LoanRepo) List(ctx context.Context, q LoanListQuery) ([]LoanWithBook, int64, error) {
	where, args := BuildLoanList(q)

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM loans l WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listArgs := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+loanCols+", b.title, b.author FROM loans l JOIN books b ON b.id=l.book_id WHERE "+
			where+" ORDER BY l.created_at DESC LIMIT ? OFFSET ?", listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]LoanWithBook, 0, q.PageSize)
	for rows.Next() {
		var lw LoanWithBook
		var returnDate sql.NullTime
		var notes sql.NullString
		if err := rows.Scan(&lw.ID, &lw.UserID, &lw.BookID, &lw.LoanDate, &lw.DueDate,
			&returnDate, &notes, &lw.CreatedAt, &lw.BookTitle, &lw.BookAuthor); err != nil {
			return nil, 0, err
		}
		if returnDate.Valid {
			lw.ReturnDate = &returnDate.Time
		}
		if notes.Valid {
			lw.Notes = &notes.String
		}
		out = append(out, lw)
	}
	return out, total, rows.Err()
}

// ListAll returns a page of loans joined with book and borrower data for
// the admin view.
func (r *LoanRepo) ListAll(ctx context.Context, q LoanListQuery) ([]LoanWithUser, int64, error) {
	where, args := BuildLoanList(q)

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM loans l WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listArgs := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+loanCols+", b.title, b.author, u.email, u.full_name FROM loans l "+
			"JOIN books b ON b.id=l.book_id JOIN users u ON u.id=l.user_id WHERE "+
			where+" ORDER BY l.created_at DESC LIMIT ? OFFSET ?", listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]LoanWithUser, 0, q.PageSize)
	for rows.Next() {
		var lw LoanWithUser
		var returnDate sql.NullTime
		var notes sql.NullString
		if err := rows.Scan(&lw.ID, &lw.UserID, &lw.BookID, &lw.LoanDate, &lw.DueDate,
			&returnDate, &notes, &lw.CreatedAt, &lw.BookTitle, &lw.BookAuthor,
			&lw.UserEmail, &lw.UserFullName); err != nil {
			return nil, 0, err
		}
		if returnDate.Valid {
			lw.ReturnDate = &returnDate.Time
		}
		if notes.Valid {
			lw.Notes = &notes.String
		}
		out = append(out, lw)
	}
	return out, total, rows.Err()
}

// CountOpenTx counts the caller's loans with no return date inside tx.
// Executed before the insert in the same transaction so the per-user
// loan limit holds under concurrency.
func (r *LoanRepo) CountOpenTx(ctx context.Context, tx *sql.Tx, userID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM loans WHERE user_id=? AND return_date IS NULL", userID).Scan(&n)
	return n, err
}

// CreateTx inserts a new open loan within tx and populates the generated
// ID on the record.
func (r *LoanRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *model.Loan) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO loans (user_id, book_id, loan_date, due_date, status, notes) VALUES (?,?,?,?,'active',?)",
		l.UserID, l.BookID, l.LoanDate, l.DueDate, l.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return tx.QueryRowContext(ctx,
		"SELECT created_at FROM loans WHERE id=?", l.ID).Scan(&l.CreatedAt)
}

// GetForUpdateTx loads a loan inside tx while acquiring a row lock on the
// loan record, serializing concurrent return attempts on the same loan.
func (r *LoanRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Loan, error) {
	var l model.Loan
	var returnDate sql.NullTime
	var notes sql.NullString
	err := tx.QueryRowContext(ctx,
		"SELECT "+loanCols+" FROM loans l WHERE l.id=? FOR UPDATE", id).Scan(
		&l.ID, &l.UserID, &l.BookID, &l.LoanDate, &l.DueDate,
		&returnDate, &notes, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Loan{}, ErrLoanNotFound
	}
	if err != nil {
		return model.Loan{}, err
	}
	if returnDate.Valid {
		l.ReturnDate = &returnDate.Time
	}
	if notes.Valid {
		l.Notes = &notes.String
	}
	return l, nil
}

// MarkReturnedTx closes a loan within tx.  The status column shadows the
// persisted shape; the derived status is still computed from the dates.
func (r *LoanRepo) MarkReturnedTx(ctx context.Context, tx *sql.Tx, id uint64, returnedAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE loans SET return_date=?, status='returned' WHERE id=?", returnedAt, id)
	return err
}
