package model

import "time"

// Loan status values.  Returned is terminal; Overdue is derived from the
// due date at read time rather than stored.
const (
	LoanActive   = "active"
	LoanOverdue  = "overdue"
	LoanReturned = "returned"
)

// Loan records a user borrowing one copy of a book.  A loan is created
// open (ReturnDate nil) and transitions to returned exactly once.  The
// stored status column only shadows the two persisted shapes
// ('active'/'returned'); the authoritative, time-sensitive status is
// always recomputed through LoanStatus.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – borrower.
//  BookID     – borrowed title.
//  LoanDate   – when the copy left the shelf.
//  DueDate    – LoanDate plus the configured loan period.
//  ReturnDate – when the copy came back (null while open).
//  Notes      – optional free-text note from the borrower.
//  CreatedAt  – timestamp of creation.
type Loan struct {
	ID         uint64     // loans.id
	UserID     uint64     // loans.user_id
	BookID     uint64     // loans.book_id
	LoanDate   time.Time  // loans.loan_date
	DueDate    time.Time  // loans.due_date
	ReturnDate *time.Time // loans.return_date (nullable)
	Notes      *string    // loans.notes (nullable)
	CreatedAt  time.Time  // loans.created_at
}

// LoanStatus derives the presented status of a loan from its two date
// fields at the given instant.  A set return date always wins; otherwise
// a past due date means overdue.
func LoanStatus(returnDate *time.Time, dueDate time.Time, now time.Time) string {
	if returnDate != nil {
		return LoanReturned
	}
	if dueDate.Before(now) {
		return LoanOverdue
	}
	return LoanActive
}

// Status is a convenience wrapper over LoanStatus for a loaded record.
func (l Loan) Status(now time.Time) string {
	return LoanStatus(l.ReturnDate, l.DueDate, now)
}
