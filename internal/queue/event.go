// Package queue defines message payloads exchanged over the message broker.
package queue

// Loan event types published to the loan.events queue.
const (
	LoanCreated  = "loan.created"
	LoanReturned = "loan.returned"
)

// LoanEvent is published when a loan is opened or closed.  It carries
// enough information for downstream consumers to log, notify, or feed
// analytics without querying the primary database.  EventID is a UUID so
// consumers can deduplicate redeliveries.
type LoanEvent struct {
	EventID    string `json:"event_id"`
	Type       string `json:"type"`
	LoanID     uint64 `json:"loan_id"`
	UserID     uint64 `json:"user_id"`
	UserEmail  string `json:"user_email"`
	BookID     uint64 `json:"book_id"`
	BookTitle  string `json:"book_title"`
	LoanDate   string `json:"loan_date"`
	DueDate    string `json:"due_date"`
	ReturnDate string `json:"return_date,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
