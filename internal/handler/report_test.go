package handler

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/iliyamo/library-management/internal/repository"
)

func parseCSV(t *testing.T, body []byte) [][]string {
	t.Helper()
	recs, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return recs
}

func TestBuildLoanReportCSV(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	returned := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	rows := []repository.LoanReportRow{
		{
			ID: 1, UserEmail: "a@example.com", UserFullName: "Ada Lovelace",
			BookTitle: "Dune",
			LoanDate:  now.Add(-20 * 24 * time.Hour),
			DueDate:   now.Add(-6 * 24 * time.Hour),
		},
		{
			ID: 2, UserEmail: "b@example.com", UserFullName: "Brian Kernighan",
			BookTitle:  "The Go Programming Language, with \"commas\"",
			LoanDate:   now.Add(-30 * 24 * time.Hour),
			DueDate:    now.Add(-16 * 24 * time.Hour),
			ReturnDate: &returned,
		},
	}

	body, err := BuildLoanReportCSV(rows, now)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	recs := parseCSV(t, body)
	if len(recs) != 3 {
		t.Fatalf("rows: got %d, want header + 2", len(recs))
	}
	wantHeader := []string{"id", "user_email", "user_full_name", "book_title",
		"loan_date", "due_date", "return_date", "status"}
	for i, h := range wantHeader {
		if recs[0][i] != h {
			t.Fatalf("header[%d]: got %q, want %q", i, recs[0][i], h)
		}
	}
	if recs[1][7] != "overdue" {
		t.Fatalf("open loan past due: status %q", recs[1][7])
	}
	if recs[1][6] != "" {
		t.Fatalf("open loan must have empty return_date, got %q", recs[1][6])
	}
	if recs[2][7] != "returned" {
		t.Fatalf("returned loan: status %q", recs[2][7])
	}
	if recs[2][6] != returned.Format(time.RFC3339) {
		t.Fatalf("return_date: got %q", recs[2][6])
	}
	// The csv writer must keep quoted commas intact.
	if recs[2][3] != rows[1].BookTitle {
		t.Fatalf("title with comma mangled: %q", recs[2][3])
	}
}

func TestFilterLoanReportRows(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	returned := now.Add(-time.Hour)
	rows := []repository.LoanReportRow{
		{ID: 1, DueDate: now.Add(24 * time.Hour)},                           // active
		{ID: 2, DueDate: now.Add(-24 * time.Hour)},                          // overdue
		{ID: 3, DueDate: now.Add(-24 * time.Hour), ReturnDate: &returned},   // returned
	}

	if got := filterLoanReportRows(append([]repository.LoanReportRow{}, rows...), "", now); len(got) != 3 {
		t.Fatalf("empty filter: got %d rows", len(got))
	}
	got := filterLoanReportRows(append([]repository.LoanReportRow{}, rows...), "overdue", now)
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("overdue filter: %v", got)
	}
	got = filterLoanReportRows(append([]repository.LoanReportRow{}, rows...), "returned", now)
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("returned filter: %v", got)
	}
}

func TestBuildBookReportCSV(t *testing.T) {
	isbn := "9780441013593"
	year := 1965
	lang := "English"
	rows := []repository.BookReportRow{
		{
			ID: 1, Title: "Dune", Author: "Frank Herbert", ISBN: &isbn,
			TotalCopies: 5, AvailableCopies: 2,
			PublishedYear: &year, Language: &lang,
			CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		{
			ID: 2, Title: "Untraced", Author: "Anon",
			TotalCopies: 1, AvailableCopies: 1,
			CreatedAt: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
		},
	}

	body, err := BuildBookReportCSV(rows)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	recs := parseCSV(t, body)
	if len(recs) != 3 {
		t.Fatalf("rows: got %d, want header + 2", len(recs))
	}
	if recs[1][3] != isbn || recs[1][6] != "1965" || recs[1][7] != "English" {
		t.Fatalf("populated optionals: %v", recs[1])
	}
	if recs[2][3] != "" || recs[2][6] != "" || recs[2][7] != "" {
		t.Fatalf("nil optionals must render empty: %v", recs[2])
	}
	if recs[2][4] != "1" || recs[2][5] != "1" {
		t.Fatalf("copy counters: %v", recs[2])
	}
}
