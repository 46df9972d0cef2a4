package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
)

// ReportHandler serves the admin CSV exports.  Rendering is split out
// into pure build functions so the column layout can be tested without
// a database.
type ReportHandler struct {
	Reports *repository.ReportRepo
}

func NewReportHandler(r *repository.ReportRepo) *ReportHandler {
	if r == nil {
		panic("nil repository passed to NewReportHandler")
	}
	return &ReportHandler{Reports: r}
}

// filterLoanReportRows keeps rows whose derived status matches want; an
// empty filter keeps everything.  "overdue" never exists as a stored
// value, so the filter has to run after derivation.
func filterLoanReportRows(rows []repository.LoanReportRow, want string, now time.Time) []repository.LoanReportRow {
	if want == "" {
		return rows
	}
	out := rows[:0]
	for _, r := range rows {
		if model.LoanStatus(r.ReturnDate, r.DueDate, now) == want {
			out = append(out, r)
		}
	}
	return out
}

// BuildLoanReportCSV renders loan rows as CSV.  Dates are RFC 3339 and
// the status column is derived from the dates at render time.
func BuildLoanReportCSV(rows []repository.LoanReportRow, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "user_email", "user_full_name", "book_title",
		"loan_date", "due_date", "return_date", "status"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		returned := ""
		if r.ReturnDate != nil {
			returned = r.ReturnDate.Format(time.RFC3339)
		}
		rec := []string{
			strconv.FormatUint(r.ID, 10),
			r.UserEmail,
			r.UserFullName,
			r.BookTitle,
			r.LoanDate.Format(time.RFC3339),
			r.DueDate.Format(time.RFC3339),
			returned,
			model.LoanStatus(r.ReturnDate, r.DueDate, now),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// BuildBookReportCSV renders book inventory rows as CSV.  Nullable
// columns render as empty cells.
func BuildBookReportCSV(rows []repository.BookReportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "title", "author", "isbn",
		"total_copies", "available_copies", "published_year", "language", "created_at"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		isbn, year, lang := "", "", ""
		if r.ISBN != nil {
			isbn = *r.ISBN
		}
		if r.PublishedYear != nil {
			year = strconv.Itoa(*r.PublishedYear)
		}
		if r.Language != nil {
			lang = *r.Language
		}
		rec := []string{
			strconv.FormatUint(r.ID, 10),
			r.Title,
			r.Author,
			isbn,
			strconv.Itoa(r.TotalCopies),
			strconv.Itoa(r.AvailableCopies),
			year,
			lang,
			r.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func sendCSV(c echo.Context, filename string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", body)
}

// Loans handles GET /api/reports/loans.csv: every loan in the optional
// from/to range as a CSV attachment.
func (h *ReportHandler) Loans(c echo.Context) error {
	from, ok := parseTimeParam(c.QueryParam("from"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date filter"})
	}
	to, ok := parseTimeParam(c.QueryParam("to"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date filter"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	rows, err := h.Reports.Loans(ctx, from, to)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rows = filterLoanReportRows(rows, c.QueryParam("status"), now)
	body, err := BuildLoanReportCSV(rows, now)
	if err != nil {
		return err
	}
	return sendCSV(c, "loans.csv", body)
}

// Books handles GET /api/reports/books.csv: the current inventory,
// optionally restricted to one category, as a CSV attachment.
func (h *ReportHandler) Books(c echo.Context) error {
	var categoryID *uint64
	if raw := c.QueryParam("category"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid category id"})
		}
		categoryID = &id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	rows, err := h.Reports.Books(ctx, categoryID)
	if err != nil {
		return err
	}
	body, err := BuildBookReportCSV(rows)
	if err != nil {
		return err
	}
	return sendCSV(c, "books.csv", body)
}
