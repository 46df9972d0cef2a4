package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/config"
	"github.com/iliyamo/library-management/internal/middleware"
	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/queue"
	"github.com/iliyamo/library-management/internal/repository"
	queue_publisher "github.com/iliyamo/library-management/internal/service"

	"github.com/google/uuid"
)

// LoanHandler implements the borrow/return lifecycle and the loan
// listings.  Borrow and return each run inside a single transaction with
// a row lock on the contested record; the database, not the handler,
// serializes conflicting attempts.  All methods assume JWT
// authentication has already run.
type LoanHandler struct {
	Cfg   config.Config
	Loans *repository.LoanRepo
	Books *repository.BookRepo
}

func NewLoanHandler(cfg config.Config, l *repository.LoanRepo, b *repository.BookRepo) *LoanHandler {
	if l == nil || b == nil {
		panic("nil repository passed to NewLoanHandler")
	}
	return &LoanHandler{Cfg: cfg, Loans: l, Books: b}
}

// loanResp is the JSON projection of a loan with its derived status.
type loanResp struct {
	ID         uint64     `json:"id"`
	UserID     uint64     `json:"user_id"`
	BookID     uint64     `json:"book_id"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     string     `json:"status"`
	Notes      *string    `json:"notes"`
	CreatedAt  time.Time  `json:"created_at"`

	BookTitle    string `json:"book_title,omitempty"`
	BookAuthor   string `json:"book_author,omitempty"`
	UserEmail    string `json:"user_email,omitempty"`
	UserFullName string `json:"user_full_name,omitempty"`
}

func toLoanResp(l model.Loan, now time.Time) loanResp {
	return loanResp{
		ID: l.ID, UserID: l.UserID, BookID: l.BookID,
		LoanDate: l.LoanDate, DueDate: l.DueDate, ReturnDate: l.ReturnDate,
		Status: l.Status(now), Notes: l.Notes, CreatedAt: l.CreatedAt,
	}
}

type createLoanReq struct {
	BookID uint64 `json:"book_id" validate:"required"`
	Notes  string `json:"notes" validate:"omitempty,max=1000"`
}

// Create handles POST /api/loans.  The per-user loan limit, the book
// existing undeleted, and a copy being on the shelf are all checked
// inside one transaction holding a row lock on
// the book, so two simultaneous borrows cannot both take the last copy.
func (h *LoanHandler) Create(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "authentication required"})
	}
	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	tx, err := h.Loans.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	open, err := h.Loans.CountOpenTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	if open >= h.Cfg.MaxActiveLoans {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "maximum number of active loans reached"})
	}

	// Row lock on the book: held until commit/rollback, so the
	// availability check and the decrement below are one atomic step.
	available, deleted, err := h.Books.GetForUpdateTx(ctx, tx, req.BookID)
	if err != nil {
		if err == repository.ErrBookNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		}
		return err
	}
	if deleted {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
	}
	if available <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "no copies available"})
	}

	now := time.Now().UTC()
	loan := model.Loan{
		UserID:   userID,
		BookID:   req.BookID,
		LoanDate: now,
		DueDate:  now.Add(time.Duration(h.Cfg.LoanPeriodDays) * 24 * time.Hour),
	}
	if req.Notes != "" {
		loan.Notes = &req.Notes
	}
	if err := h.Loans.CreateTx(ctx, tx, &loan); err != nil {
		return err
	}
	if err := h.Books.DecrementAvailableTx(ctx, tx, req.BookID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	h.publishEvent(c, queue.LoanCreated, loan)

	return c.JSON(http.StatusCreated, toLoanResp(loan, now))
}

// Return handles PUT /api/loans/:id/return.  A row lock on the loan
// serializes double-return attempts; the book row needs no lock because
// the increment is commutative and cannot break the copy invariant.
func (h *LoanHandler) Return(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "authentication required"})
	}
	loanID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid loan id"})
	}

	ctx := c.Request().Context()
	tx, err := h.Loans.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	loan, err := h.Loans.GetForUpdateTx(ctx, tx, loanID)
	if err != nil {
		if err == repository.ErrLoanNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "loan not found"})
		}
		return err
	}
	if loan.ReturnDate != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "loan already returned"})
	}
	if callerRole(c) != model.RoleAdmin && loan.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "not your loan"})
	}

	now := time.Now().UTC()
	if err := h.Loans.MarkReturnedTx(ctx, tx, loanID, now); err != nil {
		return err
	}
	if err := h.Books.IncrementAvailableTx(ctx, tx, loan.BookID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	loan.ReturnDate = &now
	h.publishEvent(c, queue.LoanReturned, loan)

	return c.JSON(http.StatusOK, toLoanResp(loan, now))
}

// parseLoanListQuery maps the shared status/from/to/pagination filters.
// The bool result is false when a date filter fails to parse.
func parseLoanListQuery(c echo.Context) (repository.LoanListQuery, string, bool) {
	q := repository.LoanListQuery{}
	q.Page, q.PageSize = parsePage(c, 20)
	from, ok := parseTimeParam(c.QueryParam("from"))
	if !ok {
		return q, "", false
	}
	to, ok := parseTimeParam(c.QueryParam("to"))
	if !ok {
		return q, "", false
	}
	q.From, q.To = from, to
	return q, c.QueryParam("status"), true
}

// filterLoanStatus keeps rows matching the wanted derived status; an
// empty filter keeps everything.
func filterLoanStatus(items []loanResp, want string) []loanResp {
	if want == "" {
		return items
	}
	out := items[:0]
	for _, it := range items {
		if it.Status == want {
			out = append(out, it)
		}
	}
	return out
}

// List handles GET /api/loans: the caller's own loans.
func (h *LoanHandler) List(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "authentication required"})
	}
	q, status, ok := parseLoanListQuery(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date filter"})
	}
	q.UserID = &userID

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, total, err := h.Loans.List(ctx, q)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	items := make([]loanResp, 0, len(rows))
	for _, lw := range rows {
		r := toLoanResp(lw.Loan, now)
		r.BookTitle = lw.BookTitle
		r.BookAuthor = lw.BookAuthor
		items = append(items, r)
	}
	return c.JSON(http.StatusOK, pageResponse{
		Page: q.Page, PageSize: q.PageSize, Total: total,
		Items: filterLoanStatus(items, status),
	})
}

// ListAll handles GET /api/loans/all: every loan, for admins.
func (h *LoanHandler) ListAll(c echo.Context) error {
	q, status, ok := parseLoanListQuery(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date filter"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, total, err := h.Loans.ListAll(ctx, q)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	items := make([]loanResp, 0, len(rows))
	for _, lw := range rows {
		r := toLoanResp(lw.Loan, now)
		r.BookTitle = lw.BookTitle
		r.BookAuthor = lw.BookAuthor
		r.UserEmail = lw.UserEmail
		r.UserFullName = lw.UserFullName
		items = append(items, r)
	}
	return c.JSON(http.StatusOK, pageResponse{
		Page: q.Page, PageSize: q.PageSize, Total: total,
		Items: filterLoanStatus(items, status),
	})
}

// publishEvent emits a loan event to the broker after commit.  Emission
// is best-effort and asynchronous: the borrow/return has already
// succeeded and must not be failed retroactively by broker trouble.
func (h *LoanHandler) publishEvent(c echo.Context, eventType string, loan model.Loan) {
	email, _ := c.Get(middleware.CtxEmail).(string)

	ev := queue.LoanEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		LoanID:     loan.ID,
		UserID:     loan.UserID,
		UserEmail:  email,
		BookID:     loan.BookID,
		LoanDate:   loan.LoanDate.Format(time.RFC3339),
		DueDate:    loan.DueDate.Format(time.RFC3339),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if loan.ReturnDate != nil {
		ev.ReturnDate = loan.ReturnDate.Format(time.RFC3339)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if bw, err := h.Books.GetByIDAny(ctx, loan.BookID); err == nil {
			ev.BookTitle = bw.Title
		}
		_ = queue_publisher.PublishLoanEvent(ctx, ev)
	}()
}
