package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
)

// BookHandler serves the public catalog reads and the admin-only
// mutations over books.
type BookHandler struct {
	Books *repository.BookRepo
}

func NewBookHandler(b *repository.BookRepo) *BookHandler {
	return &BookHandler{Books: b}
}

// bookResp is the JSON projection of a catalog row.
type bookResp struct {
	ID              uint64    `json:"id"`
	CategoryID      *uint64   `json:"category_id"`
	CategoryName    *string   `json:"category_name"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            *string   `json:"isbn"`
	Description     *string   `json:"description"`
	CoverImageURL   *string   `json:"cover_image_url"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	PublishedYear   *int      `json:"published_year"`
	Pages           *int      `json:"pages"`
	Language        *string   `json:"language"`
	IsDeleted       bool      `json:"is_deleted"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toBookResp(bw repository.BookWithCategory) bookResp {
	return bookResp{
		ID: bw.ID, CategoryID: bw.CategoryID, CategoryName: bw.CategoryName,
		Title: bw.Title, Author: bw.Author, ISBN: bw.ISBN,
		Description: bw.Description, CoverImageURL: bw.CoverImageURL,
		TotalCopies: bw.TotalCopies, AvailableCopies: bw.AvailableCopies,
		PublishedYear: bw.PublishedYear, Pages: bw.Pages, Language: bw.Language,
		IsDeleted: bw.IsDeleted, CreatedAt: bw.CreatedAt, UpdatedAt: bw.UpdatedAt,
	}
}

func toBookResps(rows []repository.BookWithCategory) []bookResp {
	out := make([]bookResp, 0, len(rows))
	for _, bw := range rows {
		out = append(out, toBookResp(bw))
	}
	return out
}

// parseBookListQuery maps query parameters onto the repository filter.
func parseBookListQuery(c echo.Context) repository.BookListQuery {
	q := repository.BookListQuery{
		Author: c.QueryParam("author"),
		Sort:   c.QueryParam("sort"),
		Order:  c.QueryParam("order"),
	}
	q.Page, q.PageSize = parsePage(c, 12)
	if v, err := strconv.ParseUint(c.QueryParam("category"), 10, 64); err == nil && v != 0 {
		q.CategoryID = &v
	}
	if v, err := strconv.Atoi(c.QueryParam("year")); err == nil {
		q.Year = &v
	}
	if s := c.QueryParam("available"); s != "" {
		avail := s == "true" || s == "1"
		q.Available = &avail
	}
	return q
}

// List handles GET /api/books with filters, sorting and pagination.
func (h *BookHandler) List(c echo.Context) error {
	q := parseBookListQuery(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, total, err := h.Books.List(ctx, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pageResponse{
		Page: q.Page, PageSize: q.PageSize, Total: total, Items: toBookResps(rows),
	})
}

// Search handles GET /api/books/search?q= free-text lookup.
func (h *BookHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "q is required"})
	}
	page, pageSize := parsePage(c, 12)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, total, err := h.Books.Search(ctx, q, page, pageSize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pageResponse{
		Page: page, PageSize: pageSize, Total: total, Items: toBookResps(rows),
	})
}

// Get handles GET /api/books/:id.
func (h *BookHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid book id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bw, err := h.Books.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrBookNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		}
		return err
	}
	return c.JSON(http.StatusOK, toBookResp(bw))
}

type createBookReq struct {
	CategoryID      *uint64 `json:"category_id"`
	Title           string  `json:"title" validate:"required,max=255"`
	Author          string  `json:"author" validate:"required,max=255"`
	ISBN            string  `json:"isbn" validate:"omitempty,max=20"`
	Description     string  `json:"description"`
	CoverImageURL   string  `json:"cover_image_url" validate:"omitempty,url,max=500"`
	TotalCopies     int     `json:"total_copies" validate:"required,min=1"`
	AvailableCopies int     `json:"available_copies" validate:"min=0"`
	PublishedYear   *int    `json:"published_year" validate:"omitempty,min=0,max=3000"`
	Pages           *int    `json:"pages" validate:"omitempty,min=1"`
	Language        string  `json:"language" validate:"omitempty,max=50"`
}

// Create handles POST /api/books (admin).
func (h *BookHandler) Create(c echo.Context) error {
	var req createBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if !model.CopiesValid(req.TotalCopies, req.AvailableCopies) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "available_copies cannot exceed total_copies"})
	}

	b := model.Book{
		CategoryID:      req.CategoryID,
		Title:           req.Title,
		Author:          req.Author,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.AvailableCopies,
		PublishedYear:   req.PublishedYear,
		Pages:           req.Pages,
	}
	if req.ISBN != "" {
		b.ISBN = &req.ISBN
	}
	if req.Description != "" {
		b.Description = &req.Description
	}
	if req.CoverImageURL != "" {
		b.CoverImageURL = &req.CoverImageURL
	}
	if req.Language != "" {
		b.Language = &req.Language
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Books.Create(ctx, b)
	if err != nil {
		if err == repository.ErrIsbnExists {
			return c.JSON(http.StatusConflict, echo.Map{"message": "isbn already exists"})
		}
		return err
	}
	bw, err := h.Books.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBookResp(bw))
}

// Update handles PUT /api/books/:id (admin) with patch semantics:
// absent fields stay untouched, empty strings clear nullable columns.
func (h *BookHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid book id"})
	}
	var patch model.BookPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if err := c.Validate(&patch); err != nil {
		return err
	}
	if patch.Empty() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "nothing to update"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	current, err := h.Books.GetByIDAny(ctx, id)
	if err != nil {
		if err == repository.ErrBookNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		}
		return err
	}

	merged := patch.Apply(current.Book)
	if !model.CopiesValid(merged.TotalCopies, merged.AvailableCopies) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "available_copies cannot exceed total_copies"})
	}

	// The write covers only the patched columns.  The row read above is
	// for the 404 check and counter validation; writing it back whole
	// would undo any borrow that committed in between.
	if err := h.Books.Update(ctx, id, patch); err != nil {
		if err == repository.ErrIsbnExists {
			return c.JSON(http.StatusConflict, echo.Map{"message": "isbn already exists"})
		}
		return err
	}
	bw, err := h.Books.GetByIDAny(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookResp(bw))
}

// Delete handles DELETE /api/books/:id (admin).  Books with open loans
// cannot be removed.
func (h *BookHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid book id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Books.SoftDelete(ctx, id); err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	case repository.ErrBookHasActiveLoans:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "book has active loans and cannot be deleted"})
	case repository.ErrBookNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
	default:
		return err
	}
}
