package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/library-management/internal/model"
)

// BookRepo provides catalog CRUD over the books table plus the
// transactional helpers used by the loan flow.  Soft-deleted books are
// invisible to every read path here.
type BookRepo struct{ DB *sql.DB }

func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{DB: db} }

// BookWithCategory is a catalog row joined with its category name.
type BookWithCategory struct {
	model.Book
	CategoryName *string
}

const bookCols = `b.id, b.category_id, b.title, b.author, b.isbn, b.description,
	b.cover_image_url, b.total_copies, b.available_copies, b.published_year,
	b.pages, b.language, b.is_deleted, b.created_at, b.updated_at`

func scanBook(sc interface{ Scan(...any) error }, withCategory bool) (BookWithCategory, error) {
	var bw BookWithCategory
	var categoryID sql.NullInt64
	var isbn, desc, cover, lang, catName sql.NullString
	var year, pages sql.NullInt64

	dest := []any{
		&bw.ID, &categoryID, &bw.Title, &bw.Author, &isbn, &desc,
		&cover, &bw.TotalCopies, &bw.AvailableCopies, &year,
		&pages, &lang, &bw.IsDeleted, &bw.CreatedAt, &bw.UpdatedAt,
	}
	if withCategory {
		dest = append(dest, &catName)
	}
	if err := sc.Scan(dest...); err != nil {
		return BookWithCategory{}, err
	}
	if categoryID.Valid {
		v := uint64(categoryID.Int64)
		bw.CategoryID = &v
	}
	if isbn.Valid {
		bw.ISBN = &isbn.String
	}
	if desc.Valid {
		bw.Description = &desc.String
	}
	if cover.Valid {
		bw.CoverImageURL = &cover.String
	}
	if year.Valid {
		v := int(year.Int64)
		bw.PublishedYear = &v
	}
	if pages.Valid {
		v := int(pages.Int64)
		bw.Pages = &v
	}
	if lang.Valid {
		bw.Language = &lang.String
	}
	if catName.Valid {
		bw.CategoryName = &catName.String
	}
	return bw, nil
}

// BookListQuery defines filters, sorting and pagination for the catalog
// listing.  Sort fields outside the allow-list fall back to created_at.
type BookListQuery struct {
	CategoryID *uint64
	Author     string
	Year       *int
	Available  *bool
	Sort       string
	Order      string
	Page       int
	PageSize   int
}

// bookSortFields is the allow-list of ORDER BY columns; anything else is
// replaced, never interpolated, so user input cannot reach the SQL text.
var bookSortFields = map[string]bool{
	"title":          true,
	"author":         true,
	"published_year": true,
	"created_at":     true,
}

// BuildBookList returns the WHERE clause, ORDER BY clause and arguments
// for a catalog listing.  Kept pure for testability.
func BuildBookList(q BookListQuery) (where string, orderBy string, args []any) {
	conds := []string{"b.is_deleted=0"}
	if q.CategoryID != nil {
		conds = append(conds, "b.category_id=?")
		args = append(args, *q.CategoryID)
	}
	if q.Author != "" {
		conds = append(conds, "LOWER(b.author) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Author)+"%")
	}
	if q.Year != nil {
		conds = append(conds, "b.published_year=?")
		args = append(args, *q.Year)
	}
	if q.Available != nil {
		if *q.Available {
			conds = append(conds, "b.available_copies > 0")
		} else {
			conds = append(conds, "b.available_copies = 0")
		}
	}

	sort := q.Sort
	if !bookSortFields[sort] {
		sort = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(q.Order, "asc") {
		order = "ASC"
	}
	return strings.Join(conds, " AND "), "b." + sort + " " + order, args
}

// List returns a catalog page with category names and the total count.
func (r *BookRepo) List(ctx context.Context, q BookListQuery) ([]BookWithCategory, int64, error) {
	where, orderBy, args := BuildBookList(q)

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM books b WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listArgs := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+bookCols+", c.name FROM books b LEFT JOIN categories c ON c.id=b.category_id WHERE "+
			where+" ORDER BY "+orderBy+" LIMIT ? OFFSET ?", listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]BookWithCategory, 0, q.PageSize)
	for rows.Next() {
		bw, err := scanBook(rows, true)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, bw)
	}
	return out, total, rows.Err()
}

// Search performs a case-insensitive substring match over title, author
// and isbn, newest first.
func (r *BookRepo) Search(ctx context.Context, q string, page, pageSize int) ([]BookWithCategory, int64, error) {
	needle := "%" + strings.ToLower(q) + "%"
	const cond = `b.is_deleted=0 AND (LOWER(b.title) LIKE ? OR LOWER(b.author) LIKE ? OR LOWER(COALESCE(b.isbn,'')) LIKE ?)`

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM books b WHERE "+cond,
		needle, needle, needle).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+bookCols+", c.name FROM books b LEFT JOIN categories c ON c.id=b.category_id WHERE "+
			cond+" ORDER BY b.created_at DESC LIMIT ? OFFSET ?",
		needle, needle, needle, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]BookWithCategory, 0, pageSize)
	for rows.Next() {
		bw, err := scanBook(rows, true)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, bw)
	}
	return out, total, rows.Err()
}

// GetByID fetches a single non-deleted book with its category name.
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (BookWithCategory, error) {
	bw, err := scanBook(r.DB.QueryRowContext(ctx,
		"SELECT "+bookCols+", c.name FROM books b LEFT JOIN categories c ON c.id=b.category_id WHERE b.id=? AND b.is_deleted=0 LIMIT 1",
		id), true)
	if err == sql.ErrNoRows {
		return BookWithCategory{}, ErrBookNotFound
	}
	return bw, err
}

// GetByIDAny fetches a book regardless of its soft-delete flag.  Admin
// updates use it so a deleted title can be patched back into the catalog.
func (r *BookRepo) GetByIDAny(ctx context.Context, id uint64) (BookWithCategory, error) {
	bw, err := scanBook(r.DB.QueryRowContext(ctx,
		"SELECT "+bookCols+", c.name FROM books b LEFT JOIN categories c ON c.id=b.category_id WHERE b.id=? LIMIT 1",
		id), true)
	if err == sql.ErrNoRows {
		return BookWithCategory{}, ErrBookNotFound
	}
	return bw, err
}

// Create inserts a book and returns its ID.  A duplicate ISBN surfaces
// as ErrIsbnExists.
func (r *BookRepo) Create(ctx context.Context, b model.Book) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO books (category_id, title, author, isbn, description, cover_image_url,
			total_copies, available_copies, published_year, pages, language)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		b.CategoryID, b.Title, b.Author, b.ISBN, b.Description, b.CoverImageURL,
		b.TotalCopies, b.AvailableCopies, b.PublishedYear, b.Pages, b.Language)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrIsbnExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// nullText maps an empty string to SQL NULL for nullable text columns,
// mirroring the clear-on-empty patch semantics.
func nullText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// BuildBookUpdate returns the UPDATE statement and arguments covering
// only the columns the patch provides.  Untouched columns never appear
// in the SET list: an edit that does not mention available_copies cannot
// overwrite a counter a concurrent borrow changed after the caller read
// the row.  Kept pure for testability.
func BuildBookUpdate(id uint64, p model.BookPatch) (string, []any) {
	sets := make([]string, 0, 12)
	args := make([]any, 0, 13)
	set := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.CategoryID != nil {
		set("category_id", *p.CategoryID)
	}
	if p.Title != nil {
		set("title", *p.Title)
	}
	if p.Author != nil {
		set("author", *p.Author)
	}
	if p.ISBN != nil {
		set("isbn", nullText(*p.ISBN))
	}
	if p.Description != nil {
		set("description", nullText(*p.Description))
	}
	if p.CoverImageURL != nil {
		set("cover_image_url", nullText(*p.CoverImageURL))
	}
	if p.TotalCopies != nil {
		set("total_copies", *p.TotalCopies)
	}
	if p.AvailableCopies != nil {
		set("available_copies", *p.AvailableCopies)
	}
	if p.PublishedYear != nil {
		set("published_year", *p.PublishedYear)
	}
	if p.Pages != nil {
		set("pages", *p.Pages)
	}
	if p.Language != nil {
		set("language", nullText(*p.Language))
	}
	if p.IsDeleted != nil {
		set("is_deleted", *p.IsDeleted)
	}
	args = append(args, id)
	return "UPDATE books SET " + strings.Join(sets, ", ") + " WHERE id=?", args
}

// Update applies the patch in a single statement writing only the
// provided columns.  A duplicate ISBN surfaces as ErrIsbnExists.
func (r *BookRepo) Update(ctx context.Context, id uint64, p model.BookPatch) error {
	query, args := BuildBookUpdate(id, p)
	_, err := r.DB.ExecContext(ctx, query, args...)
	if isDuplicateKey(err) {
		return ErrIsbnExists
	}
	return err
}

// SoftDelete marks a book deleted unless an open loan still references
// it, in which case ErrBookHasActiveLoans is returned and nothing changes.
// The check and the flag run in one transaction holding the book row
// lock; the borrow flow locks the same row before inserting a loan, so
// no loan can appear between the two.
func (r *BookRepo) SoftDelete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var deleted bool
	err = tx.QueryRowContext(ctx,
		"SELECT is_deleted FROM books WHERE id=? FOR UPDATE", id).Scan(&deleted)
	if err == sql.ErrNoRows {
		return ErrBookNotFound
	}
	if err != nil {
		return err
	}
	if deleted {
		return ErrBookNotFound
	}

	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM loans WHERE book_id=? AND return_date IS NULL", id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrBookHasActiveLoans
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE books SET is_deleted=1 WHERE id=?", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetForUpdateTx loads a book's copy counters inside tx while acquiring a
// row lock on the book record.  The lock is held until the surrounding
// transaction commits or rolls back, serializing concurrent borrows of
// the same title.
func (r *BookRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (available int, deleted bool, err error) {
	err = tx.QueryRowContext(ctx,
		"SELECT available_copies, is_deleted FROM books WHERE id=? FOR UPDATE",
		id).Scan(&available, &deleted)
	if err == sql.ErrNoRows {
		return 0, false, ErrBookNotFound
	}
	return available, deleted, err
}

// DecrementAvailableTx takes one copy off the shelf within tx.  Callers
// must have verified available_copies > 0 under the row lock first.
func (r *BookRepo) DecrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE books SET available_copies = available_copies - 1 WHERE id=?", id)
	return err
}

// IncrementAvailableTx puts one copy back on the shelf within tx.  No
// row lock is needed: the increment is commutative and cannot violate
// the copy invariant the way a decrement could.
func (r *BookRepo) IncrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE books SET available_copies = available_copies + 1 WHERE id=?", id)
	return err
}
