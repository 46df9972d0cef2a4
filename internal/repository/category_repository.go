package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/library-management/internal/model"
)

// CategoryRepo provides CRUD over the categories table.  Deletion is
// guarded by a referential check: a category with non-deleted books is
// never removed.
type CategoryRepo struct{ DB *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

// List returns all categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, description, created_at FROM categories ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &desc, &c.CreatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			c.Description = &desc.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID fetches a single category.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (model.Category, error) {
	var c model.Category
	var desc sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, description, created_at FROM categories WHERE id=? LIMIT 1",
		id).Scan(&c.ID, &c.Name, &desc, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Category{}, ErrCategoryNotFound
	}
	if err != nil {
		return model.Category{}, err
	}
	if desc.Valid {
		c.Description = &desc.String
	}
	return c, nil
}

// Create inserts a category and returns its ID.
func (r *CategoryRepo) Create(ctx context.Context, name string, description *string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO categories (name, description) VALUES (?,?)", name, description)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrCategoryExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update writes the merged category row produced by a CategoryPatch.
func (r *CategoryRepo) Update(ctx context.Context, c model.Category) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE categories SET name=?, description=? WHERE id=?",
		c.Name, c.Description, c.ID)
	if isDuplicateKey(err) {
		return ErrCategoryExists
	}
	return err
}

// Delete removes a category unless any non-deleted book still references
// it, in which case ErrCategoryInUse is returned and nothing changes.
// Check and delete share one transaction; FOR UPDATE locks the
// referencing book rows so a concurrent un-delete of a book is
// serialized, and the foreign key stops a new book from slipping in.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
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

	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM books WHERE category_id=? AND is_deleted=0 FOR UPDATE", id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrCategoryInUse
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id=?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCategoryNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
