package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/library-management/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,email,password_hash,full_name,role,phone,address,is_active,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var phone, address sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role,
		&phone, &address, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if phone.Valid {
		u.Phone = &phone.String
	}
	if address.Valid {
		u.Address = &address.String
	}
	return u, nil
}

// Create inserts a user with an already-hashed password and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash, fullName, role string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, full_name, role) VALUES (?,?,?,?)",
		email, passwordHash, fullName, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// UserSearchQuery defines the filter and pagination of an admin user listing.
type UserSearchQuery struct {
	Q        string
	Page     int
	PageSize int
}

// BuildUserSearch returns the WHERE clause and arguments for a user
// listing.  Kept as a pure function so the filter logic is testable
// without a database.
func BuildUserSearch(q UserSearchQuery) (string, []any) {
	where := "1=1"
	args := []any{}
	if q.Q != "" {
		where += " AND (LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?)"
		needle := "%" + strings.ToLower(q.Q) + "%"
		args = append(args, needle, needle)
	}
	return where, args
}

// Search lists users matching the query, newest first, with the total
// count for pagination.
func (r *UserRepo) Search(ctx context.Context, q UserSearchQuery) ([]model.User, int64, error) {
	where, args := BuildUserSearch(q)

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listArgs := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users WHERE "+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.User, 0, q.PageSize)
	for rows.Next() {
		var u model.User
		var phone, address sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role,
			&phone, &address, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if phone.Valid {
			u.Phone = &phone.String
		}
		if address.Valid {
			u.Address = &address.String
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// Update writes the merged user row produced by a UserPatch.  Callers
// resolve existence beforehand; MySQL reports zero affected rows for
// no-op updates so RowsAffected cannot distinguish missing from unchanged.
func (r *UserRepo) Update(ctx context.Context, u model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET full_name=?, role=?, is_active=?, phone=?, address=? WHERE id=?",
		u.FullName, u.Role, u.IsActive, u.Phone, u.Address, u.ID)
	return err
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", passwordHash, id)
	return err
}

// Deactivate soft-deletes a user account.  Loan history is preserved.
func (r *UserRepo) Deactivate(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=0 WHERE id=?", id)
	return err
}
