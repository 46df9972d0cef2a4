package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column in the database.  The json
// tags are omitted here because these structs are primarily used by the
// repository layer; handlers define separate response types with
// appropriate JSON tags.  Accounts are never hard-deleted: deactivation
// flips IsActive so loan history stays intact.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address, stored lower-cased.
//  PasswordHash – bcrypt hashed password.
//  FullName     – display name of the user.
//  Role         – either "user" or "admin".
//  Phone        – optional contact phone.
//  Address      – optional postal address.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64     // users.id
	Email        string     // users.email
	PasswordHash string     // users.password_hash
	FullName     string     // users.full_name
	Role         string     // users.role
	Phone        *string    // users.phone (nullable)
	Address      *string    // users.address (nullable)
	IsActive     bool       // users.is_active
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}

// Roles recognised by the authorization gate.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and carries metadata for expiry and
// revocation.  The plain token is never stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// UserPatch carries the optional fields of an admin user update.  A nil
// pointer means "leave unchanged".  Empty strings on nullable columns
// (phone, address) clear the value.
type UserPatch struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

// Empty reports whether the patch would change nothing.
func (p UserPatch) Empty() bool {
	return p.FullName == nil && p.Role == nil && p.IsActive == nil &&
		p.Phone == nil && p.Address == nil
}

// Apply merges the patch into a copy of u and returns it.
func (p UserPatch) Apply(u User) User {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.Phone != nil {
		u.Phone = nullableString(*p.Phone)
	}
	if p.Address != nil {
		u.Address = nullableString(*p.Address)
	}
	return u
}

// nullableString maps "" to nil so empty inputs clear nullable columns.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
