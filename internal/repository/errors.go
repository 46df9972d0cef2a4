// Package repository defines sentinel error values that are reused across
// multiple repositories.  These allow higher layers such as handlers to
// distinguish failure scenarios without string matching: the *Exists
// family maps to HTTP 409, the *NotFound family to 404 and the
// referential delete blocks to 400.
package repository

import (
	"errors"
	"strings"
)

// Uniqueness conflicts surfaced from MySQL duplicate-key errors.
var (
	ErrEmailExists    = errors.New("email already exists")
	ErrIsbnExists     = errors.New("isbn already exists")
	ErrCategoryExists = errors.New("category name already exists")
)

// Missing records.  Soft-deleted books count as missing.
var (
	ErrBookNotFound     = errors.New("book not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrLoanNotFound     = errors.New("loan not found")
)

// Referential delete blocks.
var (
	ErrBookHasActiveLoans = errors.New("book has active loans")
	ErrCategoryInUse      = errors.New("category still has books")
)

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (error 1062) without importing driver internals.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "1062")
}
