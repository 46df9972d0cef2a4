package model

import "time"

// Category groups books by genre or subject.  A category cannot be
// deleted while any non-deleted book still references it.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique category name.
//  Description – optional free-text description.
//  CreatedAt   – timestamp of creation.
type Category struct {
	ID          uint64    // categories.id
	Name        string    // categories.name
	Description *string   // categories.description (nullable)
	CreatedAt   time.Time // categories.created_at
}

// CategoryPatch carries the optional fields of a category update.
type CategoryPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Empty reports whether the patch would change nothing.
func (p CategoryPatch) Empty() bool {
	return p.Name == nil && p.Description == nil
}

// Apply merges the patch into a copy of c and returns it.
func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = nullableString(*p.Description)
	}
	return c
}
