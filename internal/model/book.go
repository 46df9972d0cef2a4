package model

import "time"

// Book represents a title in the catalog together with its copy
// bookkeeping.  AvailableCopies is decremented on borrow and incremented
// on return under a row lock; it must stay within [0, TotalCopies] at
// all times.  Soft-deleted books are excluded from listings and cannot be
// borrowed.
//
// Fields:
//  ID              – primary key identifier.
//  CategoryID      – optional reference into categories.
//  Title           – book title.
//  Author          – author name.
//  ISBN            – optional ISBN, unique when present.
//  Description     – optional free-text description.
//  CoverImageURL   – optional URL of a cover image.
//  TotalCopies     – number of physical copies owned.
//  AvailableCopies – copies currently on the shelf.
//  PublishedYear   – optional year of publication.
//  Pages           – optional page count.
//  Language        – optional language name.
//  IsDeleted       – soft-delete flag.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type Book struct {
	ID              uint64    // books.id
	CategoryID      *uint64   // books.category_id (nullable)
	Title           string    // books.title
	Author          string    // books.author
	ISBN            *string   // books.isbn (nullable, unique)
	Description     *string   // books.description (nullable)
	CoverImageURL   *string   // books.cover_image_url (nullable)
	TotalCopies     int       // books.total_copies
	AvailableCopies int       // books.available_copies
	PublishedYear   *int      // books.published_year (nullable)
	Pages           *int      // books.pages (nullable)
	Language        *string   // books.language (nullable)
	IsDeleted       bool      // books.is_deleted
	CreatedAt       time.Time // books.created_at
	UpdatedAt       time.Time // books.updated_at
}

// CopiesValid reports whether the copy counters satisfy the catalog
// invariant 0 <= available <= total.
func CopiesValid(total, available int) bool {
	return available >= 0 && total >= available
}

// BookPatch carries the optional fields of a book update.  A nil pointer
// leaves the column unchanged; an empty string on a nullable text column
// clears it.  Numeric nullable columns are cleared by an explicit null in
// the request body, which decodes to a pointer to zero only when the
// field is present.
type BookPatch struct {
	CategoryID    *uint64 `json:"category_id"`
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	ISBN          *string `json:"isbn"`
	Description   *string `json:"description"`
	CoverImageURL *string `json:"cover_image_url"`
	TotalCopies   *int    `json:"total_copies" validate:"omitempty,min=1"`
	AvailableCopies *int  `json:"available_copies" validate:"omitempty,min=0"`
	PublishedYear *int    `json:"published_year"`
	Pages         *int    `json:"pages"`
	Language      *string `json:"language"`
	IsDeleted     *bool   `json:"is_deleted"`
}

// Empty reports whether the patch would change nothing.
func (p BookPatch) Empty() bool {
	return p.CategoryID == nil && p.Title == nil && p.Author == nil &&
		p.ISBN == nil && p.Description == nil && p.CoverImageURL == nil &&
		p.TotalCopies == nil && p.AvailableCopies == nil &&
		p.PublishedYear == nil && p.Pages == nil && p.Language == nil &&
		p.IsDeleted == nil
}

// Apply merges the patch into a copy of b and returns it.  The copy
// invariant is re-checked by the caller on the merged result so that a
// patch touching only one of the two counters is validated against the
// surviving value of the other.
func (p BookPatch) Apply(b Book) Book {
	if p.CategoryID != nil {
		b.CategoryID = p.CategoryID
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.ISBN != nil {
		b.ISBN = nullableString(*p.ISBN)
	}
	if p.Description != nil {
		b.Description = nullableString(*p.Description)
	}
	if p.CoverImageURL != nil {
		b.CoverImageURL = nullableString(*p.CoverImageURL)
	}
	if p.TotalCopies != nil {
		b.TotalCopies = *p.TotalCopies
	}
	if p.AvailableCopies != nil {
		b.AvailableCopies = *p.AvailableCopies
	}
	if p.PublishedYear != nil {
		b.PublishedYear = p.PublishedYear
	}
	if p.Pages != nil {
		b.Pages = p.Pages
	}
	if p.Language != nil {
		b.Language = nullableString(*p.Language)
	}
	if p.IsDeleted != nil {
		b.IsDeleted = *p.IsDeleted
	}
	return b
}
