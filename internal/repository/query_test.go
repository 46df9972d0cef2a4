package repository

import (
	"reflect"
	"testing"
	"time"
)

func TestBuildBookListDefaults(t *testing.T) {
	where, orderBy, args := BuildBookList(BookListQuery{})
	if where != "b.is_deleted=0" {
		t.Fatalf("where: %q", where)
	}
	if orderBy != "b.created_at DESC" {
		t.Fatalf("orderBy: %q", orderBy)
	}
	if len(args) != 0 {
		t.Fatalf("args: %v", args)
	}
}

func TestBuildBookListFilters(t *testing.T) {
	cat := uint64(7)
	year := 1965
	avail := true
	where, _, args := BuildBookList(BookListQuery{
		CategoryID: &cat,
		Author:     "Herbert",
		Year:       &year,
		Available:  &avail,
	})
	want := "b.is_deleted=0 AND b.category_id=? AND LOWER(b.author) LIKE ? AND b.published_year=? AND b.available_copies > 0"
	if where != want {
		t.Fatalf("where:\n got %q\nwant %q", where, want)
	}
	if !reflect.DeepEqual(args, []any{uint64(7), "%herbert%", 1965}) {
		t.Fatalf("args: %v", args)
	}
}

func TestBuildBookListUnavailableFilter(t *testing.T) {
	avail := false
	where, _, _ := BuildBookList(BookListQuery{Available: &avail})
	if where != "b.is_deleted=0 AND b.available_copies = 0" {
		t.Fatalf("where: %q", where)
	}
}

func TestBuildBookListSortAllowList(t *testing.T) {
	// Unknown sort columns must never reach the SQL text.
	_, orderBy, _ := BuildBookList(BookListQuery{Sort: "password_hash; DROP TABLE books"})
	if orderBy != "b.created_at DESC" {
		t.Fatalf("orderBy: %q", orderBy)
	}
	_, orderBy, _ = BuildBookList(BookListQuery{Sort: "title", Order: "ASC"})
	if orderBy != "b.title ASC" {
		t.Fatalf("orderBy: %q", orderBy)
	}
	_, orderBy, _ = BuildBookList(BookListQuery{Sort: "author", Order: "sideways"})
	if orderBy != "b.author DESC" {
		t.Fatalf("orderBy: %q", orderBy)
	}
}

func TestBuildLoanList(t *testing.T) {
	where, args := BuildLoanList(LoanListQuery{})
	if where != "1=1" || len(args) != 0 {
		t.Fatalf("empty query: where=%q args=%v", where, args)
	}

	uid := uint64(3)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	where, args = BuildLoanList(LoanListQuery{UserID: &uid, From: &from, To: &to})
	want := "1=1 AND l.user_id=? AND l.loan_date >= ? AND l.loan_date <= ?"
	if where != want {
		t.Fatalf("where:\n got %q\nwant %q", where, want)
	}
	if !reflect.DeepEqual(args, []any{uint64(3), from, to}) {
		t.Fatalf("args: %v", args)
	}
}

func TestBuildUserSearch(t *testing.T) {
	where, args := BuildUserSearch(UserSearchQuery{})
	if where != "1=1" || len(args) != 0 {
		t.Fatalf("empty query: where=%q args=%v", where, args)
	}

	where, args = BuildUserSearch(UserSearchQuery{Q: "Ada"})
	if where != "1=1 AND (LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?)" {
		t.Fatalf("where: %q", where)
	}
	if !reflect.DeepEqual(args, []any{"%ada%", "%ada%"}) {
		t.Fatalf("args: %v", args)
	}
}
