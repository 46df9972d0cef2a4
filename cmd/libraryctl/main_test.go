package main

import "testing"

func TestSplitStatements(t *testing.T) {
	raw := `-- schema for the library service
CREATE TABLE a (
	id INT PRIMARY KEY
);

-- trailing comment
CREATE TABLE b (id INT);
`
	stmts := splitStatements(raw)
	if len(stmts) != 2 {
		t.Fatalf("statements: got %d, want 2", len(stmts))
	}
	if stmts[0][:14] != "CREATE TABLE a" {
		t.Fatalf("first statement: %q", stmts[0])
	}
	if stmts[1] != "CREATE TABLE b (id INT)" {
		t.Fatalf("second statement: %q", stmts[1])
	}
}

func TestSplitStatementsEmptyInput(t *testing.T) {
	if got := splitStatements("-- only comments\n\n"); len(got) != 0 {
		t.Fatalf("comment-only input: %v", got)
	}
}
