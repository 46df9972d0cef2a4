package model

import "testing"

func TestUserPatchApply(t *testing.T) {
	phone := "+1-555-0100"
	u := User{FullName: "Ada Lovelace", Role: RoleUser, Phone: &phone, IsActive: true}

	role := RoleAdmin
	inactive := false
	empty := ""
	p := UserPatch{Role: &role, IsActive: &inactive, Phone: &empty}
	got := p.Apply(u)

	if got.Role != RoleAdmin {
		t.Fatalf("role not applied: %q", got.Role)
	}
	if got.IsActive {
		t.Fatal("is_active=false not applied")
	}
	if got.Phone != nil {
		t.Fatalf("empty string should clear phone, got %q", *got.Phone)
	}
	if got.FullName != "Ada Lovelace" {
		t.Fatal("untouched full_name must survive the merge")
	}
}

func TestUserPatchEmpty(t *testing.T) {
	if !(UserPatch{}).Empty() {
		t.Fatal("zero patch should be empty")
	}
	active := true
	if (UserPatch{IsActive: &active}).Empty() {
		t.Fatal("patch with a field should not be empty")
	}
}
