package identity_test

import (
	"testing"

	"popcorn/internal/fields"
	"popcorn/internal/identity"
)

func TestStaticPermissions(t *testing.T) {
	auth := identity.NewStatic([]identity.User{
		{ID: "alice", Permissions: []string{"ALL"}},
		{ID: "bob", Permissions: []string{"release_date", " Other_Title "}},
		{ID: "mallory"},
		{ID: "vera", Verifier: true, Permissions: []string{"all"}},
	})

	if !auth.HasPermission("alice", fields.TypeGenre) {
		t.Fatal("all grants every field")
	}
	if !auth.HasPermission("bob", fields.TypeReleaseDate) {
		t.Fatal("bob holds release_date")
	}
	if !auth.HasPermission("bob", fields.TypeOtherTitle) {
		t.Fatal("permission names are normalized")
	}
	if auth.HasPermission("bob", fields.TypeGenre) {
		t.Fatal("bob lacks genre")
	}
	if auth.HasPermission("mallory", fields.TypeGenre) {
		t.Fatal("empty permission set grants nothing")
	}
	if auth.HasPermission("nobody", fields.TypeGenre) {
		t.Fatal("unknown user grants nothing")
	}

	if auth.IsVerifier("alice") {
		t.Fatal("alice is not a verifier")
	}
	if !auth.IsVerifier("vera") {
		t.Fatal("vera is a verifier")
	}

	if _, ok := auth.Lookup("bob"); !ok {
		t.Fatal("expected bob to exist")
	}
	if _, ok := auth.Lookup("nobody"); ok {
		t.Fatal("unknown user must not resolve")
	}
}

func TestUsersOrdered(t *testing.T) {
	auth := identity.NewStatic([]identity.User{
		{ID: "zed"}, {ID: "amy"}, {ID: "  "},
	})
	users := auth.Users()
	if len(users) != 2 {
		t.Fatalf("expected blank IDs dropped, got %d users", len(users))
	}
	if users[0].ID != "amy" || users[1].ID != "zed" {
		t.Fatalf("expected sorted users, got %v", users)
	}
}
