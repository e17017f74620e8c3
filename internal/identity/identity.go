package identity

import (
	"sort"
	"strings"

	"popcorn/internal/fields"
)

// User describes one known account and its catalog permissions.
type User struct {
	ID          string
	Name        string
	Verifier    bool
	Permissions []string
}

// Authorizer answers the two questions the verification gate asks about a
// caller. The engine only ever sees this interface; where the answers come
// from (config file, session store, upstream service) is a wiring concern.
type Authorizer interface {
	// HasPermission reports whether the user may contribute to the field.
	HasPermission(userID string, field fields.Type) bool
	// IsVerifier reports whether the user may accept or reject contributions.
	IsVerifier(userID string) bool
	// Lookup returns the user record when the account exists.
	Lookup(userID string) (User, bool)
}

// Static is an Authorizer backed by a fixed user list.
type Static struct {
	users map[string]User
}

// NewStatic builds an authorizer from the provided accounts. Permission
// names are normalized to lower case; duplicate IDs keep the last entry.
func NewStatic(users []User) *Static {
	index := make(map[string]User, len(users))
	for _, user := range users {
		id := strings.TrimSpace(user.ID)
		if id == "" {
			continue
		}
		normalized := make([]string, 0, len(user.Permissions))
		for _, perm := range user.Permissions {
			perm = strings.ToLower(strings.TrimSpace(perm))
			if perm != "" {
				normalized = append(normalized, perm)
			}
		}
		user.ID = id
		user.Permissions = normalized
		index[id] = user
	}
	return &Static{users: index}
}

// HasPermission implements Authorizer.
func (s *Static) HasPermission(userID string, field fields.Type) bool {
	user, ok := s.users[userID]
	if !ok {
		return false
	}
	policy, ok := fields.PolicyFor(field)
	if !ok {
		return false
	}
	for _, perm := range user.Permissions {
		if perm == fields.PermissionAll || perm == policy.Permission {
			return true
		}
	}
	return false
}

// IsVerifier implements Authorizer.
func (s *Static) IsVerifier(userID string) bool {
	user, ok := s.users[userID]
	return ok && user.Verifier
}

// Lookup implements Authorizer.
func (s *Static) Lookup(userID string) (User, bool) {
	user, ok := s.users[userID]
	return user, ok
}

// Users returns all known accounts ordered by ID.
func (s *Static) Users() []User {
	out := make([]User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
