package authx

import (
	"fmt"
	"strings"
)

// Well-known roles. Role names are exact-string and case-sensitive.
const (
	RoleSubmitter = "submitter"
	RoleReviewer  = "reviewer"
	RoleAdmin     = "admin"
)

// InsufficientRoleError is the authorization failure. Unlike authentication
// failures its message may name the roles involved, since the caller's
// identity is already established by the time it is produced.
type InsufficientRoleError struct {
	// Missing holds the roles the principal lacks. For any-of checks it is
	// the full acceptable set; for all-of checks it is required minus held.
	Missing []string

	// AnyOf marks whether one of Missing would have sufficed.
	AnyOf bool
}

func (e *InsufficientRoleError) Error() string {
	if e.AnyOf && len(e.Missing) > 1 {
		return fmt.Sprintf("insufficient role: requires one of [%s]", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("insufficient role: missing [%s]", strings.Join(e.Missing, ", "))
}

// RequireRole passes when the principal holds role. Admins pass every check
// in this system regardless of the roles they literally hold; that global
// override is the entire role hierarchy.
func RequireRole(p Principal, role string) error {
	if p.HasRole(RoleAdmin) || p.HasRole(role) {
		return nil
	}
	return &InsufficientRoleError{Missing: []string{role}}
}

// RequireAnyRole passes when the principal holds at least one of roles.
func RequireAnyRole(p Principal, roles ...string) error {
	if p.HasRole(RoleAdmin) {
		return nil
	}
	for _, role := range roles {
		if p.HasRole(role) {
			return nil
		}
	}
	return &InsufficientRoleError{Missing: append([]string(nil), roles...), AnyOf: true}
}

// RequireAllRoles passes when the principal holds every role listed. The
// admin override applies here too, even for roles an admin does not hold.
func RequireAllRoles(p Principal, roles ...string) error {
	if p.HasRole(RoleAdmin) {
		return nil
	}

	var missing []string
	for _, role := range roles {
		if !p.HasRole(role) {
			missing = append(missing, role)
		}
	}
	if len(missing) > 0 {
		return &InsufficientRoleError{Missing: missing}
	}
	return nil
}
