package domain

import "strings"

// ID is used across domain entities.
type ID int64

// Role names understood by the core.
const (
	RoleOwner    = "owner"
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleAgent    = "agent"
	RoleDriver   = "driver"
)

// Actor is the verified identity a core operation runs on behalf of.
// Handlers build it from the auth middleware; services never look up sessions.
type Actor struct {
	UserID int64  `json:"userId"`
	OrgID  int64  `json:"orgId"`
	Role   string `json:"role"`
}

func (a Actor) normalizedRole() string {
	return strings.ToLower(strings.TrimSpace(a.Role))
}

// HasRole reports whether the actor holds one of roles.
func (a Actor) HasRole(roles ...string) bool {
	r := a.normalizedRole()
	for _, want := range roles {
		if r == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// IsElevated is true for roles allowed to perform destructive operations.
func (a Actor) IsElevated() bool {
	return a.HasRole(RoleOwner, RoleAdmin)
}

// Require returns a ForbiddenError unless the actor holds one of roles.
func (a Actor) Require(action string, roles ...string) error {
	if a.HasRole(roles...) {
		return nil
	}
	return ForbiddenError{Action: action}
}

// Validate checks the actor carries an organization scope.
func (a Actor) Validate() error {
	if a.OrgID <= 0 {
		return ValidationError{Field: "org_id", Msg: "organisasi tidak valid"}
	}
	return nil
}
