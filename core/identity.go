package core

// Roles
const (
	RoleLearner    = "learner"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

var AllRoles = []string{RoleLearner, RoleInstructor, RoleAdmin}

// Identity is the authenticated caller of an operation.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// CanTeach reports whether the caller may author courses and read instructor analytics.
func (id Identity) CanTeach() bool {
	return id.Role == RoleInstructor || id.Role == RoleAdmin
}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
