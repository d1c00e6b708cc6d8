package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
)

// User is a profile: a learner, an instructor or an admin.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	AvatarURL    string    `json:"avatar_url"`
	Bio          string    `json:"bio"`
	Website      string    `json:"website"`
	IsActive     *bool     `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u User) Active() bool {
	return u.IsActive == nil || *u.IsActive
}

func (u User) IsAdmin() bool      { return u.Role == core.RoleAdmin }
func (u User) IsInstructor() bool { return u.Role == core.RoleInstructor }

// Identity returns the caller identity carried through the services.
func (u User) Identity() core.Identity {
	return core.Identity{UserID: u.ID, Email: u.Email, Name: u.FullName, Role: u.Role}
}

// NewUser contains information needed to register a new learner.
type NewUser struct {
	FullName        string `json:"full_name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

// UpdateProfile defines what a user may change on their own profile.
// Empty fields are left untouched.
type UpdateProfile struct {
	FullName        string  `json:"full_name" validate:"omitempty,max=255"`
	AvatarURL       *string `json:"avatar_url" validate:"omitempty,httpurl"`
	Bio             *string `json:"bio" validate:"omitempty,max=2000"`
	Website         *string `json:"website" validate:"omitempty,httpurl"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	// used by the password policy
	email string
}

func (up *UpdateProfile) Clean(orig User) {
	up.FullName = core.CleanString(up.FullName)
	if up.FullName == "" {
		up.FullName = orig.FullName
	}
	for _, s := range []*string{up.AvatarURL, up.Bio, up.Website} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	up.email = orig.Email
}

// UpdateRole is used by admins to change a user's role.
type UpdateRole struct {
	Role string `json:"role" validate:"required,role"`
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields lists the fields users can be ordered by.
var OrderingFields = []string{"full_name", "email", "role", "created_at", "last_login"}
