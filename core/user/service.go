package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("user not found")
	ErrEmailExists      = errors.New("a user with this email already exists")
	ErrCannotDeleteSelf = core.NewPermissionError("you cannot delete your own account")
	ErrCannotDemoteSelf = core.NewPermissionError("you cannot change your own role")
	errAdminRequired    = core.NewPermissionError("permission denied")
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if a user other than excludedIDs uses email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.FullName or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  tokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.Server.PasswordResetTimeoutDelta,
		},
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedIDs...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

// Register creates a new learner account. nu must be cleaned and validated.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.checkUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		FullName:  nu.FullName,
		Email:     nu.Email,
		Role:      core.RoleLearner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, core.CleanOrdering(ordering, OrderingFields...))
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// UpdateProfile applies the profile settings of user id. up must be cleaned and validated.
func (svc *Service) UpdateProfile(ctx context.Context, id string, up UpdateProfile) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	usr.FullName = up.FullName
	if up.AvatarURL != nil {
		usr.AvatarURL = *up.AvatarURL
	}
	if up.Bio != nil {
		usr.Bio = *up.Bio
	}
	if up.Website != nil {
		usr.Website = *up.Website
	}
	if up.Password != "" {
		if err = usr.SetPassword(up.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// ChangeRole sets the role of user id. Admins only; an admin cannot change their own role.
func (svc *Service) ChangeRole(ctx context.Context, actor core.Identity, id, role string) (User, error) {
	if !actor.IsAdmin() {
		return User{}, errAdminRequired
	}
	if actor.UserID == id {
		return User{}, ErrCannotDemoteSelf
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Role = role
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Delete removes users by ID. Admins only; an admin cannot delete their own account.
func (svc *Service) Delete(ctx context.Context, actor core.Identity, ids ...string) error {
	if !actor.IsAdmin() {
		return errAdminRequired
	}
	for _, id := range ids {
		if id == actor.UserID {
			return ErrCannotDeleteSelf
		}
	}
	n, err := svc.repo.DeleteUsersByID(ctx, ids...)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	if n == 0 && len(ids) > 0 {
		return ErrNotFound
	}
	return nil
}

// RequestPasswordReset emails a password reset link to the user with the given email, if any.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.Active() {
		return ErrNotFound
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: struct {
			Name, UID, Token string
		}{
			Name:  usr.FullName,
			UID:   EncodeUID(usr),
			Token: svc.tokens.makeToken(usr),
		},
	})
}

// ResetPassword sets a new password if the reset token is valid.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	errInvalid := core.NewValidationError(errors.New("invalid token or uid"))

	id, err := decodeUID(data.UID)
	if err != nil {
		return errInvalid
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return errInvalid
		}
		return err
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}
	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}
