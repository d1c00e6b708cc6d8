package user_test

import (
	"context"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

var resetLinkRegex = regexp.MustCompile(`password-reset-confirm\?\S+`)

func setup(t *testing.T) (*user.Service, user.Repository) {
	conf := testutil.NewConfig(t)
	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewUserRepository(db)
	emailsvc.ResetSentMessages()
	return user.NewService(repo, emailsvc.NewConsoleServiceMock(conf), conf), repo
}

func TestService_Register(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	nu := user.NewUser{FullName: "Amani Njeri", Email: "amani@darasa.test", Password: "Xk9#mQ2$vL", PasswordConfirm: "Xk9#mQ2$vL"}
	usr, err := svc.Register(ctx, nu)
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, core.RoleLearner, usr.Role)
	assert.True(t, usr.Active())
	assert.NoError(t, usr.CheckPassword("Xk9#mQ2$vL"))

	_, err = svc.Register(ctx, nu)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []core.FieldError{{Field: "email", Error: user.ErrEmailExists.Error()}}, vErr.Fields)

	got, err := svc.GetByEmail(ctx, "  AMANI@darasa.test ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
}

func TestService_UpdateProfile(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Amani Njeri", "amani@darasa.test", "Xk9#mQ2$vL", core.RoleLearner, true)

	bio, website := "Gopher", "https://amani.darasa.test"
	up := user.UpdateProfile{Bio: &bio, Website: &website, Password: "Nw3@pLk8#z", PasswordConfirm: "Nw3@pLk8#z"}
	up.Clean(usr)

	updated, err := svc.UpdateProfile(ctx, usr.ID, up)
	require.NoError(t, err)
	assert.Equal(t, "Amani Njeri", updated.FullName)
	assert.Equal(t, "Gopher", updated.Bio)
	assert.Equal(t, "https://amani.darasa.test", updated.Website)
	assert.Empty(t, updated.AvatarURL)
	assert.NoError(t, updated.CheckPassword("Nw3@pLk8#z"))

	_, err = svc.UpdateProfile(ctx, "missing", up)
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_ChangeRole(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, repo, "Zawadi Admin", "zawadi@darasa.test", "", core.RoleAdmin, true)
	usr := testutil.CreateUser(t, repo, "Amani Njeri", "amani@darasa.test", "", core.RoleLearner, true)

	_, err := svc.ChangeRole(ctx, usr.Identity(), usr.ID, core.RoleAdmin)
	assert.True(t, core.IsPermissionDenied(err))

	_, err = svc.ChangeRole(ctx, admin.Identity(), admin.ID, core.RoleLearner)
	assert.Equal(t, user.ErrCannotDemoteSelf, err)

	updated, err := svc.ChangeRole(ctx, admin.Identity(), usr.ID, core.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, core.RoleInstructor, updated.Role)
}

func TestService_Delete(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, repo, "Zawadi Admin", "zawadi@darasa.test", "", core.RoleAdmin, true)
	usr := testutil.CreateUser(t, repo, "Amani Njeri", "amani@darasa.test", "", core.RoleLearner, true)

	assert.True(t, core.IsPermissionDenied(svc.Delete(ctx, usr.Identity(), admin.ID)))
	assert.Equal(t, user.ErrCannotDeleteSelf, svc.Delete(ctx, admin.Identity(), usr.ID, admin.ID))

	require.NoError(t, svc.Delete(ctx, admin.Identity(), usr.ID))
	_, err := svc.GetByID(ctx, usr.ID)
	assert.Equal(t, user.ErrNotFound, err)

	assert.Equal(t, user.ErrNotFound, svc.Delete(ctx, admin.Identity(), usr.ID))
}

func TestService_PasswordReset(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Amani Njeri", "amani@darasa.test", "Xk9#mQ2$vL", core.RoleLearner, true)
	testutil.CreateUser(t, repo, "Juma Inactive", "juma@darasa.test", "Xk9#mQ2$vL", core.RoleLearner, false)

	assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "nobody@darasa.test"))
	assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "juma@darasa.test"))
	assert.Empty(t, emailsvc.SentMessages)

	require.NoError(t, svc.RequestPasswordReset(ctx, "amani@darasa.test"))
	msg, ok := emailsvc.LastSentMessage()
	require.True(t, ok)
	assert.Equal(t, "amani@darasa.test", msg.To[0].Address)

	link := resetLinkRegex.FindString(msg.TextContent)
	require.NotEmpty(t, link)
	query, err := url.ParseQuery(link[len("password-reset-confirm?"):])
	require.NoError(t, err)
	uid, token := query.Get("uid"), query.Get("token")
	assert.Equal(t, user.EncodeUID(usr), uid)

	err = svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: "bad-token-value", Password: "Nw3@pLk8#z"})
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)

	err = svc.ResetPassword(ctx, user.ResetUserPassword{UID: "!!", Token: token, Password: "Nw3@pLk8#z"})
	assert.ErrorAs(t, err, &vErr)

	require.NoError(t, svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "Nw3@pLk8#z"}))
	usr, err = svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("Nw3@pLk8#z"))

	// the token is single-use: the password hash changed
	err = svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "Qr5!tYu7&w"})
	assert.ErrorAs(t, err, &vErr)
}
