package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/payment"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/storage/cache"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

var (
	usrRepo user.Repository
	payRepo payment.Repository
)

func setup(t *testing.T) *commandLine {
	conf := testutil.NewConfig(t)

	// set up DB & repos
	db, err := inmemdb.Open()
	require.NoError(t, err)
	usrRepo = inmemdb.NewUserRepository(db)
	payRepo = inmemdb.NewPaymentRepository(db)

	// start CLI
	return &commandLine{
		usrRepo: usrRepo,
		paymentSvc: payment.NewService(payment.ServiceDeps{
			Conf:        conf,
			Repo:        payRepo,
			Courses:     inmemdb.NewCourseRepository(db),
			Enrollments: inmemdb.NewLearningRepository(db),
			Users:       usrRepo,
			Idempotency: cache.NewMemoryStore(),
			MailSvc:     emailsvc.NewConsoleServiceMock(conf),
			Tx:          inmemdb.NewTxRunner(db),
		}),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		if _, err := fs.Stat(fsys, dir+"/00001_profiles.sql"); err != nil {
			return err
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "reviews", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no name", args: []string{"adduser", "-email", "admin@darasa.test"}, extra: "Adm1n$pwd", wantErr: errHelp},
		{name: "invalid role", args: []string{"adduser", "-email", "admin@darasa.test", "-name", "Admin", "-role", "owner"}, extra: "Adm1n$pwd", wantErr: errInvalidRole},
		{name: "no password", args: []string{"adduser", "-email", "admin@darasa.test", "-name", "Admin"}, extra: "", wantErr: errHelp},
		{name: "admin created", args: []string{"adduser", "-email", " Admin@Darasa.test", "-name", "Admin"}, extra: "Adm1n$pwd"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	usr, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "admin@darasa.test"})
	require.NoError(t, err)
	assert.Equal(t, "Admin", usr.FullName)
	assert.Equal(t, core.RoleAdmin, usr.Role)
	assert.True(t, usr.Active())
	assert.NoError(t, usr.CheckPassword("Adm1n$pwd"))

	t.Run("existing user updated", func(t *testing.T) {
		mockPassword("N3w$pwd!")
		require.NoError(t, cli.run([]string{"admin", "adduser", "-email", "admin@darasa.test", "-name", "Root", "-role", core.RoleInstructor}))

		updated, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "admin@darasa.test"})
		require.NoError(t, err)
		assert.Equal(t, usr.ID, updated.ID)
		assert.Equal(t, "Root", updated.FullName)
		assert.Equal(t, core.RoleInstructor, updated.Role)
		assert.NoError(t, updated.CheckPassword("N3w$pwd!"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Amani Njeri", "amani@darasa.test", "Xk9#mQ2$vL", core.RoleLearner, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@darasa.test"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@darasa.test"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "AMANI@darasa.test"}, extra: "lmao"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("lmao"))
}

func Test_commandLine_expirePayments(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	now := time.Now().UTC()
	stale, err := payRepo.CreatePayment(ctx, payment.Payment{
		UserID: "u1", CourseID: "c1", Amount: 55, Method: payment.MethodInvoice,
		Status: payment.StatusPending, Reference: "inv-stale", CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now,
	})
	require.NoError(t, err)
	fresh, err := payRepo.CreatePayment(ctx, payment.Payment{
		UserID: "u1", CourseID: "c2", Amount: 22, Method: payment.MethodInvoice,
		Status: payment.StatusPending, Reference: "inv-fresh", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	require.NoError(t, cli.run([]string{"admin", "expirepayments"}))

	p, err := payRepo.GetPayment(ctx, payment.GetFilter{ID: stale.ID})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusExpired, p.Status)

	p, err = payRepo.GetPayment(ctx, payment.GetFilter{ID: fresh.ID})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, p.Status)
}
