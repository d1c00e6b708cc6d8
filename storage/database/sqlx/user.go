package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database"
)

const profileColumns = "id, email, full_name, role, avatar_url, bio, website, is_active, password_hash, created_at, updated_at, last_login"

type profileRow struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	FullName     string      `db:"full_name"`
	Role         string      `db:"role"`
	AvatarURL    null.String `db:"avatar_url"`
	Bio          null.String `db:"bio"`
	Website      null.String `db:"website"`
	IsActive     bool        `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func toProfileRow(usr user.User) profileRow {
	return profileRow{
		ID:           usr.ID,
		Email:        usr.Email,
		FullName:     usr.FullName,
		Role:         usr.Role,
		AvatarURL:    null.NewString(usr.AvatarURL, usr.AvatarURL != ""),
		Bio:          null.NewString(usr.Bio, usr.Bio != ""),
		Website:      null.NewString(usr.Website, usr.Website != ""),
		IsActive:     usr.Active(),
		PasswordHash: null.NewBytes(usr.PasswordHash, usr.PasswordHash != nil),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r profileRow) user() user.User {
	isActive := r.IsActive
	return user.User{
		ID:           r.ID,
		Email:        r.Email,
		FullName:     r.FullName,
		Role:         r.Role,
		AvatarURL:    r.AvatarURL.String,
		Bio:          r.Bio.String,
		Website:      r.Website.String,
		IsActive:     &isActive,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	q := "SELECT EXISTS (SELECT 1 FROM profiles WHERE email = $1 AND NOT (id::text = ANY($2)))"
	if excludedIDs == nil {
		excludedIDs = []string{}
	}
	var exists bool
	if err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &exists, q, email, pq.Array(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO profiles (email, full_name, role, avatar_url, bio, website, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:email, :full_name, :role, :avatar_url, :bio, :website, :is_active, :password_hash, :created_at, :updated_at, :last_login)
		RETURNING ` + profileColumns
	return repo.namedGet(ctx, q, toProfileRow(usr), "inserting user")
}

func (repo userRepository) namedGet(ctx context.Context, q string, row profileRow, msg string) (user.User, error) {
	exec := getExec(ctx, repo.db)
	query, args, err := sqlx.Named(q, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, msg)
	}
	var res profileRow
	if err = sqlx.GetContext(ctx, exec, &res, exec.Rebind(query), args...); err != nil {
		if database.IsUniqueViolation(err, "profiles_email_key") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, msg)
	}
	return res.user(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg(containsPattern(filter.Search))
			conds = append(conds, "(full_name ILIKE "+p+" OR email ILIKE "+p+")")
		}
		if len(filter.Roles) > 0 {
			conds = append(conds, "role = ANY("+arg(pq.Array(filter.Roles))+")")
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}

	q := "SELECT " + profileColumns + " FROM profiles"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, "")

	var rows []profileRow
	if err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := "SELECT " + profileColumns + " FROM profiles WHERE "
	var arg string
	switch {
	case filter.ID != "":
		q += "id::text = $1"
		arg = filter.ID
	case filter.Email != "":
		q += "email = $1"
		arg = filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	var row profileRow
	if err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &row, q, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.user(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE profiles SET email = :email, full_name = :full_name, role = :role, avatar_url = :avatar_url,
		bio = :bio, website = :website, is_active = :is_active, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login
		WHERE id = :id
		RETURNING ` + profileColumns
	return repo.namedGet(ctx, q, toProfileRow(usr), "updating user")
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO profiles (email, full_name, role, avatar_url, bio, website, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:email, :full_name, :role, :avatar_url, :bio, :website, :is_active, :password_hash, :created_at, :updated_at, :last_login)
		ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name, role = EXCLUDED.role,
			is_active = EXCLUDED.is_active, password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
		RETURNING ` + profileColumns
	return repo.namedGet(ctx, q, toProfileRow(usr), "upserting user")
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := getExec(ctx, repo.db).ExecContext(ctx, "DELETE FROM profiles WHERE id::text = ANY($1)", pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(n), nil
}
