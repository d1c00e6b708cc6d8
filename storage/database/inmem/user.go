package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.tables.users {
		if usr.Email == email && !contains(excludedIDs, usr.ID) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, u := range repo.db.tables.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	usr.ID = uuid.New().String()
	repo.db.tables.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.tables.users))
	for _, usr := range repo.db.tables.users {
		if filter != nil && !matchUser(usr, filter) {
			continue
		}
		users = append(users, usr)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	if len(ordering) > 0 {
		ord := ordering[0]
		sort.SliceStable(users, func(i, j int) bool {
			a, b := users[i], users[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "full_name":
				return a.FullName < b.FullName
			case "email":
				return a.Email < b.Email
			case "role":
				return a.Role < b.Role
			case "last_login":
				return a.LastLogin.Before(b.LastLogin)
			default:
				return a.CreatedAt.Before(b.CreatedAt)
			}
		})
	}
	return users, nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.FullName), s) && !strings.Contains(strings.ToLower(usr.Email), s) {
			return false
		}
	}
	if len(filter.Roles) > 0 && !contains(filter.Roles, usr.Role) {
		return false
	}
	if filter.IsActive != nil && usr.Active() != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.tables.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, usr := range repo.db.tables.users {
			if usr.Email == filter.Email {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.tables.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.tables.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, u := range repo.db.tables.users {
		if u.Email == usr.Email {
			u.FullName = usr.FullName
			u.Role = usr.Role
			u.IsActive = usr.IsActive
			u.PasswordHash = usr.PasswordHash
			u.UpdatedAt = usr.UpdatedAt
			repo.db.tables.users[id] = u
			return u, nil
		}
	}
	usr.ID = uuid.New().String()
	repo.db.tables.users[usr.ID] = usr
	return usr, nil
}

// DeleteUsersByID also removes the rows that reference the deleted users.
func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.tables.users[id]; !ok {
			continue
		}
		delete(repo.db.tables.users, id)
		n++

		for cid, c := range repo.db.tables.courses {
			if c.InstructorID == id {
				repo.db.tables.deleteCourse(cid)
			}
		}
		for eid, e := range repo.db.tables.enrollments {
			if e.UserID == id {
				delete(repo.db.tables.enrollments, eid)
			}
		}
		for clid, cl := range repo.db.tables.completions {
			if cl.UserID == id {
				delete(repo.db.tables.completions, clid)
			}
		}
		for pid, p := range repo.db.tables.payments {
			if p.UserID == id {
				delete(repo.db.tables.payments, pid)
			}
		}
		for certID, cert := range repo.db.tables.certificates {
			if cert.UserID == id {
				delete(repo.db.tables.certificates, certID)
			}
		}
	}
	return n, nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
