package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	defer repo.db.rlock(ctx)()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}
	for _, usr := range repo.db.users {
		if excluded[usr.ID] {
			continue
		}
		if usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()

	for _, u := range repo.db.users {
		if u.Username == usr.Username {
			return user.User{}, user.ErrUsernameExists
		}
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	defer repo.db.rlock(ctx)()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil && !matchUser(usr, filter) {
			continue
		}
		users = append(users, usr)
	}

	sort.SliceStable(users, func(i, j int) bool {
		return less(users[i], users[j], ordering, compareUsers, func(u1, u2 user.User) bool {
			return u1.CreatedAt.After(u2.CreatedAt)
		})
	})
	return users, nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(usr.Name), search) ||
			strings.Contains(usr.Username, search) ||
			strings.Contains(usr.Email, search)) {
			return false
		}
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	if len(filter.Roles) > 0 {
		var found bool
		for _, role := range filter.Roles {
			if usr.HasRole(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func compareUsers(u1, u2 user.User, field string) int {
	switch field {
	case "name":
		return strings.Compare(u1.Name, u2.Name)
	case "username":
		return strings.Compare(u1.Username, u2.Username)
	case "email":
		return strings.Compare(u1.Email, u2.Email)
	case "created_at":
		return compareInt64s(u1.CreatedAt.UnixNano(), u2.CreatedAt.UnixNano())
	case "is_active":
		return compareBools(u1.IsActive, u2.IsActive)
	case "last_login":
		var l1, l2 int64
		if u1.LastLogin != nil {
			l1 = u1.LastLogin.UnixNano()
		}
		if u2.LastLogin != nil {
			l2 = u2.LastLogin.UnixNano()
		}
		return compareInt64s(l1, l2)
	}
	return 0
}

func compareInt64s(t1, t2 int64) int {
	switch {
	case t1 < t2:
		return -1
	case t1 > t2:
		return 1
	}
	return 0
}

func compareBools(b1, b2 bool) int {
	switch {
	case b1 == b2:
		return 0
	case !b1:
		return -1
	}
	return 1
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	defer repo.db.rlock(ctx)()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		switch {
		case filter.Username != "" && usr.Username == filter.Username,
			filter.Email != "" && usr.Email == filter.Email,
			filter.UsernameOrEmail != "" && (usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail):
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...string) error {
	defer repo.db.lock(ctx)()

	for _, id := range ids {
		usr, ok := repo.db.users[id]
		if !ok {
			continue
		}
		delete(repo.db.users, id)
		delete(repo.db.students, usr.Username)
	}
	return nil
}
