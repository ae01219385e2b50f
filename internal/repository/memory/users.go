package memory

import (
	"context"
	"errors"
	"sort"

	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// userTable implements repository.UserRepository. Users are deactivated,
// never soft-deleted.
type userTable struct {
	db   *db
	rows map[primitive.ObjectID]domain.User
}

func newUserTable(d *db) *userTable {
	t := &userTable{db: d, rows: map[primitive.ObjectID]domain.User{}}
	d.register(t)
	return t
}

func (t *userTable) snapshot() any {
	copied := make(map[primitive.ObjectID]domain.User, len(t.rows))
	for k, v := range t.rows {
		copied[k] = v
	}
	return copied
}

func (t *userTable) restore(state any) {
	t.rows = state.(map[primitive.ObjectID]domain.User)
}

func (t *userTable) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.Username == "" {
		return primitive.NilObjectID, errors.New("user email and username are required")
	}
	err := t.db.write(ctx, func() error {
		for _, existing := range t.rows {
			if existing.Email == user.Email {
				return repository.ErrDuplicate
			}
		}
		now := t.db.timestamp()
		user.ID = primitive.NewObjectID()
		user.CreatedAt = now
		user.UpdatedAt = now
		user.IsActive = true
		t.rows[user.ID] = *user
		return nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return user.ID, nil
}

func (t *userTable) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	return t.find(func(u domain.User) bool { return u.IsActive && u.ID == id })
}

func (t *userTable) GetByIDIncludingInactive(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	return t.find(func(u domain.User) bool { return u.ID == id })
}

func (t *userTable) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return t.find(func(u domain.User) bool { return u.IsActive && u.Email == email })
}

func (t *userTable) List(_ context.Context, scope repository.Scope) ([]domain.User, error) {
	users := []domain.User{}
	t.db.read(func() {
		for _, u := range t.rows {
			if !u.IsActive {
				continue
			}
			if scope.Mode == repository.ScopeAll || (scope.Mode == repository.ScopeUser && u.ID == scope.UserID) {
				users = append(users, u)
			}
		}
	})
	sort.SliceStable(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID.Hex() < users[j].ID.Hex()
	})
	return users, nil
}

func (t *userTable) Update(ctx context.Context, user *domain.User) error {
	return t.db.write(ctx, func() error {
		stored, ok := t.rows[user.ID]
		if !ok || !stored.IsActive {
			return repository.ErrNotFound
		}
		for id, existing := range t.rows {
			if id != user.ID && existing.Email == user.Email {
				return repository.ErrDuplicate
			}
		}
		user.UpdatedAt = t.db.timestamp()
		stored.Username = user.Username
		stored.Email = user.Email
		stored.IsStaff = user.IsStaff
		stored.UpdatedAt = user.UpdatedAt
		t.rows[user.ID] = stored
		return nil
	})
}

func (t *userTable) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	return t.db.write(ctx, func() error {
		stored, ok := t.rows[id]
		if !ok || !stored.IsActive {
			return repository.ErrNotFound
		}
		stored.IsActive = false
		stored.UpdatedAt = t.db.timestamp()
		t.rows[id] = stored
		return nil
	})
}

func (t *userTable) find(pred func(domain.User) bool) (*domain.User, error) {
	var (
		found domain.User
		ok    bool
	)
	t.db.read(func() {
		for _, u := range t.rows {
			if pred(u) {
				found, ok = u, true
				return
			}
		}
	})
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &found, nil
}
