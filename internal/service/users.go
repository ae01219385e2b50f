package service

import (
	"context"
	"errors"
	"fmt"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Users is the authorized surface over identity records. Users are
// deactivated instead of deleted, and listings return active users only.
type Users struct {
	core *Core
	repo repository.UserRepository
}

func NewUsers(core *Core, repo repository.UserRepository) *Users {
	return &Users{core: core, repo: repo}
}

// List returns the active users visible to p.
func (s *Users) List(ctx context.Context, p *domain.Principal) ([]domain.User, error) {
	decision, err := s.core.Authorize(ctx, p, domain.ResourceUser, domain.ActionList, nil)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx, decision.Scope)
	if err != nil {
		return nil, repoError(domain.ResourceUser, err)
	}
	return users, nil
}

// Get returns one active user visible to p.
func (s *Users) Get(ctx context.Context, p *domain.Principal, id primitive.ObjectID) (*domain.User, error) {
	if _, err := s.core.Authorize(ctx, p, domain.ResourceUser, domain.ActionRetrieve, &id); err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(domain.ResourceUser, err)
	}
	return user, nil
}

// Create registers a new active user.
func (s *Users) Create(ctx context.Context, p *domain.Principal, user *domain.User) (*domain.User, error) {
	if _, err := s.core.Authorize(ctx, p, domain.ResourceUser, domain.ActionCreate, nil); err != nil {
		return nil, err
	}
	if err := ValidateStruct(user); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByEmail(ctx, user.Email); err == nil {
		return nil, apperr.Validation("a user with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	id, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, repoError(domain.ResourceUser, err)
	}
	return s.reload(ctx, id)
}

// Update changes username, email and the staff flag. Only admins change the
// staff flag.
func (s *Users) Update(ctx context.Context, p *domain.Principal, id primitive.ObjectID, user *domain.User) (*domain.User, error) {
	if _, err := s.core.Authorize(ctx, p, domain.ResourceUser, domain.ActionUpdate, &id); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(domain.ResourceUser, err)
	}
	user.ID = id
	if err := ValidateStruct(user); err != nil {
		return nil, err
	}
	if user.IsStaff != existing.IsStaff && !p.IsAdmin() {
		return nil, apperr.Forbidden("only administrators may change the staff flag")
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, repoError(domain.ResourceUser, err)
	}
	return s.reload(ctx, id)
}

// Deactivate retires a user; it no longer appears in listings nor
// authenticates.
func (s *Users) Deactivate(ctx context.Context, p *domain.Principal, id primitive.ObjectID) error {
	return s.core.SoftDelete(ctx, p, domain.ResourceUser, id)
}

// Delete is Deactivate.
func (s *Users) Delete(ctx context.Context, p *domain.Principal, id primitive.ObjectID) error {
	return s.Deactivate(ctx, p, id)
}

func (s *Users) reload(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(domain.ResourceUser, err)
	}
	return user, nil
}
