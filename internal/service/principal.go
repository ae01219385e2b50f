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

// PrincipalResolver turns an authenticated user id into the Principal the
// authorization resolver works with.
type PrincipalResolver struct {
	store *repository.Store
}

func NewPrincipalResolver(store *repository.Store) *PrincipalResolver {
	return &PrincipalResolver{store: store}
}

// Resolve loads the user, its profile role and, for client-role users, the
// owned Client record. Unknown or deactivated users are unauthenticated.
func (r *PrincipalResolver) Resolve(ctx context.Context, userID primitive.ObjectID) (*domain.Principal, error) {
	user, err := r.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.AuthenticationRequired("user is unknown or inactive")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	p := &domain.Principal{UserID: user.ID, Staff: user.IsStaff}

	profile, err := r.store.Profiles.GetByUserID(ctx, user.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return p, nil
	case err != nil:
		return nil, fmt.Errorf("load profile: %w", err)
	}
	p.Role = profile.Role

	if p.Role == domain.RoleClient {
		client, err := r.store.Clients.GetByUserID(ctx, user.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("load client: %w", err)
		default:
			id := client.ID
			p.ClientID = &id
		}
	}
	return p, nil
}
