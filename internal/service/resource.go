package service

import (
	"context"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type entityPtr[T any] interface {
	*T
	domain.Entity
}

// PrepareFunc checks or completes an item before it is written. existing is
// nil on create.
type PrepareFunc[T any] func(ctx context.Context, p *domain.Principal, item, existing *T) error

// Resource is the authorized CRUD surface of one resource type.
type Resource[T any, PT entityPtr[T]] struct {
	core    *Core
	rt      domain.ResourceType
	repo    repository.Repository[T]
	prepare PrepareFunc[T]
	// creatable is false for records only the entitlement engine writes.
	creatable bool
}

// NewResource builds the CRUD surface for rt. prepare may be nil.
func NewResource[T any, PT entityPtr[T]](core *Core, rt domain.ResourceType, repo repository.Repository[T], prepare PrepareFunc[T]) *Resource[T, PT] {
	return &Resource[T, PT]{core: core, rt: rt, repo: repo, prepare: prepare, creatable: true}
}

// ReadOnlyCreate disables Create: history and swap records are written by
// assignment and swap requests only.
func (r *Resource[T, PT]) ReadOnlyCreate() *Resource[T, PT] {
	r.creatable = false
	return r
}

// Type returns the guarded resource type.
func (r *Resource[T, PT]) Type() domain.ResourceType {
	return r.rt
}

// List returns the non-deleted rows visible to p.
func (r *Resource[T, PT]) List(ctx context.Context, p *domain.Principal) ([]T, error) {
	decision, err := r.core.Authorize(ctx, p, r.rt, domain.ActionList, nil)
	if err != nil {
		return nil, err
	}
	items, err := r.repo.List(ctx, decision.Scope)
	if err != nil {
		return nil, repoError(r.rt, err)
	}
	return items, nil
}

// Get returns one row visible to p.
func (r *Resource[T, PT]) Get(ctx context.Context, p *domain.Principal, id primitive.ObjectID) (*T, error) {
	if _, err := r.core.Authorize(ctx, p, r.rt, domain.ActionRetrieve, &id); err != nil {
		return nil, err
	}
	item, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(r.rt, err)
	}
	return item, nil
}

// Create validates and inserts item.
func (r *Resource[T, PT]) Create(ctx context.Context, p *domain.Principal, item *T) (*T, error) {
	if _, err := r.core.Authorize(ctx, p, r.rt, domain.ActionCreate, nil); err != nil {
		return nil, err
	}
	if !r.creatable {
		return nil, apperr.Forbidden(string(r.rt) + " records are created by the system")
	}
	if err := ValidateStruct(item); err != nil {
		return nil, err
	}
	if r.prepare != nil {
		if err := r.prepare(ctx, p, item, nil); err != nil {
			return nil, err
		}
	}

	id, err := r.repo.Create(ctx, item)
	if err != nil {
		return nil, repoError(r.rt, err)
	}
	created, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(r.rt, err)
	}
	return created, nil
}

// Update replaces the updatable fields of row id with those of item.
func (r *Resource[T, PT]) Update(ctx context.Context, p *domain.Principal, id primitive.ObjectID, item *T) (*T, error) {
	if _, err := r.core.Authorize(ctx, p, r.rt, domain.ActionUpdate, &id); err != nil {
		return nil, err
	}
	existing, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(r.rt, err)
	}

	PT(item).SetID(id)
	if err := ValidateStruct(item); err != nil {
		return nil, err
	}
	if r.prepare != nil {
		if err := r.prepare(ctx, p, item, existing); err != nil {
			return nil, err
		}
	}

	if err := r.repo.Update(ctx, item); err != nil {
		return nil, repoError(r.rt, err)
	}
	updated, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(r.rt, err)
	}
	return updated, nil
}

// Delete soft-deletes row id.
func (r *Resource[T, PT]) Delete(ctx context.Context, p *domain.Principal, id primitive.ObjectID) error {
	return r.core.SoftDelete(ctx, p, r.rt, id)
}
