// Package service is the entry point for callers: every operation is
// authorized for a principal, then delegated to the entitlement engine, the
// lifecycle manager or the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/authz"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/entitlement"
	"fittrack/backend/internal/history"
	"fittrack/backend/internal/lifecycle"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Core exposes the authorization, entitlement and lifecycle operations.
type Core struct {
	resolver  *authz.Resolver
	engine    *entitlement.Engine
	lifecycle *lifecycle.Manager
	recorder  *history.Recorder
	store     *repository.Store
	log       *zap.SugaredLogger
}

func NewCore(resolver *authz.Resolver, engine *entitlement.Engine, lm *lifecycle.Manager, recorder *history.Recorder, store *repository.Store, log *zap.SugaredLogger) *Core {
	return &Core{resolver: resolver, engine: engine, lifecycle: lm, recorder: recorder, store: store, log: log}
}

// Authorize decides whether p may perform act on rt (and on one row when
// resourceID is set).
func (c *Core) Authorize(ctx context.Context, p *domain.Principal, rt domain.ResourceType, act domain.Action, resourceID *primitive.ObjectID) (authz.Decision, error) {
	return c.resolver.Authorize(ctx, p, rt, act, resourceID)
}

// ScopedQuery returns the row filter for p's listings of rt.
func (c *Core) ScopedQuery(p *domain.Principal, rt domain.ResourceType) repository.Scope {
	return c.resolver.Scope(p, rt)
}

// Assign gives a client a new workout or diet. Only admins and the domain
// professional may assign.
func (c *Core) Assign(ctx context.Context, p *domain.Principal, clientID primitive.ObjectID, target entitlement.Target) (*entitlement.AssignResult, error) {
	if !target.Domain.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown plan domain %q", target.Domain))
	}
	if _, err := c.Authorize(ctx, p, target.Domain.HistoryResource(), domain.ActionCreate, nil); err != nil {
		return nil, err
	}
	if _, err := c.Authorize(ctx, p, domain.ResourceClient, domain.ActionRetrieve, &clientID); err != nil {
		return nil, err
	}
	return c.engine.Assign(ctx, clientID, target, p.UserID)
}

// RequestSwap replaces an exercise or meal. Only the client-role owner of
// the Client record may request it.
func (c *Core) RequestSwap(ctx context.Context, p *domain.Principal, clientID primitive.ObjectID, in entitlement.SwapInput) (*domain.SwapRequest, error) {
	if !in.Domain.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown plan domain %q", in.Domain))
	}
	if _, err := c.Authorize(ctx, p, in.Domain.SwapResource(), domain.ActionCreate, nil); err != nil {
		return nil, err
	}
	if !p.OwnsClient(clientID) {
		return nil, apperr.Forbidden("swap requests may only be made for your own client record")
	}
	return c.engine.RequestSwap(ctx, clientID, in)
}

// EntitlementStatus reports a client's entitlement in one domain.
func (c *Core) EntitlementStatus(ctx context.Context, p *domain.Principal, clientID primitive.ObjectID, d domain.PlanDomain) (entitlement.Status, error) {
	if _, err := c.Authorize(ctx, p, domain.ResourceClient, domain.ActionRetrieve, &clientID); err != nil {
		return entitlement.Status{}, err
	}
	return c.engine.Status(ctx, clientID, d)
}

// HistoryArchiveURL returns a presigned download link for the archived copy
// of an assignment record visible to p.
func (c *Core) HistoryArchiveURL(ctx context.Context, p *domain.Principal, d domain.PlanDomain, id primitive.ObjectID, expires time.Duration) (string, error) {
	rt := d.HistoryResource()
	if _, err := c.Authorize(ctx, p, rt, domain.ActionRetrieve, &id); err != nil {
		return "", err
	}
	record, err := c.store.History(d).GetByID(ctx, id)
	if err != nil {
		return "", repoError(rt, err)
	}
	return c.recorder.ArchiveURL(ctx, record, expires)
}

// SoftDelete retires one record (deactivates users).
func (c *Core) SoftDelete(ctx context.Context, p *domain.Principal, rt domain.ResourceType, id primitive.ObjectID) error {
	if _, err := c.Authorize(ctx, p, rt, domain.ActionDelete, &id); err != nil {
		return err
	}
	if err := c.lifecycle.Delete(ctx, rt, id); err != nil {
		return err
	}
	c.log.Infow("record deleted", "resource", rt, "id", id.Hex(), "by", p.UserID.Hex())
	return nil
}

// repoError translates repository sentinels into application errors.
func repoError(rt domain.ResourceType, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(fmt.Sprintf("%s not found", rt))
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Validation(fmt.Sprintf("%s already exists", rt))
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict(fmt.Sprintf("%s was modified concurrently", rt))
	}
	if _, ok := apperr.From(err); ok {
		return err
	}
	return fmt.Errorf("%s: %w", rt, err)
}
