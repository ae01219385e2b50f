// Package authz decides who may do what to which rows: a casbin capability
// matrix per role, narrowed by a row-level scope per principal.
package authz

import (
	"context"
	"errors"
	"fmt"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/metrics"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Grant tells how an allowed decision was reached.
type Grant string

const (
	GrantNone  Grant = ""
	GrantRole  Grant = "role"
	GrantOwner Grant = "owner"
)

// Decision is the outcome of Authorize. Scope is the row filter the caller
// must apply to list queries.
type Decision struct {
	Allowed bool
	Grant   Grant
	Scope   repository.Scope
}

// OwnerLookup resolves the owner of a single live row.
type OwnerLookup interface {
	OwnerOf(ctx context.Context, rt domain.ResourceType, id primitive.ObjectID) (repository.Owner, error)
}

// Resolver is read-only: it never writes and may be shared across requests.
type Resolver struct {
	enforcer *Enforcer
	owners   OwnerLookup
	metrics  *metrics.Metrics
	log      *zap.SugaredLogger
}

func NewResolver(enforcer *Enforcer, owners OwnerLookup, m *metrics.Metrics, log *zap.SugaredLogger) *Resolver {
	return &Resolver{enforcer: enforcer, owners: owners, metrics: m, log: log}
}

// Authorize decides whether principal may perform act on rt, and for a
// specific row (resourceID != nil) whether that row is reachable.
//
// Denials are returned as *apperr.Error: AuthenticationRequired for a nil
// principal, Forbidden when the capability is missing or an owner-only grant
// hits someone else's row, NotFound when the row is missing, soft-deleted or
// outside the principal's scope.
func (r *Resolver) Authorize(ctx context.Context, p *domain.Principal, rt domain.ResourceType, act domain.Action, resourceID *primitive.ObjectID) (Decision, error) {
	decision, err := r.decide(ctx, p, rt, act, resourceID)
	r.metrics.AuthzDecision(string(rt), string(act), outcome(err))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			r.log.Errorw("authorization failed", "error", err, "resource", rt, "action", act)
		}
		return Decision{Scope: repository.NoRows()}, err
	}
	return decision, nil
}

func (r *Resolver) decide(ctx context.Context, p *domain.Principal, rt domain.ResourceType, act domain.Action, resourceID *primitive.ObjectID) (Decision, error) {
	if p == nil {
		return Decision{}, apperr.AuthenticationRequired("authentication credentials were not provided")
	}

	byRole, err := r.roleGrant(p, rt, act)
	if err != nil {
		return Decision{}, err
	}
	byOwner, err := r.enforcer.Enforce(SubjectOwner, rt, act)
	if err != nil {
		return Decision{}, err
	}
	if !byRole && !byOwner {
		return Decision{}, apperr.Forbidden(fmt.Sprintf("%s may not %s %s", roleLabel(p), act, rt))
	}

	scope := r.Scope(p, rt)
	if resourceID == nil {
		grant := GrantRole
		if !byRole {
			grant = GrantOwner
		}
		return Decision{Allowed: true, Grant: grant, Scope: scope}, nil
	}

	owner, err := r.owners.OwnerOf(ctx, rt, *resourceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Decision{}, apperr.NotFound(fmt.Sprintf("%s not found", rt))
		}
		return Decision{}, fmt.Errorf("resolve owner of %s %s: %w", rt, resourceID.Hex(), err)
	}

	switch {
	case byRole && scope.Permits(owner):
		return Decision{Allowed: true, Grant: GrantRole, Scope: scope}, nil
	case byOwner && owns(p, owner):
		return Decision{Allowed: true, Grant: GrantOwner, Scope: scope}, nil
	case act == domain.ActionRetrieve || byRole:
		// Rows outside the scope do not exist for this principal.
		return Decision{}, apperr.NotFound(fmt.Sprintf("%s not found", rt))
	default:
		return Decision{}, apperr.Forbidden(fmt.Sprintf("%s is not owned by the caller", rt))
	}
}

// roleGrant checks the principal's role and, for staff-flagged users, the
// staff group.
func (r *Resolver) roleGrant(p *domain.Principal, rt domain.ResourceType, act domain.Action) (bool, error) {
	if p.Role != "" {
		ok, err := r.enforcer.Enforce(string(p.Role), rt, act)
		if err != nil || ok {
			return ok, err
		}
	}
	if p.Staff {
		return r.enforcer.Enforce(SubjectStaff, rt, act)
	}
	return false, nil
}

// Scope returns the rows of rt the principal may see. A nil principal sees
// nothing.
func (r *Resolver) Scope(p *domain.Principal, rt domain.ResourceType) repository.Scope {
	if p == nil {
		return repository.NoRows()
	}

	ownClient := func() repository.Scope {
		if p.Role == domain.RoleClient && p.ClientID != nil {
			return repository.ClientRows(*p.ClientID)
		}
		return repository.NoRows()
	}

	switch rt {
	case domain.ResourcePlanType:
		return repository.AllRows()
	case domain.ResourceClient:
		if p.Role == domain.RoleAdmin || p.Role.IsProfessional() {
			return repository.AllRows()
		}
		return ownClient()
	case domain.ResourceUser, domain.ResourceProfile:
		if p.IsAdmin() || p.Staff {
			return repository.AllRows()
		}
		return repository.UserRows(p.UserID)
	}

	if d, ok := rt.Domain(); ok {
		if p.IsAdmin() || p.Role == professionalFor(d) {
			return repository.AllRows()
		}
		return ownClient()
	}
	return repository.NoRows()
}

func professionalFor(d domain.PlanDomain) domain.Role {
	if d == domain.DomainDiet {
		return domain.RoleNutritionist
	}
	return domain.RolePersonalTrainer
}

// owns reports whether the row belongs to the principal itself: its user
// record, or (for the client role) its Client record.
func owns(p *domain.Principal, owner repository.Owner) bool {
	if owner.UserID != nil && *owner.UserID == p.UserID {
		return true
	}
	return p.ClientID != nil && owner.ClientID != nil && *owner.ClientID == *p.ClientID
}

func roleLabel(p *domain.Principal) string {
	if p.Role == "" {
		return "user without profile"
	}
	return string(p.Role)
}

func outcome(err error) string {
	if err == nil {
		return "allowed"
	}
	return string(apperr.KindOf(err))
}
