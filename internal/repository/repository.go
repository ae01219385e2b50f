package repository

import (
	"context"
	"time"

	"fittrack/backend/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrConflict  = RepositoryError("precondition failed: record changed concurrently")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Repository is the data-access contract shared by every soft-deletable
// entity. Default read paths never return soft-deleted rows.
type Repository[T any] interface {
	Create(ctx context.Context, item *T) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*T, error)
	// GetByIDIncludingDeleted bypasses the soft-delete filter. Internal use only
	// (referential integrity, audits); never exposed to principals.
	GetByIDIncludingDeleted(ctx context.Context, id primitive.ObjectID) (*T, error)
	List(ctx context.Context, scope Scope) ([]T, error)
	Update(ctx context.Context, item *T) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
}

// PlanItemRepository stores workouts or diets.
type PlanItemRepository[T any] interface {
	Repository[T]
	// AssignToClient sets the direct client link on the plan item.
	AssignToClient(ctx context.Context, id, clientID primitive.ObjectID) error
}

type (
	PlanTypeRepository = Repository[domain.PlanType]
	WorkoutRepository  = PlanItemRepository[domain.Workout]
	DietRepository     = PlanItemRepository[domain.Diet]
	ExerciseRepository = Repository[domain.Exercise]
	MealRepository     = Repository[domain.Meal]
	HistoryRepository  = Repository[domain.AssignmentRecord]
	SwapRepository     = Repository[domain.SwapRequest]
)

// ProfileRepository stores role profiles.
type ProfileRepository interface {
	Repository[domain.Profile]
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error)
}

// AssignmentStamp describes the client-side effect of a new assignment.
type AssignmentStamp struct {
	ClientID primitive.ObjectID
	Domain   domain.PlanDomain
	ItemID   primitive.ObjectID
	// ExpectedLastAssignedAt is the value read before deciding; the stamp is
	// rejected with ErrConflict when the stored value differs.
	ExpectedLastAssignedAt *time.Time
	AssignedAt             time.Time
	// SwapsRemaining resets the domain's counter; nil leaves it untouched.
	SwapsRemaining *int
}

// SwapConsumption describes one swap allowance being spent.
type SwapConsumption struct {
	ClientID               primitive.ObjectID
	Domain                 domain.PlanDomain
	ExpectedLastAssignedAt time.Time
	// Unlimited skips the decrement and the remaining > 0 guard.
	Unlimited bool
}

// ClientRepository stores clients and owns the atomic updates of their
// entitlement counters.
type ClientRepository interface {
	Repository[domain.Client]
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Client, error)
	// StampAssignment atomically records a new assignment on the client.
	StampAssignment(ctx context.Context, stamp AssignmentStamp) error
	// ConsumeSwap atomically decrements the domain counter, guarded on the
	// assignment not having changed and (unless unlimited) remaining > 0.
	// Returns ErrConflict when the guard does not match.
	ConsumeSwap(ctx context.Context, consumption SwapConsumption) error
}

// UserRepository stores identity principals. Users are deactivated, never
// soft-deleted; default read paths return active users only.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByIDIncludingInactive(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, scope Scope) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Deactivate(ctx context.Context, id primitive.ObjectID) error
}

// Transactor runs fn atomically: either every write inside fn is committed
// or none is. Repositories must be called with the ctx passed to fn.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
