package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resources bundles the CRUD surfaces of every soft-deletable resource.
type Resources struct {
	Workouts       *Resource[domain.Workout, *domain.Workout]
	Diets          *Resource[domain.Diet, *domain.Diet]
	Exercises      *Resource[domain.Exercise, *domain.Exercise]
	Meals          *Resource[domain.Meal, *domain.Meal]
	PlanTypes      *Resource[domain.PlanType, *domain.PlanType]
	Clients        *Resource[domain.Client, *domain.Client]
	Profiles       *Resource[domain.Profile, *domain.Profile]
	WorkoutHistory *Resource[domain.AssignmentRecord, *domain.AssignmentRecord]
	DietHistory    *Resource[domain.AssignmentRecord, *domain.AssignmentRecord]
	ExerciseSwaps  *Resource[domain.SwapRequest, *domain.SwapRequest]
	MealSwaps      *Resource[domain.SwapRequest, *domain.SwapRequest]
}

func NewResources(core *Core, store *repository.Store) *Resources {
	return &Resources{
		Workouts: NewResource[domain.Workout, *domain.Workout](core, domain.ResourceWorkout, store.Workouts,
			func(_ context.Context, _ *domain.Principal, w, existing *domain.Workout) error {
				return unlinkedOnCreate(domain.DomainWorkout, w.ClientID, existing == nil)
			}),
		Diets: NewResource[domain.Diet, *domain.Diet](core, domain.ResourceDiet, store.Diets,
			func(_ context.Context, _ *domain.Principal, d, existing *domain.Diet) error {
				return unlinkedOnCreate(domain.DomainDiet, d.ClientID, existing == nil)
			}),
		Exercises: NewResource[domain.Exercise, *domain.Exercise](core, domain.ResourceExercise, store.Exercises,
			func(ctx context.Context, _ *domain.Principal, e, _ *domain.Exercise) error {
				return parentExists(ctx, store, domain.DomainWorkout, e.WorkoutID)
			}),
		Meals: NewResource[domain.Meal, *domain.Meal](core, domain.ResourceMeal, store.Meals,
			func(ctx context.Context, _ *domain.Principal, m, _ *domain.Meal) error {
				return parentExists(ctx, store, domain.DomainDiet, m.DietID)
			}),
		PlanTypes:      NewResource[domain.PlanType, *domain.PlanType](core, domain.ResourcePlanType, store.PlanTypes, nil),
		Clients:        NewResource[domain.Client, *domain.Client](core, domain.ResourceClient, store.Clients, prepareClient(store)),
		Profiles:       NewResource[domain.Profile, *domain.Profile](core, domain.ResourceProfile, store.Profiles, prepareProfile(store)),
		WorkoutHistory: NewResource[domain.AssignmentRecord, *domain.AssignmentRecord](core, domain.ResourceWorkoutHistory, store.WorkoutHistory, nil).ReadOnlyCreate(),
		DietHistory:    NewResource[domain.AssignmentRecord, *domain.AssignmentRecord](core, domain.ResourceDietHistory, store.DietHistory, nil).ReadOnlyCreate(),
		ExerciseSwaps:  NewResource[domain.SwapRequest, *domain.SwapRequest](core, domain.ResourceExerciseSwap, store.ExerciseSwaps, nil).ReadOnlyCreate(),
		MealSwaps:      NewResource[domain.SwapRequest, *domain.SwapRequest](core, domain.ResourceMealSwap, store.MealSwaps, nil).ReadOnlyCreate(),
	}
}

// History returns the assignment record surface of a domain.
func (r *Resources) History(d domain.PlanDomain) *Resource[domain.AssignmentRecord, *domain.AssignmentRecord] {
	if d == domain.DomainDiet {
		return r.DietHistory
	}
	return r.WorkoutHistory
}

// Swaps returns the swap request surface of a domain.
func (r *Resources) Swaps(d domain.PlanDomain) *Resource[domain.SwapRequest, *domain.SwapRequest] {
	if d == domain.DomainDiet {
		return r.MealSwaps
	}
	return r.ExerciseSwaps
}

// unlinkedOnCreate rejects a client link on a new workout or diet: only an
// assignment links a plan to a client. Updates never touch the link.
func unlinkedOnCreate(d domain.PlanDomain, clientID *primitive.ObjectID, creating bool) error {
	if creating && clientID != nil {
		return apperr.Validation(fmt.Sprintf("a %s is linked to a client by assigning it", d))
	}
	return nil
}

func parentExists(ctx context.Context, store *repository.Store, d domain.PlanDomain, id primitive.ObjectID) error {
	if _, err := store.PlanItem(ctx, d, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Validation(fmt.Sprintf("%s %s not found", d, id.Hex()))
		}
		return fmt.Errorf("load %s: %w", d, err)
	}
	return nil
}

// prepareClient guards ownership and the plan subscription fields. The owner
// must be a client-role user, a newly set plan must reference a live plan
// type, and only admins change them; omitted fields keep their
// stored values for everyone else. The end date defaults to start plus the
// plan's duration. Entitlement counters are never taken from input.
func prepareClient(store *repository.Store) PrepareFunc[domain.Client] {
	return func(ctx context.Context, p *domain.Principal, c, existing *domain.Client) error {
		if existing == nil {
			c.LastWorkoutAssignedAt, c.LastDietAssignedAt = nil, nil
			c.CurrentWorkoutID, c.CurrentDietID = nil, nil
			c.ExerciseSwapsRemaining, c.MealSwapsRemaining = 0, 0
		} else if !p.IsAdmin() {
			c.UserID, c.ProfileID = existing.UserID, existing.ProfileID
			if c.PlanTypeID == nil {
				c.PlanTypeID = existing.PlanTypeID
			}
			if c.PlanStartDate == nil {
				c.PlanStartDate = existing.PlanStartDate
			}
			if c.PlanEndDate == nil {
				c.PlanEndDate = existing.PlanEndDate
			}
			if planFieldsChanged(c, existing) {
				return apperr.Forbidden("only administrators may change a client's plan")
			}
		}

		switch {
		case c.UserID == nil:
			c.ProfileID = nil
		case existing != nil && sameID(c.UserID, existing.UserID):
			c.ProfileID = existing.ProfileID
		default:
			profileID, err := clientOwner(ctx, store, *c.UserID)
			if err != nil {
				return err
			}
			c.ProfileID = &profileID
		}

		if c.PlanTypeID != nil {
			plan, err := store.PlanTypes.GetByID(ctx, *c.PlanTypeID)
			switch {
			case err == nil:
				if c.PlanStartDate != nil && c.PlanEndDate == nil && plan.DurationDays > 0 {
					end := c.PlanStartDate.AddDate(0, 0, plan.DurationDays)
					c.PlanEndDate = &end
				}
			case !errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("load plan type: %w", err)
			case existing == nil || !sameID(c.PlanTypeID, existing.PlanTypeID):
				// A plan type retired after subscription stays referenced as is.
				return apperr.Validation("planTypeId does not reference a plan type")
			}
		}
		if c.PlanStartDate != nil && c.PlanEndDate != nil && c.PlanEndDate.Before(*c.PlanStartDate) {
			return apperr.Validation("planEndDate must not be before planStartDate")
		}
		return nil
	}
}

// clientOwner returns the client-role profile of an active user. A user
// owns at most one live Client; the stores enforce that on write.
func clientOwner(ctx context.Context, store *repository.Store, userID primitive.ObjectID) (primitive.ObjectID, error) {
	if _, err := store.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return primitive.NilObjectID, apperr.Validation("userId does not reference an active user")
		}
		return primitive.NilObjectID, fmt.Errorf("load user: %w", err)
	}
	profile, err := store.Profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return primitive.NilObjectID, apperr.Validation("userId has no profile")
		}
		return primitive.NilObjectID, fmt.Errorf("load profile: %w", err)
	}
	if profile.Role != domain.RoleClient {
		return primitive.NilObjectID, apperr.Validation("userId does not belong to a client profile")
	}
	return profile.ID, nil
}

func planFieldsChanged(c, existing *domain.Client) bool {
	return !sameID(c.PlanTypeID, existing.PlanTypeID) ||
		!sameTime(c.PlanStartDate, existing.PlanStartDate) ||
		!sameTime(c.PlanEndDate, existing.PlanEndDate)
}

// prepareProfile requires a live user on create and keeps the role
// administrative.
func prepareProfile(store *repository.Store) PrepareFunc[domain.Profile] {
	return func(ctx context.Context, p *domain.Principal, profile, existing *domain.Profile) error {
		if existing != nil {
			profile.UserID = existing.UserID
			if profile.Role != existing.Role && !p.IsAdmin() {
				return apperr.Forbidden("only administrators may change a profile role")
			}
			return nil
		}
		if profile.UserID.IsZero() {
			return apperr.Validation("userId is required")
		}
		if _, err := store.Users.GetByID(ctx, profile.UserID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.Validation("userId does not reference an active user")
			}
			return fmt.Errorf("load user: %w", err)
		}
		return nil
	}
}

func sameID(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
