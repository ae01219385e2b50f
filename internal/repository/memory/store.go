package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Option configures a memory store.
type Option func(*db)

// WithNow overrides the timestamp source used for CreatedAt/UpdatedAt/DeletedAt.
func WithNow(now func() time.Time) Option {
	return func(d *db) { d.now = now }
}

// NewStore builds an empty in-memory store.
func NewStore(opts ...Option) *repository.Store {
	d := &db{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}

	workouts := newPlanItemTable[domain.Workout](d, func(dst, src *domain.Workout) {
		dst.Name = src.Name
		dst.Description = src.Description
		dst.DurationMinutes = src.DurationMinutes
	})
	diets := newPlanItemTable[domain.Diet](d, func(dst, src *domain.Diet) {
		dst.Name = src.Name
		dst.Description = src.Description
		dst.Calories = src.Calories
	})

	return &repository.Store{
		Users:          newUserTable(d),
		Profiles:       newProfileTable(d),
		PlanTypes:      newPlanTypeTable(d),
		Clients:        newClientTable(d),
		Workouts:       workouts,
		Diets:          diets,
		Exercises:      newEntryTable(d, workouts.table, func(e *domain.Exercise) primitive.ObjectID { return e.WorkoutID }, applyExercise),
		Meals:          newEntryTable(d, diets.table, func(m *domain.Meal) primitive.ObjectID { return m.DietID }, applyMeal),
		WorkoutHistory: newHistoryTable(d),
		DietHistory:    newHistoryTable(d),
		ExerciseSwaps:  newSwapTable(d),
		MealSwaps:      newSwapTable(d),
		Tx:             d,
	}
}

// --- scope predicates ---

func allOnly[PT any](scope repository.Scope, _ PT) bool {
	return scope.Mode == repository.ScopeAll
}

func byClient(scope repository.Scope, clientID *primitive.ObjectID) bool {
	switch scope.Mode {
	case repository.ScopeAll:
		return true
	case repository.ScopeClient:
		return clientID != nil && *clientID == scope.ClientID
	}
	return false
}

// --- plan types ---

func newPlanTypeTable(d *db) *table[domain.PlanType, *domain.PlanType] {
	return newTable(d, allOnly[*domain.PlanType], func(dst, src *domain.PlanType) {
		dst.Name = src.Name
		dst.Description = src.Description
		dst.Price = src.Price
		dst.DurationDays = src.DurationDays
		dst.RefreshIntervalDays = src.RefreshIntervalDays
		dst.ExerciseSwapLimit = src.ExerciseSwapLimit
		dst.MealSwapLimit = src.MealSwapLimit
		dst.SwapWindowDays = src.SwapWindowDays
		dst.UnlimitedSwaps = src.UnlimitedSwaps
	})
}

// --- plan items ---

type planItemTable[T any, PT interface {
	entityPtr[T]
	AssignedClient() *primitive.ObjectID
}] struct {
	*table[T, PT]
}

func newPlanItemTable[T any, PT interface {
	entityPtr[T]
	AssignedClient() *primitive.ObjectID
}](d *db, apply func(dst, src PT)) *planItemTable[T, PT] {
	inScope := func(scope repository.Scope, row PT) bool { return byClient(scope, row.AssignedClient()) }
	return &planItemTable[T, PT]{table: newTable(d, inScope, apply)}
}

func (t *planItemTable[T, PT]) AssignToClient(ctx context.Context, id, clientID primitive.ObjectID) error {
	return t.db.write(ctx, func() error {
		return t.mutate(id, func(row PT) error {
			switch item := any(row).(type) {
			case *domain.Workout:
				item.ClientID = &clientID
			case *domain.Diet:
				item.ClientID = &clientID
			default:
				return fmt.Errorf("%T cannot be assigned to a client", row)
			}
			row.Touch(t.db.timestamp())
			return nil
		})
	})
}

// --- exercises and meals ---

func newEntryTable[T any, PT entityPtr[T], P any, PP interface {
	entityPtr[P]
	AssignedClient() *primitive.ObjectID
}](d *db, parents *table[P, PP], parentOf func(PT) primitive.ObjectID, apply func(dst, src PT)) *table[T, PT] {
	inScope := func(scope repository.Scope, row PT) bool {
		switch scope.Mode {
		case repository.ScopeAll:
			return true
		case repository.ScopeClient:
			parent, ok := parents.live(parentOf(row))
			return ok && byClient(scope, PP(&parent).AssignedClient())
		}
		return false
	}
	return newTable(d, inScope, apply)
}

func applyExercise(dst, src *domain.Exercise) {
	dst.WorkoutID = src.WorkoutID
	dst.Name = src.Name
	dst.Description = src.Description
}

func applyMeal(dst, src *domain.Meal) {
	dst.DietID = src.DietID
	dst.Name = src.Name
	dst.Description = src.Description
	dst.Calories = src.Calories
}

// --- history and swaps ---

func newHistoryTable(d *db) *table[domain.AssignmentRecord, *domain.AssignmentRecord] {
	inScope := func(scope repository.Scope, row *domain.AssignmentRecord) bool {
		return byClient(scope, &row.ClientID)
	}
	return newTable(d, inScope, func(dst, src *domain.AssignmentRecord) {
		dst.Notes = src.Notes
		dst.EndDate = src.EndDate
	})
}

func newSwapTable(d *db) *table[domain.SwapRequest, *domain.SwapRequest] {
	inScope := func(scope repository.Scope, row *domain.SwapRequest) bool {
		return byClient(scope, &row.ClientID)
	}
	return newTable(d, inScope, func(dst, src *domain.SwapRequest) {
		dst.Reason = src.Reason
	})
}

// --- profiles ---

type profileTable struct {
	*table[domain.Profile, *domain.Profile]
}

func newProfileTable(d *db) *profileTable {
	inScope := func(scope repository.Scope, row *domain.Profile) bool {
		switch scope.Mode {
		case repository.ScopeAll:
			return true
		case repository.ScopeUser:
			return row.UserID == scope.UserID
		}
		return false
	}
	t := newTable(d, inScope, func(dst, src *domain.Profile) {
		dst.Role = src.Role
		dst.Phone = src.Phone
		dst.BirthDate = src.BirthDate
	})
	t.conflicts = func(a, b *domain.Profile) bool { return a.UserID == b.UserID }
	return &profileTable{table: t}
}

func (t *profileTable) GetByUserID(_ context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	var (
		row domain.Profile
		ok  bool
	)
	t.db.read(func() {
		row, ok = t.findLive(func(p *domain.Profile) bool { return p.UserID == userID })
	})
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

// --- clients ---

type clientTable struct {
	*table[domain.Client, *domain.Client]
}

func newClientTable(d *db) *clientTable {
	inScope := func(scope repository.Scope, row *domain.Client) bool {
		switch scope.Mode {
		case repository.ScopeAll:
			return true
		case repository.ScopeClient:
			return row.ID == scope.ClientID
		case repository.ScopeUser:
			return row.UserID != nil && *row.UserID == scope.UserID
		}
		return false
	}
	t := newTable(d, inScope, func(dst, src *domain.Client) {
		dst.Name = src.Name
		dst.Email = src.Email
		dst.Phone = src.Phone
		dst.BirthDate = src.BirthDate
		dst.Height = src.Height
		dst.Weight = src.Weight
		dst.UserID = src.UserID
		dst.ProfileID = src.ProfileID
		dst.PlanTypeID = src.PlanTypeID
		dst.PlanStartDate = src.PlanStartDate
		dst.PlanEndDate = src.PlanEndDate
	})
	t.conflicts = func(a, b *domain.Client) bool {
		return a.Email == b.Email || sameOwner(a.UserID, b.UserID) || sameOwner(a.ProfileID, b.ProfileID)
	}
	return &clientTable{table: t}
}

// sameOwner treats an unset owner as matching nothing.
func sameOwner(a, b *primitive.ObjectID) bool {
	return a != nil && b != nil && *a == *b
}

func (t *clientTable) GetByUserID(_ context.Context, userID primitive.ObjectID) (*domain.Client, error) {
	var (
		row domain.Client
		ok  bool
	)
	t.db.read(func() {
		row, ok = t.findLive(func(c *domain.Client) bool { return c.UserID != nil && *c.UserID == userID })
	})
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (t *clientTable) StampAssignment(ctx context.Context, stamp repository.AssignmentStamp) error {
	return t.db.write(ctx, func() error {
		err := t.mutate(stamp.ClientID, func(c *domain.Client) error {
			if !sameInstant(c.LastAssignedAt(stamp.Domain), stamp.ExpectedLastAssignedAt) {
				return repository.ErrConflict
			}
			assignedAt := stamp.AssignedAt
			itemID := stamp.ItemID
			switch stamp.Domain {
			case domain.DomainWorkout:
				c.LastWorkoutAssignedAt = &assignedAt
				c.CurrentWorkoutID = &itemID
				if stamp.SwapsRemaining != nil {
					c.ExerciseSwapsRemaining = *stamp.SwapsRemaining
				}
			case domain.DomainDiet:
				c.LastDietAssignedAt = &assignedAt
				c.CurrentDietID = &itemID
				if stamp.SwapsRemaining != nil {
					c.MealSwapsRemaining = *stamp.SwapsRemaining
				}
			default:
				return fmt.Errorf("unknown plan domain %q", stamp.Domain)
			}
			c.Touch(t.db.timestamp())
			return nil
		})
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrConflict
		}
		return err
	})
}

func (t *clientTable) ConsumeSwap(ctx context.Context, consumption repository.SwapConsumption) error {
	return t.db.write(ctx, func() error {
		err := t.mutate(consumption.ClientID, func(c *domain.Client) error {
			expected := consumption.ExpectedLastAssignedAt
			if !sameInstant(c.LastAssignedAt(consumption.Domain), &expected) {
				return repository.ErrConflict
			}
			if !consumption.Unlimited {
				counter := &c.ExerciseSwapsRemaining
				if consumption.Domain == domain.DomainDiet {
					counter = &c.MealSwapsRemaining
				}
				if *counter <= 0 {
					return repository.ErrConflict
				}
				*counter--
			}
			c.Touch(t.db.timestamp())
			return nil
		})
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrConflict
		}
		return err
	})
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
