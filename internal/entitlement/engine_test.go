package entitlement

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/clock"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/history"
	"fittrack/backend/internal/repository"
	"fittrack/backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var day0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx       context.Context
	store     *repository.Store
	clock     *clock.Fixed
	engine    *Engine
	plan      *domain.PlanType
	clientID  primitive.ObjectID
	staffID   primitive.ObjectID
	workoutID primitive.ObjectID
	exercises []primitive.ObjectID
	// foreignExercise belongs to a workout the client does not have.
	foreignExercise primitive.ObjectID
}

func newFixture(t *testing.T, plan domain.PlanType) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	clk := clock.NewFixed(day0)
	log := zap.NewNop().Sugar()

	f := &fixture{ctx: ctx, store: store, clock: clk, staffID: primitive.NewObjectID()}
	f.engine = NewEngine(store, history.NewRecorder(store, nil, nil, log), clk,
		Config{Location: time.UTC, MaxConflictRetries: DefaultMaxConflictRetries}, nil, log)

	f.plan = &plan
	planID, err := store.PlanTypes.Create(ctx, f.plan)
	require.NoError(t, err)

	f.clientID, err = store.Clients.Create(ctx, &domain.Client{Name: "Ana", Email: "ana@example.com", PlanTypeID: &planID})
	require.NoError(t, err)

	f.workoutID, err = store.Workouts.Create(ctx, &domain.Workout{Name: "Full body"})
	require.NoError(t, err)
	for _, name := range []string{"Squat", "Bench press", "Deadlift", "Lunge"} {
		id, err := store.Exercises.Create(ctx, &domain.Exercise{WorkoutID: f.workoutID, Name: name})
		require.NoError(t, err)
		f.exercises = append(f.exercises, id)
	}

	otherWorkout, err := store.Workouts.Create(ctx, &domain.Workout{Name: "Other"})
	require.NoError(t, err)
	f.foreignExercise, err = store.Exercises.Create(ctx, &domain.Exercise{WorkoutID: otherWorkout, Name: "Row"})
	require.NoError(t, err)
	return f
}

func scenarioPlan() domain.PlanType {
	return domain.PlanType{
		Name:                "Standard",
		RefreshIntervalDays: 60,
		ExerciseSwapLimit:   2,
		MealSwapLimit:       2,
		SwapWindowDays:      7,
	}
}

func (f *fixture) assignWorkout(t *testing.T) *AssignResult {
	t.Helper()
	res, err := f.engine.Assign(f.ctx, f.clientID, Target{Domain: domain.DomainWorkout, ItemID: f.workoutID}, f.staffID)
	require.NoError(t, err)
	return res
}

func (f *fixture) swap(day int) (*domain.SwapRequest, error) {
	f.clock.Set(day0.AddDate(0, 0, day))
	return f.engine.RequestSwap(f.ctx, f.clientID, SwapInput{
		Domain:    domain.DomainWorkout,
		OldItemID: f.exercises[0],
		NewItemID: f.exercises[1],
		Reason:    "knee pain",
	})
}

func (f *fixture) client(t *testing.T) *domain.Client {
	t.Helper()
	c, err := f.store.Clients.GetByID(f.ctx, f.clientID)
	require.NoError(t, err)
	return c
}

func TestAssignStampsClientAndWritesHistory(t *testing.T) {
	f := newFixture(t, scenarioPlan())

	res := f.assignWorkout(t)

	assert.Equal(t, 2, res.Client.ExerciseSwapsRemaining)
	assert.Equal(t, day0, *res.Client.LastWorkoutAssignedAt)
	assert.Equal(t, f.workoutID, *res.Client.CurrentWorkoutID)
	assert.Equal(t, StateActive, res.Status.State)
	assert.Equal(t, f.staffID, res.Record.AssignedBy)

	w, err := f.store.Workouts.GetByID(f.ctx, f.workoutID)
	require.NoError(t, err)
	assert.Equal(t, f.clientID, *w.ClientID)

	records, err := f.store.WorkoutHistory.List(f.ctx, repository.ClientRows(f.clientID))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

// Scenario: swap on day 3 succeeds, swap on day 8 is rejected although one
// allowance is left.
func TestSwapWindowCloses(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	f.assignWorkout(t)

	swap, err := f.swap(3)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), swap.RequestedAt)
	assert.Equal(t, 1, f.client(t).ExerciseSwapsRemaining)

	_, err = f.swap(8)
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindPolicyRejected, Reason: apperr.ReasonSwapWindowClosed})
	assert.Equal(t, 1, f.client(t).ExerciseSwapsRemaining)
}

// Scenario: swaps on day 1 and 2 spend the allowance, day 5 is rejected
// although inside the window.
func TestSwapLimitExhausted(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	f.assignWorkout(t)

	_, err := f.swap(1)
	require.NoError(t, err)
	_, err = f.swap(2)
	require.NoError(t, err)
	assert.Equal(t, 0, f.client(t).ExerciseSwapsRemaining)

	_, err = f.swap(5)
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindPolicyRejected, Reason: apperr.ReasonSwapLimitExhausted})
	assert.Equal(t, 0, f.client(t).ExerciseSwapsRemaining)

	swaps, err := f.store.ExerciseSwaps.List(f.ctx, repository.ClientRows(f.clientID))
	require.NoError(t, err)
	assert.Len(t, swaps, 2)
}

func TestReassignRespectsRefreshInterval(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	f.assignWorkout(t)
	_, err := f.swap(1)
	require.NoError(t, err)

	f.clock.Set(day0.AddDate(0, 0, 59))
	_, err = f.engine.Assign(f.ctx, f.clientID, Target{Domain: domain.DomainWorkout, ItemID: f.workoutID}, f.staffID)
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindPolicyRejected, Reason: apperr.ReasonRefreshIntervalNotElapsed})

	f.clock.Set(day0.AddDate(0, 0, 60))
	res := f.assignWorkout(t)
	assert.Equal(t, 2, res.Client.ExerciseSwapsRemaining, "counter is reset to the plan limit")

	records, err := f.store.WorkoutHistory.List(f.ctx, repository.AllRows())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestWorkoutAndDietAreIndependent(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	f.assignWorkout(t)

	dietID, err := f.store.Diets.Create(f.ctx, &domain.Diet{Name: "Bulk"})
	require.NoError(t, err)
	res, err := f.engine.Assign(f.ctx, f.clientID, Target{Domain: domain.DomainDiet, ItemID: dietID}, f.staffID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Client.MealSwapsRemaining)
	assert.Equal(t, 2, res.Client.ExerciseSwapsRemaining)
}

func TestNoPlanRejectsEverything(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	c := f.client(t)
	c.PlanTypeID = nil
	require.NoError(t, f.store.Clients.Update(f.ctx, c))

	_, err := f.engine.Assign(f.ctx, f.clientID, Target{Domain: domain.DomainWorkout, ItemID: f.workoutID}, f.staffID)
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindPolicyRejected, Reason: apperr.ReasonNoPlan})

	_, err = f.swap(0)
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindPolicyRejected, Reason: apperr.ReasonNoPlan})
}

func TestNoPlanIsReportedBeforeItemChecks(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	c := f.client(t)
	c.PlanTypeID = nil
	require.NoError(t, f.store.Clients.Update(f.ctx, c))

	other, err := f.store.Clients.Create(f.ctx, &domain.Client{Name: "Bia", Email: "bia@example.com"})
	require.NoError(t, err)
	require.NoError(t, f.store.Workouts.AssignToClient(f.ctx, f.workoutID, other))

	for name, itemID := range map[string]primitive.ObjectID{
		"another client's workout": f.workoutID,
		"missing workout":          primitive.NewObjectID(),
	} {
		_, err := f.engine.Assign(f.ctx, f.clientID, Target{Domain: domain.DomainWorkout, ItemID: itemID}, f.staffID)
		assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindPolicyRejected, Reason: apperr.ReasonNoPlan}, name)
	}
}

func TestDeletedPlanTypeCountsAsNoPlan(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	require.NoError(t, f.store.PlanTypes.SoftDelete(f.ctx, f.plan.ID))

	_, err := f.engine.Assign(f.ctx, f.clientID, Target{Domain: domain.DomainWorkout, ItemID: f.workoutID}, f.staffID)
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindPolicyRejected, Reason: apperr.ReasonNoPlan})
}

func TestExpiredPlanRejectsAssignment(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	c := f.client(t)
	end := day0.AddDate(0, 0, -1)
	c.PlanEndDate = &end
	require.NoError(t, f.store.Clients.Update(f.ctx, c))

	_, err := f.engine.Assign(f.ctx, f.clientID, Target{Domain: domain.DomainWorkout, ItemID: f.workoutID}, f.staffID)
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindPolicyRejected, Reason: apperr.ReasonPlanExpired})
}

func TestSwapBeforeAnyAssignment(t *testing.T) {
	f := newFixture(t, scenarioPlan())

	_, err := f.swap(0)
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindPolicyRejected, Reason: apperr.ReasonNoActiveAssignment})
}

func TestSwapMustTargetCurrentWorkout(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	f.assignWorkout(t)

	_, err := f.engine.RequestSwap(f.ctx, f.clientID, SwapInput{
		Domain:    domain.DomainWorkout,
		OldItemID: f.foreignExercise,
		NewItemID: f.exercises[1],
		Reason:    "not mine",
	})
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindPolicyRejected, Reason: apperr.ReasonItemNotInActivePlan})
	assert.Equal(t, 2, f.client(t).ExerciseSwapsRemaining)
}

func TestSwapValidatesInput(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	f.assignWorkout(t)

	_, err := f.engine.RequestSwap(f.ctx, f.clientID, SwapInput{Domain: domain.DomainWorkout, OldItemID: f.exercises[0], NewItemID: f.exercises[0], Reason: "same"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.engine.RequestSwap(f.ctx, f.clientID, SwapInput{Domain: domain.DomainWorkout, OldItemID: f.exercises[0], NewItemID: primitive.NewObjectID(), Reason: "missing"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.engine.RequestSwap(f.ctx, f.clientID, SwapInput{Domain: "cardio", OldItemID: f.exercises[0], NewItemID: f.exercises[1]})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.engine.RequestSwap(f.ctx, primitive.NewObjectID(), SwapInput{Domain: domain.DomainWorkout, OldItemID: f.exercises[0], NewItemID: f.exercises[1]})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUnlimitedSwapsLeaveCounterUntouched(t *testing.T) {
	plan := scenarioPlan()
	plan.UnlimitedSwaps = true
	f := newFixture(t, plan)
	f.assignWorkout(t)

	for day := 0; day <= 7; day++ {
		_, err := f.swap(day)
		require.NoError(t, err, "day %d", day)
	}
	assert.Equal(t, 0, f.client(t).ExerciseSwapsRemaining)
}

func TestAssignRejectsItemOfAnotherClient(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	other, err := f.store.Clients.Create(f.ctx, &domain.Client{Name: "Bia", Email: "bia@example.com"})
	require.NoError(t, err)
	require.NoError(t, f.store.Workouts.AssignToClient(f.ctx, f.workoutID, other))

	_, err = f.engine.Assign(f.ctx, f.clientID, Target{Domain: domain.DomainWorkout, ItemID: f.workoutID}, f.staffID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// failingSwaps makes the final write of a swap fail.
type failingSwaps struct {
	repository.SwapRepository
}

func (failingSwaps) Create(context.Context, *domain.SwapRequest) (primitive.ObjectID, error) {
	return primitive.NilObjectID, errors.New("disk full")
}

func TestFailedSwapRollsBackCounter(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	f.assignWorkout(t)
	f.store.ExerciseSwaps = failingSwaps{f.store.ExerciseSwaps}

	_, err := f.swap(1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, 2, f.client(t).ExerciseSwapsRemaining)
}

func TestConcurrentSwapsNeverOverspend(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	f.assignWorkout(t)
	f.clock.Set(day0.AddDate(0, 0, 1))

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.RequestSwap(f.ctx, f.clientID, SwapInput{
				Domain:    domain.DomainWorkout,
				OldItemID: f.exercises[0],
				NewItemID: f.exercises[2],
				Reason:    "busy gym",
			})
			if err == nil {
				succeeded.Add(1)
				return
			}
			assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindPolicyRejected, Reason: apperr.ReasonSwapLimitExhausted})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), succeeded.Load())
	assert.Equal(t, 0, f.client(t).ExerciseSwapsRemaining)
}

// racingClients loses the first n conditional updates.
type racingClients struct {
	repository.ClientRepository
	losses atomic.Int32
}

func (r *racingClients) ConsumeSwap(ctx context.Context, c repository.SwapConsumption) error {
	if r.losses.Add(-1) >= 0 {
		return repository.ErrConflict
	}
	return r.ClientRepository.ConsumeSwap(ctx, c)
}

func (r *racingClients) StampAssignment(ctx context.Context, s repository.AssignmentStamp) error {
	if r.losses.Add(-1) >= 0 {
		return repository.ErrConflict
	}
	return r.ClientRepository.StampAssignment(ctx, s)
}

func TestConflictIsRetried(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	racing := &racingClients{ClientRepository: f.store.Clients}
	f.store.Clients = racing

	racing.losses.Store(2)
	f.assignWorkout(t)

	racing.losses.Store(DefaultMaxConflictRetries)
	_, err := f.swap(1)
	require.NoError(t, err)
	assert.Equal(t, 1, f.client(t).ExerciseSwapsRemaining)
	swaps, err := f.store.ExerciseSwaps.List(f.ctx, repository.AllRows())
	require.NoError(t, err)
	assert.Len(t, swaps, 1, "lost attempts leave no swap records behind")
}

func TestConflictSurfacesAfterRetries(t *testing.T) {
	f := newFixture(t, scenarioPlan())
	f.assignWorkout(t)
	racing := &racingClients{ClientRepository: f.store.Clients}
	racing.losses.Store(DefaultMaxConflictRetries + 1)
	f.store.Clients = racing

	_, err := f.swap(1)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.True(t, apperr.IsRetryable(err))
	assert.Equal(t, 2, f.client(t).ExerciseSwapsRemaining)
}
