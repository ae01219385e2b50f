package entitlement

import (
	"testing"
	"time"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEvaluate(t *testing.T) {
	day0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	at := func(days int) time.Time { return day0.AddDate(0, 0, days) }
	plan := &domain.PlanType{RefreshIntervalDays: 30, ExerciseSwapLimit: 2, SwapWindowDays: 7}
	itemID := primitive.NewObjectID()

	assigned := func(remaining int) *domain.Client {
		stamp := day0
		return &domain.Client{LastWorkoutAssignedAt: &stamp, CurrentWorkoutID: &itemID, ExerciseSwapsRemaining: remaining}
	}

	tests := []struct {
		name       string
		client     *domain.Client
		plan       *domain.PlanType
		now        time.Time
		wantState  State
		wantWindow bool
		assignErr  apperr.Reason
		swapErr    apperr.Reason
	}{
		{
			name:      "no plan",
			client:    &domain.Client{},
			now:       day0,
			wantState: StateNoPlan,
			assignErr: apperr.ReasonNoPlan,
			swapErr:   apperr.ReasonNoPlan,
		},
		{
			name:      "never assigned",
			client:    &domain.Client{},
			plan:      plan,
			now:       day0,
			wantState: StateEligible,
			swapErr:   apperr.ReasonNoActiveAssignment,
		},
		{
			name:       "same day as assignment",
			client:     assigned(2),
			plan:       plan,
			now:        day0,
			wantState:  StateActive,
			wantWindow: true,
			assignErr:  apperr.ReasonRefreshIntervalNotElapsed,
		},
		{
			name:       "last day of the window",
			client:     assigned(2),
			plan:       plan,
			now:        at(7),
			wantState:  StateActive,
			wantWindow: true,
			assignErr:  apperr.ReasonRefreshIntervalNotElapsed,
		},
		{
			name:      "window closed",
			client:    assigned(2),
			plan:      plan,
			now:       at(8),
			wantState: StateActive,
			assignErr: apperr.ReasonRefreshIntervalNotElapsed,
			swapErr:   apperr.ReasonSwapWindowClosed,
		},
		{
			name:       "counter exhausted",
			client:     assigned(0),
			plan:       plan,
			now:        at(2),
			wantState:  StateActive,
			wantWindow: true,
			assignErr:  apperr.ReasonRefreshIntervalNotElapsed,
			swapErr:    apperr.ReasonSwapLimitExhausted,
		},
		{
			name:       "unlimited ignores counter",
			client:     assigned(0),
			plan:       &domain.PlanType{RefreshIntervalDays: 30, SwapWindowDays: 7, UnlimitedSwaps: true},
			now:        at(2),
			wantState:  StateActive,
			wantWindow: true,
			assignErr:  apperr.ReasonRefreshIntervalNotElapsed,
		},
		{
			name:      "refresh interval elapsed",
			client:    assigned(1),
			plan:      plan,
			now:       at(30),
			wantState: StateEligible,
			swapErr:   apperr.ReasonNoActiveAssignment,
		},
		{
			name: "plan expired",
			client: func() *domain.Client {
				end := day0.AddDate(0, 0, -1)
				return &domain.Client{PlanEndDate: &end}
			}(),
			plan:      plan,
			now:       day0,
			wantState: StateEligible,
			assignErr: apperr.ReasonPlanExpired,
			swapErr:   apperr.ReasonPlanExpired,
		},
		{
			name:      "zero refresh interval is never active",
			client:    assigned(2),
			plan:      &domain.PlanType{RefreshIntervalDays: 0, ExerciseSwapLimit: 2, SwapWindowDays: 7},
			now:       day0,
			wantState: StateEligible,
			swapErr:   apperr.ReasonNoActiveAssignment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Evaluate(tt.client, tt.plan, domain.DomainWorkout, tt.now, time.UTC)
			assert.Equal(t, tt.wantState, s.State)
			assert.Equal(t, tt.wantWindow, s.SwapWindowOpen)

			assertReason(t, tt.assignErr, CheckAssign(s))
			assertReason(t, tt.swapErr, CheckSwap(s))
		})
	}
}

func assertReason(t *testing.T, want apperr.Reason, err error) {
	t.Helper()
	if want == "" {
		assert.NoError(t, err)
		return
	}
	appErr, ok := apperr.From(err)
	if assert.True(t, ok, "expected *apperr.Error, got %v", err) {
		assert.Equal(t, apperr.KindPolicyRejected, appErr.Kind)
		assert.Equal(t, want, appErr.Reason)
	}
}

func TestEvaluateUsesBusinessDays(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	// Assigned at 23:00 local on Mar 1; 01:00 local on Mar 9 is day 8.
	stamp := time.Date(2024, 3, 2, 2, 0, 0, 0, time.UTC)
	itemID := primitive.NewObjectID()
	client := &domain.Client{LastDietAssignedAt: &stamp, CurrentDietID: &itemID, MealSwapsRemaining: 1}
	plan := &domain.PlanType{RefreshIntervalDays: 30, MealSwapLimit: 1, SwapWindowDays: 7}

	now := time.Date(2024, 3, 9, 4, 0, 0, 0, time.UTC)
	s := Evaluate(client, plan, domain.DomainDiet, now, loc)
	assert.Equal(t, 8, *s.DaysSinceAssignment)
	assert.False(t, s.SwapWindowOpen)

	s = Evaluate(client, plan, domain.DomainDiet, now, time.UTC)
	assert.Equal(t, 7, *s.DaysSinceAssignment)
	assert.True(t, s.SwapWindowOpen)
}
