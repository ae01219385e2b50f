package authz

import (
	"context"
	"testing"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"
	"fittrack/backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestResolver(t *testing.T) (*Resolver, *repository.Store) {
	t.Helper()
	log := zap.NewNop().Sugar()
	enforcer, err := NewEnforcer(log)
	require.NoError(t, err)
	store := memory.NewStore()
	return NewResolver(enforcer, store, nil, log), store
}

func principal(role domain.Role) *domain.Principal {
	return &domain.Principal{UserID: primitive.NewObjectID(), Role: role}
}

func TestCapabilityMatrix(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	admin := domain.RoleAdmin
	pt := domain.RolePersonalTrainer
	nut := domain.RoleNutritionist
	cli := domain.RoleClient

	tests := []struct {
		rt      domain.ResourceType
		act     domain.Action
		allowed []domain.Role
	}{
		{domain.ResourceWorkout, domain.ActionList, []domain.Role{admin, pt, nut, cli}},
		{domain.ResourceWorkout, domain.ActionCreate, []domain.Role{admin, pt}},
		{domain.ResourceWorkout, domain.ActionUpdate, []domain.Role{admin, pt}},
		{domain.ResourceWorkout, domain.ActionDelete, []domain.Role{admin}},
		{domain.ResourceExercise, domain.ActionCreate, []domain.Role{admin, pt}},
		{domain.ResourceDiet, domain.ActionCreate, []domain.Role{admin, nut}},
		{domain.ResourceMeal, domain.ActionUpdate, []domain.Role{admin, nut}},
		{domain.ResourceMeal, domain.ActionDelete, []domain.Role{admin}},
		{domain.ResourcePlanType, domain.ActionRetrieve, []domain.Role{admin, pt, nut, cli}},
		{domain.ResourcePlanType, domain.ActionCreate, []domain.Role{admin}},
		{domain.ResourceClient, domain.ActionList, []domain.Role{admin, pt, nut}},
		{domain.ResourceClient, domain.ActionCreate, []domain.Role{admin}},
		{domain.ResourceClient, domain.ActionDelete, []domain.Role{admin}},
		{domain.ResourceProfile, domain.ActionList, []domain.Role{admin, pt, nut}},
		{domain.ResourceExerciseSwap, domain.ActionCreate, []domain.Role{cli}},
		{domain.ResourceMealSwap, domain.ActionUpdate, []domain.Role{admin}},
		{domain.ResourceWorkoutHistory, domain.ActionCreate, []domain.Role{admin, pt}},
		{domain.ResourceDietHistory, domain.ActionCreate, []domain.Role{admin, nut}},
		{domain.ResourceDietHistory, domain.ActionUpdate, nil},
		{domain.ResourceUser, domain.ActionList, []domain.Role{admin}},
		{domain.ResourceUser, domain.ActionCreate, []domain.Role{admin}},
	}

	for _, tt := range tests {
		for _, role := range domain.Roles {
			name := string(tt.rt) + "/" + string(tt.act) + "/" + string(role)
			t.Run(name, func(t *testing.T) {
				_, err := r.Authorize(ctx, principal(role), tt.rt, tt.act, nil)
				if contains(tt.allowed, role) {
					assert.NoError(t, err)
				} else {
					assert.ErrorIs(t, err, apperr.ErrForbidden)
				}
			})
		}
	}
}

func contains(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func TestNilPrincipalRequiresAuthentication(t *testing.T) {
	r, _ := newTestResolver(t)

	for _, rt := range domain.ResourceTypes {
		for _, act := range domain.Actions {
			_, err := r.Authorize(context.Background(), nil, rt, act, nil)
			assert.ErrorIs(t, err, apperr.ErrAuthenticationRequired, "%s/%s", rt, act)
		}
	}
	assert.Equal(t, repository.NoRows(), r.Scope(nil, domain.ResourceWorkout))
}

func TestScope(t *testing.T) {
	r, _ := newTestResolver(t)
	clientID := primitive.NewObjectID()
	client := principal(domain.RoleClient)
	client.ClientID = &clientID
	orphanClient := principal(domain.RoleClient)
	staffClient := principal(domain.RoleClient)
	staffClient.Staff = true

	tests := []struct {
		name string
		p    *domain.Principal
		rt   domain.ResourceType
		want repository.ScopeMode
	}{
		{"admin sees all workouts", principal(domain.RoleAdmin), domain.ResourceWorkout, repository.ScopeAll},
		{"trainer sees all exercises", principal(domain.RolePersonalTrainer), domain.ResourceExercise, repository.ScopeAll},
		{"trainer sees no diets", principal(domain.RolePersonalTrainer), domain.ResourceDiet, repository.ScopeNone},
		{"nutritionist sees all meal swaps", principal(domain.RoleNutritionist), domain.ResourceMealSwap, repository.ScopeAll},
		{"nutritionist sees no workout history", principal(domain.RoleNutritionist), domain.ResourceWorkoutHistory, repository.ScopeNone},
		{"client sees own workouts", client, domain.ResourceWorkout, repository.ScopeClient},
		{"client without record sees nothing", orphanClient, domain.ResourceMeal, repository.ScopeNone},
		{"professionals see all clients", principal(domain.RoleNutritionist), domain.ResourceClient, repository.ScopeAll},
		{"client sees own client", client, domain.ResourceClient, repository.ScopeClient},
		{"non-staff sees own profile", principal(domain.RolePersonalTrainer), domain.ResourceProfile, repository.ScopeUser},
		{"staff flag sees all users", staffClient, domain.ResourceUser, repository.ScopeAll},
		{"everyone sees plan types", client, domain.ResourcePlanType, repository.ScopeAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Scope(tt.p, tt.rt).Mode)
		})
	}
}

func TestRowLevelDecisions(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	userID := primitive.NewObjectID()
	clientID, err := store.Clients.Create(ctx, &domain.Client{UserID: &userID, Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	otherClientID, err := store.Clients.Create(ctx, &domain.Client{Name: "Bia", Email: "bia@example.com"})
	require.NoError(t, err)

	owned, err := store.Workouts.Create(ctx, &domain.Workout{Name: "Mine"})
	require.NoError(t, err)
	require.NoError(t, store.Workouts.AssignToClient(ctx, owned, clientID))
	foreign, err := store.Workouts.Create(ctx, &domain.Workout{Name: "Other"})
	require.NoError(t, err)
	require.NoError(t, store.Workouts.AssignToClient(ctx, foreign, otherClientID))
	deleted, err := store.Workouts.Create(ctx, &domain.Workout{Name: "Gone"})
	require.NoError(t, err)
	require.NoError(t, store.Workouts.SoftDelete(ctx, deleted))

	client := &domain.Principal{UserID: userID, Role: domain.RoleClient, ClientID: &clientID}
	trainer := principal(domain.RolePersonalTrainer)
	nutritionist := principal(domain.RoleNutritionist)

	tests := []struct {
		name string
		p    *domain.Principal
		rt   domain.ResourceType
		act  domain.Action
		id   primitive.ObjectID
		want error
	}{
		{"client retrieves own workout", client, domain.ResourceWorkout, domain.ActionRetrieve, owned, nil},
		{"client cannot see foreign workout", client, domain.ResourceWorkout, domain.ActionRetrieve, foreign, apperr.ErrNotFound},
		{"deleted workout is not found", trainer, domain.ResourceWorkout, domain.ActionRetrieve, deleted, apperr.ErrNotFound},
		{"nutritionist cannot see workouts", nutritionist, domain.ResourceWorkout, domain.ActionRetrieve, owned, apperr.ErrNotFound},
		{"trainer updates any workout", trainer, domain.ResourceWorkout, domain.ActionUpdate, foreign, nil},
		{"client may not update workouts", client, domain.ResourceWorkout, domain.ActionUpdate, owned, apperr.ErrForbidden},
		{"client retrieves own client record", client, domain.ResourceClient, domain.ActionRetrieve, clientID, nil},
		{"client updates own client record", client, domain.ResourceClient, domain.ActionUpdate, clientID, nil},
		{"client cannot update another client", client, domain.ResourceClient, domain.ActionUpdate, otherClientID, apperr.ErrForbidden},
		{"client cannot retrieve another client", client, domain.ResourceClient, domain.ActionRetrieve, otherClientID, apperr.ErrNotFound},
		{"missing row is not found", trainer, domain.ResourceClient, domain.ActionRetrieve, primitive.NewObjectID(), apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.id
			decision, err := r.Authorize(ctx, tt.p, tt.rt, tt.act, &id)
			if tt.want == nil {
				require.NoError(t, err)
				assert.True(t, decision.Allowed)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, decision.Allowed)
		})
	}
}

func TestOwnerGrantOnUserRecord(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	me, err := store.Users.Create(ctx, &domain.User{Username: "me", Email: "me@example.com"})
	require.NoError(t, err)
	other, err := store.Users.Create(ctx, &domain.User{Username: "other", Email: "other@example.com"})
	require.NoError(t, err)

	p := &domain.Principal{UserID: me, Role: domain.RoleClient}

	decision, err := r.Authorize(ctx, p, domain.ResourceUser, domain.ActionRetrieve, &me)
	require.NoError(t, err)
	assert.Equal(t, GrantOwner, decision.Grant)

	_, err = r.Authorize(ctx, p, domain.ResourceUser, domain.ActionRetrieve, &other)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = r.Authorize(ctx, p, domain.ResourceUser, domain.ActionUpdate, &other)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = r.Authorize(ctx, p, domain.ResourceUser, domain.ActionDelete, &me)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
