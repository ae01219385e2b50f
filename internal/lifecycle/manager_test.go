package lifecycle

import (
	"context"
	"testing"
	"time"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/history"
	"fittrack/backend/internal/repository"
	"fittrack/backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newManager(store *repository.Store) *Manager {
	log := zap.NewNop().Sugar()
	return NewManager(store, history.NewRecorder(store, nil, nil, log), log)
}

func TestDeleteSoftDeletes(t *testing.T) {
	store := memory.NewStore()
	m := newManager(store)
	ctx := context.Background()

	id, err := store.Meals.Create(ctx, &domain.Meal{DietID: primitive.NewObjectID(), Name: "Oats"})
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, domain.ResourceMeal, id))

	_, err = store.Meals.GetByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	meal, err := store.Meals.GetByIDIncludingDeleted(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, meal.DeletedAt)
	assert.WithinDuration(t, time.Now(), *meal.DeletedAt, time.Minute)

	assert.ErrorIs(t, m.Delete(ctx, domain.ResourceMeal, id), apperr.ErrNotFound)
}

func TestDeleteUserDeactivates(t *testing.T) {
	store := memory.NewStore()
	m := newManager(store)
	ctx := context.Background()

	id, err := store.Users.Create(ctx, &domain.User{Username: "bob", Email: "bob@example.com"})
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, domain.ResourceUser, id))

	u, err := store.Users.GetByIDIncludingInactive(ctx, id)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	assert.ErrorIs(t, m.Delete(ctx, domain.ResourceUser, id), apperr.ErrNotFound)
}

func TestDeleteEveryResourceType(t *testing.T) {
	store := memory.NewStore()
	m := newManager(store)
	ctx := context.Background()

	for _, rt := range domain.ResourceTypes {
		t.Run(string(rt), func(t *testing.T) {
			err := m.Delete(ctx, rt, primitive.NewObjectID())
			assert.ErrorIs(t, err, apperr.ErrNotFound)
		})
	}

	assert.ErrorIs(t, m.Delete(ctx, "invoice", primitive.NewObjectID()), apperr.ErrValidation)
}

func TestDeleteHistoryRecord(t *testing.T) {
	store := memory.NewStore()
	m := newManager(store)
	ctx := context.Background()

	id, err := store.DietHistory.Create(ctx, &domain.AssignmentRecord{Domain: domain.DomainDiet, ClientID: primitive.NewObjectID()})
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, domain.ResourceDietHistory, id))
	_, err = store.DietHistory.GetByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
