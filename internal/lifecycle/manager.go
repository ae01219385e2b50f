// Package lifecycle retires records: soft delete for every entity, and
// deactivation for users.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/history"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Manager struct {
	store    *repository.Store
	recorder *history.Recorder
	log      *zap.SugaredLogger
}

func NewManager(store *repository.Store, recorder *history.Recorder, log *zap.SugaredLogger) *Manager {
	return &Manager{store: store, recorder: recorder, log: log}
}

// Delete retires one record. Deleting a missing or already deleted record
// yields NotFound. There is no restore.
func (m *Manager) Delete(ctx context.Context, rt domain.ResourceType, id primitive.ObjectID) error {
	var (
		err      error
		archived *domain.AssignmentRecord
	)

	switch rt {
	case domain.ResourceUser:
		err = m.store.Users.Deactivate(ctx, id)
	case domain.ResourceWorkout:
		err = m.store.Workouts.SoftDelete(ctx, id)
	case domain.ResourceDiet:
		err = m.store.Diets.SoftDelete(ctx, id)
	case domain.ResourceExercise:
		err = m.store.Exercises.SoftDelete(ctx, id)
	case domain.ResourceMeal:
		err = m.store.Meals.SoftDelete(ctx, id)
	case domain.ResourcePlanType:
		err = m.store.PlanTypes.SoftDelete(ctx, id)
	case domain.ResourceClient:
		err = m.store.Clients.SoftDelete(ctx, id)
	case domain.ResourceProfile:
		err = m.store.Profiles.SoftDelete(ctx, id)
	case domain.ResourceWorkoutHistory, domain.ResourceDietHistory:
		d, _ := rt.Domain()
		repo := m.store.History(d)
		if archived, err = repo.GetByID(ctx, id); err == nil {
			err = repo.SoftDelete(ctx, id)
		}
	case domain.ResourceExerciseSwap, domain.ResourceMealSwap:
		d, _ := rt.Domain()
		err = m.store.Swaps(d).SoftDelete(ctx, id)
	default:
		return apperr.Validation(fmt.Sprintf("unknown resource type %q", rt))
	}

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(fmt.Sprintf("%s not found", rt))
		}
		return fmt.Errorf("delete %s %s: %w", rt, id.Hex(), err)
	}

	if archived != nil {
		m.recorder.Unarchive(ctx, archived)
	}
	m.log.Infow("record retired", "resource", rt, "id", id.Hex())
	return nil
}
