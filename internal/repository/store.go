package repository

import (
	"context"
	"errors"
	"fmt"

	"fittrack/backend/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store bundles every repository of one backend (MongoDB or in-memory).
type Store struct {
	Users          UserRepository
	Profiles       ProfileRepository
	PlanTypes      PlanTypeRepository
	Clients        ClientRepository
	Workouts       WorkoutRepository
	Diets          DietRepository
	Exercises      ExerciseRepository
	Meals          MealRepository
	WorkoutHistory HistoryRepository
	DietHistory    HistoryRepository
	ExerciseSwaps  SwapRepository
	MealSwaps      SwapRepository
	Tx             Transactor
}

// History returns the assignment record repository of a plan domain.
func (s *Store) History(d domain.PlanDomain) HistoryRepository {
	if d == domain.DomainDiet {
		return s.DietHistory
	}
	return s.WorkoutHistory
}

// Swaps returns the swap request repository of a plan domain.
func (s *Store) Swaps(d domain.PlanDomain) SwapRepository {
	if d == domain.DomainDiet {
		return s.MealSwaps
	}
	return s.ExerciseSwaps
}

// PlanItem loads a non-deleted workout or diet.
func (s *Store) PlanItem(ctx context.Context, d domain.PlanDomain, id primitive.ObjectID) (domain.PlanItem, error) {
	if d == domain.DomainDiet {
		diet, err := s.Diets.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return diet, nil
	}
	workout, err := s.Workouts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return workout, nil
}

// AssignPlanItem sets the direct client link on a workout or diet.
func (s *Store) AssignPlanItem(ctx context.Context, d domain.PlanDomain, id, clientID primitive.ObjectID) error {
	if d == domain.DomainDiet {
		return s.Diets.AssignToClient(ctx, id, clientID)
	}
	return s.Workouts.AssignToClient(ctx, id, clientID)
}

// PlanEntry loads a non-deleted exercise or meal.
func (s *Store) PlanEntry(ctx context.Context, d domain.PlanDomain, id primitive.ObjectID) (domain.PlanEntry, error) {
	if d == domain.DomainDiet {
		meal, err := s.Meals.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return meal, nil
	}
	exercise, err := s.Exercises.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return exercise, nil
}

// OwnerOf resolves who a single non-deleted row belongs to, for ownership
// and scope checks. Plan types have no owner.
func (s *Store) OwnerOf(ctx context.Context, rt domain.ResourceType, id primitive.ObjectID) (Owner, error) {
	switch rt {
	case domain.ResourceWorkout:
		w, err := s.Workouts.GetByID(ctx, id)
		if err != nil {
			return Owner{}, err
		}
		return Owner{ClientID: w.ClientID}, nil
	case domain.ResourceDiet:
		d, err := s.Diets.GetByID(ctx, id)
		if err != nil {
			return Owner{}, err
		}
		return Owner{ClientID: d.ClientID}, nil
	case domain.ResourceExercise:
		e, err := s.Exercises.GetByID(ctx, id)
		if err != nil {
			return Owner{}, err
		}
		return s.parentOwner(ctx, domain.DomainWorkout, e.WorkoutID)
	case domain.ResourceMeal:
		m, err := s.Meals.GetByID(ctx, id)
		if err != nil {
			return Owner{}, err
		}
		return s.parentOwner(ctx, domain.DomainDiet, m.DietID)
	case domain.ResourcePlanType:
		if _, err := s.PlanTypes.GetByID(ctx, id); err != nil {
			return Owner{}, err
		}
		return Owner{}, nil
	case domain.ResourceClient:
		c, err := s.Clients.GetByID(ctx, id)
		if err != nil {
			return Owner{}, err
		}
		clientID := c.ID
		return Owner{ClientID: &clientID, UserID: c.UserID}, nil
	case domain.ResourceProfile:
		p, err := s.Profiles.GetByID(ctx, id)
		if err != nil {
			return Owner{}, err
		}
		userID := p.UserID
		return Owner{UserID: &userID}, nil
	case domain.ResourceUser:
		u, err := s.Users.GetByID(ctx, id)
		if err != nil {
			return Owner{}, err
		}
		userID := u.ID
		return Owner{UserID: &userID}, nil
	case domain.ResourceWorkoutHistory, domain.ResourceDietHistory:
		d, _ := rt.Domain()
		r, err := s.History(d).GetByID(ctx, id)
		if err != nil {
			return Owner{}, err
		}
		clientID := r.ClientID
		return Owner{ClientID: &clientID}, nil
	case domain.ResourceExerciseSwap, domain.ResourceMealSwap:
		d, _ := rt.Domain()
		r, err := s.Swaps(d).GetByID(ctx, id)
		if err != nil {
			return Owner{}, err
		}
		clientID := r.ClientID
		return Owner{ClientID: &clientID}, nil
	}
	return Owner{}, fmt.Errorf("unknown resource type %q", rt)
}

func (s *Store) parentOwner(ctx context.Context, d domain.PlanDomain, parentID primitive.ObjectID) (Owner, error) {
	item, err := s.PlanItem(ctx, d, parentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Entry of a deleted plan: it belongs to nobody.
			return Owner{}, nil
		}
		return Owner{}, err
	}
	return Owner{ClientID: item.AssignedClient()}, nil
}
