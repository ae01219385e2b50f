package mongo

import (
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	exerciseCollectionName = "exercises"
	mealCollectionName     = "meals"
)

type mongoExerciseRepository struct {
	collection[domain.Exercise, *domain.Exercise]
}

// NewMongoExerciseRepository creates an exercise repository. Exercises are
// scoped to a client through their workout.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	updatable := func(e *domain.Exercise) bson.M {
		return bson.M{
			"workoutId":   e.WorkoutID,
			"name":        e.Name,
			"description": e.Description,
		}
	}
	scope := byParentClient(db.Collection(workoutCollectionName), "workoutId")
	return &mongoExerciseRepository{
		collection: newCollection(db.Collection(exerciseCollectionName), scope, updatable),
	}
}

type mongoMealRepository struct {
	collection[domain.Meal, *domain.Meal]
}

// NewMongoMealRepository creates a meal repository. Meals are scoped to a
// client through their diet.
func NewMongoMealRepository(db *mongo.Database) repository.MealRepository {
	updatable := func(m *domain.Meal) bson.M {
		return bson.M{
			"dietId":      m.DietID,
			"name":        m.Name,
			"description": m.Description,
			"calories":    m.Calories,
		}
	}
	scope := byParentClient(db.Collection(dietCollectionName), "dietId")
	return &mongoMealRepository{
		collection: newCollection(db.Collection(mealCollectionName), scope, updatable),
	}
}
