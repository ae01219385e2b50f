package mongo

import (
	"context"
	"time"

	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	workoutCollectionName = "workouts"
	dietCollectionName    = "diets"
)

// mongoPlanItemRepository stores workouts or diets, both of which carry a
// direct clientId link.
type mongoPlanItemRepository[T any, PT entityPtr[T]] struct {
	collection[T, PT]
}

// NewMongoWorkoutRepository creates a workout repository.
func NewMongoWorkoutRepository(db *mongo.Database) repository.WorkoutRepository {
	updatable := func(w *domain.Workout) bson.M {
		return bson.M{
			"name":            w.Name,
			"description":     w.Description,
			"durationMinutes": w.DurationMinutes,
		}
	}
	return &mongoPlanItemRepository[domain.Workout, *domain.Workout]{
		collection: newCollection(db.Collection(workoutCollectionName), byClientField("clientId"), updatable),
	}
}

// NewMongoDietRepository creates a diet repository.
func NewMongoDietRepository(db *mongo.Database) repository.DietRepository {
	updatable := func(d *domain.Diet) bson.M {
		return bson.M{
			"name":        d.Name,
			"description": d.Description,
			"calories":    d.Calories,
		}
	}
	return &mongoPlanItemRepository[domain.Diet, *domain.Diet]{
		collection: newCollection(db.Collection(dietCollectionName), byClientField("clientId"), updatable),
	}
}

// AssignToClient sets the clientId link. The link is never changed through
// Update; only an assignment moves it.
func (r *mongoPlanItemRepository[T, PT]) AssignToClient(ctx context.Context, id, clientID primitive.ObjectID) error {
	update := bson.M{
		"$set": bson.M{
			"clientId":  clientID,
			"updatedAt": time.Now().UTC(),
		},
	}
	result, err := r.coll.UpdateOne(ctx, notDeleted(bson.M{"_id": id}), update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
