package mongo

import (
	"context"
	"fmt"

	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// NewStore wires every MongoDB repository of one database.
func NewStore(client *mongo.Client, db *mongo.Database) *repository.Store {
	return &repository.Store{
		Users:          NewMongoUserRepository(db),
		Profiles:       NewMongoProfileRepository(db),
		PlanTypes:      NewMongoPlanTypeRepository(db),
		Clients:        NewMongoClientRepository(db),
		Workouts:       NewMongoWorkoutRepository(db),
		Diets:          NewMongoDietRepository(db),
		Exercises:      NewMongoExerciseRepository(db),
		Meals:          NewMongoMealRepository(db),
		WorkoutHistory: NewMongoHistoryRepository(db, workoutHistoryCollectionName),
		DietHistory:    NewMongoHistoryRepository(db, dietHistoryCollectionName),
		ExerciseSwaps:  NewMongoSwapRepository(db, exerciseSwapCollectionName),
		MealSwaps:      NewMongoSwapRepository(db, mealSwapCollectionName),
		Tx:             NewTransactor(client),
	}
}

// liveUnique makes keys unique among non-deleted documents. Live documents
// index deletedAt as null while retired ones carry distinct timestamps, so a
// soft-deleted row does not block re-creating the same key.
func liveUnique(field string) mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}, {Key: deletedAtField, Value: 1}},
		Options: options.Index().SetUnique(true),
	}
}

// liveUniqueWhenSet is liveUnique for an optional field; documents without
// the field are left out of the index.
func liveUniqueWhenSet(field string) mongo.IndexModel {
	model := liveUnique(field)
	model.Options.SetPartialFilterExpression(bson.M{field: bson.M{"$exists": true}})
	return model
}

// indexModels lists the indexes of every collection by collection name.
func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		userCollectionName: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		profileCollectionName: {
			liveUnique("userId"),
		},
		clientCollectionName: {
			liveUnique("email"),
			liveUniqueWhenSet("userId"),
			liveUniqueWhenSet("profileId"),
		},
		workoutCollectionName: {
			{Keys: bson.D{{Key: "clientId", Value: 1}}},
		},
		dietCollectionName: {
			{Keys: bson.D{{Key: "clientId", Value: 1}}},
		},
		exerciseCollectionName: {
			{Keys: bson.D{{Key: "workoutId", Value: 1}}},
		},
		mealCollectionName: {
			{Keys: bson.D{{Key: "dietId", Value: 1}}},
		},
		workoutHistoryCollectionName: {
			{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "startDate", Value: -1}}},
		},
		dietHistoryCollectionName: {
			{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "startDate", Value: -1}}},
		},
		exerciseSwapCollectionName: {
			{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "requestedAt", Value: -1}}},
		},
		mealSwapCollectionName: {
			{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "requestedAt", Value: -1}}},
		},
	}
}

// EnsureIndexes creates the indexes of every collection. Call this once
// during application startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log *zap.SugaredLogger) error {
	for name, indexes := range indexModels() {
		names, err := db.Collection(name).Indexes().CreateMany(ctx, indexes)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
		log.Debugw("indexes ensured", "collection", name, "indexes", names)
	}
	return nil
}
