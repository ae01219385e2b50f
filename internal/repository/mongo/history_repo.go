package mongo

import (
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	workoutHistoryCollectionName = "workout_history"
	dietHistoryCollectionName    = "diet_history"
	exerciseSwapCollectionName   = "exercise_swaps"
	mealSwapCollectionName       = "meal_swaps"
)

type mongoHistoryRepository struct {
	collection[domain.AssignmentRecord, *domain.AssignmentRecord]
}

// NewMongoHistoryRepository creates an assignment record repository over the
// named collection. Records are immutable apart from their notes and end date.
func NewMongoHistoryRepository(db *mongo.Database, collectionName string) repository.HistoryRepository {
	updatable := func(r *domain.AssignmentRecord) bson.M {
		return bson.M{
			"notes":   r.Notes,
			"endDate": r.EndDate,
		}
	}
	return &mongoHistoryRepository{
		collection: newCollection(db.Collection(collectionName), byClientField("clientId"), updatable),
	}
}

type mongoSwapRepository struct {
	collection[domain.SwapRequest, *domain.SwapRequest]
}

// NewMongoSwapRepository creates a swap request repository over the named
// collection.
func NewMongoSwapRepository(db *mongo.Database, collectionName string) repository.SwapRepository {
	updatable := func(s *domain.SwapRequest) bson.M {
		return bson.M{"reason": s.Reason}
	}
	return &mongoSwapRepository{
		collection: newCollection(db.Collection(collectionName), byClientField("clientId"), updatable),
	}
}
