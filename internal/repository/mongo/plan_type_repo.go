package mongo

import (
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const planTypeCollectionName = "plan_types"

type mongoPlanTypeRepository struct {
	collection[domain.PlanType, *domain.PlanType]
}

// NewMongoPlanTypeRepository creates a plan type repository.
func NewMongoPlanTypeRepository(db *mongo.Database) repository.PlanTypeRepository {
	updatable := func(p *domain.PlanType) bson.M {
		return bson.M{
			"name":                p.Name,
			"description":         p.Description,
			"price":               p.Price,
			"durationDays":        p.DurationDays,
			"refreshIntervalDays": p.RefreshIntervalDays,
			"exerciseSwapLimit":   p.ExerciseSwapLimit,
			"mealSwapLimit":       p.MealSwapLimit,
			"swapWindowDays":      p.SwapWindowDays,
			"unlimitedSwaps":      p.UnlimitedSwaps,
		}
	}
	return &mongoPlanTypeRepository{
		collection: newCollection(db.Collection(planTypeCollectionName), allOnly, updatable),
	}
}
