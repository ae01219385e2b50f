package mongo

import (
	"context"
	"fmt"
	"time"

	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const clientCollectionName = "clients"

type mongoClientRepository struct {
	collection[domain.Client, *domain.Client]
}

// NewMongoClientRepository creates a client repository.
func NewMongoClientRepository(db *mongo.Database) repository.ClientRepository {
	scope := func(_ context.Context, scope repository.Scope) (bson.M, bool, error) {
		switch scope.Mode {
		case repository.ScopeAll:
			return bson.M{}, true, nil
		case repository.ScopeClient:
			return bson.M{"_id": scope.ClientID}, true, nil
		case repository.ScopeUser:
			return bson.M{"userId": scope.UserID}, true, nil
		}
		return nil, false, nil
	}
	// Entitlement fields are written only by StampAssignment and ConsumeSwap.
	updatable := func(c *domain.Client) bson.M {
		return bson.M{
			"name":          c.Name,
			"email":         c.Email,
			"phone":         c.Phone,
			"birthDate":     c.BirthDate,
			"height":        c.Height,
			"weight":        c.Weight,
			"userId":        c.UserID,
			"profileId":     c.ProfileID,
			"planTypeId":    c.PlanTypeID,
			"planStartDate": c.PlanStartDate,
			"planEndDate":   c.PlanEndDate,
		}
	}
	return &mongoClientRepository{
		collection: newCollection(db.Collection(clientCollectionName), scope, updatable),
	}
}

// GetByUserID retrieves the non-deleted client record of a user.
func (r *mongoClientRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Client, error) {
	return r.findOne(ctx, notDeleted(bson.M{"userId": userID}))
}

// StampAssignment records a new assignment in one conditional update. A nil
// expected timestamp matches a client that was never assigned.
func (r *mongoClientRepository) StampAssignment(ctx context.Context, stamp repository.AssignmentStamp) error {
	fields, err := entitlementFields(stamp.Domain)
	if err != nil {
		return err
	}

	filter := notDeleted(bson.M{
		"_id":            stamp.ClientID,
		fields.lastStamp: stamp.ExpectedLastAssignedAt,
	})
	set := bson.M{
		fields.lastStamp:   stamp.AssignedAt,
		fields.currentItem: stamp.ItemID,
		"updatedAt":        time.Now().UTC(),
	}
	if stamp.SwapsRemaining != nil {
		set[fields.counter] = *stamp.SwapsRemaining
	}

	result, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrConflict
	}
	return nil
}

// ConsumeSwap spends one swap allowance in one conditional update.
func (r *mongoClientRepository) ConsumeSwap(ctx context.Context, c repository.SwapConsumption) error {
	fields, err := entitlementFields(c.Domain)
	if err != nil {
		return err
	}

	filter := notDeleted(bson.M{
		"_id":            c.ClientID,
		fields.lastStamp: c.ExpectedLastAssignedAt,
	})
	update := bson.M{"$set": bson.M{"updatedAt": time.Now().UTC()}}
	if !c.Unlimited {
		filter[fields.counter] = bson.M{"$gt": 0}
		update["$inc"] = bson.M{fields.counter: -1}
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrConflict
	}
	return nil
}

type clientEntitlementFields struct {
	lastStamp   string
	currentItem string
	counter     string
}

func entitlementFields(d domain.PlanDomain) (clientEntitlementFields, error) {
	switch d {
	case domain.DomainWorkout:
		return clientEntitlementFields{"lastWorkoutAssignedAt", "currentWorkoutId", "exerciseSwapsRemaining"}, nil
	case domain.DomainDiet:
		return clientEntitlementFields{"lastDietAssignedAt", "currentDietId", "mealSwapsRemaining"}, nil
	}
	return clientEntitlementFields{}, fmt.Errorf("unknown plan domain %q", d)
}
