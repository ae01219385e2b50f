package mongo

import (
	"context"

	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const profileCollectionName = "profiles"

type mongoProfileRepository struct {
	collection[domain.Profile, *domain.Profile]
}

// NewMongoProfileRepository creates a profile repository. Profiles are
// scoped by their owning user.
func NewMongoProfileRepository(db *mongo.Database) repository.ProfileRepository {
	scope := func(_ context.Context, scope repository.Scope) (bson.M, bool, error) {
		switch scope.Mode {
		case repository.ScopeAll:
			return bson.M{}, true, nil
		case repository.ScopeUser:
			return bson.M{"userId": scope.UserID}, true, nil
		}
		return nil, false, nil
	}
	updatable := func(p *domain.Profile) bson.M {
		return bson.M{
			"role":      p.Role,
			"phone":     p.Phone,
			"birthDate": p.BirthDate,
		}
	}
	return &mongoProfileRepository{
		collection: newCollection(db.Collection(profileCollectionName), scope, updatable),
	}
}

// GetByUserID retrieves the non-deleted profile of a user.
func (r *mongoProfileRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	return r.findOne(ctx, notDeleted(bson.M{"userId": userID}))
}
