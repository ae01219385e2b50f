package mongo

import (
	"context"
	"errors"
	"time"

	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// entityPtr constrains *T to the domain.Entity methods promoted from
// domain.Base.
type entityPtr[T any] interface {
	*T
	domain.Entity
}

// scopeFilter translates a row-level scope into a filter. ok=false means the
// scope selects nothing and no query should run.
type scopeFilter func(ctx context.Context, scope repository.Scope) (filter bson.M, ok bool, err error)

// collection implements repository.Repository[T] for any soft-deletable
// entity. Entity-specific repositories embed it and add their own queries.
type collection[T any, PT entityPtr[T]] struct {
	coll *mongo.Collection
	// scope translates list scopes for this entity.
	scope scopeFilter
	// updatable returns the fields a plain Update may $set.
	updatable func(item PT) bson.M
}

func newCollection[T any, PT entityPtr[T]](coll *mongo.Collection, scope scopeFilter, updatable func(PT) bson.M) collection[T, PT] {
	return collection[T, PT]{coll: coll, scope: scope, updatable: updatable}
}

// Create inserts a new document, assigning its ID and timestamps.
func (c *collection[T, PT]) Create(ctx context.Context, item *T) (primitive.ObjectID, error) {
	entity := PT(item)
	entity.SetID(primitive.NewObjectID())
	entity.MarkCreated(time.Now().UTC())

	if _, err := c.coll.InsertOne(ctx, item); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return entity.GetID(), nil
}

// GetByID retrieves a non-deleted document by its ID.
func (c *collection[T, PT]) GetByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return c.findOne(ctx, notDeleted(bson.M{"_id": id}))
}

// GetByIDIncludingDeleted retrieves a document even when soft-deleted.
func (c *collection[T, PT]) GetByIDIncludingDeleted(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return c.findOne(ctx, bson.M{"_id": id})
}

// List returns the non-deleted documents selected by scope, oldest first.
func (c *collection[T, PT]) List(ctx context.Context, scope repository.Scope) ([]T, error) {
	filter, ok, err := c.scope(ctx, scope)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []T{}, nil
	}
	return c.find(ctx, notDeleted(filter))
}

// Update $sets the updatable fields of a non-deleted document.
func (c *collection[T, PT]) Update(ctx context.Context, item *T) error {
	entity := PT(item)
	if entity.GetID() == primitive.NilObjectID {
		return errors.New("ID is required for update")
	}
	now := time.Now().UTC()
	entity.Touch(now)

	set := c.updatable(entity)
	set["updatedAt"] = now

	result, err := c.coll.UpdateOne(ctx, notDeleted(bson.M{"_id": entity.GetID()}), bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SoftDelete stamps deletedAt. Deleting an already deleted document is
// reported as not found.
func (c *collection[T, PT]) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	result, err := c.coll.UpdateOne(ctx, notDeleted(bson.M{"_id": id}), softDeleteUpdate(time.Now().UTC()))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (c *collection[T, PT]) findOne(ctx context.Context, filter bson.M) (*T, error) {
	var item T
	if err := c.coll.FindOne(ctx, filter).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (c *collection[T, PT]) find(ctx context.Context, filter bson.M) ([]T, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := c.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// --- Scope translations ---

// allOnly serves entities without per-client ownership (plan types).
func allOnly(_ context.Context, scope repository.Scope) (bson.M, bool, error) {
	return bson.M{}, scope.Mode == repository.ScopeAll, nil
}

// byClientField serves entities carrying a direct client reference.
func byClientField(field string) scopeFilter {
	return func(_ context.Context, scope repository.Scope) (bson.M, bool, error) {
		switch scope.Mode {
		case repository.ScopeAll:
			return bson.M{}, true, nil
		case repository.ScopeClient:
			return bson.M{field: scope.ClientID}, true, nil
		}
		return nil, false, nil
	}
}

// byParentClient serves exercises and meals, linked to a client through
// their (non-deleted) workout or diet.
func byParentClient(parents *mongo.Collection, parentField string) scopeFilter {
	return func(ctx context.Context, scope repository.Scope) (bson.M, bool, error) {
		switch scope.Mode {
		case repository.ScopeAll:
			return bson.M{}, true, nil
		case repository.ScopeClient:
			ids, err := distinctIDs(ctx, parents, notDeleted(bson.M{"clientId": scope.ClientID}))
			if err != nil {
				return nil, false, err
			}
			if len(ids) == 0 {
				return nil, false, nil
			}
			return bson.M{parentField: bson.M{"$in": ids}}, true, nil
		}
		return nil, false, nil
	}
}

func distinctIDs(ctx context.Context, coll *mongo.Collection, filter bson.M) ([]primitive.ObjectID, error) {
	raw, err := coll.Distinct(ctx, "_id", filter)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
