package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// deletedAtField is the soft-delete marker shared by every collection
// except users.
const deletedAtField = "deletedAt"

// notDeleted composes the soft-delete predicate into a filter. Every default
// read and write path goes through it; only the *IncludingDeleted lookups
// bypass it.
func notDeleted(filter bson.M) bson.M {
	composed := bson.M{deletedAtField: nil}
	for k, v := range filter {
		composed[k] = v
	}
	return composed
}

// softDeleteUpdate marks a document deleted at now.
func softDeleteUpdate(now time.Time) bson.M {
	return bson.M{"$set": bson.M{deletedAtField: now, "updatedAt": now}}
}

// activeOnly is the user-specific counterpart of notDeleted.
func activeOnly(filter bson.M) bson.M {
	composed := bson.M{"isActive": true}
	for k, v := range filter {
		composed[k] = v
	}
	return composed
}
