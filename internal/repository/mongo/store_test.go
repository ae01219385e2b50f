package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// setupStore connects to the server named by FITTRACK_TEST_MONGO_URI and
// returns a store over a throwaway database.
func setupStore(t *testing.T) *repository.Store {
	t.Helper()

	uri := os.Getenv("FITTRACK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("FITTRACK_TEST_MONGO_URI not set, skipping MongoDB integration test")
	}
	client, err := ConnectDB(uri)
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	db := client.Database("fittrack_test_" + primitive.NewObjectID().Hex())
	ctx := context.Background()
	require.NoError(t, EnsureIndexes(ctx, db, zap.NewNop().Sugar()))

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = DisconnectDB(client)
	})
	return NewStore(client, db)
}

func TestSoftDeleteHidesFromDefaultReads(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	workout := &domain.Workout{Name: "Push day"}
	id, err := store.Workouts.Create(ctx, workout)
	require.NoError(t, err)

	require.NoError(t, store.Workouts.SoftDelete(ctx, id))

	_, err = store.Workouts.GetByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	all, err := store.Workouts.List(ctx, repository.AllRows())
	require.NoError(t, err)
	assert.Empty(t, all)

	deleted, err := store.Workouts.GetByIDIncludingDeleted(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted())

	assert.ErrorIs(t, store.Workouts.SoftDelete(ctx, id), repository.ErrNotFound)
}

func TestExerciseScopeFollowsWorkoutOwner(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	clientID := primitive.NewObjectID()
	mine := &domain.Workout{Name: "Mine"}
	mineID, err := store.Workouts.Create(ctx, mine)
	require.NoError(t, err)
	require.NoError(t, store.Workouts.AssignToClient(ctx, mineID, clientID))

	otherID, err := store.Workouts.Create(ctx, &domain.Workout{Name: "Other"})
	require.NoError(t, err)

	_, err = store.Exercises.Create(ctx, &domain.Exercise{WorkoutID: mineID, Name: "Squat"})
	require.NoError(t, err)
	_, err = store.Exercises.Create(ctx, &domain.Exercise{WorkoutID: otherID, Name: "Row"})
	require.NoError(t, err)

	own, err := store.Exercises.List(ctx, repository.ClientRows(clientID))
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Squat", own[0].Name)

	none, err := store.Exercises.List(ctx, repository.NoRows())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestConsumeSwapGuards(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	client := &domain.Client{Name: "Ana", Email: "ana@example.com"}
	clientID, err := store.Clients.Create(ctx, client)
	require.NoError(t, err)

	assignedAt := time.Now().UTC().Truncate(time.Millisecond)
	one := 1
	require.NoError(t, store.Clients.StampAssignment(ctx, repository.AssignmentStamp{
		ClientID:       clientID,
		Domain:         domain.DomainWorkout,
		ItemID:         primitive.NewObjectID(),
		AssignedAt:     assignedAt,
		SwapsRemaining: &one,
	}))

	// A second stamp expecting "never assigned" lost the race.
	err = store.Clients.StampAssignment(ctx, repository.AssignmentStamp{
		ClientID:   clientID,
		Domain:     domain.DomainWorkout,
		ItemID:     primitive.NewObjectID(),
		AssignedAt: assignedAt,
	})
	assert.ErrorIs(t, err, repository.ErrConflict)

	consume := repository.SwapConsumption{ClientID: clientID, Domain: domain.DomainWorkout, ExpectedLastAssignedAt: assignedAt}
	require.NoError(t, store.Clients.ConsumeSwap(ctx, consume))
	assert.ErrorIs(t, store.Clients.ConsumeSwap(ctx, consume), repository.ErrConflict)

	got, err := store.Clients.GetByID(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ExerciseSwapsRemaining)
}

func TestDeactivatedUserIsHidden(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.Users.Create(ctx, &domain.User{Username: "bob", Email: "bob@example.com"})
	require.NoError(t, err)

	_, err = store.Users.Create(ctx, &domain.User{Username: "bob2", Email: "bob@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	require.NoError(t, store.Users.Deactivate(ctx, id))

	_, err = store.Users.GetByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	u, err := store.Users.GetByIDIncludingInactive(ctx, id)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
}

func TestUniqueIndexesAreServerCompatible(t *testing.T) {
	models := indexModels()

	keysOf := func(m mongo.IndexModel) []string {
		var keys []string
		for _, e := range m.Keys.(bson.D) {
			keys = append(keys, e.Key)
		}
		return keys
	}

	var unique [][]string
	for name, indexes := range models {
		for _, m := range indexes {
			if m.Options == nil {
				continue
			}
			// Partial filters may only use positive $exists.
			if filter, ok := m.Options.PartialFilterExpression.(bson.M); ok {
				for field, cond := range filter {
					assert.Equal(t, bson.M{"$exists": true}, cond, "%s partial filter on %s", name, field)
				}
			}
			if m.Options.Unique != nil && *m.Options.Unique && name != userCollectionName {
				keys := keysOf(m)
				assert.Equal(t, deletedAtField, keys[len(keys)-1], "%s unique index %v must be scoped to live rows", name, keys)
				unique = append(unique, append([]string{name}, keys...))
			}
		}
	}
	assert.Contains(t, unique, []string{profileCollectionName, "userId", deletedAtField})
	assert.Contains(t, unique, []string{clientCollectionName, "email", deletedAtField})
	assert.Contains(t, unique, []string{clientCollectionName, "userId", deletedAtField})
	assert.Contains(t, unique, []string{clientCollectionName, "profileId", deletedAtField})
}

func TestClientOwnerIsUnique(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	userID := primitive.NewObjectID()
	firstID, err := store.Clients.Create(ctx, &domain.Client{UserID: &userID, Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)

	_, err = store.Clients.Create(ctx, &domain.Client{UserID: &userID, Name: "Ana", Email: "ana2@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// Clients without an owner do not collide.
	_, err = store.Clients.Create(ctx, &domain.Client{Name: "Walk-in", Email: "walkin1@example.com"})
	require.NoError(t, err)
	_, err = store.Clients.Create(ctx, &domain.Client{Name: "Walk-in", Email: "walkin2@example.com"})
	require.NoError(t, err)

	require.NoError(t, store.Clients.SoftDelete(ctx, firstID))
	_, err = store.Clients.Create(ctx, &domain.Client{UserID: &userID, Name: "Ana", Email: "ana@example.com"})
	assert.NoError(t, err)
}
