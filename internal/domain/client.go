package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Client is the subscriber record owned by a client-role Profile. It carries
// the per-domain entitlement state: when the current workout/diet was
// assigned and how many swaps remain for it.
type Client struct {
	Base      `bson:",inline"`
	UserID    *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`       // Owning user (denormalized from the profile)
	ProfileID *primitive.ObjectID `bson:"profileId,omitempty" json:"profileId,omitempty"` // Owning client-role profile
	Name      string              `bson:"name" json:"name" validate:"required,max=100"`
	Email     string              `bson:"email" json:"email" validate:"required,email"` // Should be unique
	Phone     string              `bson:"phone,omitempty" json:"phone,omitempty" validate:"max=20"`
	BirthDate *time.Time          `bson:"birthDate,omitempty" json:"birthDate,omitempty"`
	Height    float64             `bson:"height" json:"height" validate:"gte=0"`
	Weight    float64             `bson:"weight" json:"weight" validate:"gte=0"`

	// --- Subscription ---
	PlanTypeID    *primitive.ObjectID `bson:"planTypeId,omitempty" json:"planTypeId,omitempty"`
	PlanStartDate *time.Time          `bson:"planStartDate,omitempty" json:"planStartDate,omitempty"`
	PlanEndDate   *time.Time          `bson:"planEndDate,omitempty" json:"planEndDate,omitempty"`

	// --- Entitlement state (written only by the entitlement engine) ---
	LastWorkoutAssignedAt  *time.Time          `bson:"lastWorkoutAssignedAt,omitempty" json:"lastWorkoutAssignedAt,omitempty"`
	LastDietAssignedAt     *time.Time          `bson:"lastDietAssignedAt,omitempty" json:"lastDietAssignedAt,omitempty"`
	CurrentWorkoutID       *primitive.ObjectID `bson:"currentWorkoutId,omitempty" json:"currentWorkoutId,omitempty"`
	CurrentDietID          *primitive.ObjectID `bson:"currentDietId,omitempty" json:"currentDietId,omitempty"`
	ExerciseSwapsRemaining int                 `bson:"exerciseSwapsRemaining" json:"exerciseSwapsRemaining"`
	MealSwapsRemaining     int                 `bson:"mealSwapsRemaining" json:"mealSwapsRemaining"`
}

// LastAssignedAt returns the last assignment time for a plan domain.
func (c *Client) LastAssignedAt(d PlanDomain) *time.Time {
	if d == DomainDiet {
		return c.LastDietAssignedAt
	}
	return c.LastWorkoutAssignedAt
}

// CurrentItemID returns the currently assigned workout or diet.
func (c *Client) CurrentItemID(d PlanDomain) *primitive.ObjectID {
	if d == DomainDiet {
		return c.CurrentDietID
	}
	return c.CurrentWorkoutID
}

// SwapsRemaining returns the remaining swap allowance for a plan domain.
func (c *Client) SwapsRemaining(d PlanDomain) int {
	if d == DomainDiet {
		return c.MealSwapsRemaining
	}
	return c.ExerciseSwapsRemaining
}

// OwnedBy reports whether the client record belongs to userID.
func (c *Client) OwnedBy(userID primitive.ObjectID) bool {
	return c.UserID != nil && *c.UserID == userID
}
