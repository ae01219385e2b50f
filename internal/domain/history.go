package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentRecord is the immutable history entry written once per new
// workout or diet assignment (WorkoutHistory / DietHistory).
type AssignmentRecord struct {
	Base       `bson:",inline"`
	Domain     PlanDomain         `bson:"domain" json:"domain"`
	ClientID   primitive.ObjectID `bson:"clientId" json:"clientId"`
	ItemID     primitive.ObjectID `bson:"itemId" json:"itemId"` // Workout or Diet
	StartDate  time.Time          `bson:"startDate" json:"startDate"`
	EndDate    *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Notes      string             `bson:"notes,omitempty" json:"notes,omitempty"`
	AssignedBy primitive.ObjectID `bson:"assignedBy" json:"assignedBy"`
}

// SwapRequest records a client replacing one exercise or meal with another.
type SwapRequest struct {
	Base        `bson:",inline"`
	Domain      PlanDomain         `bson:"domain" json:"domain"`
	ClientID    primitive.ObjectID `bson:"clientId" json:"clientId"`
	OldItemID   primitive.ObjectID `bson:"oldItemId" json:"oldItemId"`
	NewItemID   primitive.ObjectID `bson:"newItemId" json:"newItemId"`
	Reason      string             `bson:"reason" json:"reason"`
	RequestedAt time.Time          `bson:"requestedAt" json:"requestedAt"`
}
