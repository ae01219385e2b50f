package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Workout is a training plan made of Exercises. ClientID is the direct
// assignment link, set when the workout is assigned to a client.
type Workout struct {
	Base            `bson:",inline"`
	ClientID        *primitive.ObjectID `bson:"clientId,omitempty" json:"clientId,omitempty"`
	Name            string              `bson:"name" json:"name" validate:"required,max=100"`
	Description     string              `bson:"description,omitempty" json:"description,omitempty"`
	DurationMinutes int                 `bson:"durationMinutes" json:"durationMinutes" validate:"gte=0"`
}

// AssignedClient implements PlanItem.
func (w *Workout) AssignedClient() *primitive.ObjectID { return w.ClientID }
