// internal/domain/exercise.go
package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Exercise is a single exercise inside a Workout.
type Exercise struct {
	Base        `bson:",inline"`
	WorkoutID   primitive.ObjectID `bson:"workoutId" json:"workoutId" validate:"required"`
	Name        string             `bson:"name" json:"name" validate:"required,max=100"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
}

// ParentID implements PlanEntry.
func (e *Exercise) ParentID() primitive.ObjectID { return e.WorkoutID }

// Meal is a single meal inside a Diet.
type Meal struct {
	Base        `bson:",inline"`
	DietID      primitive.ObjectID `bson:"dietId" json:"dietId" validate:"required"`
	Name        string             `bson:"name" json:"name" validate:"required,max=100"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Calories    int                `bson:"calories" json:"calories" validate:"gte=0"`
}

// ParentID implements PlanEntry.
func (m *Meal) ParentID() primitive.ObjectID { return m.DietID }

// PlanEntry is an exercise or a meal: something a client may swap.
type PlanEntry interface {
	Entity
	ParentID() primitive.ObjectID
}
