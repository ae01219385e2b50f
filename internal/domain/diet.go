package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Diet is a nutrition plan made of Meals.
type Diet struct {
	Base        `bson:",inline"`
	ClientID    *primitive.ObjectID `bson:"clientId,omitempty" json:"clientId,omitempty"`
	Name        string              `bson:"name" json:"name" validate:"required,max=100"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Calories    int                 `bson:"calories" json:"calories" validate:"gte=0"` // Daily calorie target
}

// AssignedClient implements PlanItem.
func (d *Diet) AssignedClient() *primitive.ObjectID { return d.ClientID }

// PlanItem is a workout or a diet.
type PlanItem interface {
	Entity
	AssignedClient() *primitive.ObjectID
}
