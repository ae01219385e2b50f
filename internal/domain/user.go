package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between profile roles
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleNutritionist    Role = "nutritionist"
	RolePersonalTrainer Role = "personal_trainer"
	RoleClient          Role = "client"
)

// Roles lists every assignable profile role.
var Roles = []Role{RoleAdmin, RoleNutritionist, RolePersonalTrainer, RoleClient}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsProfessional reports whether the role manages plans for clients.
func (r Role) IsProfessional() bool {
	return r == RoleNutritionist || r == RolePersonalTrainer
}

// User is the identity principal. Users are never soft-deleted: they are
// deactivated through IsActive instead.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username  string             `bson:"username" json:"username" validate:"required,max=150"`
	Email     string             `bson:"email" json:"email" validate:"required,email"` // Should be unique
	IsActive  bool               `bson:"isActive" json:"isActive"`
	IsStaff   bool               `bson:"isStaff" json:"isStaff"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Profile attaches a role and contact details to a User (1:1).
type Profile struct {
	Base      `bson:",inline"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Role      Role               `bson:"role" json:"role" validate:"required,oneof=admin nutritionist personal_trainer client"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty" validate:"max=20"`
	BirthDate *time.Time         `bson:"birthDate,omitempty" json:"birthDate,omitempty"`
}
