package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base carries the identity and lifecycle timestamps shared by every
// soft-deletable entity. Embed it with `bson:",inline"`.
type Base struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
	DeletedAt *time.Time         `bson:"deletedAt,omitempty" json:"-"`
}

// Entity is implemented by every struct embedding Base.
type Entity interface {
	GetID() primitive.ObjectID
	GetCreatedAt() time.Time
	SetID(id primitive.ObjectID)
	MarkCreated(now time.Time)
	Touch(now time.Time)
	MarkDeleted(now time.Time)
	IsDeleted() bool
}

func (b *Base) GetID() primitive.ObjectID { return b.ID }

func (b *Base) GetCreatedAt() time.Time { return b.CreatedAt }

func (b *Base) SetID(id primitive.ObjectID) { b.ID = id }

func (b *Base) MarkCreated(now time.Time) {
	b.CreatedAt = now
	b.UpdatedAt = now
	b.DeletedAt = nil
}

func (b *Base) Touch(now time.Time) { b.UpdatedAt = now }

func (b *Base) MarkDeleted(now time.Time) {
	b.DeletedAt = &now
	b.UpdatedAt = now
}

func (b *Base) IsDeleted() bool { return b.DeletedAt != nil }
