package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account in the directory. Accounts are created on first
// Google sign-in or pre-provisioned by an admin invite (GoogleID empty until
// the invitee signs in). Users are never deleted.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	GoogleID       string             `bson:"google_id,omitempty" json:"-"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Picture        string             `bson:"picture,omitempty" json:"picture,omitempty"`
	Role           Role               `bson:"role" json:"role"`
	AssignedVendor string             `bson:"assigned_vendor" json:"assignedVendor"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}
