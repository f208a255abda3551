package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Menu is one vendor's offering for a meal slot on a date. Date is normalized
// to server-local midnight; the unique index on (vendor, date, meal_type)
// makes writes upserts rather than duplicates. ImageURL is either a local
// "/uploads/..." path or an S3 object key resolved to a presigned URL on read.
type Menu struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Vendor   string             `bson:"vendor" json:"vendorId"`
	Date     time.Time          `bson:"date" json:"date"`
	MealType MealType           `bson:"meal_type" json:"mealType"`
	Items    string             `bson:"items" json:"items"`
	ImageURL string             `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
}
