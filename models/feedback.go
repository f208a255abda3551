package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxSuggestionLength bounds the free-text suggestion field.
const MaxSuggestionLength = 500

// Ratings holds the five sub-ratings of a submission, each 1-5.
type Ratings struct {
	Quality  int `bson:"quality" json:"quality"`
	Hygiene  int `bson:"hygiene" json:"hygiene"`
	Quantity int `bson:"quantity" json:"quantity"`
	Taste    int `bson:"taste" json:"taste"`
	Overall  int `bson:"overall" json:"overall"`
}

// Validate checks every sub-rating is within [1,5].
func (r Ratings) Validate() error {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"quality", r.Quality},
		{"hygiene", r.Hygiene},
		{"quantity", r.Quantity},
		{"taste", r.Taste},
		{"overall", r.Overall},
	} {
		if f.value < 1 || f.value > 5 {
			return fmt.Errorf("rating %s must be between 1 and 5, got %d", f.name, f.value)
		}
	}
	return nil
}

// Feedback is one rating record. Records are immutable once written. The
// unique index on (user_id, meal_type, day) guarantees at most one record per
// user per meal slot per calendar day; Day is the submission date normalized
// to server-local midnight, Date keeps the full timestamp.
type Feedback struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"userId"`
	Vendor     string             `bson:"vendor" json:"vendorId"`
	MealType   MealType           `bson:"meal_type" json:"mealType"`
	Date       time.Time          `bson:"date" json:"date"`
	Day        time.Time          `bson:"day" json:"-"`
	Ratings    Ratings            `bson:"ratings" json:"ratings"`
	Suggestion string             `bson:"suggestion,omitempty" json:"suggestion,omitempty"`
}

// MealStat is one analytics group: count and per-field averages for a
// (vendor, meal type) bucket, or a meal type alone in the vendor view.
type MealStat struct {
	Vendor      string   `json:"vendor,omitempty"`
	MealType    MealType `json:"mealType"`
	Count       int64    `json:"count"`
	AvgQuality  float64  `json:"avgQuality"`
	AvgHygiene  float64  `json:"avgHygiene"`
	AvgQuantity float64  `json:"avgQuantity"`
	AvgTaste    float64  `json:"avgTaste"`
	AvgOverall  float64  `json:"avgOverall"`
}

// SuggestionEntry is the trimmed projection returned by the suggestion lists.
type SuggestionEntry struct {
	Vendor     string    `bson:"vendor" json:"vendorId"`
	MealType   MealType  `bson:"meal_type" json:"mealType"`
	Suggestion string    `bson:"suggestion" json:"suggestion"`
	Date       time.Time `bson:"date" json:"date"`
}
