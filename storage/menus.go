package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campusmess/feedback-server/models"
)

// MenuStore persists per-vendor, per-day, per-meal menus. Upsert is
// create-or-replace on (vendor, midnight date, meal type); the unique index
// keeps concurrent upserts from creating a second record for the slot.
type MenuStore interface {
	// Upsert replaces the item text and, when imageURL is non-empty, the image
	// reference of the slot, creating the record if missing. date must already
	// be normalized to midnight. Returns ErrDuplicate when a concurrent upsert
	// wins the create for the same slot.
	Upsert(ctx context.Context, vendor string, date time.Time, meal models.MealType, items, imageURL string) (*models.Menu, error)
	ForVendorDate(ctx context.Context, vendor string, dayStart, dayEnd time.Time) ([]models.Menu, error)
}

type mongoMenuStore struct{}

func (s *mongoMenuStore) Upsert(ctx context.Context, vendor string, date time.Time, meal models.MealType, items, imageURL string) (*models.Menu, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"vendor": vendor, "date": date, "meal_type": meal}
	update := bson.M{"items": items}
	if imageURL != "" {
		update["image_url"] = imageURL
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var menu models.Menu
	err := GetCollection("menus").FindOneAndUpdate(ctx, filter, bson.M{"$set": update}, opts).Decode(&menu)
	if mongo.IsDuplicateKeyError(err) {
		// Two upserts raced on the same empty slot and we lost; the unique
		// index rejected our insert while the winner's record now exists.
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert menu: %w", err)
	}
	return &menu, nil
}

func (s *mongoMenuStore) ForVendorDate(ctx context.Context, vendor string, dayStart, dayEnd time.Time) ([]models.Menu, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"vendor": vendor,
		"date":   bson.M{"$gte": dayStart, "$lt": dayEnd},
	}
	cursor, err := GetCollection("menus").Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list menus: %w", err)
	}
	defer cursor.Close(ctx)

	menus := []models.Menu{}
	if err := cursor.All(ctx, &menus); err != nil {
		return nil, fmt.Errorf("failed to decode menus: %w", err)
	}
	return menus, nil
}
