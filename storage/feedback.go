package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campusmess/feedback-server/models"
)

// FeedbackStore persists rating records and serves the analytics rollups.
// Insert returns ErrDuplicate when the (user, meal, day) unique index already
// holds a record, which is how the check-then-insert race resolves.
type FeedbackStore interface {
	Insert(ctx context.Context, fb *models.Feedback) error
	ExistsForDay(ctx context.Context, userID primitive.ObjectID, meal models.MealType, dayStart, dayEnd time.Time) (bool, error)
	// Stats groups records in [start, end) by (vendor, meal type), or by meal
	// type alone when vendor is non-empty, returning raw (unrounded) averages.
	Stats(ctx context.Context, start, end time.Time, vendor string) ([]models.MealStat, error)
	// Suggestions lists non-empty suggestion texts in [start, end), newest
	// first, optionally filtered to one vendor.
	Suggestions(ctx context.Context, start, end time.Time, vendor string) ([]models.SuggestionEntry, error)
}

type mongoFeedbackStore struct{}

func (s *mongoFeedbackStore) Insert(ctx context.Context, fb *models.Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if fb.ID.IsZero() {
		fb.ID = primitive.NewObjectID()
	}
	_, err := GetCollection("feedbacks").InsertOne(ctx, fb)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

func (s *mongoFeedbackStore) ExistsForDay(ctx context.Context, userID primitive.ObjectID, meal models.MealType, dayStart, dayEnd time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"user_id":   userID,
		"meal_type": meal,
		"date":      bson.M{"$gte": dayStart, "$lt": dayEnd},
	}
	count, err := GetCollection("feedbacks").CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to check feedback status: %w", err)
	}
	return count > 0, nil
}

// statGroup mirrors the $group output document.
type statGroup struct {
	ID struct {
		MealType models.MealType `bson:"meal_type"`
		Vendor   string          `bson:"vendor"`
	} `bson:"_id"`
	Count       int64   `bson:"count"`
	AvgQuality  float64 `bson:"avg_quality"`
	AvgHygiene  float64 `bson:"avg_hygiene"`
	AvgQuantity float64 `bson:"avg_quantity"`
	AvgTaste    float64 `bson:"avg_taste"`
	AvgOverall  float64 `bson:"avg_overall"`
}

func (s *mongoFeedbackStore) Stats(ctx context.Context, start, end time.Time, vendor string) ([]models.MealStat, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	match := bson.M{"date": bson.M{"$gte": start, "$lt": end}}
	groupID := bson.D{{Key: "meal_type", Value: "$meal_type"}, {Key: "vendor", Value: "$vendor"}}
	sortStage := bson.D{{Key: "_id.vendor", Value: 1}, {Key: "_id.meal_type", Value: 1}}
	if vendor != "" {
		match["vendor"] = vendor
		groupID = bson.D{{Key: "meal_type", Value: "$meal_type"}}
		sortStage = bson.D{{Key: "_id.meal_type", Value: 1}}
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: groupID},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avg_quality", Value: bson.D{{Key: "$avg", Value: "$ratings.quality"}}},
			{Key: "avg_hygiene", Value: bson.D{{Key: "$avg", Value: "$ratings.hygiene"}}},
			{Key: "avg_quantity", Value: bson.D{{Key: "$avg", Value: "$ratings.quantity"}}},
			{Key: "avg_taste", Value: bson.D{{Key: "$avg", Value: "$ratings.taste"}}},
			{Key: "avg_overall", Value: bson.D{{Key: "$avg", Value: "$ratings.overall"}}},
		}}},
		bson.D{{Key: "$sort", Value: sortStage}},
	}

	cursor, err := GetCollection("feedbacks").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []statGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode feedback stats: %w", err)
	}

	stats := []models.MealStat{}
	for _, g := range groups {
		stats = append(stats, models.MealStat{
			Vendor:      g.ID.Vendor,
			MealType:    g.ID.MealType,
			Count:       g.Count,
			AvgQuality:  g.AvgQuality,
			AvgHygiene:  g.AvgHygiene,
			AvgQuantity: g.AvgQuantity,
			AvgTaste:    g.AvgTaste,
			AvgOverall:  g.AvgOverall,
		})
	}
	return stats, nil
}

func (s *mongoFeedbackStore) Suggestions(ctx context.Context, start, end time.Time, vendor string) ([]models.SuggestionEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"date":       bson.M{"$gte": start, "$lt": end},
		"suggestion": bson.M{"$exists": true, "$ne": ""},
	}
	if vendor != "" {
		filter["vendor"] = vendor
	}

	opts := options.Find().
		SetProjection(bson.M{"meal_type": 1, "vendor": 1, "suggestion": 1, "date": 1}).
		SetSort(bson.D{{Key: "date", Value: -1}})

	cursor, err := GetCollection("feedbacks").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	defer cursor.Close(ctx)

	suggestions := []models.SuggestionEntry{}
	if err := cursor.All(ctx, &suggestions); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}
	return suggestions, nil
}
