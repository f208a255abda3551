package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campusmess/feedback-server/config"
)

var Client *mongo.Client

// Store errors. Handlers map these onto HTTP statuses.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Active store handles. InitializeDB installs the Mongo-backed
// implementations; tests swap in in-memory fakes.
var (
	Users    UserStore
	Feedback FeedbackStore
	Menus    MenuStore
)

// ConnectMongo initializes the MongoDB connection
func ConnectMongo(uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database
	err = client.Ping(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}

	Client = client
	log.Println("Connected to MongoDB!")
	return nil
}

// GetCollection returns a handle to a MongoDB collection
func GetCollection(collectionName string) *mongo.Collection {
	if Client == nil {
		log.Fatal("MongoDB client is not initialized")
	}
	return Client.Database(config.DBName).Collection(collectionName)
}

// InitializeDB connects, creates the unique indexes and installs the
// Mongo-backed stores.
func InitializeDB() error {
	if err := ConnectMongo(config.MongoURI); err != nil {
		return err
	}
	if err := EnsureIndexes(context.Background()); err != nil {
		return err
	}

	Users = &mongoUserStore{}
	Feedback = &mongoFeedbackStore{}
	Menus = &mongoMenuStore{}
	return nil
}

// EnsureIndexes creates the unique indexes backing the one-rating-per-day,
// one-menu-per-slot and one-account-per-email invariants. Concurrent writers
// race to the index, not to in-process state: the loser gets a duplicate key
// error.
func EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	feedbackIdx := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "meal_type", Value: 1},
			{Key: "day", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := GetCollection("feedbacks").Indexes().CreateOne(ctx, feedbackIdx); err != nil {
		return fmt.Errorf("failed to create feedback index: %w", err)
	}

	menuIdx := mongo.IndexModel{
		Keys: bson.D{
			{Key: "vendor", Value: 1},
			{Key: "date", Value: 1},
			{Key: "meal_type", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := GetCollection("menus").Indexes().CreateOne(ctx, menuIdx); err != nil {
		return fmt.Errorf("failed to create menu index: %w", err)
	}

	// google_id is absent until an invited user first signs in, hence sparse.
	userIdxs := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}
	if _, err := GetCollection("users").Indexes().CreateMany(ctx, userIdxs); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	return nil
}
