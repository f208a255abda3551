package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/campusmess/feedback-server/config"
	"github.com/campusmess/feedback-server/models"
	"github.com/campusmess/feedback-server/storage"
	"github.com/campusmess/feedback-server/utils"
)

// Development helper.
//
//	seed make-admin <email>   promotes an existing user to admin
//	seed add-test-data        inserts sample feedback for today
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	config.LoadConfig()
	if err := storage.InitializeDB(); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "make-admin":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		if err := makeAdmin(ctx, os.Args[2]); err != nil {
			log.Fatal(err)
		}
	case "add-test-data":
		if err := addTestData(ctx); err != nil {
			log.Fatal(err)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: seed make-admin <email> | seed add-test-data")
}

func makeAdmin(ctx context.Context, email string) error {
	user, err := storage.Users.ByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no user found with email %s (they need to log in at least once first)", email)
	}
	if err != nil {
		return err
	}

	user.Role = models.RoleAdmin
	user.UpdatedAt = utils.Now()
	if err := storage.Users.Update(ctx, user); err != nil {
		return err
	}

	fmt.Printf("%s (%s) is now an admin\n", user.Name, user.Email)
	return nil
}

func addTestData(ctx context.Context) error {
	users, err := storage.Users.All(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return fmt.Errorf("no users in the database, log in first")
	}

	now := utils.Now()
	dayStart, _ := utils.DayWindow(now)

	// Each user rates each meal once (the unique index allows no more);
	// vendors rotate so every vendor gets some data.
	count := 0
	for i, user := range users {
		for j, meal := range models.MealTypes() {
			vendor := config.Vendors[(i+j)%len(config.Vendors)]
			fb := &models.Feedback{
				UserID:   user.ID,
				Vendor:   vendor,
				MealType: meal,
				Date:     now,
				Day:      dayStart,
				Ratings: models.Ratings{
					Quality:  3 + rand.Intn(3),
					Hygiene:  3 + rand.Intn(3),
					Quantity: 3 + rand.Intn(3),
					Taste:    3 + rand.Intn(3),
					Overall:  3 + rand.Intn(3),
				},
				Suggestion: fmt.Sprintf("Test suggestion for %s at %s", meal, vendor),
			}
			err := storage.Feedback.Insert(ctx, fb)
			if errors.Is(err, storage.ErrDuplicate) {
				// Reruns skip slots already rated today.
				continue
			}
			if err != nil {
				return err
			}
			count++
		}
	}

	fmt.Printf("Inserted %d feedback records across %d users\n", count, len(users))
	return nil
}
