package api

import (
	"context"
	"sort"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campusmess/feedback-server/config"
	"github.com/campusmess/feedback-server/models"
	"github.com/campusmess/feedback-server/storage"
	"github.com/campusmess/feedback-server/utils"
)

// In-memory stores standing in for Mongo. They honor the same contracts:
// ErrNotFound on misses, ErrDuplicate where the unique indexes would fire.

type memUserStore struct {
	users map[string]*models.User
	// raceWindow simulates a concurrent writer whose insert has reached the
	// unique email index but whose record is not yet visible to our lookups:
	// ByGoogleID and ByEmail miss until the next Insert, which fails with
	// ErrDuplicate and closes the window.
	raceWindow bool
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*models.User{}}
}

func (s *memUserStore) ByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, storage.ErrNotFound
}

func (s *memUserStore) ByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	if s.raceWindow {
		return nil, storage.ErrNotFound
	}
	for _, u := range s.users {
		if u.GoogleID == googleID && googleID != "" {
			copied := *u
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memUserStore) ByEmail(_ context.Context, email string) (*models.User, error) {
	if s.raceWindow {
		return nil, storage.ErrNotFound
	}
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memUserStore) Insert(_ context.Context, user *models.User) error {
	if s.raceWindow {
		s.raceWindow = false
		return storage.ErrDuplicate
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return storage.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	copied := *user
	s.users[user.ID.Hex()] = &copied
	return nil
}

func (s *memUserStore) Update(_ context.Context, user *models.User) error {
	if _, ok := s.users[user.ID.Hex()]; !ok {
		return storage.ErrNotFound
	}
	copied := *user
	s.users[user.ID.Hex()] = &copied
	return nil
}

func (s *memUserStore) All(_ context.Context) ([]models.User, error) {
	users := []models.User{}
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

type memFeedbackStore struct {
	records []models.Feedback
	// skipExistsCheck makes ExistsForDay always report false, simulating a
	// concurrent submitter that passed the pre-check before our insert.
	skipExistsCheck bool
}

func (s *memFeedbackStore) Insert(_ context.Context, fb *models.Feedback) error {
	for _, rec := range s.records {
		if rec.UserID == fb.UserID && rec.MealType == fb.MealType && rec.Day.Equal(fb.Day) {
			return storage.ErrDuplicate
		}
	}
	if fb.ID.IsZero() {
		fb.ID = primitive.NewObjectID()
	}
	s.records = append(s.records, *fb)
	return nil
}

func (s *memFeedbackStore) ExistsForDay(_ context.Context, userID primitive.ObjectID, meal models.MealType, dayStart, dayEnd time.Time) (bool, error) {
	if s.skipExistsCheck {
		return false, nil
	}
	for _, rec := range s.records {
		if rec.UserID == userID && rec.MealType == meal &&
			!rec.Date.Before(dayStart) && rec.Date.Before(dayEnd) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memFeedbackStore) Stats(_ context.Context, start, end time.Time, vendor string) ([]models.MealStat, error) {
	type key struct {
		vendor string
		meal   models.MealType
	}
	sums := map[key]*models.MealStat{}

	for _, rec := range s.records {
		if rec.Date.Before(start) || !rec.Date.Before(end) {
			continue
		}
		if vendor != "" && rec.Vendor != vendor {
			continue
		}
		k := key{meal: rec.MealType}
		if vendor == "" {
			k.vendor = rec.Vendor
		}
		st, ok := sums[k]
		if !ok {
			st = &models.MealStat{Vendor: k.vendor, MealType: k.meal}
			sums[k] = st
		}
		st.Count++
		st.AvgQuality += float64(rec.Ratings.Quality)
		st.AvgHygiene += float64(rec.Ratings.Hygiene)
		st.AvgQuantity += float64(rec.Ratings.Quantity)
		st.AvgTaste += float64(rec.Ratings.Taste)
		st.AvgOverall += float64(rec.Ratings.Overall)
	}

	stats := []models.MealStat{}
	for _, st := range sums {
		n := float64(st.Count)
		st.AvgQuality /= n
		st.AvgHygiene /= n
		st.AvgQuantity /= n
		st.AvgTaste /= n
		st.AvgOverall /= n
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Vendor != stats[j].Vendor {
			return stats[i].Vendor < stats[j].Vendor
		}
		return stats[i].MealType < stats[j].MealType
	})
	return stats, nil
}

func (s *memFeedbackStore) Suggestions(_ context.Context, start, end time.Time, vendor string) ([]models.SuggestionEntry, error) {
	suggestions := []models.SuggestionEntry{}
	for _, rec := range s.records {
		if rec.Suggestion == "" || rec.Date.Before(start) || !rec.Date.Before(end) {
			continue
		}
		if vendor != "" && rec.Vendor != vendor {
			continue
		}
		suggestions = append(suggestions, models.SuggestionEntry{
			Vendor:     rec.Vendor,
			MealType:   rec.MealType,
			Suggestion: rec.Suggestion,
			Date:       rec.Date,
		})
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Date.After(suggestions[j].Date) })
	return suggestions, nil
}

type memMenuStore struct {
	records []models.Menu
	// loseUpsertRace makes the next Upsert fail with ErrDuplicate, the way the
	// unique slot index rejects the loser of two concurrent creates.
	loseUpsertRace bool
}

func (s *memMenuStore) Upsert(_ context.Context, vendor string, date time.Time, meal models.MealType, items, imageURL string) (*models.Menu, error) {
	if s.loseUpsertRace {
		s.loseUpsertRace = false
		return nil, storage.ErrDuplicate
	}
	for i := range s.records {
		rec := &s.records[i]
		if rec.Vendor == vendor && rec.Date.Equal(date) && rec.MealType == meal {
			rec.Items = items
			if imageURL != "" {
				rec.ImageURL = imageURL
			}
			copied := *rec
			return &copied, nil
		}
	}
	menu := models.Menu{
		ID:       primitive.NewObjectID(),
		Vendor:   vendor,
		Date:     date,
		MealType: meal,
		Items:    items,
		ImageURL: imageURL,
	}
	s.records = append(s.records, menu)
	return &menu, nil
}

func (s *memMenuStore) ForVendorDate(_ context.Context, vendor string, dayStart, dayEnd time.Time) ([]models.Menu, error) {
	menus := []models.Menu{}
	for _, rec := range s.records {
		if rec.Vendor == vendor && !rec.Date.Before(dayStart) && rec.Date.Before(dayEnd) {
			menus = append(menus, rec)
		}
	}
	return menus, nil
}

// setupStores installs fresh fakes, a fixed clock and a known vendor registry
// for one test.
func setupStores(t *testing.T) (*memUserStore, *memFeedbackStore, *memMenuStore) {
	t.Helper()

	users := newMemUserStore()
	feedback := &memFeedbackStore{}
	menus := &memMenuStore{}
	storage.Users = users
	storage.Feedback = feedback
	storage.Menus = menus

	config.Vendors = []string{"The Craving Brew", "GSR", "Uniworld"}
	config.AllowedEmailDomain = "sst.scaler.com"

	fixed := time.Date(2026, time.March, 10, 12, 30, 0, 0, time.Local)
	utils.Now = func() time.Time { return fixed }

	t.Cleanup(func() {
		storage.Users = nil
		storage.Feedback = nil
		storage.Menus = nil
		utils.Now = time.Now
	})

	return users, feedback, menus
}

// addUser inserts a user directly into the fake directory, returning its hex id.
func addUser(t *testing.T, users *memUserStore, name string, role models.Role, vendor string) string {
	t.Helper()
	u := &models.User{
		Name:           name,
		Email:          name + "@sst.scaler.com",
		Role:           role,
		AssignedVendor: vendor,
		CreatedAt:      utils.Now(),
		UpdatedAt:      utils.Now(),
	}
	if err := users.Insert(context.Background(), u); err != nil {
		t.Fatalf("failed to insert user %s: %v", name, err)
	}
	return u.ID.Hex()
}
