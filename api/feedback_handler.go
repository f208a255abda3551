package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campusmess/feedback-server/config"
	"github.com/campusmess/feedback-server/models"
	"github.com/campusmess/feedback-server/storage"
	"github.com/campusmess/feedback-server/utils"
)

// SubmitFeedbackRequest is the payload for a rating submission.
type SubmitFeedbackRequest struct {
	UserID     string         `json:"userId"`
	VendorID   string         `json:"vendorId"`
	MealType   string         `json:"mealType"`
	Ratings    models.Ratings `json:"ratings"`
	Suggestion string         `json:"suggestion"`
}

// FeedbackStatusHandler reports whether the user already rated a meal today.
func FeedbackStatusHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Feedback Status API]")

	if r.Method != http.MethodGet {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userIDStr := r.URL.Query().Get("userId")
	mealTypeStr := r.URL.Query().Get("mealType")
	if userIDStr == "" || mealTypeStr == "" {
		utils.RespondError(w, &logMessageBuilder, "Missing required fields", http.StatusBadRequest)
		return
	}

	userID, err := primitive.ObjectIDFromHex(userIDStr)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid user ID", http.StatusBadRequest)
		return
	}

	mealType, err := models.ParseMealType(mealTypeStr)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}

	// The day window is always "now" on the server clock; clients cannot ask
	// about other days.
	dayStart, dayEnd := utils.Today()
	hasRated, err := storage.Feedback.ExistsForDay(r.Context(), userID, mealType, dayStart, dayEnd)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Status check failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"hasRated": hasRated})
}

// SubmitFeedbackHandler stores one rating per user per meal per day. The
// pre-check gives a friendly error; the unique index is what actually settles
// a concurrent double submit.
func SubmitFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Feedback Submit API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := storage.Users.ByID(r.Context(), req.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}

	mealType, err := models.ParseMealType(req.MealType)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	if !config.IsValidVendor(req.VendorID) {
		utils.RespondError(w, &logMessageBuilder, "Invalid vendor", http.StatusBadRequest)
		return
	}
	if err := req.Ratings.Validate(); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Suggestion) > models.MaxSuggestionLength {
		utils.RespondError(w, &logMessageBuilder,
			fmt.Sprintf("Suggestion must be at most %d characters", models.MaxSuggestionLength),
			http.StatusBadRequest)
		return
	}

	now := utils.Now()
	dayStart, dayEnd := utils.DayWindow(now)

	exists, err := storage.Feedback.ExistsForDay(r.Context(), user.ID, mealType, dayStart, dayEnd)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Duplicate check failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to submit feedback", http.StatusInternalServerError)
		return
	}
	if exists {
		utils.RespondError(w, &logMessageBuilder, "You have already rated this meal today!", http.StatusBadRequest)
		return
	}

	feedback := &models.Feedback{
		UserID:     user.ID,
		Vendor:     req.VendorID,
		MealType:   mealType,
		Date:       now,
		Day:        dayStart,
		Ratings:    req.Ratings,
		Suggestion: req.Suggestion,
	}

	err = storage.Feedback.Insert(r.Context(), feedback)
	if errors.Is(err, storage.ErrDuplicate) {
		// Lost the check-then-insert race; the index kept the invariant.
		utils.RespondError(w, &logMessageBuilder, "You have already rated this meal today!", http.StatusConflict)
		return
	}
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Insert failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to submit feedback", http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Feedback saved for user %s, %s", user.ID.Hex(), mealType))
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"message": "Feedback submitted successfully!"})
}
