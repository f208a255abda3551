package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/campusmess/feedback-server/config"
	"github.com/campusmess/feedback-server/models"
	"github.com/campusmess/feedback-server/storage"
	"github.com/campusmess/feedback-server/utils"
)

// UpdateUserRequest is the payload for role/vendor reassignment.
type UpdateUserRequest struct {
	TargetUserID string `json:"targetUserId"`
	NewRole      string `json:"newRole,omitempty"`
	NewVendor    string `json:"newVendor,omitempty"`
}

// InviteUserRequest pre-provisions an account ahead of first sign-in.
type InviteUserRequest struct {
	Email          string `json:"email"`
	Role           string `json:"role"`
	AssignedVendor string `json:"assignedVendor,omitempty"`
}

// roundStats applies the one-decimal display rounding to every group.
func roundStats(stats []models.MealStat) []models.MealStat {
	for i := range stats {
		stats[i].AvgQuality = utils.Round1(stats[i].AvgQuality)
		stats[i].AvgHygiene = utils.Round1(stats[i].AvgHygiene)
		stats[i].AvgQuantity = utils.Round1(stats[i].AvgQuantity)
		stats[i].AvgTaste = utils.Round1(stats[i].AvgTaste)
		stats[i].AvgOverall = utils.Round1(stats[i].AvgOverall)
	}
	return stats
}

// AdminAnalyticsHandler returns per-(vendor, meal) rating rollups for a date
// range, defaulting to today. Zero rows is a normal empty result.
func AdminAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Admin Analytics API]")

	if r.Method != http.MethodGet {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, err := requireRole(r.Context(), r, models.RoleAdmin)
	if respondAccessError(w, &logMessageBuilder, err) {
		return
	}

	start, end, err := utils.ParseDateRange(r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"))
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	stats, err := storage.Feedback.Stats(r.Context(), start, end, "")
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Aggregation failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"dateRange": map[string]string{
			"start": start.Format("2006-01-02"),
			"end":   end.AddDate(0, 0, -1).Format("2006-01-02"),
		},
		"stats": roundStats(stats),
	})
}

// AdminSuggestionsHandler lists suggestion texts for a date range, optionally
// filtered to one vendor.
func AdminSuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Admin Suggestions API]")

	if r.Method != http.MethodGet {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, err := requireRole(r.Context(), r, models.RoleAdmin)
	if respondAccessError(w, &logMessageBuilder, err) {
		return
	}

	start, end, err := utils.ParseDateRange(r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"))
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	suggestions, err := storage.Feedback.Suggestions(r.Context(), start, end, r.URL.Query().Get("vendorId"))
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Suggestion query failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

// AdminUsersHandler lists every user for role management.
func AdminUsersHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Admin Users API]")

	if r.Method != http.MethodGet {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, err := requireRole(r.Context(), r, models.RoleAdmin)
	if respondAccessError(w, &logMessageBuilder, err) {
		return
	}

	users, err := storage.Users.All(r.Context())
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("User list failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// UpdateUserHandler changes a user's role and/or assigned vendor.
func UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Admin Update User API]")

	if r.Method != http.MethodPut {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, err := requireRole(r.Context(), r, models.RoleAdmin)
	if respondAccessError(w, &logMessageBuilder, err) {
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
		return
	}

	target, err := storage.Users.ByID(r.Context(), req.TargetUserID)
	if errors.Is(err, storage.ErrNotFound) {
		utils.RespondError(w, &logMessageBuilder, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}

	if req.NewRole != "" {
		role, rerr := models.ParseRole(req.NewRole)
		if rerr != nil {
			utils.RespondError(w, &logMessageBuilder, "Invalid role", http.StatusBadRequest)
			return
		}
		target.Role = role
	}

	if req.NewVendor != "" {
		if !config.IsValidVendor(req.NewVendor) {
			utils.RespondError(w, &logMessageBuilder, "Invalid vendor", http.StatusBadRequest)
			return
		}
		target.AssignedVendor = req.NewVendor
	}

	target.UpdatedAt = utils.Now()
	if err := storage.Users.Update(r.Context(), target); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Update failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Updated %s successfully!", target.Name),
		"user":    target,
	})
}

// InviteUserHandler pre-provisions an account by email. The invitee gets
// bound to it on their first Google sign-in.
func InviteUserHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Admin Invite User API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, err := requireRole(r.Context(), r, models.RoleAdmin)
	if respondAccessError(w, &logMessageBuilder, err) {
		return
	}

	var req InviteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		utils.RespondError(w, &logMessageBuilder, "A valid email is required", http.StatusBadRequest)
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid role", http.StatusBadRequest)
		return
	}

	vendor := req.AssignedVendor
	if vendor == "" {
		vendor = config.DefaultVendor()
	}
	if !config.IsValidVendor(vendor) {
		utils.RespondError(w, &logMessageBuilder, "Invalid vendor", http.StatusBadRequest)
		return
	}

	if _, err := storage.Users.ByEmail(r.Context(), req.Email); err == nil {
		utils.RespondError(w, &logMessageBuilder, "User with this email already exists", http.StatusConflict)
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}

	invited := &models.User{
		Email:          req.Email,
		Role:           role,
		AssignedVendor: vendor,
		CreatedAt:      utils.Now(),
		UpdatedAt:      utils.Now(),
	}
	if err := storage.Users.Insert(r.Context(), invited); err != nil {
		// A concurrent invite or first sign-in can slip between the
		// existence check and the insert; the email index catches it.
		if errors.Is(err, storage.ErrDuplicate) {
			utils.RespondError(w, &logMessageBuilder, "User with this email already exists", http.StatusConflict)
			return
		}
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Insert failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}

	// Best effort: the invite stands even if the email bounces.
	if err := utils.SendInviteEmail(req.Email, role.String(), vendor); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Invite email failed: %v", err))
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Invited %s as %s", req.Email, role))
	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Invitation created",
		"user":    invited,
	})
}
