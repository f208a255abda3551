package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/campusmess/feedback-server/models"
	"github.com/campusmess/feedback-server/storage"
	"github.com/campusmess/feedback-server/utils"
)

// VendorAnalyticsHandler returns per-meal rollups scoped to the caller's own
// assigned vendor.
func VendorAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Vendor Analytics API]")

	if r.Method != http.MethodGet {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, err := requireRole(r.Context(), r, models.RoleVendor)
	if respondAccessError(w, &logMessageBuilder, err) {
		return
	}

	start, end, err := utils.ParseDateRange(r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"))
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	stats, err := storage.Feedback.Stats(r.Context(), start, end, caller.AssignedVendor)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Aggregation failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}

	// The vendor view groups by meal alone; drop the redundant vendor field.
	for i := range stats {
		stats[i].Vendor = ""
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"vendor": caller.AssignedVendor,
		"dateRange": map[string]string{
			"start": start.Format("2006-01-02"),
			"end":   end.AddDate(0, 0, -1).Format("2006-01-02"),
		},
		"stats": roundStats(stats),
	})
}

// VendorSuggestionsHandler lists suggestions left for the caller's own vendor.
func VendorSuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Vendor Suggestions API]")

	if r.Method != http.MethodGet {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, err := requireRole(r.Context(), r, models.RoleVendor)
	if respondAccessError(w, &logMessageBuilder, err) {
		return
	}

	start, end, err := utils.ParseDateRange(r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"))
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	suggestions, err := storage.Feedback.Suggestions(r.Context(), start, end, caller.AssignedVendor)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Suggestion query failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"vendor":      caller.AssignedVendor,
		"suggestions": suggestions,
	})
}
