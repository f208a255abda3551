package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/campusmess/feedback-server/api"
	"github.com/campusmess/feedback-server/config"
	"github.com/campusmess/feedback-server/storage"
	"github.com/campusmess/feedback-server/utils"
)

func main() {
	config.LoadConfig()

	// Initialize MongoDB and the unique indexes
	if err := storage.InitializeDB(); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	if utils.S3Enabled() {
		if err := utils.InitS3(); err != nil {
			log.Fatalf("Failed to initialize S3: %v", err)
		}
	}

	// CORS Middleware
	corsMiddleware := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintln(w, "Hello! The Mess Feedback Server is running.")
	})

	http.HandleFunc("/api/auth/google", corsMiddleware(api.GoogleAuthHandler))
	http.HandleFunc("/api/auth/google/login", corsMiddleware(api.GoogleLoginHandler))
	http.HandleFunc("/api/auth/google/callback", corsMiddleware(api.GoogleCallbackHandler))

	http.HandleFunc("/api/feedback/status", corsMiddleware(api.FeedbackStatusHandler))
	http.HandleFunc("/api/feedback/submit", corsMiddleware(api.SubmitFeedbackHandler))

	http.HandleFunc("/api/menu", corsMiddleware(api.MenuHandler))

	http.HandleFunc("/api/admin/analytics", corsMiddleware(api.AdminAnalyticsHandler))
	http.HandleFunc("/api/admin/suggestions", corsMiddleware(api.AdminSuggestionsHandler))
	http.HandleFunc("/api/admin/users", corsMiddleware(api.AdminUsersHandler))
	http.HandleFunc("/api/admin/update-user", corsMiddleware(api.UpdateUserHandler))
	http.HandleFunc("/api/admin/invite-user", corsMiddleware(api.InviteUserHandler))

	http.HandleFunc("/api/vendor/my-analytics", corsMiddleware(api.VendorAnalyticsHandler))
	http.HandleFunc("/api/vendor/my-suggestions", corsMiddleware(api.VendorSuggestionsHandler))

	// Serve locally stored menu images
	http.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(config.UploadDir))))

	port := config.Port
	fmt.Printf("Server starting on port %s...\n", port)
	if err := http.ListenAndServe(":"+port, utils.LatencyMiddleware(http.DefaultServeMux)); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
