package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var (
	MongoURI           string
	DBName             string
	Port               string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	AllowedEmailDomain string
	Vendors            []string
	UploadDir          string
	AWSRegion          string
	AWSBucketName      string
	SendGridFromName   string
	SendGridFromEmail  string
)

// LoadConfig loads environment variables from .env file
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values or system environment variables")
	}

	MongoURI = os.Getenv("MONGO_URI")
	if MongoURI == "" {
		MongoURI = "mongodb://localhost:27017/"
	}

	DBName = os.Getenv("DB_NAME")
	if DBName == "" {
		DBName = "mess_feedback"
	}

	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "5001"
	}

	GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	if GoogleRedirectURL == "" {
		GoogleRedirectURL = "http://localhost:" + Port + "/api/auth/google/callback"
	}

	AllowedEmailDomain = os.Getenv("ALLOWED_EMAIL_DOMAIN")
	if AllowedEmailDomain == "" {
		AllowedEmailDomain = "sst.scaler.com"
	}

	// Canonical vendor registry. Every vendor validation goes through IsValidVendor
	// so the allow-list lives in exactly one place.
	vendorsEnv := os.Getenv("VENDORS")
	if vendorsEnv == "" {
		vendorsEnv = "The Craving Brew,GSR,Uniworld"
	}
	Vendors = nil
	for _, v := range strings.Split(vendorsEnv, ",") {
		if v = strings.TrimSpace(v); v != "" {
			Vendors = append(Vendors, v)
		}
	}

	UploadDir = os.Getenv("UPLOAD_DIR")
	if UploadDir == "" {
		UploadDir = "uploads"
	}

	AWSRegion = os.Getenv("AWS_REGION")
	AWSBucketName = os.Getenv("AWS_BUCKET_NAME")

	SendGridFromName = os.Getenv("SENDGRID_FROM_NAME")
	if SendGridFromName == "" {
		SendGridFromName = "Mess Feedback"
	}
	SendGridFromEmail = os.Getenv("SENDGRID_FROM_EMAIL")
	if SendGridFromEmail == "" {
		SendGridFromEmail = "no-reply@campusmess.app"
	}
}

// IsValidVendor reports whether name is in the configured vendor registry.
func IsValidVendor(name string) bool {
	for _, v := range Vendors {
		if v == name {
			return true
		}
	}
	return false
}

// DefaultVendor returns the vendor assigned to newly created students.
func DefaultVendor() string {
	if len(Vendors) == 0 {
		return ""
	}
	return Vendors[0]
}
