package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"github.com/campusmess/feedback-server/config"
	"github.com/campusmess/feedback-server/models"
	"github.com/campusmess/feedback-server/storage"
	"github.com/campusmess/feedback-server/utils"
)

// GoogleAuthRequest is the payload for token-based sign-in.
type GoogleAuthRequest struct {
	Token string `json:"token"`
}

// oauthStateCookie carries the per-request state for the redirect flow
// between /login and /callback.
const oauthStateCookie = "oauth_state"

// verifyGoogleToken checks the ID token against Google and extracts the
// subject profile. Swapped out in tests.
var verifyGoogleToken = func(ctx context.Context, token string) (sub, email, name, picture string, err error) {
	payload, err := idtoken.Validate(ctx, token, config.GoogleClientID)
	if err != nil {
		return "", "", "", "", fmt.Errorf("id token verification failed: %w", err)
	}
	claim := func(key string) string {
		if v, ok := payload.Claims[key].(string); ok {
			return v
		}
		return ""
	}
	return payload.Subject, claim("email"), claim("name"), claim("picture"), nil
}

// loginOrProvision implements the identity resolution chain: known subject id,
// then invite binding by email, then domain-gated account creation.
func loginOrProvision(ctx context.Context, sub, email, name, picture string) (*models.User, error) {
	user, err := storage.Users.ByGoogleID(ctx, sub)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	// Pre-provisioned by admin invite: bind the Google subject to the record.
	user, err = storage.Users.ByEmail(ctx, email)
	if err == nil {
		user.GoogleID = sub
		if user.Name == "" {
			user.Name = name
		}
		user.Picture = picture
		user.UpdatedAt = utils.Now()
		if err := storage.Users.Update(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[1] != config.AllowedEmailDomain {
		return nil, errForbidden
	}

	user = &models.User{
		GoogleID:       sub,
		Name:           name,
		Email:          email,
		Picture:        picture,
		Role:           models.RoleStudent,
		AssignedVendor: config.DefaultVendor(),
		CreatedAt:      utils.Now(),
		UpdatedAt:      utils.Now(),
	}
	if err := storage.Users.Insert(ctx, user); err != nil {
		// Lost a first-sign-in race: the email index rejected our insert
		// because another request just created the account. Use theirs.
		if errors.Is(err, storage.ErrDuplicate) {
			if existing, lerr := storage.Users.ByGoogleID(ctx, sub); lerr == nil {
				return existing, nil
			}
			if existing, lerr := storage.Users.ByEmail(ctx, email); lerr == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	return user, nil
}

func respondLogin(w http.ResponseWriter, logger *strings.Builder, user *models.User, picture string) {
	if picture != "" {
		// Always surface the latest picture from Google, not the stored one.
		user.Picture = picture
	}

	sessionToken, err := utils.GenerateToken(user.ID.Hex(), user.Role.String())
	if err != nil {
		utils.AddToLogMessage(logger, fmt.Sprintf("Failed to mint session token: %v", err))
		sessionToken = ""
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login Successful",
		"token":   sessionToken,
		"user":    user,
	})
}

// GoogleAuthHandler handles POST /api/auth/google: verify the client-supplied
// ID token, then log in or provision the account.
func GoogleAuthHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Google Auth API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GoogleAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		utils.RespondError(w, &logMessageBuilder, "Missing Google ID token", http.StatusBadRequest)
		return
	}

	sub, email, name, picture, err := verifyGoogleToken(r.Context(), req.Token)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Token verification failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Authentication Failed", http.StatusBadGateway)
		return
	}

	user, err := loginOrProvision(r.Context(), sub, email, name, picture)
	if errors.Is(err, errForbidden) {
		utils.RespondError(w, &logMessageBuilder,
			fmt.Sprintf("Access Denied: Only @%s emails are allowed.", config.AllowedEmailDomain),
			http.StatusForbidden)
		return
	}
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Login failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Authentication Failed", http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Login successful for %s", user.Email))
	respondLogin(w, &logMessageBuilder, user, picture)
}

func getOauthConfig() *oauth2.Config {
	return &oauth2.Config{
		RedirectURL:  config.GoogleRedirectURL,
		ClientID:     config.GoogleClientID,
		ClientSecret: config.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

// GoogleLoginHandler starts the browser redirect flow. Mostly a dev
// convenience; the SPA posts ID tokens to /api/auth/google instead.
func GoogleLoginHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Google Login API]")

	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	oauthConfig := getOauthConfig()
	url := oauthConfig.AuthCodeURL(state)

	utils.AddToLogMessage(&logMessageBuilder, "Redirecting to Google Auth")
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallbackHandler finishes the redirect flow: exchange the code, fetch
// the profile, then run the same login chain as the token endpoint.
func GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Google Callback API]")

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || r.FormValue("state") != cookie.Value {
		utils.RespondError(w, &logMessageBuilder, "State invalid", http.StatusBadRequest)
		return
	}

	code := r.FormValue("code")
	if code == "" {
		utils.RespondError(w, &logMessageBuilder, "Code not found", http.StatusBadRequest)
		return
	}

	oauthConfig := getOauthConfig()
	token, err := oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to exchange token: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Authentication Failed", http.StatusBadGateway)
		return
	}

	resp, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to get user info: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Authentication Failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	var info struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Authentication Failed", http.StatusBadGateway)
		return
	}

	user, err := loginOrProvision(r.Context(), info.ID, info.Email, info.Name, info.Picture)
	if errors.Is(err, errForbidden) {
		utils.RespondError(w, &logMessageBuilder,
			fmt.Sprintf("Access Denied: Only @%s emails are allowed.", config.AllowedEmailDomain),
			http.StatusForbidden)
		return
	}
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Login failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Authentication Failed", http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Login successful for %s", user.Email))
	respondLogin(w, &logMessageBuilder, user, info.Picture)
}
