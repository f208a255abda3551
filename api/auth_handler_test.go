package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/campusmess/feedback-server/models"
	"github.com/campusmess/feedback-server/utils"
)

func stubGoogleToken(t *testing.T, sub, email, name, picture string, fail error) {
	t.Helper()
	orig := verifyGoogleToken
	verifyGoogleToken = func(_ context.Context, _ string) (string, string, string, string, error) {
		if fail != nil {
			return "", "", "", "", fail
		}
		return sub, email, name, picture, nil
	}
	t.Cleanup(func() { verifyGoogleToken = orig })
}

func doGoogleAuth(t *testing.T, token string) *httptest.ResponseRecorder {
	t.Helper()
	raw, _ := json.Marshal(map[string]string{"token": token})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/google", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	GoogleAuthHandler(resp, req)
	return resp
}

type loginResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    models.User `json:"user"`
}

func TestGoogleAuthCreatesStudent(t *testing.T) {
	users, _, _ := setupStores(t)
	t.Setenv("JWT_SECRET", "testsecret")
	stubGoogleToken(t, "google-sub-1", "asha@sst.scaler.com", "Asha", "https://lh3.example/p.jpg", nil)

	resp := doGoogleAuth(t, "valid-token")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.User.Role != models.RoleStudent {
		t.Errorf("expected student role, got %s", out.User.Role)
	}
	if out.User.AssignedVendor != "The Craving Brew" {
		t.Errorf("expected default vendor, got %q", out.User.AssignedVendor)
	}
	if out.Token == "" {
		t.Error("expected a session token")
	}

	stored, err := users.ByGoogleID(context.Background(), "google-sub-1")
	if err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	if stored.Email != "asha@sst.scaler.com" {
		t.Errorf("unexpected stored email %q", stored.Email)
	}
}

func TestGoogleAuthRejectsForeignDomain(t *testing.T) {
	setupStores(t)
	stubGoogleToken(t, "google-sub-2", "mallory@gmail.com", "Mallory", "", nil)

	resp := doGoogleAuth(t, "valid-token")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestGoogleAuthBindsInvitedUser(t *testing.T) {
	users, _, _ := setupStores(t)
	stubGoogleToken(t, "google-sub-3", "chef@sst.scaler.com", "Chef", "", nil)

	invited := &models.User{
		Email:          "chef@sst.scaler.com",
		Role:           models.RoleVendor,
		AssignedVendor: "GSR",
		CreatedAt:      utils.Now(),
		UpdatedAt:      utils.Now(),
	}
	if err := users.Insert(context.Background(), invited); err != nil {
		t.Fatalf("failed to pre-provision user: %v", err)
	}

	resp := doGoogleAuth(t, "valid-token")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}

	bound, err := users.ByID(context.Background(), invited.ID.Hex())
	if err != nil {
		t.Fatalf("invited user vanished: %v", err)
	}
	if bound.GoogleID != "google-sub-3" {
		t.Errorf("expected subject bound to invite, got %q", bound.GoogleID)
	}
	// The invite's role and vendor survive binding.
	if bound.Role != models.RoleVendor || bound.AssignedVendor != "GSR" {
		t.Errorf("expected vendor/GSR preserved, got %s/%s", bound.Role, bound.AssignedVendor)
	}
}

func TestGoogleAuthExistingUser(t *testing.T) {
	users, _, _ := setupStores(t)
	stubGoogleToken(t, "google-sub-4", "ravi@sst.scaler.com", "Ravi", "", nil)

	existing := &models.User{
		GoogleID:       "google-sub-4",
		Name:           "Ravi",
		Email:          "ravi@sst.scaler.com",
		Role:           models.RoleAdmin,
		AssignedVendor: "GSR",
	}
	if err := users.Insert(context.Background(), existing); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	resp := doGoogleAuth(t, "valid-token")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.User.ID != existing.ID {
		t.Errorf("expected login to reuse the existing account")
	}
	if out.User.Role != models.RoleAdmin {
		t.Errorf("expected admin role preserved, got %s", out.User.Role)
	}
}

func TestGoogleAuthFirstSignInRaceReusesAccount(t *testing.T) {
	users, _, _ := setupStores(t)
	stubGoogleToken(t, "google-sub-9", "tara@sst.scaler.com", "Tara", "", nil)

	// The account a concurrent sign-in just created for the same person.
	winner := &models.User{
		GoogleID:       "google-sub-9",
		Name:           "Tara",
		Email:          "tara@sst.scaler.com",
		Role:           models.RoleStudent,
		AssignedVendor: "The Craving Brew",
	}
	if err := users.Insert(context.Background(), winner); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	users.raceWindow = true

	resp := doGoogleAuth(t, "valid-token")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 after losing the insert race, got %d (%s)", resp.Code, resp.Body.String())
	}
	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.User.ID != winner.ID {
		t.Errorf("expected the race loser to log into the winner's account")
	}

	// Still exactly one account for the email.
	all, err := users.All(context.Background())
	if err != nil {
		t.Fatalf("failed to list users: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 account, got %d", len(all))
	}
}

func TestGoogleLoginSetsStateCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/login", nil)
	resp := httptest.NewRecorder()
	GoogleLoginHandler(resp, req)

	if resp.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", resp.Code)
	}

	var state string
	for _, c := range resp.Result().Cookies() {
		if c.Name == oauthStateCookie {
			state = c.Value
		}
	}
	if state == "" {
		t.Fatal("expected a state cookie on the redirect")
	}
	loc := resp.Header().Get("Location")
	if !strings.Contains(loc, "state="+state) {
		t.Errorf("redirect URL %q does not carry the cookie state %q", loc, state)
	}
}

func TestGoogleCallbackRejectsBadState(t *testing.T) {
	// No state cookie at all.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=whatever&code=abc", nil)
	resp := httptest.NewRecorder()
	GoogleCallbackHandler(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing cookie: expected 400, got %d", resp.Code)
	}

	// Cookie present but the state parameter does not match it.
	req = httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=forged&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "issued-elsewhere"})
	resp = httptest.NewRecorder()
	GoogleCallbackHandler(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("mismatched state: expected 400, got %d", resp.Code)
	}
}

func TestGoogleAuthVerificationFailure(t *testing.T) {
	setupStores(t)
	stubGoogleToken(t, "", "", "", "", errors.New("token expired"))

	resp := doGoogleAuth(t, "stale-token")
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestGoogleAuthMissingToken(t *testing.T) {
	setupStores(t)

	resp := doGoogleAuth(t, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
