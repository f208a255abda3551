package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/campusmess/feedback-server/models"
	"github.com/campusmess/feedback-server/storage"
	"github.com/campusmess/feedback-server/utils"
)

// Access errors. errUnauthorized means the caller identity could not be
// resolved at all; errForbidden means it resolved to a user without the
// required role (or ownership). The two must stay distinct on the wire.
var (
	errUnauthorized = errors.New("unauthorized")
	errForbidden    = errors.New("access denied")
)

// callerID pulls the caller's user id from the query string, falling back to
// form fields for multipart/form posts.
func callerID(r *http.Request) string {
	if id := r.URL.Query().Get("userId"); id != "" {
		return id
	}
	return r.FormValue("userId")
}

// resolveCaller maps the request's userId to a stored User.
func resolveCaller(ctx context.Context, r *http.Request) (*models.User, error) {
	id := callerID(r)
	if id == "" {
		return nil, errUnauthorized
	}
	user, err := storage.Users.ByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// requireRole resolves the caller and checks their role against the allowed
// set.
func requireRole(ctx context.Context, r *http.Request, roles ...models.Role) (*models.User, error) {
	user, err := resolveCaller(ctx, r)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if user.Role == role {
			return user, nil
		}
	}
	return nil, errForbidden
}

// respondAccessError writes the HTTP mapping of an access-layer error and
// reports whether it handled one.
func respondAccessError(w http.ResponseWriter, logger *strings.Builder, err error) bool {
	switch {
	case errors.Is(err, errUnauthorized):
		utils.RespondError(w, logger, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, errForbidden):
		utils.RespondError(w, logger, "Access Denied", http.StatusForbidden)
	case err != nil:
		utils.RespondError(w, logger, "Server Error", http.StatusInternalServerError)
	default:
		return false
	}
	return true
}
