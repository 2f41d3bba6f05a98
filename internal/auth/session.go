package auth

import (
	"context"
	"net/http"

	"github.com/truckops/truckops/internal/platform/httpx"
	"github.com/truckops/truckops/internal/shared"
)

// CurrentUser returns the id of the signed-in user, if any.
func CurrentUser(ctx context.Context) (int64, bool) {
	return shared.UserIDFromContext(ctx)
}

// RequireUser rejects requests without a signed-in user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionActor resolves the acting user from the request session.
type SessionActor struct{}

func (SessionActor) CurrentUserID(ctx context.Context) (int64, bool) {
	return CurrentUser(ctx)
}
