package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sowerhq/sower/internal/handler"
)

type contextKey string

// UserContextKey is the context key for storing the authenticated user ID.
const UserContextKey contextKey = "user"

// WithUser extracts the donor identity from the Authorization header and
// adds it to the request context. Optional: requests without a valid token
// continue anonymously.
//
// Tokens are issued by the identity frontend as "<userID>.<signature>"
// where the signature is hex(HMAC-SHA256(userID, secret)).
func WithUser(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := parseBearerToken(r.Header.Get("Authorization"), secret)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth ensures the request carries a valid donor identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == uuid.Nil {
			handler.UnauthorizedResponse(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserID retrieves the authenticated donor's ID from the request context.
// Returns uuid.Nil when the request is anonymous.
func GetUserID(ctx context.Context) uuid.UUID {
	id, ok := ctx.Value(UserContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func parseBearerToken(header, secret string) (uuid.UUID, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return uuid.Nil, false
	}

	token := header[len(prefix):]
	idPart, sigPart, found := strings.Cut(token, ".")
	if !found {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(idPart))
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(sigPart)) {
		return uuid.Nil, false
	}
	return id, true
}

// SignUserToken builds the bearer token for a user ID. Exposed for the
// identity frontend and for tests.
func SignUserToken(userID uuid.UUID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(userID.String()))
	return userID.String() + "." + hex.EncodeToString(mac.Sum(nil))
}
