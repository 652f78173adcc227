package httpmw

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/huemul/tablero/internal/guard"
	"github.com/huemul/tablero/internal/models"
)

// accessTokenCookie is the cookie the frontend stores the provider access
// token in. A bearer Authorization header takes precedence.
const accessTokenCookie = "tablero_access_token"

// IdentityVerifier verifies identity-provider access tokens and places the
// resulting identity in the request context. Requests without a valid token
// pass through unauthenticated; the guard layer decides what that means.
type IdentityVerifier struct {
	signingSecret []byte
}

// NewIdentityVerifier creates a verifier sharing the provider's HS256
// signing secret.
func NewIdentityVerifier(signingSecret []byte) *IdentityVerifier {
	return &IdentityVerifier{signingSecret: signingSecret}
}

// Middleware returns the identity verification middleware.
func (v *IdentityVerifier) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := v.verify(token)
			if err != nil {
				log.Debug().Err(err).Msg("Rejected access token")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(guard.WithIdentity(r.Context(), id)))
		})
	}
}

// verify parses and validates the access token, returning the identity it
// asserts.
func (v *IdentityVerifier) verify(tokenString string) (*models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.signingSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, err
	}

	identityID, err := uuid.Parse(sub)
	if err != nil {
		return nil, jwt.ErrTokenInvalidSubject
	}

	id := &models.Identity{ID: identityID}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if meta, ok := claims["user_metadata"].(map[string]any); ok {
		id.Metadata = make(map[string]string, len(meta))
		for k, val := range meta {
			if s, ok := val.(string); ok {
				id.Metadata[k] = s
			}
		}
	}

	return id, nil
}

func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
		return ""
	}

	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}

	return ""
}
