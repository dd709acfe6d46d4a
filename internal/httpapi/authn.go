package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"societyhub.org/internal/auth"
	"societyhub.org/internal/identity"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth authenticates the bearer token when one is presented and attaches
// the principal to the context. Requests without a token pass through
// anonymously; role gates on individual routes decide what anonymity may
// reach.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		header := strings.TrimSpace(r.Header.Get(authHeader))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			respondError(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := auth.ParseToken(token, auth.TokenTypeAccess)
		if err != nil {
			respondError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		p := auth.Principal{
			UserID:    claims.Subject,
			Role:      identity.Role(claims.Role),
			SocietyID: claims.SocietyID,
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), p)))
	})
}

// requirePrincipal fetches the authenticated principal or writes a 401.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
