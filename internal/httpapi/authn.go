package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/elhub/auth-grant-manager-sub001/internal/auth"
	"github.com/elhub/auth-grant-manager-sub001/internal/authorization"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth requires a gateway-minted bearer token and attaches the resolved
// caller to the context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}

		claims, err := auth.ParseAndValidate(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, r, http.StatusUnauthorized, "Unauthorized", "invalid token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "InternalError", "authentication error")
			return
		}

		ctx := auth.ContextWithParty(r.Context(), claims.Party)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// callerIdentifier translates the token's party into a domain identifier.
func callerIdentifier(r *http.Request) (authorization.Identifier, bool) {
	party, ok := auth.PartyFromContext(r.Context())
	if !ok {
		return authorization.Identifier{}, false
	}
	return authorization.Identifier{
		IDType:  authorization.IDType(party.IDType),
		IDValue: party.IDValue,
	}, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
