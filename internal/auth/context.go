package auth

import "context"

type partyContextKey struct{}
type tokenContextKey struct{}

// ContextWithParty attaches the authorized caller to the context.
func ContextWithParty(ctx context.Context, party AuthorizedParty) context.Context {
	return context.WithValue(ctx, partyContextKey{}, &party)
}

// PartyFromContext extracts the authorized caller from the context.
func PartyFromContext(ctx context.Context) (AuthorizedParty, bool) {
	if ctx == nil {
		return AuthorizedParty{}, false
	}
	v, ok := ctx.Value(partyContextKey{}).(*AuthorizedParty)
	if !ok || v == nil {
		return AuthorizedParty{}, false
	}
	return *v, true
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
