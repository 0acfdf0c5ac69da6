package workspace

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// TokenProvider yields an access token valid for at least the configured
// expiry buffer. *auth.Manager satisfies it.
type TokenProvider interface {
	GetValidAccessToken(ctx context.Context) (string, error)
}

// managedTokenSource adapts a TokenProvider to oauth2.TokenSource so the
// standard oauth2 transport injects the Authorization header.
//
// The provider already handles caching, refresh and single-flight
// coordination, so this source is deliberately NOT wrapped in
// oauth2.ReuseTokenSource: double caching would hide rotations performed
// by the provider.
type managedTokenSource struct {
	ctx      context.Context
	provider TokenProvider
}

// TokenSource returns an oauth2.TokenSource backed by the given provider.
// The context bounds every token fetch the transport triggers.
func TokenSource(ctx context.Context, provider TokenProvider) oauth2.TokenSource {
	return &managedTokenSource{ctx: ctx, provider: provider}
}

func (s *managedTokenSource) Token() (*oauth2.Token, error) {
	accessToken, err := s.provider.GetValidAccessToken(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		// The provider guarantees buffer-fresh tokens per call, so the
		// transport must not cache this one past the current request.
		Expiry: time.Now().Add(time.Second),
	}, nil
}
