package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/nubip/schedsync/internal/config"
)

const oobRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

var (
	// ErrTokenNotFound means no token was ever stored for the account.
	ErrTokenNotFound = errors.New("no Google OAuth token stored")
	// ErrTokenInvalid means the stored token can no longer be refreshed.
	ErrTokenInvalid = errors.New("Google OAuth token is invalid")
)

// NewOAuthConfig returns the OAuth2 client configuration for calendar access.
func NewOAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = oobRedirectURL
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       DefaultOAuthScopes,
	}
}

// Authenticator hands out validated token sources for accounts.
type Authenticator struct {
	conf     *oauth2.Config
	provider TokenProvider
}

// NewAuthenticator combines an OAuth config with a token store.
func NewAuthenticator(conf *oauth2.Config, provider TokenProvider) *Authenticator {
	return &Authenticator{conf: conf, provider: provider}
}

// Provider returns the underlying token store.
func (a *Authenticator) Provider() TokenProvider {
	return a.provider
}

// AuthURL returns the consent page URL for a new login.
func (a *Authenticator) AuthURL(state string) string {
	return a.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func (a *Authenticator) Exchange(ctx context.Context, account, code string) error {
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return a.provider.SaveTokenForAccount(ctx, account, tok)
}

// TokenSource returns a token source for account after proving that the
// stored token is usable. It never touches the network when no token is
// stored. A refreshed token is written back to the store.
func (a *Authenticator) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	stored, err := a.provider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	ts := a.conf.TokenSource(ctx, stored)
	fresh, err := ts.Token()
	if err != nil {
		if rejectedByServer(err) {
			return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
		}
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if fresh.AccessToken != stored.AccessToken {
		if err := a.provider.SaveTokenForAccount(ctx, account, fresh); err != nil {
			return nil, fmt.Errorf("failed to store refreshed token: %w", err)
		}
	}
	return oauth2.ReuseTokenSource(fresh, ts), nil
}

// HTTPClient returns an HTTP client authorized by ts.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{ForceAttemptHTTP2: false}
	}
	return client
}

// rejectedByServer reports whether the token endpoint refused the refresh
// token. Network failures and server errors are not a reason to log in
// again.
func rejectedByServer(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	return re.Response == nil || re.Response.StatusCode < http.StatusInternalServerError
}
