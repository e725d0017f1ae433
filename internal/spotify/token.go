package spotify

import (
	"fmt"

	"github.com/go-resty/resty/v2"
)

// tokenURL is a var (not a const) so tests can point it at an
// httptest.Server instead of the real provider.
var tokenURL = "https://accounts.spotify.com/api/token"

// SetTokenURLForTesting overrides the token endpoint and returns a
// restore function; intended for tests outside this package that need
// to mock the client-credentials grant.
func SetTokenURLForTesting(url string) (restore func()) {
	old := tokenURL
	tokenURL = url
	return func() { tokenURL = old }
}

// accessToken is the client-credentials grant envelope.
type accessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// retrieveAccessToken POSTs the client-credentials grant through client
// (already bound to whatever proxy the caller wants) using Basic auth
// with cred's id/secret.
func retrieveAccessToken(client *resty.Client, cred Credential) (string, error) {
	var token accessToken
	resp, err := client.R().
		SetBasicAuth(cred.ID, cred.Secret).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody("grant_type=client_credentials").
		SetResult(&token).
		Post(tokenURL)
	if err != nil {
		return "", fmt.Errorf("spotify: token request for %s failed: %w", cred.Name, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("spotify: token request for %s returned %d: %s", cred.Name, resp.StatusCode(), resp.String())
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("spotify: token response for %s missing access_token", cred.Name)
	}
	return token.AccessToken, nil
}
