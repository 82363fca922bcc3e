package vertex

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GCP scope for Vertex AI.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// tokenSource builds the OAuth2 token source for Vertex requests.
// Precedence: explicit access token, service account JSON file,
// application default credentials.
func tokenSource(ctx context.Context, accessToken, credentialsFile string) (oauth2.TokenSource, error) {
	if accessToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: accessToken,
			TokenType:   "Bearer",
		}), nil
	}

	if credentialsFile == "" {
		credentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if credentialsFile != "" {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("parsing credentials file: %w", err)
		}
		return creds.TokenSource, nil
	}

	ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("finding default credentials: %w", err)
	}
	return ts, nil
}

// authorize injects a bearer token from ts into req. Token refresh is
// handled by the token source.
func authorize(ts oauth2.TokenSource) func(req *http.Request) error {
	return func(req *http.Request) error {
		tok, err := ts.Token()
		if err != nil {
			return fmt.Errorf("fetching access token: %w", err)
		}
		tok.SetAuthHeader(req)
		return nil
	}
}
