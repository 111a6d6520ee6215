package utils

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuth scopes for Google APIs
const (
	ScopeSheets = "https://www.googleapis.com/auth/spreadsheets"
)

// requiredScopes returns all scopes required by the application
func requiredScopes() []string {
	return []string{
		ScopeSheets,
	}
}

// GetServiceAccountCredentials loads Google credentials from a service account key file.
// The portal runs unattended, so there is no interactive consent flow.
func GetServiceAccountCredentials(ctx context.Context, credentialsFile string) (*google.Credentials, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, requiredScopes()...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return creds, nil
}

// GetToken fetches an access token for the credentials, failing fast on a bad key
func GetToken(creds *google.Credentials) (*oauth2.Token, error) {
	token, err := creds.TokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth token: %w", err)
	}
	return token, nil
}
