package gsheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
)

// Scopes requested for every credential type. The server only reads.
var Scopes = []string{drive.DriveReadonlyScope, sheets.SpreadsheetsReadonlyScope}

// ErrNoCredentials indicates neither a token file nor a credentials file was configured.
var ErrNoCredentials = errors.New("gsheets: no credentials configured")

// authorizedUser is the token file layout written by the out-of-band
// authorization step (google-auth "authorized_user" without a type field).
type authorizedUser struct {
	Type         string    `json:"type"`
	Token        string    `json:"token"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenURI     string    `json:"token_uri"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Expiry       time.Time `json:"expiry"`
}

// TokenSource resolves credentials without any interactive flow.
//
// When tokenPath is set it must hold a previously authorized user token; the
// OAuth client id and secret come from the token itself or, failing that,
// from the client secrets at credentialsPath. Otherwise credentialsPath must
// be a service account key (or any credential JSON with a "type" field).
func TokenSource(ctx context.Context, credentialsPath, tokenPath string) (oauth2.TokenSource, error) {
	switch {
	case tokenPath != "":
		return userTokenSource(ctx, credentialsPath, tokenPath)
	case credentialsPath != "":
		data, err := os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("gsheets: read credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("gsheets: parse credentials: %w", err)
		}
		return creds.TokenSource, nil
	default:
		return nil, ErrNoCredentials
	}
}

func userTokenSource(ctx context.Context, credentialsPath, tokenPath string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("gsheets: read token: %w", err)
	}
	var au authorizedUser
	if err := json.Unmarshal(data, &au); err != nil {
		return nil, fmt.Errorf("gsheets: parse token: %w", err)
	}
	if au.Type != "" {
		creds, err := google.CredentialsFromJSON(ctx, data, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("gsheets: parse token: %w", err)
		}
		return creds.TokenSource, nil
	}

	cfg := &oauth2.Config{
		ClientID:     au.ClientID,
		ClientSecret: au.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}
	if au.TokenURI != "" {
		cfg.Endpoint.TokenURL = au.TokenURI
	}
	if cfg.ClientID == "" && credentialsPath != "" {
		secrets, err := os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("gsheets: read client secrets: %w", err)
		}
		fromFile, err := google.ConfigFromJSON(secrets, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("gsheets: parse client secrets: %w", err)
		}
		cfg.ClientID, cfg.ClientSecret = fromFile.ClientID, fromFile.ClientSecret
	}

	access := au.AccessToken
	if access == "" {
		access = au.Token
	}
	if access == "" && au.RefreshToken == "" {
		return nil, fmt.Errorf("gsheets: token file %s holds neither an access nor a refresh token", tokenPath)
	}
	tok := &oauth2.Token{AccessToken: access, RefreshToken: au.RefreshToken, Expiry: au.Expiry, TokenType: "Bearer"}
	return cfg.TokenSource(ctx, tok), nil
}
