// Package auth resolves a suite's auth block into request headers merged
// before interpolation: bearer, basic, and an OAuth2 client-credentials
// token fetch.
package auth

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

// Error wraps an auth-block resolution failure (a bad type, a failed
// token fetch).
type Error struct {
	Type  string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth_error: %s: %v", e.Type, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Headers resolves block into the headers it contributes. Token and
// credential fields are resolved from already-interpolated strings — the
// caller interpolates the AuthBlock's fields (which may themselves
// reference `{{$env.*}}`) before calling Headers.
func Headers(ctx context.Context, block *model.AuthBlock) (map[string]string, error) {
	if block == nil {
		return nil, nil
	}
	switch block.Type {
	case "bearer":
		if block.Token == "" {
			return nil, &Error{Type: block.Type, Cause: fmt.Errorf("token is required")}
		}
		return map[string]string{"Authorization": "Bearer " + block.Token}, nil

	case "basic":
		if block.Username == "" || block.Password == "" {
			return nil, &Error{Type: block.Type, Cause: fmt.Errorf("username and password are required")}
		}
		creds := block.Username + ":" + block.Password
		encoded := base64.StdEncoding.EncodeToString([]byte(creds))
		return map[string]string{"Authorization": "Basic " + encoded}, nil

	case "oauth2_client_credentials":
		if block.TokenURL == "" || block.ClientID == "" || block.ClientSecret == "" {
			return nil, &Error{Type: block.Type, Cause: fmt.Errorf("token_url, client_id, and client_secret are required")}
		}
		cfg := clientcredentials.Config{
			ClientID:     block.ClientID,
			ClientSecret: block.ClientSecret,
			TokenURL:     block.TokenURL,
			Scopes:       block.Scopes,
		}
		token, err := cfg.Token(ctx)
		if err != nil {
			return nil, &Error{Type: block.Type, Cause: err}
		}
		return map[string]string{"Authorization": token.Type() + " " + token.AccessToken}, nil

	default:
		return nil, &Error{Type: block.Type, Cause: fmt.Errorf("unknown auth type")}
	}
}
