// Package identity verifies end-user credentials against the identity
// provider (Firebase Auth). The rest of the service trusts the returned
// claims unconditionally.
package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Claims is the verified identity of a request.
type Claims struct {
	UID   string
	Email string
	Name  string
}

// Verifier turns a credential into verified claims.
type Verifier interface {
	// VerifyIDToken validates a Firebase ID token (Authorization: Bearer).
	VerifyIDToken(ctx context.Context, token string) (*Claims, error)
	// VerifySessionCookie validates a "__session" cookie minted by the
	// identity provider.
	VerifySessionCookie(ctx context.Context, cookie string) (*Claims, error)
}

// Firebase verifies tokens with the Firebase Admin SDK.
type Firebase struct {
	auth *auth.Client
}

// FirebaseConfig configures the Admin SDK app.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string // optional; falls back to application default credentials
}

// NewFirebase initializes the Admin SDK and its auth client.
func NewFirebase(ctx context.Context, cfg FirebaseConfig) (*Firebase, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return &Firebase{auth: client}, nil
}

func claimsFromToken(tok *auth.Token) *Claims {
	c := &Claims{UID: tok.UID}
	if v, ok := tok.Claims["email"].(string); ok {
		c.Email = v
	}
	if v, ok := tok.Claims["name"].(string); ok {
		c.Name = v
	}
	return c
}

// VerifyIDToken implements Verifier.
func (f *Firebase) VerifyIDToken(ctx context.Context, token string) (*Claims, error) {
	tok, err := f.auth.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	return claimsFromToken(tok), nil
}

// VerifySessionCookie implements Verifier.
func (f *Firebase) VerifySessionCookie(ctx context.Context, cookie string) (*Claims, error) {
	tok, err := f.auth.VerifySessionCookie(ctx, cookie)
	if err != nil {
		return nil, fmt.Errorf("verify session cookie: %w", err)
	}
	return claimsFromToken(tok), nil
}
