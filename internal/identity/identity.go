// Package identity abstracts credential acquisition for managed-identity
// authentication. The actual identity service is an external collaborator;
// tether only ever asks a TokenProvider for a bearer token and never inspects
// how it was obtained.
package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// TokenProvider supplies bearer tokens for outbound calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenProvider returns a fixed token. Useful for tests and for
// environments where a token is provisioned out of band.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a provider that always returns token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// Token returns the configured token.
func (p *StaticTokenProvider) Token(_ context.Context) (string, error) {
	if p.token == "" {
		return "", errors.New("static token provider has no token")
	}
	return p.token, nil
}

// EnvTokenProvider reads the token from an environment variable on every
// call, so an external refresher process can rotate it.
type EnvTokenProvider struct {
	envVar string
}

// NewEnvTokenProvider creates a provider backed by the given env var.
func NewEnvTokenProvider(envVar string) *EnvTokenProvider {
	return &EnvTokenProvider{envVar: envVar}
}

// Token returns the current value of the environment variable.
func (p *EnvTokenProvider) Token(_ context.Context) (string, error) {
	v := os.Getenv(p.envVar)
	if v == "" {
		return "", fmt.Errorf("environment variable %s is empty", p.envVar)
	}
	return v, nil
}
