// Package credential obtains the bearer tokens used to call Vertex AI.
//
// Providers do not cache: every Token call returns a token fetched for that
// invocation.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Provider issues tokens. Check reports whether tokens can be issued at all
// without minting one.
type Provider interface {
	Token(ctx context.Context) (string, error)
	Check(ctx context.Context) error
}

var ErrEmptyToken = errors.New("identity provider returned an empty access token")

type finderFunc func(ctx context.Context, scopes ...string) (*google.Credentials, error)

// Google resolves Application Default Credentials on every call.
type Google struct {
	scopes []string
	find   finderFunc
}

func NewGoogle(scopes ...string) *Google {
	return &Google{scopes: scopes, find: google.FindDefaultCredentials}
}

func (g *Google) Token(ctx context.Context) (string, error) {
	creds, err := g.find(ctx, g.scopes...)
	if err != nil {
		return "", fmt.Errorf("find default credentials: %w", err)
	}
	return tokenFrom(creds.TokenSource)
}

// Check resolves Application Default Credentials without requesting a token.
func (g *Google) Check(ctx context.Context) error {
	if _, err := g.find(ctx, g.scopes...); err != nil {
		return fmt.Errorf("find default credentials: %w", err)
	}
	return nil
}

func tokenFrom(src oauth2.TokenSource) (string, error) {
	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return "", ErrEmptyToken
	}
	return tok.AccessToken, nil
}

// Static returns a fixed token. Used for local development against a proxy or
// with a token minted by `gcloud auth print-access-token`.
type Static string

func (s Static) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrEmptyToken
	}
	return strings.TrimSpace(string(s)), nil
}

func (s Static) Check(ctx context.Context) error {
	_, err := s.Token(ctx)
	return err
}

type ObserverFunc func(provider string, ok bool, duration time.Duration)

type observed struct {
	name     string
	next     Provider
	observer ObserverFunc
}

// WithObserver reports the outcome and latency of every token fetch.
func WithObserver(name string, next Provider, observer ObserverFunc) Provider {
	if observer == nil {
		return next
	}
	return &observed{name: name, next: next, observer: observer}
}

func (o *observed) Token(ctx context.Context) (string, error) {
	started := time.Now()
	tok, err := o.next.Token(ctx)
	o.observer(o.name, err == nil, time.Since(started))
	return tok, err
}

// Check is not observed; only real token fetches are counted.
func (o *observed) Check(ctx context.Context) error {
	return o.next.Check(ctx)
}
