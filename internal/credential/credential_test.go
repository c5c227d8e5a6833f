package credential

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func TestGoogleFetchesTokenWithScopes(t *testing.T) {
	var gotScopes []string
	calls := 0
	g := &Google{
		scopes: []string{"https://www.googleapis.com/auth/cloud-platform"},
		find: func(_ context.Context, scopes ...string) (*google.Credentials, error) {
			calls++
			gotScopes = scopes
			return &google.Credentials{
				TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "ya29.test"}),
			}, nil
		},
	}

	for i := 0; i < 2; i++ {
		tok, err := g.Token(context.Background())
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if tok != "ya29.test" {
			t.Fatalf("unexpected token: %q", tok)
		}
	}
	if calls != 2 {
		t.Fatalf("expected a fresh lookup per call, got %d lookups", calls)
	}
	if len(gotScopes) != 1 || gotScopes[0] != "https://www.googleapis.com/auth/cloud-platform" {
		t.Fatalf("unexpected scopes: %v", gotScopes)
	}
}

func TestGoogleWrapsLookupError(t *testing.T) {
	g := &Google{find: func(context.Context, ...string) (*google.Credentials, error) {
		return nil, errors.New("could not find default credentials")
	}}
	_, err := g.Token(context.Background())
	if err == nil || !strings.Contains(err.Error(), "find default credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGoogleRejectsEmptyToken(t *testing.T) {
	g := &Google{find: func(context.Context, ...string) (*google.Credentials, error) {
		return &google.Credentials{TokenSource: oauth2.StaticTokenSource(&oauth2.Token{})}, nil
	}}
	if _, err := g.Token(context.Background()); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}

func TestStatic(t *testing.T) {
	tok, err := Static(" abc ").Token(context.Background())
	if err != nil || tok != "abc" {
		t.Fatalf("unexpected result: %q, %v", tok, err)
	}
	if _, err := Static("").Token(context.Background()); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}

func TestWithObserverReportsOutcome(t *testing.T) {
	var gotName string
	var gotOK bool
	p := WithObserver("static", Static(""), func(name string, ok bool, _ time.Duration) {
		gotName, gotOK = name, ok
	})
	_, _ = p.Token(context.Background())
	if gotName != "static" || gotOK {
		t.Fatalf("unexpected observation: name=%q ok=%v", gotName, gotOK)
	}
}

func TestGoogleCheckDoesNotFetchToken(t *testing.T) {
	fetched := false
	g := &Google{find: func(context.Context, ...string) (*google.Credentials, error) {
		return &google.Credentials{TokenSource: tokenSourceFunc(func() (*oauth2.Token, error) {
			fetched = true
			return &oauth2.Token{AccessToken: "x"}, nil
		})}, nil
	}}
	if err := g.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if fetched {
		t.Fatal("Check must not mint a token")
	}
}

func TestGoogleCheckReportsLookupError(t *testing.T) {
	g := &Google{find: func(context.Context, ...string) (*google.Credentials, error) {
		return nil, errors.New("no ADC")
	}}
	if err := g.Check(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestObservedCheckIsNotCounted(t *testing.T) {
	calls := 0
	p := WithObserver("static", Static("tok"), func(string, bool, time.Duration) { calls++ })
	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if calls != 0 {
		t.Fatalf("Check must not be observed, got %d observations", calls)
	}
	if err := Static("").Check(context.Background()); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }
