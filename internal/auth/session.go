// Package auth manages the OAuth session for the drive service.
//
// A Session is an explicit, caller-owned object: it is constructed from a
// credentials file, carries the cached user token, and hands out a
// refreshing token source. Nothing here is process-global; commands build a
// session, use it, and let it go.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
)

// Scope is the Drive access requested during authorization.
const Scope = drive.DriveScope

// Session is an explicit OAuth session over a credentials file and a cached
// token file.
type Session struct {
	cfg       *oauth2.Config
	tokenFile string

	mu    sync.Mutex
	token *oauth2.Token
}

// New builds a session from the OAuth client credentials at credentialsFile.
//
// If tokenFile exists its token is loaded; a missing token file is not an
// error; the session is simply unauthorized until Exchange succeeds.
func New(credentialsFile, tokenFile string) (*Session, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file %s: %w", credentialsFile, err)
	}

	cfg, err := google.ConfigFromJSON(data, Scope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials file %s: %w", credentialsFile, err)
	}

	s := &Session{cfg: cfg, tokenFile: tokenFile}

	tokenData, err := os.ReadFile(tokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading token file %s: %w", tokenFile, err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(tokenData, &tok); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", tokenFile, err)
	}
	s.token = &tok
	return s, nil
}

// Authorized reports whether the session holds a token.
//
// An expired token still counts: the token source refreshes it on use as
// long as a refresh token is present.
func (s *Session) Authorized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil && (s.token.Valid() || s.token.RefreshToken != "")
}

// AuthURL returns the URL the user visits to authorize the application.
func (s *Session) AuthURL(state string) string {
	return s.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and persists it.
func (s *Session) Exchange(ctx context.Context, code string) error {
	tok, err := s.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	return s.setToken(tok)
}

// TokenSource returns a refreshing token source. Refreshed tokens are
// persisted back to the token file so the next run skips the auth flow.
//
// Returns an error if the session is unauthorized.
func (s *Session) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()

	if tok == nil {
		return nil, fmt.Errorf("no token in %s: run the login flow first", s.tokenFile)
	}
	return &persistingTokenSource{
		session: s,
		source:  s.cfg.TokenSource(ctx, tok),
		last:    tok.AccessToken,
	}, nil
}

// setToken stores tok in memory and on disk.
func (s *Session) setToken(tok *oauth2.Token) error {
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing token: %w", err)
	}
	// Tokens grant full drive access; keep them owner-only.
	if err := os.WriteFile(s.tokenFile, data, 0o600); err != nil {
		return fmt.Errorf("writing token file %s: %w", s.tokenFile, err)
	}
	return nil
}

// persistingTokenSource saves tokens back to the session when the underlying
// source refreshes them.
type persistingTokenSource struct {
	session *Session
	source  oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.source.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	refreshed := tok.AccessToken != p.last
	if refreshed {
		p.last = tok.AccessToken
	}
	p.mu.Unlock()

	if refreshed {
		if err := p.session.setToken(tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}
