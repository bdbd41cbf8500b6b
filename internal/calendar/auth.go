package calendar

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Scope grants read/write access to calendars.
const Scope = "https://www.googleapis.com/auth/calendar"

// ErrNoToken means the token file is missing and no interactive prompt is available.
var ErrNoToken = errors.New("calendar: no saved token; authorize interactively first")

type secretSection struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURI      string   `json:"auth_uri"`
	TokenURI     string   `json:"token_uri"`
	RedirectURIs []string `json:"redirect_uris"`
}

type clientSecrets struct {
	Installed *secretSection `json:"installed"`
	Web       *secretSection `json:"web"`
}

// LoadOAuthConfig reads an OAuth client secrets file as downloaded from the
// Google Cloud console ("installed" or "web" application).
func LoadOAuthConfig(path string) (*oauth2.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var secrets clientSecrets
	if err := json.Unmarshal(raw, &secrets); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	section := secrets.Installed
	if section == nil {
		section = secrets.Web
	}
	if section == nil || section.ClientID == "" {
		return nil, fmt.Errorf("credentials %s: missing client_id", path)
	}
	endpoint := endpoints.Google
	if section.AuthURI != "" {
		endpoint.AuthURL = section.AuthURI
	}
	if section.TokenURI != "" {
		endpoint.TokenURL = section.TokenURI
	}
	redirect := "http://localhost"
	if len(section.RedirectURIs) > 0 {
		redirect = section.RedirectURIs[0]
	}
	return &oauth2.Config{
		ClientID:     section.ClientID,
		ClientSecret: section.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirect,
		Scopes:       []string{Scope},
	}, nil
}

// CodePrompt shows authURL to the user and returns the authorization code they paste back.
type CodePrompt func(authURL string) (string, error)

// StdinPrompt asks on out and reads one line from in. The line may be the bare
// code or the whole redirect URL.
func StdinPrompt(in io.Reader, out io.Writer) CodePrompt {
	return func(authURL string) (string, error) {
		fmt.Fprintf(out, "Open this URL, approve access and paste the code (or the redirect URL):\n%s\n> ", authURL)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read authorization code: %w", err)
		}
		return codeFromInput(line), nil
	}
}

func codeFromInput(line string) string {
	line = strings.TrimSpace(line)
	if u, err := url.Parse(line); err == nil && u.Scheme != "" {
		if code := u.Query().Get("code"); code != "" {
			return code
		}
	}
	return line
}

// TokenSource returns a refreshing token source backed by tokenPath. When the
// file is missing the user is asked through prompt; every new token is written back.
func TokenSource(ctx context.Context, cfg *oauth2.Config, tokenPath string, prompt CodePrompt) (oauth2.TokenSource, error) {
	tok, err := readToken(tokenPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		if prompt == nil {
			return nil, ErrNoToken
		}
		tok, err = authorize(ctx, cfg, prompt)
		if err != nil {
			return nil, err
		}
		if err := writeToken(tokenPath, tok); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return &savingTokenSource{
		src:  oauth2.ReuseTokenSource(tok, cfg.TokenSource(ctx, tok)),
		path: tokenPath,
		last: tok.AccessToken,
	}, nil
}

func authorize(ctx context.Context, cfg *oauth2.Config, prompt CodePrompt) (*oauth2.Token, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	code, err := prompt(authURL)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, errors.New("calendar: empty authorization code")
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type savingTokenSource struct {
	src  oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := writeToken(s.path, tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

// storedToken also understands the token.json written by Google's Python client,
// which names the access token "token".
type storedToken struct {
	oauth2.Token
	LegacyToken string `json:"token,omitempty"`
}

func readToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st storedToken
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	tok := st.Token
	if tok.AccessToken == "" {
		tok.AccessToken = st.LegacyToken
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("token %s has neither access nor refresh token", path)
	}
	return &tok, nil
}

func writeToken(path string, tok *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}
