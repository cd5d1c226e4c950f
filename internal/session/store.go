package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Cookie is one persisted cookie record.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`

	// Expires is a unix timestamp in seconds. Zero means a session cookie.
	Expires  int64 `json:"expires,omitempty"`
	Secure   bool  `json:"secure,omitempty"`
	HTTPOnly bool  `json:"httpOnly,omitempty"` //nolint:tagliatelle // browser export key
}

// Expired reports whether c has an expiry in the past relative to now.
func (c Cookie) Expired(now time.Time) bool {
	return c.Expires > 0 && time.Unix(c.Expires, 0).Before(now)
}

// MatchesHost reports whether c is sent to host. Cookies without a domain
// match every host.
func (c Cookie) MatchesHost(host string) bool {
	d := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
	if d == "" {
		return true
	}
	host = strings.ToLower(host)
	return host == d || strings.HasSuffix(host, "."+d)
}

func (c Cookie) key() string {
	return c.Name + "\x00" + strings.TrimPrefix(strings.ToLower(c.Domain), ".")
}

// HTTPCookie converts c for use with net/http.
func (c Cookie) HTTPCookie() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	if hc.Path == "" {
		hc.Path = "/"
	}
	if c.Expires > 0 {
		hc.Expires = time.Unix(c.Expires, 0)
	}
	return hc
}

// Store holds the cookie records of one catalog session.
type Store struct {
	mu      sync.Mutex
	path    string
	cookies []Cookie
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report unreadable cookie files.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open loads the store at path. A missing file yields an empty store. A file
// that cannot be decoded is reported and treated as empty, so a broken cookie
// file never stops a run.
func Open(path string, opts ...Option) (*Store, error) {
	s := newStore(path, opts...)

	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read cookie store: %w", err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		s.logger.Warn("ignoring unreadable cookie store", "path", path, "error", err)
		return s, nil
	}
	s.cookies = cookies
	s.logger.Debug("loaded cookie store", "path", path, "count", len(cookies))
	return s, nil
}

// NewMemoryStore creates a store that is never written to disk.
func NewMemoryStore(cookies ...Cookie) *Store {
	s := newStore("")
	s.cookies = append(s.cookies, cookies...)
	return s
}

func newStore(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file, empty for memory stores.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of stored cookies.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cookies)
}

// Cookies returns a copy of every stored cookie.
func (s *Store) Cookies() []Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Cookie, len(s.cookies))
	copy(out, s.cookies)
	return out
}

// Update merges cookies into the store. A cookie replaces a stored one with
// the same name and domain; the rest are appended in order.
func (s *Store) Update(cookies []Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merge(cookies)
}

func (s *Store) merge(cookies []Cookie) {
	index := make(map[string]int, len(s.cookies))
	for i, c := range s.cookies {
		index[c.key()] = i
	}
	for _, c := range cookies {
		if i, ok := index[c.key()]; ok {
			s.cookies[i] = c
			continue
		}
		index[c.key()] = len(s.cookies)
		s.cookies = append(s.cookies, c)
	}
}

// HTTPCookies returns the unexpired cookies that apply to u.
func (s *Store) HTTPCookies(u *url.URL) []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []*http.Cookie
	for _, c := range s.cookies {
		if c.Expired(now) || !c.MatchesHost(u.Hostname()) {
			continue
		}
		out = append(out, c.HTTPCookie())
	}
	return out
}

// ApplyTo seeds jar with the cookies that apply to u.
func (s *Store) ApplyTo(jar http.CookieJar, u *url.URL) {
	if jar == nil {
		return
	}
	jar.SetCookies(u, s.HTTPCookies(u))
}

// Absorb copies the cookies jar holds for u back into the store. A jar only
// reports names and values, so a cookie already stored for a matching domain
// keeps its attributes and only takes the new value.
func (s *Store) Absorb(jar http.CookieJar, u *url.URL) {
	if jar == nil {
		return
	}
	live := jar.Cookies(u)
	if len(live) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	host := u.Hostname()
	updates := make([]Cookie, 0, len(live))
	for _, hc := range live {
		c := Cookie{Name: hc.Name, Value: hc.Value, Domain: host, Path: "/"}
		for _, stored := range s.cookies {
			if stored.Name == hc.Name && stored.MatchesHost(host) {
				c = stored
				c.Value = hc.Value
				break
			}
		}
		updates = append(updates, c)
	}
	s.merge(updates)
}

// Save writes the store to its file with owner-only permissions.
// Memory stores are not written.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	data, err := json.MarshalIndent(s.cookies, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode cookie store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create cookie store directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookie store: %w", err)
	}
	return nil
}
