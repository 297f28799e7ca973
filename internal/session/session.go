// Package session manages login sessions and one-time flash notices.
//
// A login creates a row in the session store; the browser only holds an
// HS256-signed token naming that row, so logout and expiry are enforced
// server-side. Flash notices travel in their own short-lived signed cookie
// and are removed once read.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/vaccine-booking/internal/models"
	"github.com/Dan9191/vaccine-booking/internal/repository"
)

const (
	CookieName      = "session"
	FlashCookieName = "flash"
	flashTTL        = 5 * time.Minute
)

// ErrNoSession means the request carries no valid, unexpired session
var ErrNoSession = errors.New("no active session")

// Store persists sessions
type Store interface {
	CreateSession(ctx context.Context, s *models.Session) error
	FindSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Options configures a Manager
type Options struct {
	Secret      []byte
	Secure      bool
	TTL         time.Duration
	RememberTTL time.Duration
	// Clock defaults to time.Now
	Clock func() time.Time
}

// Manager issues, resolves and ends sessions
type Manager struct {
	store  Store
	opts   Options
	log    *logrus.Logger
	parser *jwt.Parser
}

type flashClaims struct {
	Flashes []models.Flash `json:"f"`
	jwt.RegisteredClaims
}

// NewManager creates a session manager
func NewManager(store Store, opts Options, log *logrus.Logger) *Manager {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Manager{
		store: store,
		opts:  opts,
		log:   log,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(opts.Clock),
		),
	}
}

// Start creates a session for userID and sets the session cookie. With
// remember the cookie persists across browser restarts for RememberTTL.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, userID int64, remember bool) (*models.Session, error) {
	now := m.opts.Clock()
	ttl := m.opts.TTL
	if remember {
		ttl = m.opts.RememberTTL
	}
	s := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Remember:  remember,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := m.store.CreateSession(ctx, s); err != nil {
		return nil, err
	}

	token, err := m.sign(jwt.RegisteredClaims{
		ID:        s.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	cookie := m.cookie(CookieName, token)
	if remember {
		cookie.MaxAge = int(ttl.Seconds())
		cookie.Expires = s.ExpiresAt
	}
	http.SetCookie(w, cookie)

	m.log.Debugf("Session started for user %d (remember=%t)", userID, remember)
	return s, nil
}

// Current resolves the session carried by r. It returns ErrNoSession when
// the cookie is missing, forged, expired or no longer stored.
func (m *Manager) Current(r *http.Request) (*models.Session, error) {
	id, ok := m.sessionID(r)
	if !ok {
		return nil, ErrNoSession
	}
	s, err := m.store.FindSession(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if s.Expired(m.opts.Clock()) {
		return nil, ErrNoSession
	}
	return s, nil
}

// End deletes the session carried by r and clears the cookie
func (m *Manager) End(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, m.expired(CookieName))
	id, ok := m.sessionID(r)
	if !ok {
		return nil
	}
	return m.store.DeleteSession(r.Context(), id)
}

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	var claims jwt.RegisteredClaims
	if _, err := m.parser.ParseWithClaims(c.Value, &claims, m.key); err != nil {
		m.log.Debugf("Rejected session cookie: %v", err)
		return "", false
	}
	return claims.ID, claims.ID != ""
}

// AddFlash queues a notice for the next rendered page
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, category, message string) {
	flashes := append(m.readFlashes(r), models.Flash{Category: category, Message: message})
	now := m.opts.Clock()
	token, err := m.sign(flashClaims{
		Flashes: flashes,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(flashTTL)),
		},
	})
	if err != nil {
		m.log.Errorf("Failed to sign flash: %v", err)
		return
	}
	http.SetCookie(w, m.cookie(FlashCookieName, token))
}

// PopFlashes returns the queued notices and clears them
func (m *Manager) PopFlashes(w http.ResponseWriter, r *http.Request) []models.Flash {
	if _, err := r.Cookie(FlashCookieName); err != nil {
		return nil
	}
	http.SetCookie(w, m.expired(FlashCookieName))
	return m.readFlashes(r)
}

func (m *Manager) readFlashes(r *http.Request) []models.Flash {
	c, err := r.Cookie(FlashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	var claims flashClaims
	if _, err := m.parser.ParseWithClaims(c.Value, &claims, m.key); err != nil {
		m.log.Debugf("Rejected flash cookie: %v", err)
		return nil
	}
	return claims.Flashes
}

func (m *Manager) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.opts.Secret)
}

func (m *Manager) key(*jwt.Token) (any, error) {
	return m.opts.Secret, nil
}

func (m *Manager) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) expired(name string) *http.Cookie {
	c := m.cookie(name, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}
