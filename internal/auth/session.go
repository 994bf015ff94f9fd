// Package auth tracks the current session obtained from the hosted auth
// service. The core treats identity as opaque: it only compares the email
// for authorship affordances. Token verification is the service's job, so
// claims are read without signature validation.
package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid access token")

// Identity is the authenticated user as far as the core cares.
type Identity struct {
	Email string
}

// Manager holds the current identity and notifies watchers on sign-in and
// sign-out transitions. Watchers receive the new identity, or nil on
// sign-out, and must reset author-scoped view state accordingly.
type Manager struct {
	mu       sync.RWMutex
	current  *Identity
	watchers []chan *Identity
}

func NewManager() *Manager {
	return &Manager{}
}

// SignIn parses the access token's claims and installs the identity.
func (m *Manager) SignIn(token string) (*Identity, error) {
	id, err := identityFromToken(token)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.current = id
	watchers := append([]chan *Identity(nil), m.watchers...)
	m.mu.Unlock()

	notify(watchers, id)
	return id, nil
}

// SignOut clears the identity and notifies watchers with nil.
func (m *Manager) SignOut() {
	m.mu.Lock()
	m.current = nil
	watchers := append([]chan *Identity(nil), m.watchers...)
	m.mu.Unlock()

	notify(watchers, nil)
}

// Current returns the signed-in identity, or nil.
func (m *Manager) Current() *Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Watch subscribes to session transitions.
func (m *Manager) Watch() <-chan *Identity {
	ch := make(chan *Identity, 4)
	m.mu.Lock()
	m.watchers = append(m.watchers, ch)
	m.mu.Unlock()
	return ch
}

func notify(watchers []chan *Identity, id *Identity) {
	for _, ch := range watchers {
		select {
		case ch <- id:
		default:
		}
	}
}

// identityFromToken reads the email claim without verifying the signature.
// The hosted service signed the token and enforces access server-side; the
// client only needs the identity and the expiry.
func identityFromToken(token string) (*Identity, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		return nil, ErrInvalidToken
	}

	email, _ := claims["email"].(string)
	if email == "" {
		// Some issuers put the email in the subject.
		if sub, err := claims.GetSubject(); err == nil {
			email = sub
		}
	}
	if email == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{Email: email}, nil
}
