// Package appstate is the shared application state the data-access layer
// reads tenant scope from and publishes user-facing error messages to.
package appstate

import (
	"context"
	"errors"
	"sync"

	"github.com/wolfeidau/orgdata/internal/models"
)

// ErrNoOrganization is returned by Scope when no organization has been resolved.
var ErrNoOrganization = errors.New("no organization selected")

// Store holds the current organization and the last error message.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	organization *models.Organization
	errorMessage string

	// strict makes Scope fail when no organization is set
	strict bool
}

// Option configures a Store.
type Option func(*Store)

// WithStrictScope makes Scope return ErrNoOrganization until an
// organization is set, instead of an empty scope.
func WithStrictScope() Option {
	return func(s *Store) {
		s.strict = true
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOrganization records the resolved tenant.
func (s *Store) SetOrganization(org models.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := org
	s.organization = &clone
}

// Organization returns the current tenant, if any.
func (s *Store) Organization() (models.Organization, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.organization == nil {
		return models.Organization{}, false
	}
	return *s.organization, true
}

// Scope returns the scoping fields of the current organization.
func (s *Store) Scope(ctx context.Context) (models.Scope, error) {
	org, ok := s.Organization()
	if !ok {
		if s.strict {
			return models.Scope{}, ErrNoOrganization
		}
		return models.Scope{}, nil
	}
	return org.Scope(), nil
}

// SetError publishes a user-facing error message.
func (s *Store) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errorMessage = message
}

// Error returns the last published error message.
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.errorMessage
}

// ClearError resets the error message once the UI has shown it.
func (s *Store) ClearError() {
	s.SetError("")
}
