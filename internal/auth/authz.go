package auth

import (
	"context"
	"strings"

	"github.com/wolfeidau/orgdata/internal/models"
)

// ScopeSource supplies the current tenant's group names.
type ScopeSource interface {
	Scope(ctx context.Context) (models.Scope, error)
}

// Matcher answers group membership questions for the current session.
type Matcher struct {
	sessions SessionSource
	scope    ScopeSource
}

// NewMatcher creates a matcher.
func NewMatcher(sessions SessionSource, scope ScopeSource) *Matcher {
	return &Matcher{sessions: sessions, scope: scope}
}

// MatchGroup reports whether any group contains name. The match is a
// substring match so prefixed and suffixed group names ("org-admins" for
// "admins") count. An empty name never matches.
func MatchGroup(groups []string, name string) bool {
	if name == "" {
		return false
	}
	for _, group := range groups {
		if strings.Contains(group, name) {
			return true
		}
	}
	return false
}

// Groups returns the current session's group claims.
func (m *Matcher) Groups(ctx context.Context) ([]string, error) {
	session, err := m.sessions.Session(ctx)
	if err != nil {
		return nil, err
	}
	return session.Groups, nil
}

// IsInGroup reports whether the current user belongs to a group matching name.
// Session errors are returned unchanged.
func (m *Matcher) IsInGroup(ctx context.Context, name string) (bool, error) {
	groups, err := m.Groups(ctx)
	if err != nil {
		return false, err
	}
	return MatchGroup(groups, name), nil
}

// IsInOrganizationGroup reports membership of the current tenant's group.
func (m *Matcher) IsInOrganizationGroup(ctx context.Context) (bool, error) {
	scope, err := m.scope.Scope(ctx)
	if err != nil {
		return false, err
	}
	return m.IsInGroup(ctx, scope.OrganizationGroup)
}

// IsInAdminGroup reports membership of the current tenant's admin group.
func (m *Matcher) IsInAdminGroup(ctx context.Context) (bool, error) {
	scope, err := m.scope.Scope(ctx)
	if err != nil {
		return false, err
	}
	return m.IsInGroup(ctx, scope.AdminGroup)
}
