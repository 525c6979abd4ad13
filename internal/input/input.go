// Package input builds mutation payloads from caller-supplied fields.
package input

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/orgdata/internal/models"
	"github.com/wolfeidau/orgdata/internal/naming"
)

// ScopeSource supplies the tenant scoping fields for writes.
type ScopeSource interface {
	Scope(ctx context.Context) (models.Scope, error)
}

// Builder merges scope and lifecycle timestamps into write inputs.
type Builder struct {
	scope ScopeSource
	now   func() time.Time
}

// NewBuilder creates a builder reading scope from src. A nil src behaves as
// an empty scope.
func NewBuilder(src ScopeSource) *Builder {
	return &Builder{scope: src, now: time.Now}
}

// WithClock returns a copy of the builder using now for timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	clone := *b
	clone.now = now
	return &clone
}

// Build returns a new input record for fields and the verb it should be sent
// with. fields is never modified.
//
// Scope fields always win over caller fields of the same name. An empty scope
// value leaves the field out. With suppressScope both scope fields are
// stripped. Records with an id are updates and get a fresh updatedAt; all
// others are creates, lose any id, and get createdAt equal to updatedAt.
func (b *Builder) Build(ctx context.Context, fields models.Record, suppressScope bool) (models.Record, naming.Verb, error) {
	in := fields.Clone()

	delete(in, models.FieldOrganizationGroup)
	delete(in, models.FieldAdminGroup)

	if !suppressScope && b.scope != nil {
		scope, err := b.scope.Scope(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read scope: %w", err)
		}
		if scope.OrganizationGroup != "" {
			in[models.FieldOrganizationGroup] = scope.OrganizationGroup
		}
		if scope.AdminGroup != "" {
			in[models.FieldAdminGroup] = scope.AdminGroup
		}
	}

	now := b.now().UTC().Format(models.TimestampLayout)

	verb := naming.Action(fields)
	if verb == naming.VerbUpdate {
		in[models.FieldUpdatedAt] = now
		return in, verb, nil
	}

	delete(in, models.FieldID)
	in[models.FieldCreatedAt] = now
	in[models.FieldUpdatedAt] = now

	return in, verb, nil
}
