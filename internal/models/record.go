package models

import "maps"

// Field names the backend schema reserves on every record.
const (
	FieldID                = "id"
	FieldCreatedAt         = "createdAt"
	FieldUpdatedAt         = "updatedAt"
	FieldOrganizationGroup = "organizationGroup"
	FieldAdminGroup        = "adminGroup"
	FieldItems             = "items"
)

// TimestampLayout matches JavaScript's Date.toISOString, which is what the
// backend's AWSDateTime fields are written with.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Record is a single backend object decoded from JSON.
type Record map[string]any

// Clone returns a shallow copy of the record. Nested values are shared.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}

// ID returns the record's id when it is a string.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}
