package models

// Organization is the tenant the current user is working in. The group names
// are the user pool groups that scope every record the tenant writes.
type Organization struct {
	Name           string `json:"name,omitempty"`
	GroupName      string `json:"groupName"`
	AdminGroupName string `json:"adminGroupName"`
}

// Scope returns the scoping fields derived from the organization.
func (o Organization) Scope() Scope {
	return Scope{
		OrganizationGroup: o.GroupName,
		AdminGroup:        o.AdminGroupName,
	}
}

// Scope holds the tenant scoping fields injected into writes.
type Scope struct {
	OrganizationGroup string
	AdminGroup        string
}

// IsZero reports whether neither group is set.
func (s Scope) IsZero() bool {
	return s.OrganizationGroup == "" && s.AdminGroup == ""
}
