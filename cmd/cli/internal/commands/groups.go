package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfeidau/orgdata/internal/auth"
)

// GroupsCmd inspects the signed in user's group claims.
type GroupsCmd struct {
	Check GroupsCheckCmd `cmd:"" help:"Show group memberships of the current session"`
}

type GroupsCheckCmd struct {
	Group string `arg:"" optional:"" help:"Group name to test (matched as a substring)"`
}

func (c *GroupsCheckCmd) Run(ctx context.Context, globals *Globals) error {
	sessions, err := globals.sessions(ctx)
	if err != nil {
		return err
	}

	matcher := auth.NewMatcher(sessions, globals.state())

	groups, err := matcher.Groups(ctx)
	if err != nil {
		return fmt.Errorf("failed to read groups: %w", err)
	}

	w := globals.out()
	fmt.Fprintf(w, "Groups:        %s\n", strings.Join(groups, ", "))

	inOrg, err := matcher.IsInOrganizationGroup(ctx)
	if err != nil {
		return err
	}
	inAdmin, err := matcher.IsInAdminGroup(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Organization:  %v\n", inOrg)
	fmt.Fprintf(w, "Admin:         %v\n", inAdmin)

	if c.Group != "" {
		in, err := matcher.IsInGroup(ctx, c.Group)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %v\n", c.Group, in)
	}

	return nil
}
