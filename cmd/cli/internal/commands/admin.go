package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/orgdata/internal/admin"
	"github.com/wolfeidau/orgdata/internal/client"
	"github.com/wolfeidau/orgdata/internal/report"
)

// AdminCmd calls the user pool admin API.
type AdminCmd struct {
	AddToGroup AdminAddToGroupCmd `cmd:"" name:"add-to-group" help:"Add a user to a group"`
	SignOut    AdminSignOutCmd    `cmd:"" name:"sign-out" help:"Sign a user out of every device"`
}

type AdminAddToGroupCmd struct {
	Username  string `arg:"" help:"User name"`
	Groupname string `arg:"" help:"Group name"`
}

func (c *AdminAddToGroupCmd) Run(ctx context.Context, globals *Globals) error {
	adminClient, err := globals.adminClient(ctx)
	if err != nil {
		return err
	}

	out, err := adminClient.AddUserToGroup(ctx, c.Username, c.Groupname)
	if err != nil {
		return err
	}
	return printJSON(globals.out(), out)
}

type AdminSignOutCmd struct {
	Username string `arg:"" help:"User name"`
}

func (c *AdminSignOutCmd) Run(ctx context.Context, globals *Globals) error {
	adminClient, err := globals.adminClient(ctx)
	if err != nil {
		return err
	}

	out, err := adminClient.SignUserOut(ctx, c.Username)
	if err != nil {
		return err
	}
	return printJSON(globals.out(), out)
}

func (g *Globals) adminClient(ctx context.Context) (*admin.Client, error) {
	if g.AdminURL == "" {
		return nil, fmt.Errorf("%w: set --admin-url", admin.ErrAdminURLRequired)
	}

	sessions, err := g.sessions(ctx)
	if err != nil {
		return nil, err
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = client.DefaultConfig().Timeout
	}

	return admin.New(g.AdminURL, sessions,
		admin.WithHTTPClient(g.httpClient(timeout)),
		admin.WithReporter(report.New(g.state())),
	), nil
}
