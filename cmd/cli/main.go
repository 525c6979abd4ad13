package main

import (
	"context"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/orgdata/cmd/cli/internal/commands"
	"github.com/wolfeidau/orgdata/internal/client"
	"github.com/wolfeidau/orgdata/internal/logger"
	"github.com/wolfeidau/orgdata/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Get         commands.GetCmd         `cmd:"" help:"Fetch one record by id"`
		List        commands.ListCmd        `cmd:"" help:"List records"`
		Search      commands.SearchCmd      `cmd:"" help:"Search records"`
		Query       commands.QueryCmd       `cmd:"" help:"Run a named catalog query"`
		Create      commands.CreateCmd      `cmd:"" help:"Create or update a record"`
		CreateMany  commands.CreateManyCmd  `cmd:"" name:"create-many" help:"Create records from a JSON file concurrently"`
		Delete      commands.DeleteCmd      `cmd:"" help:"Delete a record"`
		Groups      commands.GroupsCmd      `cmd:"" help:"Inspect group membership"`
		Admin       commands.AdminCmd       `cmd:"" help:"User administration"`
		Credentials commands.CredentialsCmd `cmd:"" help:"Manage stored tokens"`
		Catalog     commands.CatalogCmd     `cmd:"" help:"Inspect the operation catalog"`

		Config           kong.ConfigFlag `help:"Load flag defaults from a JSON file."`
		Debug            bool            `help:"Enable debug mode." env:"ORGDATA_DEBUG"`
		Endpoint         string          `help:"GraphQL endpoint URL" env:"ORGDATA_ENDPOINT"`
		Region           string          `help:"AWS region" default:"ap-northeast-1" env:"AWS_REGION"`
		AdminURL         string          `help:"Admin API base URL" env:"ORGDATA_ADMIN_URL"`
		CatalogFile      string          `name:"catalog" help:"Operation catalog YAML file" default:"operations.yaml" type:"path" env:"ORGDATA_CATALOG"`
		Profile          string          `help:"Credential profile (default profile when empty)" env:"ORGDATA_PROFILE"`
		CredentialsDir   string          `help:"Credentials directory (default: ~/.orgdata/credentials/)" type:"path"`
		CacheDir         string          `help:"JWKS cache directory (in-memory when empty)" type:"path"`
		UserPoolID       string          `help:"User pool id; enables access token signature checks" env:"ORGDATA_USER_POOL_ID"`
		Timeout          time.Duration   `help:"Per request timeout" default:"30s"`
		EnablePublicList bool            `help:"Allow listing through the IAM channel"`

		Organization      string `help:"Organization name" env:"ORGDATA_ORGANIZATION"`
		OrganizationGroup string `help:"Organization group written to records" env:"ORGDATA_ORGANIZATION_GROUP"`
		AdminGroup        string `help:"Admin group written to records" env:"ORGDATA_ADMIN_GROUP"`

		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("orgdata"),
		kong.Vars{
			"version": version,
		},
		kong.Configuration(kong.JSON, "~/.orgdata/config.json"),
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	if telemetry.Enabled() {
		shutdown, err := telemetry.Setup(ctx, telemetry.Config{
			ServiceName: "orgdata-cli",
			Version:     version,
			Endpoint:    cli.Endpoint,
			Region:      cli.Region,
			Profile:     cli.Profile,
			Local:       client.Config{Endpoint: cli.Endpoint}.LocalEndpoint(),
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Failed to shutdown telemetry")
				}
			}()
		}
	}

	err := cmd.Run(&commands.Globals{
		Debug:             cli.Debug,
		Version:           version,
		Endpoint:          cli.Endpoint,
		Region:            cli.Region,
		AdminURL:          cli.AdminURL,
		Catalog:           cli.CatalogFile,
		Profile:           cli.Profile,
		CredentialsDir:    cli.CredentialsDir,
		CacheDir:          cli.CacheDir,
		UserPoolID:        cli.UserPoolID,
		Timeout:           cli.Timeout,
		EnablePublicList:  cli.EnablePublicList,
		Organization:      cli.Organization,
		OrganizationGroup: cli.OrganizationGroup,
		AdminGroup:        cli.AdminGroup,
	})
	cmd.FatalIfErrorf(err)
}
