package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/oauth2"

	"github.com/wolfeidau/orgdata/cmd/cli/internal/credentials"
	"github.com/wolfeidau/orgdata/internal/auth"
)

// CredentialsCmd manages locally stored token sets.
type CredentialsCmd struct {
	Import     CredentialsImportCmd     `cmd:"" help:"Import a token set from the user pool"`
	List       CredentialsListCmd       `cmd:"" help:"List all profiles"`
	SetDefault CredentialsSetDefaultCmd `cmd:"" name:"set-default" help:"Set the default profile"`
	Remove     CredentialsRemoveCmd     `cmd:"" help:"Remove a profile"`
}

// CredentialsImportCmd stores tokens obtained from a hosted UI or auth flow.
type CredentialsImportCmd struct {
	Name         string `arg:"" help:"Profile name"`
	AccessToken  string `help:"Access token (JWT)" env:"ORGDATA_ACCESS_TOKEN" required:""`
	RefreshToken string `help:"Refresh token" env:"ORGDATA_REFRESH_TOKEN" default:""`
	ClientID     string `help:"User pool app client id, used to refresh" default:""`
	Domain       string `help:"User pool domain, e.g. https://example.auth.ap-northeast-1.amazoncognito.com" default:""`
	Replace      bool   `help:"Replace an existing profile" default:"false"`
	SetDefault   bool   `help:"Set as the default profile" default:"false"`
}

func (c *CredentialsImportCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := credentials.NewStore(globals.CredentialsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	claims, err := auth.ParseToken(c.AccessToken, nil)
	if err != nil {
		return err
	}

	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
	}
	if claims.ExpiresAt != nil {
		tok.Expiry = claims.ExpiresAt.Time
	}

	opts := credentials.ImportOptions{ClientID: c.ClientID, Replace: c.Replace}
	if c.Domain != "" {
		opts.TokenURL = strings.TrimRight(c.Domain, "/") + "/oauth2/token"
	}

	profile, err := store.Import(c.Name, tok, opts)
	if err != nil {
		if errors.Is(err, credentials.ErrProfileExists) {
			return fmt.Errorf("profile %q already exists\n\nTo overwrite it:\n  orgdata credentials import %s --replace ...", c.Name, c.Name)
		}
		return fmt.Errorf("failed to import token: %w", err)
	}

	if c.SetDefault {
		if err := store.SetDefault(c.Name); err != nil {
			return fmt.Errorf("failed to set default: %w", err)
		}
	}

	w := globals.out()
	fmt.Fprintf(w, "Imported profile: %s\n", profile.Name)
	fmt.Fprintf(w, "User:             %s\n", auth.NewSession(c.AccessToken, claims).Username)
	fmt.Fprintf(w, "Fingerprint:      %s\n", profile.Fingerprint)
	fmt.Fprintf(w, "Refreshable:      %v\n", profile.Refreshable)
	if !profile.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "Expires:          %s\n", profile.ExpiresAt.Local().Format(time.DateTime))
	}

	return nil
}

// CredentialsListCmd lists all profiles.
type CredentialsListCmd struct{}

func (c *CredentialsListCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := credentials.NewStore(globals.CredentialsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	profiles, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	w := globals.out()
	if len(profiles) == 0 {
		fmt.Fprintln(w, "No profiles found.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "To import a token set:")
		fmt.Fprintln(w, "  orgdata credentials import <name> --access-token <jwt>")
		return nil
	}

	defaultName := ""
	if def, err := store.GetDefault(); err == nil {
		defaultName = def.Name
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFINGERPRINT\tEXPIRES\tREFRESH\tDEFAULT")

	for _, profile := range profiles {
		isDefault := ""
		if profile.Name == defaultName {
			isDefault = "*"
		}

		fp := profile.Fingerprint
		if len(fp) > 12 {
			fp = fp[:12] + "..."
		}

		expires := "-"
		if !profile.ExpiresAt.IsZero() {
			expires = profile.ExpiresAt.Local().Format(time.DateTime)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%s\n", profile.Name, fp, expires, profile.Refreshable, isDefault)
	}

	return tw.Flush()
}

// CredentialsSetDefaultCmd sets the default profile.
type CredentialsSetDefaultCmd struct {
	Name string `arg:"" help:"Profile name"`
}

func (c *CredentialsSetDefaultCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := credentials.NewStore(globals.CredentialsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if err := store.SetDefault(c.Name); err != nil {
		if errors.Is(err, credentials.ErrProfileNotFound) {
			return fmt.Errorf("profile %q not found\n\nRun 'orgdata credentials list' to see available profiles", c.Name)
		}
		return fmt.Errorf("failed to set default: %w", err)
	}

	fmt.Fprintf(globals.out(), "Default profile set to %q.\n", c.Name)
	return nil
}

// CredentialsRemoveCmd removes a profile.
type CredentialsRemoveCmd struct {
	Name  string `arg:"" help:"Profile name"`
	Force bool   `help:"Skip confirmation" default:"false"`
}

func (c *CredentialsRemoveCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := credentials.NewStore(globals.CredentialsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if _, err := store.Get(c.Name); err != nil {
		if errors.Is(err, credentials.ErrProfileNotFound) {
			return fmt.Errorf("profile %q not found", c.Name)
		}
		return fmt.Errorf("failed to get profile: %w", err)
	}

	if !c.Force {
		fmt.Printf("Remove profile %q? [y/N]: ", c.Name)

		var response string
		_, _ = fmt.Fscanln(os.Stdin, &response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := store.Delete(c.Name); err != nil {
		return fmt.Errorf("failed to remove profile: %w", err)
	}

	fmt.Fprintf(globals.out(), "Profile %q removed.\n", c.Name)
	fmt.Fprintln(globals.out(), "Note: this does not revoke the tokens. Use 'orgdata admin sign-out' to do that.")

	return nil
}
