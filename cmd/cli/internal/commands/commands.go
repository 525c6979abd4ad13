package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/wolfeidau/orgdata/cmd/cli/internal/credentials"
	"github.com/wolfeidau/orgdata/internal/appstate"
	"github.com/wolfeidau/orgdata/internal/auth"
	"github.com/wolfeidau/orgdata/internal/backend"
	"github.com/wolfeidau/orgdata/internal/catalog"
	"github.com/wolfeidau/orgdata/internal/client"
	"github.com/wolfeidau/orgdata/internal/input"
	"github.com/wolfeidau/orgdata/internal/logger"
	"github.com/wolfeidau/orgdata/internal/models"
	"github.com/wolfeidau/orgdata/internal/report"
)

type Globals struct {
	Debug   bool
	Version string

	Endpoint         string
	Region           string
	AdminURL         string
	Catalog          string
	Profile          string
	CredentialsDir   string
	CacheDir         string
	UserPoolID       string
	Timeout          time.Duration
	EnablePublicList bool

	Organization      string
	OrganizationGroup string
	AdminGroup        string

	// Out receives command output. Nil means stdout.
	Out io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Globals) clientConfig() (client.Config, error) {
	cfg := client.DefaultConfig()
	cfg.Endpoint = g.Endpoint
	cfg.AdminURL = g.AdminURL
	cfg.EnablePublicList = g.EnablePublicList
	if g.Region != "" {
		cfg.Region = g.Region
	}
	if g.Timeout > 0 {
		cfg.Timeout = g.Timeout
	}
	return cfg, cfg.Validate()
}

// state returns the shared state seeded with the organization flags.
func (g *Globals) state() *appstate.Store {
	state := appstate.New()
	if g.OrganizationGroup != "" || g.AdminGroup != "" {
		state.SetOrganization(models.Organization{
			Name:           g.Organization,
			GroupName:      g.OrganizationGroup,
			AdminGroupName: g.AdminGroup,
		})
	}
	return state
}

func (g *Globals) httpClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: logger.NewHTTPRequests(log.Logger, nil),
	}
}

// sessions builds the session source for the selected profile. With a user
// pool id set, token signatures are verified against the pool's JWKS.
func (g *Globals) sessions(ctx context.Context) (*auth.TokenSession, error) {
	store, err := credentials.NewStore(g.CredentialsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	tokens, err := credentials.NewTokenSource(ctx, store, g.Profile)
	if err != nil {
		return nil, err
	}

	var opts []auth.SessionOption
	if g.UserPoolID != "" {
		hc := client.NewCachingHTTPClient(g.CacheDir)
		hc.Timeout = g.Timeout
		keys := auth.NewKeyCache(hc)
		opts = append(opts, auth.WithKeyCache(keys, auth.JWKSURL(g.Region, g.UserPoolID)))
	}

	return auth.NewTokenSession(oauth2.ReuseTokenSource(nil, tokens), opts...), nil
}

// dispatcher wires the data-access client the way every data command uses it.
func (g *Globals) dispatcher(ctx context.Context) (*client.Client, *appstate.Store, error) {
	cfg, err := g.clientConfig()
	if err != nil {
		return nil, nil, err
	}

	cat, err := catalog.Load(g.Catalog)
	if err != nil {
		return nil, nil, err
	}

	sessions, err := g.sessions(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := []backend.Option{backend.WithHTTPClient(g.httpClient(cfg.Timeout))}
	if cfg.EnablePublicList {
		signer, err := backend.LoadIAMSigner(ctx, cfg.Region)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, backend.WithIAMSigner(signer))
	}
	transport := backend.NewClient(cfg.Endpoint, sessions, opts...)

	state := g.state()
	reporter := report.New(state).WithMessage(cfg.ErrorMessage)

	return client.New(cfg, cat, transport,
		client.WithBuilder(input.NewBuilder(state)),
		client.WithReporter(reporter),
	), state, nil
}

// parseObject decodes a JSON object flag. An empty string is a nil map.
func parseObject(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult writes the value of a found result, a note for an empty one,
// and returns the error of a failed one together with the published message.
func printResult[T any](w io.Writer, state *appstate.Store, res models.Result[T]) error {
	switch res.Status {
	case models.StatusFound:
		return printJSON(w, res.Value)
	case models.StatusEmpty:
		fmt.Fprintln(w, "No results.")
		return nil
	default:
		if msg := state.Error(); msg != "" {
			return fmt.Errorf("%s: %w", msg, res.Err)
		}
		return res.Err
	}
}
