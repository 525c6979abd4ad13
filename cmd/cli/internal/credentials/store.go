package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/wolfeidau/orgdata/internal/auth"
)

// Sentinel errors
var (
	// ErrProfileNotFound is returned when a profile doesn't exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileExists is returned when importing over an existing profile without replace.
	ErrProfileExists = errors.New("profile already exists")

	// ErrNoDefaultProfile is returned when no default is set.
	ErrNoDefaultProfile = errors.New("no default profile set")

	// ErrInvalidProfileName is returned for names that cannot be used as file names.
	ErrInvalidProfileName = errors.New("invalid profile name")

	// ErrEmptyToken is returned when importing a token set without an access token.
	ErrEmptyToken = errors.New("access token is required")
)

// Profile is the metadata of a stored token set. The tokens themselves live
// in a separate 0600 file.
type Profile struct {
	Name        string    `json:"name"`
	Fingerprint string    `json:"fingerprint"`
	ClientID    string    `json:"client_id,omitempty"`
	TokenURL    string    `json:"token_url,omitempty"`
	Refreshable bool      `json:"refreshable"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OAuth2Config returns the client config used to refresh the profile's
// tokens. Scopes are not needed for refresh.
func (p *Profile) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID: p.ClientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  p.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Config represents the credentials configuration file.
type Config struct {
	Version        int                `json:"version"`
	DefaultProfile string             `json:"default_profile,omitempty"`
	Profiles       map[string]Profile `json:"profiles"`
}

// ImportOptions describes where a token set came from.
type ImportOptions struct {
	ClientID string
	TokenURL string
	Replace  bool
}

// Store manages token sets on the local filesystem.
type Store struct {
	baseDir string
}

// NewStore creates a new credential store.
// If baseDir is empty, uses ~/.orgdata/credentials/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".orgdata", "credentials")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	store := &Store{baseDir: baseDir}

	if err := store.ensureConfig(); err != nil {
		return nil, err
	}

	log.Debug().Str("baseDir", baseDir).Msg("credential store initialized")

	return store, nil
}

// Import stores tok under name. The first profile imported becomes the default.
func (s *Store) Import(name string, tok *oauth2.Token, opts ImportOptions) (*Profile, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrEmptyToken
	}

	existing, err := s.Get(name)
	switch {
	case err == nil && !opts.Replace:
		return nil, ErrProfileExists
	case err != nil && !errors.Is(err, ErrProfileNotFound):
		return nil, err
	}

	if err := s.writeToken(name, tok); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	profile := Profile{
		Name:        name,
		Fingerprint: auth.Fingerprint(tok.AccessToken),
		ClientID:    opts.ClientID,
		TokenURL:    opts.TokenURL,
		Refreshable: tok.RefreshToken != "" && opts.TokenURL != "",
		ExpiresAt:   tok.Expiry.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing != nil {
		profile.CreatedAt = existing.CreatedAt
	}

	if err := s.putProfile(profile); err != nil {
		os.Remove(s.tokenPath(name))
		return nil, err
	}

	log.Info().
		Str("name", name).
		Str("fingerprint", profile.Fingerprint).
		Bool("refreshable", profile.Refreshable).
		Msg("token set imported")

	return &profile, nil
}

// Get retrieves profile metadata by name.
func (s *Store) Get(name string) (*Profile, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	profile, ok := cfg.Profiles[name]
	if !ok {
		return nil, ErrProfileNotFound
	}

	return &profile, nil
}

// GetDefault retrieves the default profile.
// Returns ErrNoDefaultProfile if none is set.
func (s *Store) GetDefault() (*Profile, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	if cfg.DefaultProfile == "" {
		return nil, ErrNoDefaultProfile
	}

	return s.Get(cfg.DefaultProfile)
}

// Resolve returns the named profile, or the default when name is empty.
func (s *Store) Resolve(name string) (*Profile, error) {
	if name == "" {
		return s.GetDefault()
	}
	return s.Get(name)
}

// List returns all stored profiles sorted by name.
func (s *Store) List() ([]Profile, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, 0, len(cfg.Profiles))
	for _, profile := range cfg.Profiles {
		profiles = append(profiles, profile)
	}
	slices.SortFunc(profiles, func(a, b Profile) int {
		return strings.Compare(a.Name, b.Name)
	})

	return profiles, nil
}

// Delete removes a profile and its token file.
func (s *Store) Delete(name string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	if _, ok := cfg.Profiles[name]; !ok {
		return ErrProfileNotFound
	}

	if err := os.Remove(s.tokenPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}

	delete(cfg.Profiles, name)

	if cfg.DefaultProfile == name {
		cfg.DefaultProfile = ""
	}

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Info().Str("name", name).Msg("profile deleted")

	return nil
}

// SetDefault sets the default profile.
func (s *Store) SetDefault(name string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	if _, ok := cfg.Profiles[name]; !ok {
		return ErrProfileNotFound
	}

	cfg.DefaultProfile = name

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Info().Str("name", name).Msg("default profile set")

	return nil
}

// LoadToken reads the token set of a profile.
func (s *Store) LoadToken(name string) (*oauth2.Token, error) {
	if _, err := s.Get(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.tokenPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	log.Debug().Str("name", name).Str("fingerprint", auth.Fingerprint(tok.AccessToken)).Msg("token loaded")

	return &tok, nil
}

// SaveToken replaces the token set of an existing profile, keeping its
// refresh token when tok carries none.
func (s *Store) SaveToken(name string, tok *oauth2.Token) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	profile, ok := cfg.Profiles[name]
	if !ok {
		return ErrProfileNotFound
	}

	if tok.RefreshToken == "" {
		if prev, err := s.LoadToken(name); err == nil {
			clone := *tok
			clone.RefreshToken = prev.RefreshToken
			tok = &clone
		}
	}

	if err := s.writeToken(name, tok); err != nil {
		return err
	}

	profile.Fingerprint = auth.Fingerprint(tok.AccessToken)
	profile.ExpiresAt = tok.Expiry.UTC()
	profile.UpdatedAt = time.Now().UTC()
	cfg.Profiles[name] = profile

	return s.saveConfig(cfg)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidProfileName, name)
	}
	return nil
}

func (s *Store) tokenPath(name string) string {
	return filepath.Join(s.baseDir, name+".token.json")
}

func (s *Store) writeToken(name string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	return writeFileAtomic(s.tokenPath(name), data)
}

// ensureConfig creates an empty config if it doesn't exist.
func (s *Store) ensureConfig() error {
	configPath := filepath.Join(s.baseDir, "config.json")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	cfg := &Config{
		Version:  1,
		Profiles: make(map[string]Profile),
	}

	return s.saveConfig(cfg)
}

// loadConfig reads the config file.
func (s *Store) loadConfig() (*Config, error) {
	configPath := filepath.Join(s.baseDir, "config.json")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}

	return &cfg, nil
}

// saveConfig writes the config file atomically.
func (s *Store) saveConfig(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return writeFileAtomic(filepath.Join(s.baseDir, "config.json"), data)
}

// putProfile adds or replaces a profile in the config.
func (s *Store) putProfile(profile Profile) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	cfg.Profiles[profile.Name] = profile

	// first profile becomes the default
	if len(cfg.Profiles) == 1 {
		cfg.DefaultProfile = profile.Name
	}

	return s.saveConfig(cfg)
}

func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}

	return nil
}
