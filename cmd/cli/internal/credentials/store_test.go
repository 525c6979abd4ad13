package credentials

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/wolfeidau/orgdata/internal/auth"
)

func testToken(access string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: "refresh-" + access,
		Expiry:       time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
}

func TestNewStore(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		credDir := filepath.Join(t.TempDir(), "creds")

		store, err := NewStore(credDir)
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(credDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})

	t.Run("creates config.json on initialization", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(tmpDir, "config.json"))
		require.NoError(t, err)

		cfg, err := store.loadConfig()
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Version)
		assert.Empty(t, cfg.DefaultProfile)
		assert.Empty(t, cfg.Profiles)
	})
}

func TestStore_Import(t *testing.T) {
	t.Run("stores token with 0600 permissions", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		profile, err := store.Import("dev", testToken("access-1"), ImportOptions{
			ClientID: "client",
			TokenURL: "https://auth.example.com/oauth2/token",
		})
		require.NoError(t, err)

		assert.Equal(t, "dev", profile.Name)
		assert.True(t, profile.Refreshable)
		assert.False(t, profile.CreatedAt.IsZero())

		info, err := os.Stat(filepath.Join(tmpDir, "dev.token.json"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		info, err = os.Stat(filepath.Join(tmpDir, "config.json"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("fingerprint is base58 sha256 of the access token", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		profile, err := store.Import("dev", testToken("access-1"), ImportOptions{})
		require.NoError(t, err)

		sum := sha256.Sum256([]byte("access-1"))
		assert.Equal(t, base58.Encode(sum[:]), profile.Fingerprint)
		assert.NotContains(t, profile.Fingerprint, "access-1")
	})

	t.Run("without token url is not refreshable", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		profile, err := store.Import("dev", testToken("access-1"), ImportOptions{})
		require.NoError(t, err)
		assert.False(t, profile.Refreshable)
	})

	t.Run("first profile becomes default", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.Import("first", testToken("a"), ImportOptions{})
		require.NoError(t, err)
		_, err = store.Import("second", testToken("b"), ImportOptions{})
		require.NoError(t, err)

		def, err := store.GetDefault()
		require.NoError(t, err)
		assert.Equal(t, "first", def.Name)
	})

	t.Run("rejects duplicate unless replace", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		first, err := store.Import("dev", testToken("a"), ImportOptions{})
		require.NoError(t, err)

		_, err = store.Import("dev", testToken("b"), ImportOptions{})
		assert.ErrorIs(t, err, ErrProfileExists)

		replaced, err := store.Import("dev", testToken("b"), ImportOptions{Replace: true})
		require.NoError(t, err)
		assert.Equal(t, first.CreatedAt, replaced.CreatedAt)
		assert.NotEqual(t, first.Fingerprint, replaced.Fingerprint)

		tok, err := store.LoadToken("dev")
		require.NoError(t, err)
		assert.Equal(t, "b", tok.AccessToken)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.Import("../escape", testToken("a"), ImportOptions{})
		assert.ErrorIs(t, err, ErrInvalidProfileName)

		_, err = store.Import("", testToken("a"), ImportOptions{})
		assert.ErrorIs(t, err, ErrInvalidProfileName)

		_, err = store.Import("dev", &oauth2.Token{}, ImportOptions{})
		assert.ErrorIs(t, err, ErrEmptyToken)

		_, err = store.Import("dev", nil, ImportOptions{})
		assert.ErrorIs(t, err, ErrEmptyToken)
	})
}

func TestStore_LoadToken(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	want := testToken("access-1")
	_, err = store.Import("dev", want, ImportOptions{})
	require.NoError(t, err)

	got, err := store.LoadToken("dev")
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, want.Expiry.Equal(got.Expiry))

	_, err = store.LoadToken("missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestStore_SaveToken(t *testing.T) {
	t.Run("keeps refresh token when missing", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.Import("dev", testToken("old"), ImportOptions{})
		require.NoError(t, err)

		err = store.SaveToken("dev", &oauth2.Token{AccessToken: "new", Expiry: time.Now().Add(time.Hour)})
		require.NoError(t, err)

		tok, err := store.LoadToken("dev")
		require.NoError(t, err)
		assert.Equal(t, "new", tok.AccessToken)
		assert.Equal(t, "refresh-old", tok.RefreshToken)

		profile, err := store.Get("dev")
		require.NoError(t, err)
		assert.Equal(t, auth.Fingerprint("new"), profile.Fingerprint)
	})

	t.Run("unknown profile", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		err = store.SaveToken("missing", testToken("x"))
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})
}

func TestStore_List(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	profiles, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, profiles)

	for _, name := range []string{"staging", "dev", "prod"} {
		_, err := store.Import(name, testToken(name), ImportOptions{})
		require.NoError(t, err)
	}

	profiles, err = store.List()
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	assert.Equal(t, "dev", profiles[0].Name)
	assert.Equal(t, "prod", profiles[1].Name)
	assert.Equal(t, "staging", profiles[2].Name)
}

func TestStore_Delete(t *testing.T) {
	t.Run("removes token file and clears default", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		_, err = store.Import("dev", testToken("a"), ImportOptions{})
		require.NoError(t, err)

		require.NoError(t, store.Delete("dev"))

		_, err = os.Stat(filepath.Join(tmpDir, "dev.token.json"))
		assert.True(t, os.IsNotExist(err))

		_, err = store.Get("dev")
		assert.ErrorIs(t, err, ErrProfileNotFound)

		_, err = store.GetDefault()
		assert.ErrorIs(t, err, ErrNoDefaultProfile)
	})

	t.Run("unknown profile", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		assert.ErrorIs(t, store.Delete("missing"), ErrProfileNotFound)
	})
}

func TestStore_SetDefault(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Import("dev", testToken("a"), ImportOptions{})
	require.NoError(t, err)
	_, err = store.Import("prod", testToken("b"), ImportOptions{})
	require.NoError(t, err)

	require.NoError(t, store.SetDefault("prod"))

	profile, err := store.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "prod", profile.Name)

	profile, err = store.Resolve("dev")
	require.NoError(t, err)
	assert.Equal(t, "dev", profile.Name)

	assert.ErrorIs(t, store.SetDefault("missing"), ErrProfileNotFound)
}
