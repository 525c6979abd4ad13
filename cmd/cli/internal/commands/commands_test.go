package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/orgdata/cmd/cli/internal/credentials"
	"github.com/wolfeidau/orgdata/internal/report"
)

const testCatalogYAML = `operations:
  - name: getOrder
    kind: query
    document: "query GetOrder($id: ID!) { getOrder(id: $id) { id name } }"
  - name: listOrders
    kind: query
    document: "query ListOrders($filter: ModelOrderFilterInput) { listOrders(filter: $filter) { items { id name } } }"
  - name: searchOrders
    kind: query
    document: "query SearchOrders($filter: SearchableOrderFilterInput) { searchOrders(filter: $filter) { items { id name } } }"
  - name: createOrder
    kind: mutation
    document: "mutation CreateOrder($input: CreateOrderInput!) { createOrder(input: $input) { id name } }"
  - name: updateOrder
    kind: mutation
    document: "mutation UpdateOrder($input: UpdateOrderInput!) { updateOrder(input: $input) { id name } }"
  - name: deleteOrder
    kind: mutation
    document: "mutation DeleteOrder($input: DeleteOrderInput!) { deleteOrder(input: $input) { id } }"
`

type graphqlCall struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	Authorization string         `json:"-"`
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []graphqlCall
}

func (b *fakeBackend) recorded() []graphqlCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]graphqlCall(nil), b.calls...)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var call graphqlCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	call.Authorization = r.Header.Get("Authorization")

	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.Contains(call.Query, "getOrder("):
		_, _ = w.Write([]byte(`{"data":{"getOrder":{"id":"o-1","name":"Widget"}}}`))
	case strings.Contains(call.Query, "listOrders("):
		_, _ = w.Write([]byte(`{"data":{"listOrders":{"items":[]}}}`))
	case strings.Contains(call.Query, "createOrder("):
		in, _ := call.Variables["input"].(map[string]any)
		created := maps.Clone(in)
		created["id"] = "new-id"
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"createOrder": created}})
	case strings.Contains(call.Query, "deleteOrder("):
		_, _ = w.Write([]byte(`{"data":{"deleteOrder":null},"errors":[{"errorType":"Unauthorized","message":"Not Authorized to access deleteOrder"}]}`))
	default:
		http.Error(w, "unexpected query", http.StatusBadRequest)
	}
}

func testAccessToken(t *testing.T, groups ...string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":            "sub-1",
		"username":       "alice",
		"token_use":      "access",
		"cognito:groups": groups,
		"exp":            time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// setup returns globals pointing at a fake backend with one imported profile.
func setup(t *testing.T) (*Globals, *fakeBackend, *bytes.Buffer, string) {
	t.Helper()

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "operations.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalogYAML), 0600))

	backend := &fakeBackend{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	out := &bytes.Buffer{}
	globals := &Globals{
		Endpoint:          srv.URL + "/graphql",
		Region:            "ap-northeast-1",
		Catalog:           catalogPath,
		CredentialsDir:    filepath.Join(dir, "credentials"),
		Timeout:           5 * time.Second,
		Organization:      "Acme",
		OrganizationGroup: "acme",
		AdminGroup:        "acme-admins",
		Out:               out,
	}

	token := testAccessToken(t, "acme", "acme-admins")
	importCmd := &CredentialsImportCmd{Name: "dev", AccessToken: token}
	require.NoError(t, importCmd.Run(context.Background(), globals))
	out.Reset()

	return globals, backend, out, token
}

func TestGetCmd(t *testing.T) {
	globals, backend, out, token := setup(t)

	cmd := &GetCmd{Entity: "order", ID: "o-1"}
	require.NoError(t, cmd.Run(context.Background(), globals))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "Widget", got["name"])

	calls := backend.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, token, calls[0].Authorization)
	assert.Equal(t, map[string]any{"id": "o-1"}, calls[0].Variables)
}

func TestListCmd_Empty(t *testing.T) {
	globals, _, out, _ := setup(t)

	cmd := &ListCmd{Entity: "order", Vars: `{"filter":{"name":{"eq":"x"}}}`}
	require.NoError(t, cmd.Run(context.Background(), globals))
	assert.Equal(t, "No results.\n", out.String())
}

func TestListCmd_PublicDisabled(t *testing.T) {
	globals, backend, _, _ := setup(t)

	cmd := &ListCmd{Entity: "order", Public: true}
	err := cmd.Run(context.Background(), globals)
	require.Error(t, err)
	assert.Contains(t, err.Error(), report.DefaultMessage)
	assert.Empty(t, backend.recorded())
}

func TestListCmd_InvalidVars(t *testing.T) {
	globals, backend, _, _ := setup(t)

	cmd := &ListCmd{Entity: "order", Vars: `not json`}
	require.Error(t, cmd.Run(context.Background(), globals))
	assert.Empty(t, backend.recorded())
}

func TestCreateCmd_AddsScope(t *testing.T) {
	globals, backend, out, _ := setup(t)

	cmd := &CreateCmd{Entity: "order", Fields: `{"name":"Widget","organizationGroup":"other"}`}
	require.NoError(t, cmd.Run(context.Background(), globals))

	calls := backend.recorded()
	require.Len(t, calls, 1)
	in := calls[0].Variables["input"].(map[string]any)
	assert.Equal(t, "acme", in["organizationGroup"])
	assert.Equal(t, "acme-admins", in["adminGroup"])
	assert.NotEmpty(t, in["createdAt"])
	assert.Equal(t, in["createdAt"], in["updatedAt"])
	assert.NotContains(t, in, "id")

	assert.Contains(t, out.String(), `"new-id"`)
}

func TestCreateCmd_NoScope(t *testing.T) {
	globals, backend, _, _ := setup(t)

	cmd := &CreateCmd{Entity: "order", Fields: `{"name":"Widget"}`, NoScope: true}
	require.NoError(t, cmd.Run(context.Background(), globals))

	in := backend.recorded()[0].Variables["input"].(map[string]any)
	assert.NotContains(t, in, "organizationGroup")
	assert.NotContains(t, in, "adminGroup")
}

func TestCreateManyCmd(t *testing.T) {
	globals, backend, out, _ := setup(t)

	file := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"name":"a"},{"name":"b"},{"name":"c"}]`), 0600))

	cmd := &CreateManyCmd{Entity: "order", File: file}
	require.NoError(t, cmd.Run(context.Background(), globals))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0]["name"])
	assert.Equal(t, "b", got[1]["name"])
	assert.Equal(t, "c", got[2]["name"])
	assert.Len(t, backend.recorded(), 3)
}

func TestDeleteCmd_BackendError(t *testing.T) {
	globals, backend, _, _ := setup(t)

	cmd := &DeleteCmd{Entity: "order", ID: "o-1"}
	err := cmd.Run(context.Background(), globals)
	require.Error(t, err)
	assert.Contains(t, err.Error(), report.DefaultMessage)
	assert.Contains(t, err.Error(), "Unauthorized")

	calls := backend.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"input": map[string]any{"id": "o-1"}}, calls[0].Variables)
}

func TestGetCmd_MissingEndpoint(t *testing.T) {
	globals, _, _, _ := setup(t)
	globals.Endpoint = ""

	cmd := &GetCmd{Entity: "order", ID: "o-1"}
	require.Error(t, cmd.Run(context.Background(), globals))
}

func TestGroupsCheckCmd(t *testing.T) {
	globals, _, out, _ := setup(t)

	cmd := &GroupsCheckCmd{Group: "admins"}
	require.NoError(t, cmd.Run(context.Background(), globals))

	assert.Contains(t, out.String(), "Groups:        acme, acme-admins")
	assert.Contains(t, out.String(), "Organization:  true")
	assert.Contains(t, out.String(), "Admin:         true")
	assert.Contains(t, out.String(), "admins: true")
}

func TestCatalogCheckCmd(t *testing.T) {
	globals, _, out, _ := setup(t)

	cmd := &CatalogCheckCmd{
		Entities: []string{"order"},
		Verbs:    []string{"get", "list", "search", "create", "update", "delete"},
	}
	require.NoError(t, cmd.Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Order: ok")

	missing := &CatalogCheckCmd{Entities: []string{"invoice"}, Verbs: []string{"get"}}
	require.Error(t, missing.Run(context.Background(), globals))

	badVerb := &CatalogCheckCmd{Entities: []string{"order"}, Verbs: []string{"upsert"}}
	require.Error(t, badVerb.Run(context.Background(), globals))
}

func TestCredentialsCommands(t *testing.T) {
	globals, _, out, _ := setup(t)
	ctx := context.Background()

	t.Run("import rejects duplicate", func(t *testing.T) {
		cmd := &CredentialsImportCmd{Name: "dev", AccessToken: testAccessToken(t)}
		err := cmd.Run(ctx, globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--replace")
	})

	t.Run("import rejects garbage token", func(t *testing.T) {
		cmd := &CredentialsImportCmd{Name: "broken", AccessToken: "not-a-jwt"}
		require.Error(t, cmd.Run(ctx, globals))
	})

	t.Run("import with domain is refreshable", func(t *testing.T) {
		out.Reset()
		cmd := &CredentialsImportCmd{
			Name:         "prod",
			AccessToken:  testAccessToken(t),
			RefreshToken: "refresh",
			ClientID:     "client",
			Domain:       "https://example.auth.ap-northeast-1.amazoncognito.com/",
		}
		require.NoError(t, cmd.Run(ctx, globals))
		assert.Contains(t, out.String(), "Refreshable:      true")

		store, err := credentials.NewStore(globals.CredentialsDir)
		require.NoError(t, err)
		profile, err := store.Get("prod")
		require.NoError(t, err)
		assert.Equal(t, "https://example.auth.ap-northeast-1.amazoncognito.com/oauth2/token", profile.TokenURL)
	})

	t.Run("list marks default", func(t *testing.T) {
		out.Reset()
		require.NoError(t, (&CredentialsListCmd{}).Run(ctx, globals))
		assert.Contains(t, out.String(), "NAME")
		assert.Contains(t, out.String(), "dev")
		assert.Contains(t, out.String(), "prod")
		assert.Contains(t, out.String(), "*")
	})

	t.Run("set default", func(t *testing.T) {
		require.NoError(t, (&CredentialsSetDefaultCmd{Name: "prod"}).Run(ctx, globals))
		require.Error(t, (&CredentialsSetDefaultCmd{Name: "missing"}).Run(ctx, globals))
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, (&CredentialsRemoveCmd{Name: "prod", Force: true}).Run(ctx, globals))
		require.Error(t, (&CredentialsRemoveCmd{Name: "prod", Force: true}).Run(ctx, globals))
	})
}

func TestCredentialsListCmd_Empty(t *testing.T) {
	out := &bytes.Buffer{}
	globals := &Globals{CredentialsDir: t.TempDir(), Out: out}

	require.NoError(t, (&CredentialsListCmd{}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "No profiles found.")
}

func TestAdminSignOutCmd(t *testing.T) {
	globals, _, out, token := setup(t)

	var gotAuth, gotPath string
	adminSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"signed out"}`))
	}))
	defer adminSrv.Close()

	globals.AdminURL = adminSrv.URL
	require.NoError(t, (&AdminSignOutCmd{Username: "bob"}).Run(context.Background(), globals))

	assert.Equal(t, token, gotAuth)
	assert.Equal(t, "/signUserOut", gotPath)
	assert.Contains(t, out.String(), "signed out")
}

func TestAdminCmd_RequiresURL(t *testing.T) {
	globals, _, _, _ := setup(t)

	err := (&AdminAddToGroupCmd{Username: "bob", Groupname: "acme"}).Run(context.Background(), globals)
	require.Error(t, err)
}
