// Package catalog holds the GraphQL operation documents the client may send.
//
// The catalog is loaded once at start up from a YAML file. Lookups of names
// that are not in the catalog fail with ErrUnknownOperation, and Require lets
// callers check every (entity, verb) pair they depend on before serving.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wolfeidau/orgdata/internal/naming"
)

var (
	// ErrUnknownOperation is returned when an operation name is not in the catalog.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInvalidCatalog is returned when the catalog file is malformed.
	ErrInvalidCatalog = errors.New("invalid catalog")

	// ErrKindMismatch is returned when a verb is bound to the wrong operation kind.
	ErrKindMismatch = errors.New("operation kind mismatch")
)

// Kind is the GraphQL operation type.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Definition is a single named GraphQL document.
type Definition struct {
	Name     string `yaml:"name"`
	Kind     Kind   `yaml:"kind"`
	Document string `yaml:"document"`
}

type file struct {
	Operations []Definition `yaml:"operations"`
}

// Catalog is an immutable set of operation definitions keyed by name.
type Catalog struct {
	defs map[string]Definition
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("operations", len(c.defs)).Msg("loaded operation catalog")

	return c, nil
}

// Parse decodes a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return New(f.Operations...)
}

// New builds a catalog from definitions, rejecting duplicates and blanks.
func New(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}

	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: operation %d has no name", ErrInvalidCatalog, i)
		}
		if strings.TrimSpace(def.Document) == "" {
			return nil, fmt.Errorf("%w: operation %q has no document", ErrInvalidCatalog, def.Name)
		}
		if def.Kind != KindQuery && def.Kind != KindMutation {
			return nil, fmt.Errorf("%w: operation %q has kind %q", ErrInvalidCatalog, def.Name, def.Kind)
		}
		if _, exists := c.defs[def.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate operation %q", ErrInvalidCatalog, def.Name)
		}
		c.defs[def.Name] = def
	}

	return c, nil
}

// Lookup returns the definition for name.
func (c *Catalog) Lookup(name string) (Definition, error) {
	def, ok := c.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	return def, nil
}

// Require checks that every verb for entity resolves to a definition of the
// matching kind. All problems are reported together.
func (c *Catalog) Require(entity string, verbs ...naming.Verb) error {
	var errs []error

	for _, verb := range verbs {
		op := naming.Resolve(entity, verb)

		def, err := c.Lookup(op.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		want := KindQuery
		if verb.Mutation() {
			want = KindMutation
		}
		if def.Kind != want {
			errs = append(errs, fmt.Errorf("%w: %s is a %s, %s needs a %s", ErrKindMismatch, op.Name, def.Kind, verb, want))
		}
	}

	return errors.Join(errs...)
}

// Names returns the sorted operation names.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}
