package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/orgdata/internal/catalog"
	"github.com/wolfeidau/orgdata/internal/naming"
)

// CatalogCmd inspects the operation catalog.
type CatalogCmd struct {
	Check CatalogCheckCmd `cmd:"" help:"Verify the catalog has every operation the given entities need"`
}

type CatalogCheckCmd struct {
	Entities []string `arg:"" optional:"" help:"Entity names to check"`
	Verbs    []string `help:"Verbs each entity must support" default:"get,list,search,create,update,delete"`
}

func (c *CatalogCheckCmd) Run(ctx context.Context, globals *Globals) error {
	cat, err := catalog.Load(globals.Catalog)
	if err != nil {
		return err
	}

	verbs := make([]naming.Verb, 0, len(c.Verbs))
	for _, s := range c.Verbs {
		verb, err := naming.ParseVerb(s)
		if err != nil {
			return err
		}
		verbs = append(verbs, verb)
	}

	w := globals.out()
	fmt.Fprintf(w, "%d operations in %s\n", cat.Len(), globals.Catalog)

	if len(c.Entities) == 0 {
		for _, name := range cat.Names() {
			fmt.Fprintf(w, "  %s\n", name)
		}
		return nil
	}

	for _, entity := range c.Entities {
		if err := cat.Require(entity, verbs...); err != nil {
			return fmt.Errorf("entity %s: %w", entity, err)
		}
		fmt.Fprintf(w, "%s: ok\n", naming.PascalCase(entity))
	}

	return nil
}
