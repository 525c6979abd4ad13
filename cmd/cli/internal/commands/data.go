package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/wolfeidau/orgdata/internal/client"
	"github.com/wolfeidau/orgdata/internal/models"
)

type GetCmd struct {
	Entity string `arg:"" help:"Entity name (e.g. order)"`
	ID     string `arg:"" help:"Record id"`
}

func (c *GetCmd) Run(ctx context.Context, globals *Globals) error {
	dispatcher, state, err := globals.dispatcher(ctx)
	if err != nil {
		return err
	}

	return printResult(globals.out(), state, dispatcher.FetchOne(ctx, c.Entity, c.ID))
}

type ListCmd struct {
	Entity string `arg:"" help:"Entity name"`
	Vars   string `help:"Query variables as a JSON object, e.g. '{\"filter\":{...},\"limit\":20}'" default:""`
	Public bool   `help:"List through the IAM channel (requires --enable-public-list)" default:"false"`
}

func (c *ListCmd) Run(ctx context.Context, globals *Globals) error {
	vars, err := parseObject(c.Vars)
	if err != nil {
		return err
	}

	dispatcher, state, err := globals.dispatcher(ctx)
	if err != nil {
		return err
	}

	if c.Public {
		return printResult(globals.out(), state, dispatcher.FetchListPublic(ctx, c.Entity, vars))
	}
	return printResult(globals.out(), state, dispatcher.FetchList(ctx, c.Entity, vars))
}

type SearchCmd struct {
	Entity string `arg:"" help:"Entity name"`
	Vars   string `help:"Query variables as a JSON object" default:""`
}

func (c *SearchCmd) Run(ctx context.Context, globals *Globals) error {
	vars, err := parseObject(c.Vars)
	if err != nil {
		return err
	}

	dispatcher, state, err := globals.dispatcher(ctx)
	if err != nil {
		return err
	}

	return printResult(globals.out(), state, dispatcher.FetchSearch(ctx, c.Entity, vars))
}

type QueryCmd struct {
	Name        string `arg:"" help:"Catalog query name"`
	Vars        string `help:"Query variables as a JSON object" default:""`
	ResponseKey string `help:"Response field to read items from, when it differs from the query name" default:""`
}

func (c *QueryCmd) Run(ctx context.Context, globals *Globals) error {
	vars, err := parseObject(c.Vars)
	if err != nil {
		return err
	}

	dispatcher, state, err := globals.dispatcher(ctx)
	if err != nil {
		return err
	}

	return printResult(globals.out(), state, dispatcher.FetchByQuery(ctx, c.Name, vars, c.ResponseKey))
}

type CreateCmd struct {
	Entity  string `arg:"" help:"Entity name"`
	Fields  string `arg:"" help:"Record fields as a JSON object. Include id to update."`
	NoScope bool   `help:"Do not add organization and admin group fields" default:"false"`
}

func (c *CreateCmd) Run(ctx context.Context, globals *Globals) error {
	fields, err := parseObject(c.Fields)
	if err != nil {
		return err
	}

	dispatcher, state, err := globals.dispatcher(ctx)
	if err != nil {
		return err
	}

	return printResult(globals.out(), state, dispatcher.Create(ctx, c.Entity, fields, writeOptions(c.NoScope)...))
}

type CreateManyCmd struct {
	Entity  string `arg:"" help:"Entity name"`
	File    string `arg:"" type:"existingfile" help:"JSON file holding an array of records"`
	NoScope bool   `help:"Do not add organization and admin group fields" default:"false"`
}

func (c *CreateManyCmd) Run(ctx context.Context, globals *Globals) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read records: %w", err)
	}

	var items []models.Record
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse records: %w", err)
	}

	dispatcher, state, err := globals.dispatcher(ctx)
	if err != nil {
		return err
	}

	return printResult(globals.out(), state, dispatcher.CreateMany(ctx, c.Entity, items, writeOptions(c.NoScope)...))
}

type DeleteCmd struct {
	Entity string `arg:"" help:"Entity name"`
	ID     string `arg:"" help:"Record id"`
}

func (c *DeleteCmd) Run(ctx context.Context, globals *Globals) error {
	dispatcher, state, err := globals.dispatcher(ctx)
	if err != nil {
		return err
	}

	return printResult(globals.out(), state, dispatcher.Delete(ctx, c.Entity, models.Record{models.FieldID: c.ID}))
}

func writeOptions(noScope bool) []client.WriteOption {
	if noScope {
		return []client.WriteOption{client.WithoutScope()}
	}
	return nil
}
