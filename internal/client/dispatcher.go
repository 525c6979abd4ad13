package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/orgdata/internal/backend"
	"github.com/wolfeidau/orgdata/internal/catalog"
	"github.com/wolfeidau/orgdata/internal/input"
	"github.com/wolfeidau/orgdata/internal/models"
	"github.com/wolfeidau/orgdata/internal/naming"
	"github.com/wolfeidau/orgdata/internal/report"
	"github.com/wolfeidau/orgdata/internal/telemetry"
)

var (
	// ErrPublicListDisabled is returned by FetchListPublic unless enabled in Config.
	ErrPublicListDisabled = errors.New("public list channel is disabled")

	// ErrMissingResponseField is returned when the response has no field for the operation.
	ErrMissingResponseField = errors.New("response field missing")
)

// Client dispatches entity operations to the backend. Every method reports a
// failure once through the Reporter and returns it as a Failed result; a
// successful call that returns no data is an Empty result.
type Client struct {
	cfg       Config
	catalog   *catalog.Catalog
	transport backend.Transport
	builder   *input.Builder
	reporter  *report.Reporter
}

// Option configures a Client.
type Option func(*Client)

// WithBuilder sets the input builder used for writes.
func WithBuilder(b *input.Builder) Option {
	return func(c *Client) {
		c.builder = b
	}
}

// WithReporter sets the failure reporter.
func WithReporter(r *report.Reporter) Option {
	return func(c *Client) {
		c.reporter = r
	}
}

// New creates a dispatcher.
func New(cfg Config, cat *catalog.Catalog, transport backend.Transport, opts ...Option) *Client {
	c := &Client{
		cfg:       cfg,
		catalog:   cat,
		transport: transport,
		builder:   input.NewBuilder(nil),
		reporter:  report.New(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WriteOption adjusts a single write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	suppressScope bool
}

// WithoutScope leaves the tenant scoping fields out of the input.
func WithoutScope() WriteOption {
	return func(o *writeOptions) {
		o.suppressScope = true
	}
}

func newWriteOptions(opts []WriteOption) writeOptions {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FetchOne reads a single record by id.
func (c *Client) FetchOne(ctx context.Context, entity, id string) models.Result[models.Record] {
	op := naming.Resolve(entity, naming.VerbGet)

	raw, err := c.call(ctx, op, map[string]any{"id": id}, backend.AuthModeUserPool)
	if err != nil {
		return fail[models.Record](ctx, c.reporter, op.Name, err)
	}
	return recordResult(ctx, c.reporter, op.Name, raw)
}

// FetchList lists records matching filter.
func (c *Client) FetchList(ctx context.Context, entity string, filter map[string]any) models.Result[[]models.Record] {
	return c.fetchItems(ctx, naming.Resolve(entity, naming.VerbList), filter, backend.AuthModeUserPool)
}

// FetchListPublic lists records using IAM credentials instead of the user's
// token. The IAM resolvers were never deployed, so this stays disabled unless
// Config.EnablePublicList is set.
func (c *Client) FetchListPublic(ctx context.Context, entity string, filter map[string]any) models.Result[[]models.Record] {
	op := naming.Resolve(entity, naming.VerbList)
	if !c.cfg.EnablePublicList {
		return fail[[]models.Record](ctx, c.reporter, op.Name, ErrPublicListDisabled)
	}
	return c.fetchItems(ctx, op, filter, backend.AuthModeIAM)
}

// FetchByQuery runs a named catalog query, reading items from responseKey
// when the field name differs from the query name.
func (c *Client) FetchByQuery(ctx context.Context, name string, filter map[string]any, responseKey string) models.Result[[]models.Record] {
	return c.fetchItems(ctx, naming.Named(name).WithResponseKey(responseKey), filter, backend.AuthModeUserPool)
}

// FetchSearch runs the entity's search query. Development backends have no
// search resolvers, so there it falls back to FetchList.
func (c *Client) FetchSearch(ctx context.Context, entity string, filter map[string]any) models.Result[[]models.Record] {
	if c.cfg.LocalEndpoint() {
		log.Debug().Str("entity", entity).Msg("local endpoint, searching via list")
		return c.FetchList(ctx, entity, filter)
	}
	return c.fetchItems(ctx, naming.Resolve(entity, naming.VerbSearch), filter, backend.AuthModeUserPool)
}

// Create writes one record. Records with an id are updated, others created.
func (c *Client) Create(ctx context.Context, entity string, fields models.Record, opts ...WriteOption) models.Result[models.Record] {
	o := newWriteOptions(opts)

	name, raw, err := c.write(ctx, entity, fields, o)
	if err != nil {
		return fail[models.Record](ctx, c.reporter, name, err)
	}
	return recordResult(ctx, c.reporter, name, raw)
}

// CreateMany writes all records concurrently and waits for every request to
// finish. Results are in submission order. If any write fails the whole call
// fails with a single report and no partial results; requests already in
// flight are not cancelled.
func (c *Client) CreateMany(ctx context.Context, entity string, items []models.Record, opts ...WriteOption) models.Result[[]models.Record] {
	o := newWriteOptions(opts)
	label := naming.Resolve(entity, naming.VerbCreate).Name

	telemetry.GetMetrics().BatchSize.Record(ctx, int64(len(items)),
		metric.WithAttributes(attribute.String("entity", entity)))

	records := make([]models.Record, len(items))

	var g errgroup.Group
	for i, fields := range items {
		g.Go(func() error {
			name, raw, err := c.write(ctx, entity, fields, o)
			if err != nil {
				return fmt.Errorf("item %d (%s): %w", i, name, err)
			}

			rec, _, err := decodeRecord(raw)
			if err != nil {
				return fmt.Errorf("item %d (%s): %w", i, name, err)
			}
			records[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fail[[]models.Record](ctx, c.reporter, label, err)
	}

	log.Debug().Str("entity", entity).Int("count", len(records)).Msg("batch write complete")

	if len(records) == 0 {
		return models.Empty(records)
	}
	return models.Found(records)
}

// Delete removes the record identified by key, typically {"id": ...}.
func (c *Client) Delete(ctx context.Context, entity string, key models.Record) models.Result[models.Record] {
	op := naming.Resolve(entity, naming.VerbDelete)

	raw, err := c.call(ctx, op, map[string]any{"input": key}, backend.AuthModeUserPool)
	if err != nil {
		return fail[models.Record](ctx, c.reporter, op.Name, err)
	}
	return recordResult(ctx, c.reporter, op.Name, raw)
}

func (c *Client) fetchItems(ctx context.Context, op naming.Operation, filter map[string]any, mode backend.AuthMode) models.Result[[]models.Record] {
	raw, err := c.call(ctx, op, filter, mode)
	if err != nil {
		return fail[[]models.Record](ctx, c.reporter, op.Name, err)
	}

	items, err := decodeItems(raw)
	if err != nil {
		return fail[[]models.Record](ctx, c.reporter, op.Name, err)
	}

	if len(items) == 0 {
		return models.Empty(items)
	}
	return models.Found(items)
}

// write builds the input for fields and sends the create or update mutation.
// It returns the operation name so callers can label failures.
func (c *Client) write(ctx context.Context, entity string, fields models.Record, o writeOptions) (string, json.RawMessage, error) {
	in, verb, err := c.builder.Build(ctx, fields, o.suppressScope)
	op := naming.Resolve(entity, naming.Action(fields))
	if err != nil {
		return op.Name, nil, err
	}
	op = naming.Resolve(entity, verb)

	raw, err := c.call(ctx, op, map[string]any{"input": map[string]any(in)}, backend.AuthModeUserPool)
	return op.Name, raw, err
}

// call looks op up in the catalog, sends it and returns the response field.
func (c *Client) call(ctx context.Context, op naming.Operation, vars map[string]any, mode backend.AuthMode) (json.RawMessage, error) {
	def, err := c.catalog.Lookup(op.Name)
	if err != nil {
		return nil, err
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	requestID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request id: %w", err)
	}
	ctx, span := telemetry.Tracer().Start(ctx, op.Name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("graphql.operation.name", op.Name),
			attribute.String("request_id", requestID.String()),
		),
	)
	defer span.End()

	started := time.Now()

	data, err := c.transport.Do(ctx, backend.Request{
		OperationName: op.Name,
		Document:      def.Document,
		Variables:     vars,
		AuthMode:      mode,
		RequestID:     requestID.String(),
	})

	elapsed := time.Since(started)
	attrs := metric.WithAttributes(
		attribute.String("operation", op.Name),
		attribute.String("auth_mode", string(mode)),
	)
	m := telemetry.GetMetrics()
	m.DispatchTotal.Add(ctx, 1, attrs)
	m.DispatchDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)

	if err != nil {
		m.DispatchErrorsTotal.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug().Err(err).
			Str("operation", op.Name).
			Str("request_id", requestID.String()).
			Dur("duration", elapsed).
			Msg("backend call failed")
		return nil, err
	}

	log.Debug().
		Str("operation", op.Name).
		Str("request_id", requestID.String()).
		Dur("duration", elapsed).
		Msg("backend call")

	raw, ok := data[op.ResponseKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingResponseField, op.ResponseKey)
	}
	return raw, nil
}

func fail[T any](ctx context.Context, r *report.Reporter, operation string, err error) models.Result[T] {
	r.Report(ctx, operation, err)
	return models.Failed[T](err)
}

func recordResult(ctx context.Context, r *report.Reporter, operation string, raw json.RawMessage) models.Result[models.Record] {
	rec, found, err := decodeRecord(raw)
	if err != nil {
		return fail[models.Record](ctx, r, operation, err)
	}
	if !found {
		return models.Empty[models.Record](nil)
	}
	return models.Found(rec)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decode(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeRecord(raw json.RawMessage) (models.Record, bool, error) {
	if isNull(raw) {
		return nil, false, nil
	}

	var rec models.Record
	if err := decode(raw, &rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func decodeItems(raw json.RawMessage) ([]models.Record, error) {
	items := []models.Record{}
	if isNull(raw) {
		return items, nil
	}

	var page struct {
		Items []models.Record `json:"items"`
	}
	if err := decode(raw, &page); err != nil {
		return nil, err
	}
	if page.Items != nil {
		items = page.Items
	}
	return items, nil
}
