// Package report turns failed calls into one user-facing message plus a
// diagnostic log entry.
package report

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/orgdata/internal/telemetry"
)

// DefaultMessage is shown to the user for every communication failure.
const DefaultMessage = "通信エラーが発生しました"

// MessageSink receives the user-facing message.
type MessageSink interface {
	SetError(message string)
}

// Reporter publishes failures. The zero value logs only.
type Reporter struct {
	sink    MessageSink
	message string
}

// New creates a reporter publishing DefaultMessage to sink. sink may be nil.
func New(sink MessageSink) *Reporter {
	return &Reporter{sink: sink, message: DefaultMessage}
}

// WithMessage returns a copy of the reporter publishing message instead.
func (r *Reporter) WithMessage(message string) *Reporter {
	clone := *r
	if message != "" {
		clone.message = message
	}
	return &clone
}

// Report logs err against operation and publishes the user-facing message.
// It never fails.
func (r *Reporter) Report(ctx context.Context, operation string, err error) {
	if r == nil || err == nil {
		return
	}

	log.Error().
		Err(err).
		Str("operation", operation).
		Msg("backend call failed")

	telemetry.GetMetrics().ReportsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("operation", operation)))

	if r.sink == nil {
		return
	}

	message := r.message
	if message == "" {
		message = DefaultMessage
	}
	r.sink.SetError(message)
}
