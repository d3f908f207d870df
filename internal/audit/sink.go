package audit

import (
	"context"

	"github.com/deltacron/authgate/internal/observability"
	"github.com/deltacron/authgate/internal/provider"
)

// Sink persists audit events.
type Sink interface {
	Name() string
	Write(ctx context.Context, event *Event) error
}

// ProviderSink inserts events into a provider-hosted table using the
// service role client.
type ProviderSink struct {
	client provider.Client
	table  string
}

// NewProviderSink creates a sink writing to the given provider table.
func NewProviderSink(client provider.Client, table string) *ProviderSink {
	return &ProviderSink{client: client, table: table}
}

// Name implements Sink.
func (s *ProviderSink) Name() string {
	return "provider:" + s.table
}

// Write implements Sink.
func (s *ProviderSink) Write(ctx context.Context, event *Event) error {
	return s.client.AdminInsertRow(ctx, s.table, event.Row())
}

// LogSink writes events through the structured logger.
type LogSink struct {
	logger observability.Logger
}

// NewLogSink creates a sink writing to the logger.
func NewLogSink(logger observability.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Name implements Sink.
func (s *LogSink) Name() string {
	return "log"
}

// Write implements Sink.
func (s *LogSink) Write(_ context.Context, event *Event) error {
	fields := []observability.Field{
		observability.String("action", string(event.Action)),
		observability.String("outcome", string(event.Outcome)),
		observability.Time("timestamp", event.Timestamp),
	}
	if event.UserID != "" {
		fields = append(fields, observability.String("user_id", event.UserID))
	}
	if event.Resource != "" {
		fields = append(fields, observability.String("resource", event.Resource))
	}
	if event.ResourceID != "" {
		fields = append(fields, observability.String("resource_id", event.ResourceID))
	}
	if event.IPAddress != "" {
		fields = append(fields, observability.String("ip_address", event.IPAddress))
	}
	if event.RequestID != "" {
		fields = append(fields, observability.String("request_id", event.RequestID))
	}
	if event.Error != "" {
		fields = append(fields, observability.String("error", event.Error))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, observability.Any("metadata", event.Metadata))
	}

	s.logger.Info("audit event", fields...)
	return nil
}

// FallbackSink writes to primary and falls back to secondary when the
// primary fails. The primary's error is still reported so the recorder can
// count it.
type FallbackSink struct {
	primary   Sink
	secondary Sink
}

// NewFallbackSink creates a sink with a fallback.
func NewFallbackSink(primary, secondary Sink) *FallbackSink {
	return &FallbackSink{primary: primary, secondary: secondary}
}

// Name implements Sink.
func (s *FallbackSink) Name() string {
	return s.primary.Name() + "+" + s.secondary.Name()
}

// Write implements Sink.
func (s *FallbackSink) Write(ctx context.Context, event *Event) error {
	err := s.primary.Write(ctx, event)
	if err == nil {
		return nil
	}
	_ = s.secondary.Write(ctx, event)
	return err
}

// NoopSink discards events.
type NoopSink struct{}

// Name implements Sink.
func (NoopSink) Name() string { return "noop" }

// Write implements Sink.
func (NoopSink) Write(context.Context, *Event) error { return nil }
