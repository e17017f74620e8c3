package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRecordID is the standardized structured logging key for record identifiers.
	FieldRecordID = "record_id"
	// FieldContributionID is the standardized structured logging key for contribution identifiers.
	FieldContributionID = "contribution_id"
	// FieldFieldType is the standardized structured logging key for field type names.
	FieldFieldType = "field"
	// FieldUserID is the standardized structured logging key for acting user identifiers.
	FieldUserID = "user_id"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

type contextKey string

const (
	recordIDKey       contextKey = "record_id"
	contributionIDKey contextKey = "contribution_id"
	fieldTypeKey      contextKey = "field"
	requestIDKey      contextKey = "request_id"
)

// WithRecordID annotates context with the record identifier.
func WithRecordID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, recordIDKey, id)
}

// RecordIDFromContext extracts the record identifier if present.
func RecordIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(recordIDKey).(int64)
	return id, ok
}

// WithContributionID annotates context with the contribution identifier.
func WithContributionID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, contributionIDKey, id)
}

// ContributionIDFromContext extracts the contribution identifier if present.
func ContributionIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contributionIDKey).(int64)
	return id, ok
}

// WithFieldType annotates context with the field type name.
func WithFieldType(ctx context.Context, field string) context.Context {
	if field == "" {
		return ctx
	}
	return context.WithValue(ctx, fieldTypeKey, field)
}

// FieldTypeFromContext returns the field type name if present.
func FieldTypeFromContext(ctx context.Context) (string, bool) {
	field, ok := ctx.Value(fieldTypeKey).(string)
	return field, ok && field != ""
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := RecordIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldRecordID, id))
	}
	if id, ok := ContributionIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldContributionID, id))
	}
	if field, ok := FieldTypeFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldFieldType, field))
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, attr := range fields {
		args = append(args, attr)
	}
	return logger.With(args...)
}
