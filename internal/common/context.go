package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID      contextKey = "run_id"
	ContextKeyPropertyID contextKey = "property_id"
)

// WithRunID adds a pipeline run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithPropertyID adds a property ID to the context
func WithPropertyID(ctx context.Context, propertyID string) context.Context {
	return context.WithValue(ctx, ContextKeyPropertyID, propertyID)
}

// PropertyIDFromContext extracts the property ID from context
func PropertyIDFromContext(ctx context.Context) string {
	if propertyID, ok := ctx.Value(ContextKeyPropertyID).(string); ok {
		return propertyID
	}
	return ""
}
