// Package service holds the catalog, review and order use cases.
package service

import (
	"context"
	"log/slog"
)

// logPublishFailure records an event that could not be published. Event
// delivery never fails the operation that produced it.
func logPublishFailure(ctx context.Context, logger *slog.Logger, topic, id string, err error) {
	logger.ErrorContext(ctx, "failed to publish event",
		slog.String("topic", topic),
		slog.String("aggregate_id", id),
		slog.String("error", err.Error()),
	)
}
