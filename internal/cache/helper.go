package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// startSpan opens a "db.cache" span for one cache operation when the context
// carries a sentry hub, and returns nil otherwise.
func startSpan(ctx context.Context, backend, operation, key string) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}

	name := "cache." + backend + "." + operation
	span := sentry.StartSpan(ctx, name)
	span.Description = name
	span.Op = "db.cache"
	span.SetData("cache", backend)
	span.SetData("key", key)
	return span
}

// finishLookup records whether a lookup hit and closes the span
func finishLookup(span *sentry.Span, hit bool) {
	if span == nil {
		return
	}
	span.SetData("hit", hit)
	span.Status = sentry.SpanStatusOK
	span.Finish()
}
