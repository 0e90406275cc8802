// Package context carries request scoped values: the request ID, the acting
// reviewer, and the resolution run in flight.
package context

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request-id"
	actorKey     contextKey = "actor"
	runIDKey     contextKey = "run-id"
)

func get(ctx context.Context, key contextKey) string {
	value, ok := ctx.Value(key).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return get(ctx, requestIDKey)
}

// SetActor records who is acting: a reviewer adjudicating the queue or a
// service account driving an automated run. Queue decisions are stamped
// with it.
func SetActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func GetActor(ctx context.Context) string {
	return get(ctx, actorKey)
}

// SetRunID tags the context with the resolution run being processed.
func SetRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

func GetRunID(ctx context.Context) string {
	return get(ctx, runIDKey)
}
