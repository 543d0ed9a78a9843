package frontend

import "context"

type ctxKey int

const (
	ctxKeyTokenID ctxKey = iota
	ctxKeyProjectID
	ctxKeyRequestID
)

func withTokenID(ctx context.Context, tokenID string) context.Context {
	return context.WithValue(ctx, ctxKeyTokenID, tokenID)
}

func tokenIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyTokenID).(string)
	return v
}

func withProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, ctxKeyProjectID, projectID)
}

func projectIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyProjectID).(string)
	return v
}

func withRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

func requestIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}
