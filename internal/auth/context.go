package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxTenantID
	ctxRole
)

var (
	errNoUser   = errors.New("user_id not in context")
	errNoTenant = errors.New("tenant_id not in context")
	errNoRole   = errors.New("role not in context")
)

func WithIdentity(ctx context.Context, userID, tenantID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxTenantID, tenantID)
	return context.WithValue(ctx, ctxRole, role)
}

func UserID(ctx context.Context) (string, error)   { return lookup(ctx, ctxUserID, errNoUser) }
func TenantID(ctx context.Context) (string, error) { return lookup(ctx, ctxTenantID, errNoTenant) }
func Role(ctx context.Context) (string, error)     { return lookup(ctx, ctxRole, errNoRole) }

func lookup(ctx context.Context, key ctxKey, missing error) (string, error) {
	if s, ok := ctx.Value(key).(string); ok && s != "" {
		return s, nil
	}
	return "", missing
}
