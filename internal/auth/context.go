package auth

import (
	"context"
	"strings"
)

type ctxKey string

const (
	accountIDKey ctxKey = "auth_account_id"
	roleKey      ctxKey = "auth_role"
)

// ContextWithAccount stores the authenticated account identity in the context.
func ContextWithAccount(ctx context.Context, accountID string, role Role) context.Context {
	ctx = context.WithValue(ctx, accountIDKey, strings.TrimSpace(accountID))
	return context.WithValue(ctx, roleKey, role)
}

// AccountIDFromContext extracts the authenticated account id from context.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(accountIDKey).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// RoleFromContext returns the role stored in context.
func RoleFromContext(ctx context.Context) (Role, bool) {
	v, ok := ctx.Value(roleKey).(Role)
	if !ok || !ValidRole(v) {
		return "", false
	}
	return v, true
}

// HasRole checks whether the context carries one of the given roles.
func HasRole(ctx context.Context, roles ...Role) bool {
	current, ok := RoleFromContext(ctx)
	if !ok {
		return false
	}
	for _, r := range roles {
		if current == r {
			return true
		}
	}
	return false
}
