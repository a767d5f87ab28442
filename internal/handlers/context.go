package handlers

import (
	"context"

	"github.com/taskboard/apiserver/types"
)

type contextKey string

const (
	contextPrincipalKey  contextKey = "principal"
	contextMembershipKey contextKey = "membership"
)

// Principal identifies the authenticated caller.
type Principal struct {
	ID   int
	Role string
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == types.RoleAdmin
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(contextPrincipalKey).(Principal)
	return principal, ok && principal.ID > 0
}

func withPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, contextPrincipalKey, principal)
}

// MembershipFromContext returns the membership attached by the project
// member guard, when the request passed through it.
func MembershipFromContext(ctx context.Context) (types.ProjectMember, bool) {
	member, ok := ctx.Value(contextMembershipKey).(types.ProjectMember)
	return member, ok
}

func withMembership(ctx context.Context, member types.ProjectMember) context.Context {
	return context.WithValue(ctx, contextMembershipKey, member)
}
