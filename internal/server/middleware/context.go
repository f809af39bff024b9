package middleware

import (
	"context"
	"fmt"

	"github.com/gosuda/hrdesk/internal/auth"
	"github.com/gosuda/hrdesk/internal/domain"
)

type contextKey string

const contextKeyPrincipal contextKey = "principal"

// Principal is the authenticated caller.
type Principal struct {
	EmployeeID string
	Role       string
}

// IsHR reports whether the caller has HR privileges.
func (p Principal) IsHR() bool {
	return p.Role == auth.RoleHR
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	v, ok := ctx.Value(contextKeyPrincipal).(Principal)
	return v, ok
}

// AuthorizeEmployee allows HR and the employee identified by employeeID.
// Without a principal, authentication is disabled and access is allowed.
func AuthorizeEmployee(ctx context.Context, employeeID string) error {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.IsHR() {
		return nil
	}
	if domain.EmployeeID(p.EmployeeID) != domain.EmployeeID(employeeID) {
		return fmt.Errorf("middleware.AuthorizeEmployee(%q): %w", employeeID, domain.ErrForbidden)
	}
	return nil
}

// AuthorizeHR allows only HR callers, or everyone when authentication is disabled.
func AuthorizeHR(ctx context.Context) error {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.IsHR() {
		return nil
	}
	return fmt.Errorf("middleware.AuthorizeHR: %w", domain.ErrForbidden)
}
