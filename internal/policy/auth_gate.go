package policy

import (
	"context"

	"github.com/diewo77/go-inventario/auth"
	"github.com/diewo77/go-inventario/gate"
)

// Resource names registered on the gate.
const (
	ResourceClient   = "client"
	ResourceSupplier = "supplier"
	ResourceProduct  = "product"
	ResourceSale     = "sale"
)

// DefaultPermissions is what every signed-in identity may do. Records stay
// private to their owner on top of this.
var DefaultPermissions = map[string][]gate.Permission{
	ResourceClient:   {"client:list", "client:create", "client:delete"},
	ResourceSupplier: {"supplier:list", "supplier:create", "supplier:delete"},
	ResourceProduct:  {"product:list", "product:view", "product:create", "product:delete"},
	ResourceSale:     {"sale:*"},
}

// AuthGate resolves the subject from the request context before asking the gate.
type AuthGate struct {
	Gate *gate.Gate[uint]
}

// NewAuthGate registers a ResourcePolicy per entry of perms.
func NewAuthGate(perms map[string][]gate.Permission) *AuthGate {
	g := gate.New[uint]()
	for resource, p := range perms {
		g.Register(resource, NewResourcePolicy(resource, p...))
	}
	return &AuthGate{Gate: g}
}

// Authorize checks the identity stored in ctx.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resource string, record any) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.Gate.Authorize(ctx, userID, action, resource, record)
}

// Can is Authorize reduced to a bool; templates use it to hide controls.
func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resource string) bool {
	return ag.Authorize(ctx, action, resource, nil) == nil
}
