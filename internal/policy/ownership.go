package policy

import (
	"context"

	"github.com/diewo77/go-inventario/gate"
)

// Ownable is implemented by every record scoped to an identity.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy allows an action on a record only to its owner.
// Collection level checks (nil record) pass.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

func (p *OwnershipPolicy) Can(_ context.Context, userID uint, _ gate.Action, record any) bool {
	if record == nil {
		return true
	}
	// records without an owner are never exposed
	ownable, ok := record.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == userID
}

// ResourcePolicy restricts a resource to a fixed set of permissions and then
// defers to ownership for record level checks.
type ResourcePolicy struct {
	resource string
	perms    []gate.Permission
	owner    *OwnershipPolicy
}

// NewResourcePolicy builds the policy for resource from perms.
func NewResourcePolicy(resource string, perms ...gate.Permission) *ResourcePolicy {
	return &ResourcePolicy{resource: resource, perms: perms, owner: NewOwnershipPolicy()}
}

func (p *ResourcePolicy) Can(ctx context.Context, userID uint, action gate.Action, record any) bool {
	if !gate.Grants(p.perms, p.resource, action) {
		return false
	}
	return p.owner.Can(ctx, userID, action, record)
}
