// Package gate is a small policy registry: one Policy per resource name,
// consulted before every read or mutation a page performs. It knows nothing
// about models; callers pass the subject (usually the identity id) and,
// when there is one, the record involved.
package gate

import (
	"context"
	"fmt"
)

// Gate maps resource names to the policy guarding them.
// U is the subject type; its zero value means "nobody signed in".
type Gate[U comparable] struct {
	policies map[string]Policy[U]
}

// New returns an empty Gate.
func New[U comparable]() *Gate[U] {
	return &Gate[U]{policies: make(map[string]Policy[U])}
}

// Register installs p for resource, replacing any previous policy.
func (g *Gate[U]) Register(resource string, p Policy[U]) {
	g.policies[resource] = p
}

// Authorize returns nil when subject may perform action on resource.
// record may be nil for collection level actions (list, create form).
func (g *Gate[U]) Authorize(ctx context.Context, subject U, action Action, resource string, record any) error {
	var zero U
	if subject == zero {
		return ErrUnauthorized
	}
	p, ok := g.policies[resource]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPolicyDefined, resource)
	}
	if !p.Can(ctx, subject, action, record) {
		return fmt.Errorf("%w: %s %s", ErrUnauthorized, action, resource)
	}
	return nil
}

// Can is Authorize reduced to a bool.
func (g *Gate[U]) Can(ctx context.Context, subject U, action Action, resource string, record any) bool {
	return g.Authorize(ctx, subject, action, resource, record) == nil
}
