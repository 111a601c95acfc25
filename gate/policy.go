package gate

import "context"

// Policy decides whether subject may perform action. record is nil for
// actions that do not target a single row.
type Policy[U any] interface {
	Can(ctx context.Context, subject U, action Action, record any) bool
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc[U any] func(ctx context.Context, subject U, action Action, record any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, subject U, action Action, record any) bool {
	return f(ctx, subject, action, record)
}
