package composables

import (
	"context"
	"sync"

	"github.com/iota-uz/iota-identity/pkg/constants"
)

type commitHooks struct {
	mu  sync.Mutex
	fns []func()
}

// WithCommitHooks scopes AfterCommit registrations to one transaction. The
// returned flush runs them in registration order and must only be called
// once the transaction has committed; dropping it discards them.
func WithCommitHooks(ctx context.Context) (context.Context, func()) {
	hooks := &commitHooks{}
	flush := func() {
		hooks.mu.Lock()
		fns := hooks.fns
		hooks.fns = nil
		hooks.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
	return context.WithValue(ctx, constants.HooksKey, hooks), flush
}

// AfterCommit defers fn until the outermost transaction carried by ctx
// commits. Without one fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	hooks, ok := ctx.Value(constants.HooksKey).(*commitHooks)
	if !ok || hooks == nil {
		fn()
		return
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
}
