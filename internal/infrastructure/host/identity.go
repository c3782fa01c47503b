package host

import (
	"context"
	"fmt"

	"github.com/garyjia/approval-ledger/internal/domain/entity"
	domainwf "github.com/garyjia/approval-ledger/internal/domain/workflow"
)

type callerKey struct{}

// WithCaller attaches an authenticated account to ctx
func WithCaller(ctx context.Context, account entity.AccountHash) context.Context {
	return context.WithValue(ctx, callerKey{}, account)
}

// ContextIdentity reads the caller placed on the context by the transport layer.
// The transport is trusted to have authenticated it.
type ContextIdentity struct{}

func (ContextIdentity) Caller(ctx context.Context) (entity.AccountHash, error) {
	account, ok := ctx.Value(callerKey{}).(entity.AccountHash)
	if !ok {
		return entity.AccountHash{}, fmt.Errorf("%w: caller account", domainwf.ErrMissingArgument)
	}
	return account, nil
}

// StaticIdentity answers every call with one account, used by the admin CLI
type StaticIdentity struct {
	Account entity.AccountHash
}

func (s StaticIdentity) Caller(context.Context) (entity.AccountHash, error) {
	return s.Account, nil
}
