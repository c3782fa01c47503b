package port

import (
	"context"

	"github.com/garyjia/approval-ledger/internal/domain/entity"
)

// Clock supplies the ledger timestamp in milliseconds since the Unix epoch
type Clock interface {
	Now() uint64
}

// Identity resolves the account on whose behalf an operation runs
type Identity interface {
	Caller(ctx context.Context) (entity.AccountHash, error)
}
