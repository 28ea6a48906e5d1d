package builder

import (
	"context"
	"math/big"

	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
)

type Service interface {
	BuildPlaceOrder(ctx context.Context, cid string, size uint64, tips *big.Int, isDirectory bool) (ledger.Payload, error)
	BuildAddPrepaid(ctx context.Context, cid string, amount *big.Int) (ledger.Payload, error)
}
