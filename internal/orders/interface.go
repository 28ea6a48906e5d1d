package orders

import (
	"context"

	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

type Service interface {
	// GetOrderStatus returns the current on-chain state of the order for
	// cid, or nil when no order exists.
	GetOrderStatus(ctx context.Context, cid string) (*market.OrderStatus, error)
}
