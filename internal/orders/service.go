package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"bitbucket.org/ConcurrentDragon/storage-market/internal/connection"
	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

// Storage location of order state on chain.
const (
	storageModule = "Market"
	storageItem   = "FilesV2"
)

type ServiceImpl struct {
	connectionService connection.Service
	client            ledger.Client
}

// creates a new ServiceImpl
func New(connectionService connection.Service, client ledger.Client) *ServiceImpl {
	return &ServiceImpl{
		connectionService: connectionService,
		client:            client,
	}
}

func (s *ServiceImpl) GetOrderStatus(ctx context.Context, cid string) (*market.OrderStatus, error) {
	err := s.connectionService.AwaitReady(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.QueryStorage(ctx, storageModule, storageItem, []byte(cid))
	if err != nil {
		return nil, fmt.Errorf("failed to query order status for %s: %v", cid, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var status market.OrderStatus
	err = json.Unmarshal(raw, &status)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal order status for %s: %v", cid, err)
	}

	return &status, nil
}
