package builder

import (
	"context"
	"fmt"
	"math/big"

	gocid "github.com/ipfs/go-cid"

	"bitbucket.org/ConcurrentDragon/storage-market/internal/connection"
	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
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

func (s *ServiceImpl) BuildPlaceOrder(ctx context.Context, cid string, size uint64, tips *big.Int, isDirectory bool) (ledger.Payload, error) {
	// reject malformed cids before touching the network
	err := validateCid(cid)
	if err != nil {
		return nil, err
	}

	err = s.connectionService.AwaitReady(ctx)
	if err != nil {
		return nil, err
	}

	if tips == nil {
		tips = big.NewInt(0)
	}
	memo := ""
	if isDirectory {
		memo = market.DirectoryMemo
	}

	payload, err := s.client.BuildCall(ctx, market.MethodPlaceStorageOrder, cid, size, tips.String(), memo)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s call: %v", market.MethodPlaceStorageOrder, err)
	}
	return payload, nil
}

func (s *ServiceImpl) BuildAddPrepaid(ctx context.Context, cid string, amount *big.Int) (ledger.Payload, error) {
	err := validateCid(cid)
	if err != nil {
		return nil, err
	}

	err = s.connectionService.AwaitReady(ctx)
	if err != nil {
		return nil, err
	}

	if amount == nil {
		amount = big.NewInt(0)
	}

	payload, err := s.client.BuildCall(ctx, market.MethodAddPrepaid, cid, amount.String())
	if err != nil {
		return nil, fmt.Errorf("failed to build %s call: %v", market.MethodAddPrepaid, err)
	}
	return payload, nil
}

func validateCid(cid string) error {
	_, err := gocid.Decode(cid)
	if err != nil {
		return &market.InvalidCidError{Value: cid}
	}
	return nil
}
