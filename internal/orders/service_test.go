package orders_test

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"bitbucket.org/ConcurrentDragon/storage-market/internal/connection"
	"bitbucket.org/ConcurrentDragon/storage-market/internal/orders"
	"bitbucket.org/ConcurrentDragon/storage-market/ledger/ledgertest"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

func TestGetOrderStatus(t *testing.T) {
	ctx := context.Background()

	createdAt := uint64(110)
	status := market.OrderStatus{
		FileSize:             2048,
		Spower:               2248,
		ExpiredAt:            600000,
		CalculatedAt:         599000,
		Amount:               big.NewInt(1000000),
		Prepaid:              big.NewInt(500000),
		ReportedReplicaCount: 2,
		RemainingPaidCount:   3,
		Replicas: map[string]market.Replica{
			"0xholder": {
				Who:        "0xholder",
				ValidAt:    100,
				Anchor:     "anchor-1",
				IsReported: true,
				CreatedAt:  &createdAt,
			},
		},
	}
	raw, err := json.Marshal(status)
	if err != nil {
		t.Fatalf("failed to marshal fixture: %+v", err)
	}

	mock := &ledgertest.Client{
		Storage: map[string][]byte{
			"Market/FilesV2/QmStored": raw,
		},
	}
	ordersService := orders.New(connection.New(mock, "wss://test", 0), mock)

	got, err := ordersService.GetOrderStatus(ctx, "QmStored")
	if err != nil {
		t.Fatalf("failed to get order status: %+v", err)
	}
	if got == nil {
		t.Fatalf("expected order status, got nil")
	}
	if got.FileSize != 2048 {
		t.Errorf("expected file size 2048, got %d", got.FileSize)
	}
	if got.Amount.Cmp(big.NewInt(1000000)) != 0 {
		t.Errorf("expected amount 1000000, got %s", got.Amount)
	}
	replica, ok := got.Replicas["0xholder"]
	if !ok {
		t.Fatalf("expected replica for 0xholder")
	}
	if replica.CreatedAt == nil || *replica.CreatedAt != createdAt {
		t.Errorf("expected created_at %d, got %v", createdAt, replica.CreatedAt)
	}
	if !replica.IsReported {
		t.Errorf("expected replica to be reported")
	}
}

func TestGetOrderStatusNotFound(t *testing.T) {
	ctx := context.Background()
	mock := &ledgertest.Client{}
	ordersService := orders.New(connection.New(mock, "wss://test", 0), mock)

	got, err := ordersService.GetOrderStatus(ctx, "QmMissing")
	if err != nil {
		t.Fatalf("failed to get order status: %+v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing order, got %+v", got)
	}
}
