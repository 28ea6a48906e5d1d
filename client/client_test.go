package client_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bitbucket.org/ConcurrentDragon/storage-market/client"
	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
	"bitbucket.org/ConcurrentDragon/storage-market/ledger/ledgertest"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

const testCid = "QmfM9cuJWmZbvmNdAPHhcVRA6GJ1hjNjJSr9en7bKLbSgV"

func mockOptions(mock *ledgertest.Client) client.Options {
	return client.Options{
		Seeds: "test seed phrase",
		NewLedger: func(endpoint string) (ledger.Client, error) {
			return mock, nil
		},
		NewSigner: func(seeds string, c ledger.Client) (ledger.Signer, error) {
			return &ledgertest.Signer{Addr: "5TestAddress"}, nil
		},
	}
}

func TestEndpointSelection(t *testing.T) {
	mock := &ledgertest.Client{}

	opts := mockOptions(mock)
	c, err := client.New(opts)
	if err != nil {
		t.Fatalf("failed to create client: %+v", err)
	}
	if c.Endpoint() != client.MainnetEndpoint {
		t.Errorf("expected default endpoint %s, got %s", client.MainnetEndpoint, c.Endpoint())
	}

	opts.Net = client.NetTest
	c, err = client.New(opts)
	if err != nil {
		t.Fatalf("failed to create test-net client: %+v", err)
	}
	if c.Endpoint() != client.TestnetEndpoint {
		t.Errorf("expected test endpoint %s, got %s", client.TestnetEndpoint, c.Endpoint())
	}

	opts.Net = "stage"
	_, err = client.New(opts)
	if err == nil {
		t.Errorf("expected error for unknown net")
	}
}

func TestOptionsFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "net: test\nseeds: \"test seed phrase\"\n"
	err := os.WriteFile(path, []byte(yaml), 0600)
	if err != nil {
		t.Fatalf("failed to write config file: %+v", err)
	}
	t.Setenv("STORAGE_MARKET_CONFIG", path)

	opts, err := client.OptionsFromEnv()
	if err != nil {
		t.Fatalf("failed to load options from env: %+v", err)
	}
	if opts.Net != client.NetTest {
		t.Errorf("expected net test, got %s", opts.Net)
	}
	if opts.Seeds != "test seed phrase" {
		t.Errorf("unexpected seeds: %s", opts.Seeds)
	}
}

func TestOptionsFromEnvUnset(t *testing.T) {
	t.Setenv("STORAGE_MARKET_CONFIG", "")

	_, err := client.OptionsFromEnv()
	if err == nil {
		t.Errorf("expected error when config path is not set")
	}
}

func TestGetPlaceStorageOrderRawReturnsHexPayload(t *testing.T) {
	ctx := context.Background()
	mock := &ledgertest.Client{}
	c, err := client.New(mockOptions(mock))
	if err != nil {
		t.Fatalf("failed to create client: %+v", err)
	}

	raw, err := c.GetPlaceStorageOrderRaw(ctx, testCid, 1024, nil, true)
	if err != nil {
		t.Fatalf("failed to get raw payload: %+v", err)
	}
	if !strings.HasPrefix(raw, "0x") {
		t.Fatalf("expected 0x-prefixed hex, got %s", raw)
	}

	payload, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		t.Fatalf("failed to decode hex: %+v", err)
	}
	call, err := mock.DecodeCall(payload)
	if err != nil {
		t.Fatalf("failed to decode payload: %+v", err)
	}
	if call.Method != market.MethodPlaceStorageOrder {
		t.Errorf("expected call %s, got %s", market.MethodPlaceStorageOrder, call.Method)
	}
	if call.Args[len(call.Args)-1] != market.DirectoryMemo {
		t.Errorf("expected directory memo, got %v", call.Args[len(call.Args)-1])
	}
}

func TestSendAddPrepaidAmountSubmitsSignedPayload(t *testing.T) {
	ctx := context.Background()
	mock := &ledgertest.Client{
		Updates: []ledger.StatusUpdate{
			{TxHash: "0xTX", Status: ledger.TxStatus{Kind: ledger.StatusInBlock, BlockHash: "0xABC"}},
		},
	}
	c, err := client.New(mockOptions(mock))
	if err != nil {
		t.Fatalf("failed to create client: %+v", err)
	}

	raw, err := c.GetAddPrepaidAmountRaw(ctx, testCid, big.NewInt(500))
	if err != nil {
		t.Fatalf("failed to get raw payload: %+v", err)
	}

	resource, err := c.SendAddPrepaidAmount(ctx, raw)
	if err != nil {
		t.Fatalf("failed to send: %+v", err)
	}
	if resource.Hash != "0xABC" {
		t.Errorf("expected hash 0xABC, got %s", resource.Hash)
	}
	if resource.Cid != testCid {
		t.Errorf("expected cid %s, got %s", testCid, resource.Cid)
	}
}

func TestSigningClientPlaceStorageOrder(t *testing.T) {
	ctx := context.Background()
	mock := &ledgertest.Client{
		Updates: []ledger.StatusUpdate{
			{TxHash: "0xTX", Status: ledger.TxStatus{Kind: ledger.StatusInBlock, BlockHash: "0xBLOCK"}, Events: []ledger.Event{
				{Module: "market", Method: market.EventFileSuccess, Args: []interface{}{"0xwho", testCid}},
				{Module: "system", Method: market.EventExtrinsicSuccess},
			}},
		},
	}
	c, err := client.NewSigning(mockOptions(mock))
	if err != nil {
		t.Fatalf("failed to create signing client: %+v", err)
	}
	if c.Address() != "5TestAddress" {
		t.Errorf("expected signer address, got %s", c.Address())
	}

	resource, err := c.PlaceStorageOrder(ctx, testCid, 1024, false, nil)
	if err != nil {
		t.Fatalf("failed to place storage order: %+v", err)
	}
	if resource.Hash != "0xTX" {
		t.Errorf("expected hash 0xTX, got %s", resource.Hash)
	}
	if resource.Cid != testCid {
		t.Errorf("expected cid %s, got %s", testCid, resource.Cid)
	}
	if mock.Broadcasts() != 1 {
		t.Errorf("expected one broadcast, got %d", mock.Broadcasts())
	}
}

func TestSigningClientRequiresSeeds(t *testing.T) {
	opts := mockOptions(&ledgertest.Client{})
	opts.Seeds = ""
	_, err := client.NewSigning(opts)
	if err == nil {
		t.Errorf("expected error without seeds")
	}
}

func TestSignPayloadMarksPayloadSigned(t *testing.T) {
	ctx := context.Background()
	mock := &ledgertest.Client{}
	c, err := client.NewSigning(mockOptions(mock))
	if err != nil {
		t.Fatalf("failed to create signing client: %+v", err)
	}

	raw, err := c.GetAddPrepaidAmountRaw(ctx, testCid, big.NewInt(1))
	if err != nil {
		t.Fatalf("failed to get raw payload: %+v", err)
	}

	signed, err := c.SignPayload(raw)
	if err != nil {
		t.Fatalf("failed to sign payload: %+v", err)
	}

	payload, err := hex.DecodeString(strings.TrimPrefix(signed, "0x"))
	if err != nil {
		t.Fatalf("failed to decode hex: %+v", err)
	}
	var env struct {
		Signed bool   `json:"signed"`
		Signer string `json:"signer"`
	}
	err = json.Unmarshal(payload, &env)
	if err != nil {
		t.Fatalf("failed to unmarshal envelope: %+v", err)
	}
	if !env.Signed {
		t.Errorf("expected payload to be marked signed")
	}
	if env.Signer != "5TestAddress" {
		t.Errorf("expected signer address, got %s", env.Signer)
	}
}
