package client

import (
	"context"
	"fmt"
	"math/big"

	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

// SigningClient extends Client with a signing key derived once from the
// configured seed phrase. Its high-level operations chain build → sign →
// submit in one call.
type SigningClient struct {
	*Client
	signer ledger.Signer
}

// NewSigning creates a SigningClient. opts.Seeds is required.
func NewSigning(opts Options) (*SigningClient, error) {
	if opts.Seeds == "" {
		return nil, fmt.Errorf("seeds are required for the signing client")
	}

	base, err := New(opts)
	if err != nil {
		return nil, err
	}

	signer, err := opts.newSigner(base.ledgerClient)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signer: %v", err)
	}

	return &SigningClient{
		Client: base,
		signer: signer,
	}, nil
}

// Address returns the account address of the signing key.
func (c *SigningClient) Address() string {
	return c.signer.Address()
}

// PlaceStorageOrder places a storage order for cid and waits until it is
// included on chain. tips may be nil for no tip.
func (c *SigningClient) PlaceStorageOrder(ctx context.Context, cid string, size uint64, isDirectory bool, tips *big.Int) (*market.StoredResource, error) {
	payload, err := c.builderService.BuildPlaceOrder(ctx, cid, size, tips, isDirectory)
	if err != nil {
		return nil, err
	}

	signed, err := c.signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %v", err)
	}

	return c.submitterService.Submit(ctx, signed, market.MethodPlaceStorageOrder, cid)
}

// AddPrepaidAmount adds amount to the prepaid balance of the order for cid
// and waits until the transaction is included on chain.
func (c *SigningClient) AddPrepaidAmount(ctx context.Context, cid string, amount *big.Int) (*market.StoredResource, error) {
	payload, err := c.builderService.BuildAddPrepaid(ctx, cid, amount)
	if err != nil {
		return nil, err
	}

	signed, err := c.signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %v", err)
	}

	return c.submitterService.Submit(ctx, signed, market.MethodAddPrepaid, cid)
}

// SignPayload signs an externally built hex-encoded payload and returns
// the signed payload hex-encoded, for split build/sign/submit workflows.
func (c *SigningClient) SignPayload(payload string) (string, error) {
	bytes, err := decodePayload(payload)
	if err != nil {
		return "", err
	}
	signed, err := c.signer.Sign(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %v", err)
	}
	return encodePayload(signed), nil
}
