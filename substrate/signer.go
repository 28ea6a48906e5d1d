package substrate

import (
	"encoding/json"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"

	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
)

// SS58 address prefix of the target network.
const networkPrefix = 66

// Signer holds an sr25519 keypair derived once from a seed phrase and
// signs payloads built by the substrate Client.
type Signer struct {
	pair   signature.KeyringPair
	client *Client
}

var _ ledger.Signer = (*Signer)(nil)

// NewSigner derives the keypair from seeds. client must be the substrate
// ledger client the payloads were built with; signing needs its session
// state (metadata, genesis hash, runtime version, account nonce).
func NewSigner(seeds string, client ledger.Client) (*Signer, error) {
	substrateClient, ok := client.(*Client)
	if !ok {
		return nil, fmt.Errorf("signer requires the substrate ledger client, got %T", client)
	}

	pair, err := signature.KeyringPairFromSecret(seeds, networkPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keypair: %v", err)
	}

	return &Signer{pair: pair, client: substrateClient}, nil
}

func (s *Signer) Address() string {
	return s.pair.Address
}

func (s *Signer) Sign(payload ledger.Payload) (ledger.Payload, error) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	if env.CallHex == "" {
		return nil, fmt.Errorf("payload carries no call to sign")
	}

	var call types.Call
	err = codec.DecodeFromHex(env.CallHex, &call)
	if err != nil {
		return nil, fmt.Errorf("failed to decode call: %v", err)
	}

	opts, err := s.client.signatureOptions(s.pair.PublicKey)
	if err != nil {
		return nil, err
	}

	ext := types.NewExtrinsic(call)
	err = ext.Sign(s.pair, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to sign extrinsic: %v", err)
	}

	signedHex, err := codec.EncodeToHex(ext)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed extrinsic: %v", err)
	}

	env.SignedHex = signedHex
	return json.Marshal(env)
}

// signatureOptions assembles immortal-era signing options with the
// account's current nonce.
func (c *Client) signatureOptions(publicKey []byte) (types.SignatureOptions, error) {
	api, meta, err := c.session()
	if err != nil {
		return types.SignatureOptions{}, err
	}

	c.mu.Lock()
	genesisHash := c.genesisHash
	runtime := c.runtime
	c.mu.Unlock()

	key, err := types.CreateStorageKey(meta, "System", "Account", publicKey)
	if err != nil {
		return types.SignatureOptions{}, fmt.Errorf("failed to create account key: %v", err)
	}
	var account types.AccountInfo
	ok, err := api.RPC.State.GetStorageLatest(key, &account)
	if err != nil {
		return types.SignatureOptions{}, fmt.Errorf("failed to fetch account nonce: %v", err)
	}
	nonce := uint64(0)
	if ok {
		nonce = uint64(account.Nonce)
	}

	return types.SignatureOptions{
		BlockHash:          genesisHash,
		Era:                types.ExtrinsicEra{IsImmortalEra: true},
		GenesisHash:        genesisHash,
		Nonce:              types.NewUCompactFromUInt(nonce),
		SpecVersion:        runtime.SpecVersion,
		Tip:                types.NewUCompactFromUInt(0),
		TransactionVersion: runtime.TransactionVersion,
	}, nil
}
