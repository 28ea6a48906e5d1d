package substrate

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"

	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

// fileInfoV2 mirrors the chain's storage-market file record.
type fileInfoV2 struct {
	FileSize             types.U64
	Spower               types.U64
	ExpiredAt            types.U32
	CalculatedAt         types.U32
	Amount               types.U128
	Prepaid              types.U128
	ReportedReplicaCount types.U32
	RemainedPaidCount    types.U32
	Replicas             []replicaEntry
}

// replicaEntry is one key/value pair of the on-chain replica map.
type replicaEntry struct {
	Who     types.AccountID
	Replica replicaV2
}

type replicaV2 struct {
	Who        types.AccountID
	ValidAt    types.U32
	Anchor     types.Bytes
	IsReported types.Bool
	CreatedAt  types.OptionU32
}

func (c *Client) QueryStorage(ctx context.Context, module string, item string, key []byte) ([]byte, error) {
	if module != "Market" || item != "FilesV2" {
		return nil, fmt.Errorf("unsupported storage query %s.%s", module, item)
	}

	api, meta, err := c.session()
	if err != nil {
		return nil, err
	}

	encodedKey, err := codec.Encode(key)
	if err != nil {
		return nil, fmt.Errorf("failed to encode storage key: %v", err)
	}
	storageKey, err := types.CreateStorageKey(meta, module, item, encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage key: %v", err)
	}

	var info fileInfoV2
	ok, err := api.RPC.State.GetStorageLatest(storageKey, &info)
	if err != nil {
		return nil, fmt.Errorf("storage query failed: %v", err)
	}
	if !ok {
		return nil, nil
	}

	return json.Marshal(orderStatusFromFileInfo(info))
}

func orderStatusFromFileInfo(info fileInfoV2) *market.OrderStatus {
	replicas := map[string]market.Replica{}
	for _, entry := range info.Replicas {
		replica := market.Replica{
			Who:        accountHex(entry.Replica.Who),
			ValidAt:    uint64(entry.Replica.ValidAt),
			Anchor:     string(entry.Replica.Anchor),
			IsReported: bool(entry.Replica.IsReported),
		}
		if ok, createdAt := entry.Replica.CreatedAt.Unwrap(); ok {
			value := uint64(createdAt)
			replica.CreatedAt = &value
		}
		replicas[accountHex(entry.Who)] = replica
	}

	return &market.OrderStatus{
		FileSize:             uint64(info.FileSize),
		Spower:               uint64(info.Spower),
		ExpiredAt:            uint64(info.ExpiredAt),
		CalculatedAt:         uint64(info.CalculatedAt),
		Amount:               info.Amount.Int,
		Prepaid:              info.Prepaid.Int,
		ReportedReplicaCount: uint32(info.ReportedReplicaCount),
		RemainingPaidCount:   uint32(info.RemainedPaidCount),
		Replicas:             replicas,
	}
}

func accountHex(id types.AccountID) string {
	return "0x" + hex.EncodeToString(id.ToBytes())
}

func parseUint(value string) (uint64, error) {
	return strconv.ParseUint(value, 10, 64)
}

func parseBig(value string) (*big.Int, error) {
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("not a base-10 integer")
	}
	return parsed, nil
}
