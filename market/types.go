package market

import (
	"math/big"
)

// Canonical call names for the two supported transaction kinds.
const (
	MethodPlaceStorageOrder = "placeStorageOrder"
	MethodAddPrepaid        = "addPrepaid"
)

// Event names scanned for during submission.
const (
	EventFileSuccess      = "FileSuccess"
	EventExtrinsicSuccess = "ExtrinsicSuccess"
	EventExtrinsicFailed  = "ExtrinsicFailed"
)

// Memo argument marking a placed order as a directory.
const DirectoryMemo = "folder"

// StoredResource is the result of one successful submission. Cid can be
// empty when the chain reported success without a file event.
type StoredResource struct {
	Hash string `json:"hash"`
	Cid  string `json:"cid"`
}

// Replica is the per-holder state of one stored copy.
type Replica struct {
	Who        string  `json:"who"`
	ValidAt    uint64  `json:"valid_at"`
	Anchor     string  `json:"anchor"`
	IsReported bool    `json:"is_reported"`
	CreatedAt  *uint64 `json:"created_at"`
}

// OrderStatus is a snapshot of the on-chain state of one storage order.
// It is re-fetched on every query and never cached.
type OrderStatus struct {
	FileSize             uint64             `json:"file_size"`
	Spower               uint64             `json:"spower"`
	ExpiredAt            uint64             `json:"expired_at"`
	CalculatedAt         uint64             `json:"calculated_at"`
	Amount               *big.Int           `json:"amount"`
	Prepaid              *big.Int           `json:"prepaid"`
	ReportedReplicaCount uint32             `json:"reported_replica_count"`
	RemainingPaidCount   uint32             `json:"remaining_paid_count"`
	Replicas             map[string]Replica `json:"replicas"`
}
