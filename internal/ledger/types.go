package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// Kind names an entity collection on the ledger.
type Kind string

const (
	KindAsset     Kind = "Asset"
	KindDemand    Kind = "Demand"
	KindSupply    Kind = "Supply"
	KindAgreement Kind = "Agreement"
)

// Contract operations accepted by Submit.
const (
	OpCreateAsset            = "createAsset"
	OpCreateDemand           = "createDemand"
	OpDeleteDemand           = "deleteDemand"
	OpCreateSupply           = "createSupply"
	OpCreateAgreement        = "createAgreement"
	OpApproveAgreementSupply = "approveAgreementSupply"
	OpApproveAgreementDemand = "approveAgreementDemand"
	OpSetMatcherProperties   = "setMatcherProperties"
)

// Event names emitted by the contract.
const (
	EventAssetCreated         = "LogAssetCreated"
	EventCreatedNewDemand     = "createdNewDemand"
	EventDeletedDemand        = "deletedDemand"
	EventCreatedNewSupply     = "createdNewSupply"
	EventAgreementCreated     = "LogAgreementCreated"
	EventAgreementFullySigned = "LogAgreementFullySigned"
	EventMatcherPropertiesSet = "LogMatcherPropertiesSet"
)

// EventSignatures maps each event name to its ABI signature; topic 0 of
// an event is the keccak256 of this string.
var EventSignatures = map[string]string{
	EventAssetCreated:         "LogAssetCreated(address,uint256)",
	EventCreatedNewDemand:     "createdNewDemand(address,uint256)",
	EventDeletedDemand:        "deletedDemand(address,uint256)",
	EventCreatedNewSupply:     "createdNewSupply(address,uint256)",
	EventAgreementCreated:     "LogAgreementCreated(uint256,uint256,uint256)",
	EventAgreementFullySigned: "LogAgreementFullySigned(uint256,uint256,uint256)",
	EventMatcherPropertiesSet: "LogMatcherPropertiesSet(uint256,address)",
}

// Record field names returned by Query.
const (
	FieldOwner                 = "owner"
	FieldMatchers              = "matchers"
	FieldAssetID               = "assetId"
	FieldPropertiesHash        = "propertiesDocumentHash"
	FieldDocumentURL           = "documentDBURL"
	FieldMatcherPropertiesHash = "matcherPropertiesDocumentHash"
	FieldMatcherURL            = "matcherDBURL"
	FieldDemandID              = "demandId"
	FieldSupplyID              = "supplyId"
	FieldApprovedBySupplyOwner = "approvedBySupplyOwner"
	FieldApprovedByDemandOwner = "approvedByDemandOwner"
	FieldAllowedMatcher        = "allowedMatcher"
	FieldDeleted               = "deleted"
)

// Gateway is the narrow call/query surface of the ledger.
type Gateway interface {
	// Submit executes op as one transaction signed by signer.
	// A rejected or cancelled transaction changes nothing.
	Submit(ctx context.Context, kind Kind, op string, args []any, signer Signer) (*Receipt, error)

	// Query returns the current record of id. Never-created ids return an
	// error matching ErrNotFound. A logically deleted demand returns its
	// historical record with FieldDeleted set to true.
	Query(ctx context.Context, kind Kind, id uint64) (Record, error)

	// Count returns the number of ids ever assigned for kind.
	// Logical deletion does not decrease it.
	Count(ctx context.Context, kind Kind) (uint64, error)
}

// Signer is the active account: an address and the key that controls it.
type Signer struct {
	Address    common.Address
	PrivateKey *ecdsa.PrivateKey
}

// NewSigner parses a hex secp256k1 private key (with or without 0x).
func NewSigner(hexKey string) (Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return Signer{}, fmt.Errorf("parse private key: %w", err)
	}
	return Signer{Address: crypto.PubkeyToAddress(key.PublicKey), PrivateKey: key}, nil
}

// MustSigner is like NewSigner but panics on error. Tests only.
func MustSigner(hexKey string) Signer {
	s, err := NewSigner(hexKey)
	if err != nil {
		panic(err)
	}
	return s
}

// Event is one log entry emitted by a transaction.
type Event struct {
	Name   string        `json:"name"`
	Topics []common.Hash `json:"topics"`
	Data   []byte        `json:"data,omitempty"`
}

// Receipt describes an accepted transaction.
type Receipt struct {
	TxID   uuid.UUID      `json:"tx_id"`
	Seq    uint64         `json:"seq"`
	Sender common.Address `json:"sender"`
	Op     string         `json:"op"`
	Events []Event        `json:"events"`
}
