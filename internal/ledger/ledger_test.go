package ledger

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	otherKey    = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

func TestDecodeCreatedID(t *testing.T) {
	r := &Receipt{Events: []Event{
		NewEvent(EventCreatedNewDemand, IDTopic(7), AddressTopic(common.HexToAddress(testAddress))),
	}}

	id, err := DecodeCreatedID(r, EventCreatedNewDemand)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
}

func TestDecodeCreatedIDUsesFirstMatchingEvent(t *testing.T) {
	r := &Receipt{Events: []Event{
		NewEvent(EventAgreementFullySigned, IDTopic(99)),
		NewEvent(EventAgreementCreated, IDTopic(3)),
		NewEvent(EventAgreementCreated, IDTopic(4)),
	}}

	id, err := DecodeCreatedID(r, EventAgreementCreated)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
}

func TestDecodeCreatedIDErrors(t *testing.T) {
	overflow := common.BigToHash(new(big.Int).Lsh(big.NewInt(1), 64))

	tests := []struct {
		name    string
		receipt *Receipt
	}{
		{"nil receipt", nil},
		{"no events", &Receipt{}},
		{"other event only", &Receipt{Events: []Event{NewEvent(EventCreatedNewSupply, IDTopic(1))}}},
		{"missing id topic", &Receipt{Events: []Event{NewEvent(EventCreatedNewDemand)}}},
		{"wrong signature", &Receipt{Events: []Event{{Name: EventCreatedNewDemand, Topics: []common.Hash{{}, IDTopic(1)}}}}},
		{"overflow", &Receipt{Events: []Event{NewEvent(EventCreatedNewDemand, overflow)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCreatedID(tt.receipt, EventCreatedNewDemand)
			require.Error(t, err)
		})
	}
}

func TestEventTopicIsKeccakOfSignature(t *testing.T) {
	// keccak256("Transfer(address,address,uint256)"), the ERC-20 event.
	assert.Equal(t,
		common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"),
		EventTopic("Transfer(address,address,uint256)"))
	assert.NotEqual(t, EventTopic(EventCreatedNewDemand), EventTopic(EventCreatedNewSupply))
}

func TestErrorsMatchSentinelsByCode(t *testing.T) {
	err := fmt.Errorf("submit: %w", NotAuthorized(KindAgreement, OpSetMatcherProperties, "sender %s is not a matcher", testAddress))

	assert.True(t, IsNotAuthorized(err))
	assert.False(t, IsRejected(err))
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "Agreement.setMatcherProperties")

	nf := NotFound(KindDemand, 4)
	assert.True(t, IsNotFound(nf))
	assert.Equal(t, "NOT_FOUND: Demand(4): no such record", nf.Error())

	assert.True(t, IsRejected(Rejected(KindSupply, OpCreateSupply, "asset %d does not exist", 2)))
}

func TestNewSigner(t *testing.T) {
	s, err := NewSigner(testKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), s.Address)

	_, err = NewSigner("not-a-key")
	require.Error(t, err)
}

func TestTransactionSignAndRecover(t *testing.T) {
	signer := MustSigner(testKey)
	tx, err := NewTransaction(KindDemand, OpCreateDemand, []any{"abc", "http://localhost:3030/Demand"})
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), tx.ID.Version())

	sig, err := tx.Sign(signer)
	require.NoError(t, err)

	sender, err := tx.RecoverSender(sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address, sender)

	tampered := tx
	tampered.Args = []any{"abd", "http://localhost:3030/Demand"}
	other, err := tampered.RecoverSender(sig)
	require.NoError(t, err)
	assert.NotEqual(t, signer.Address, other)
}

func TestTransactionSignRequiresKey(t *testing.T) {
	tx, err := NewTransaction(KindDemand, OpDeleteDemand, []any{uint64(0)})
	require.NoError(t, err)

	_, err = tx.Sign(Signer{Address: MustSigner(otherKey).Address})
	require.Error(t, err)
}

func TestRecordGetters(t *testing.T) {
	owner := common.HexToAddress(testAddress)
	r := Record{
		FieldOwner:                 owner,
		FieldAssetID:               uint64(3),
		FieldDemandID:              int64(2),
		FieldApprovedByDemandOwner: true,
		FieldDocumentURL:           "http://localhost:3030/Supply",
		FieldPropertiesHash:        "",
		FieldAllowedMatcher:        []common.Address{owner},
	}

	got, err := r.Address(FieldOwner)
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	n, err := r.Uint(FieldAssetID)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	n, err = r.Uint(FieldDemandID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	b, err := r.Bool(FieldApprovedByDemandOwner)
	require.NoError(t, err)
	assert.True(t, b)

	h, err := r.Hash(FieldPropertiesHash)
	require.NoError(t, err)
	assert.True(t, h.IsZero())

	matchers, err := r.Addresses(FieldAllowedMatcher)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{owner}, matchers)

	_, err = r.Bool(FieldApprovedBySupplyOwner)
	require.Error(t, err)
	_, err = r.Uint(FieldDocumentURL)
	require.Error(t, err)
}
