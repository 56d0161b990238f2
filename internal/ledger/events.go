package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EventTopic returns topic 0 for the named event.
func EventTopic(name string) common.Hash {
	sig, ok := EventSignatures[name]
	if !ok {
		sig = name
	}
	return crypto.Keccak256Hash([]byte(sig))
}

// IDTopic encodes an id as an indexed uint256 topic.
func IDTopic(id uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(id))
}

// AddressTopic encodes an address as an indexed topic.
func AddressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// NewEvent builds an event whose topic 0 is the event signature.
func NewEvent(name string, topics ...common.Hash) Event {
	return Event{
		Name:   name,
		Topics: append([]common.Hash{EventTopic(name)}, topics...),
	}
}

// DecodeCreatedID extracts the id assigned by a creation transaction.
// The id is the second topic of the first event called name; any other
// layout is treated as a malformed receipt.
func DecodeCreatedID(r *Receipt, name string) (uint64, error) {
	if r == nil {
		return 0, fmt.Errorf("decode %s id: nil receipt", name)
	}
	want := EventTopic(name)
	for _, ev := range r.Events {
		if ev.Name != name {
			continue
		}
		if len(ev.Topics) < 2 {
			return 0, fmt.Errorf("decode %s id: event has %d topics, want at least 2", name, len(ev.Topics))
		}
		if ev.Topics[0] != want {
			return 0, fmt.Errorf("decode %s id: topic 0 %s does not match event signature", name, ev.Topics[0].Hex())
		}
		id := ev.Topics[1].Big()
		if !id.IsUint64() {
			return 0, fmt.Errorf("decode %s id: %s overflows uint64", name, id)
		}
		return id.Uint64(), nil
	}
	return 0, fmt.Errorf("decode %s id: event not found in receipt %s", name, r.TxID)
}

// HasEvent reports whether the receipt carries an event called name.
func (r *Receipt) HasEvent(name string) bool {
	for _, ev := range r.Events {
		if ev.Name == name {
			return true
		}
	}
	return false
}
