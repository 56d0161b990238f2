package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/powermarket/internal/commit"
)

// Record is the on-ledger state of one entity, keyed by field name.
// Values are Go-typed: common.Address, []common.Address, uint64, bool
// and string.
type Record map[string]any

// Address returns an address field.
func (r Record) Address(field string) (common.Address, error) {
	switch v := r[field].(type) {
	case common.Address:
		return v, nil
	case string:
		if !common.IsHexAddress(v) {
			return common.Address{}, fmt.Errorf("field %s: %q is not an address", field, v)
		}
		return common.HexToAddress(v), nil
	default:
		return common.Address{}, fieldTypeError(field, "address", r[field])
	}
}

// Addresses returns an address list field. A missing field is an empty list.
func (r Record) Addresses(field string) ([]common.Address, error) {
	switch v := r[field].(type) {
	case nil:
		return nil, nil
	case []common.Address:
		return append([]common.Address(nil), v...), nil
	default:
		return nil, fieldTypeError(field, "address list", r[field])
	}
}

// Uint returns an unsigned integer field.
func (r Record) Uint(field string) (uint64, error) {
	switch v := r[field].(type) {
	case uint64:
		return v, nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("field %s: negative value %d", field, v)
		}
		return uint64(v), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("field %s: negative value %d", field, v)
		}
		return uint64(v), nil
	default:
		return 0, fieldTypeError(field, "uint", r[field])
	}
}

// Bool returns a boolean field.
func (r Record) Bool(field string) (bool, error) {
	v, ok := r[field].(bool)
	if !ok {
		return false, fieldTypeError(field, "bool", r[field])
	}
	return v, nil
}

// String returns a string field. A missing field is the empty string.
func (r Record) String(field string) (string, error) {
	switch v := r[field].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fieldTypeError(field, "string", r[field])
	}
}

// Hash returns a commitment field; the empty string is the null hash.
func (r Record) Hash(field string) (commit.Hash, error) {
	s, err := r.String(field)
	if err != nil {
		return "", err
	}
	return commit.ParseHash(s)
}

func fieldTypeError(field, want string, got any) error {
	if got == nil {
		return fmt.Errorf("field %s: missing, want %s", field, want)
	}
	return fmt.Errorf("field %s: want %s, got %T", field, want, got)
}
