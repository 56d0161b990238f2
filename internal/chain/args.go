package chain

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/powermarket/internal/commit"
	"github.com/roach88/powermarket/internal/ledger"
)

// call is one decoded operation with positional arguments.
type call struct {
	kind ledger.Kind
	op   string
	args []any
}

func (c call) rejected(format string, args ...any) *ledger.Error {
	return ledger.Rejected(c.kind, c.op, format, args...)
}

func (c call) arity(n int) error {
	if len(c.args) != n {
		return c.rejected("want %d arguments, got %d", n, len(c.args))
	}
	return nil
}

func (c call) argUint(i int) (uint64, error) {
	switch v := c.args[i].(type) {
	case uint64:
		return v, nil
	case int:
		if v >= 0 {
			return uint64(v), nil
		}
	case int64:
		if v >= 0 {
			return uint64(v), nil
		}
	}
	return 0, c.rejected("argument %d: want unsigned integer, got %T", i, c.args[i])
}

func (c call) argString(i int) (string, error) {
	v, ok := c.args[i].(string)
	if !ok {
		return "", c.rejected("argument %d: want string, got %T", i, c.args[i])
	}
	return v, nil
}

func (c call) argHash(i int) (commit.Hash, error) {
	switch v := c.args[i].(type) {
	case commit.Hash:
		if _, err := commit.ParseHash(string(v)); err != nil {
			return "", c.rejected("argument %d: %v", i, err)
		}
		return v, nil
	case string:
		h, err := commit.ParseHash(v)
		if err != nil {
			return "", c.rejected("argument %d: %v", i, err)
		}
		return h, nil
	}
	return "", c.rejected("argument %d: want document hash, got %T", i, c.args[i])
}

func (c call) argAddresses(i int) ([]common.Address, error) {
	switch v := c.args[i].(type) {
	case nil:
		return []common.Address{}, nil
	case []common.Address:
		return v, nil
	case []string:
		out := make([]common.Address, 0, len(v))
		for _, s := range v {
			if !common.IsHexAddress(s) {
				return nil, c.rejected("argument %d: %q is not an address", i, s)
			}
			out = append(out, common.HexToAddress(s))
		}
		return out, nil
	}
	return nil, c.rejected("argument %d: want address list, got %T", i, c.args[i])
}
