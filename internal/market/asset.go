package market

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/powermarket/internal/ledger"
)

// Asset is a registered producing asset. Supplies are offered against an
// asset and inherit its matchers.
type Asset struct {
	core
	Owner    common.Address
	Matchers []common.Address
}

// CreateAsset registers an asset owned by the active signer.
func (m *Market) CreateAsset(ctx context.Context, matchers []common.Address) (*Asset, error) {
	if matchers == nil {
		matchers = []common.Address{}
	}
	id, err := m.submitCreate(ctx, ledger.KindAsset, ledger.OpCreateAsset, ledger.EventAssetCreated, matchers)
	if err != nil {
		return nil, err
	}
	a := m.Asset(id)
	return a, a.Sync(ctx)
}

// Asset returns an unsynced handle to asset id.
func (m *Market) Asset(id uint64) *Asset {
	return &Asset{core: newCore(m, ledger.KindAsset, id)}
}

// Sync reloads the asset from the ledger.
func (a *Asset) Sync(ctx context.Context) error {
	rec, err := a.query(ctx)
	if err != nil {
		if ledger.IsNotFound(err) {
			a.initialized = false
		}
		return err
	}
	if rec == nil {
		return nil
	}

	owner, err := rec.Address(ledger.FieldOwner)
	if err != nil {
		return fmt.Errorf("sync Asset(%d): %w", a.id, err)
	}
	matchers, err := rec.Addresses(ledger.FieldMatchers)
	if err != nil {
		return fmt.Errorf("sync Asset(%d): %w", a.id, err)
	}
	a.Owner, a.Matchers = owner, matchers
	a.initialized = true
	return nil
}
