package market

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/powermarket/internal/ledger"
	"github.com/roach88/powermarket/internal/offchain"
	"github.com/roach88/powermarket/internal/schema"
)

// Supply is an offer of energy from a registered asset.
type Supply struct {
	core
	Owner   common.Address
	AssetID uint64
	Props   OffChain[SupplyProperties]
}

// CreateSupply offers energy from assetID, which the active signer must
// own. Failure modes match CreateDemand.
func (m *Market) CreateSupply(ctx context.Context, assetID uint64, props SupplyProperties) (*Supply, error) {
	doc, err := m.prepare(schema.Supply, props)
	if err != nil {
		return nil, err
	}

	id, err := m.submitCreate(ctx, ledger.KindSupply, ledger.OpCreateSupply, ledger.EventCreatedNewSupply,
		doc.handle.Hash, doc.handle.Locator, assetID)
	if err != nil {
		return nil, err
	}

	s := m.Supply(id)
	if err := m.put(ctx, ledger.KindSupply, id, doc); err != nil {
		_ = s.Sync(ctx)
		return s, err
	}
	return s, s.Sync(ctx)
}

// Supply returns an unsynced handle to supply id.
func (m *Market) Supply(id uint64) *Supply {
	return &Supply{
		core:  newCore(m, ledger.KindSupply, id),
		Props: newOffChain[SupplyProperties](schema.Supply),
	}
}

// Sync reloads the supply.
func (s *Supply) Sync(ctx context.Context) error {
	rec, err := s.query(ctx)
	if err != nil {
		if ledger.IsNotFound(err) {
			s.initialized = false
			s.Owner, s.AssetID = common.Address{}, 0
			s.Props.Handle = offchain.Handle{}
			s.Props.withdraw(err)
		}
		return err
	}
	if rec == nil {
		return nil
	}

	owner, err := rec.Address(ledger.FieldOwner)
	if err != nil {
		return fmt.Errorf("sync Supply(%d): %w", s.id, err)
	}
	assetID, err := rec.Uint(ledger.FieldAssetID)
	if err != nil {
		return fmt.Errorf("sync Supply(%d): %w", s.id, err)
	}
	h, err := recordHandle(rec, ledger.FieldPropertiesHash, ledger.FieldDocumentURL)
	if err != nil {
		return fmt.Errorf("sync Supply(%d): %w", s.id, err)
	}
	s.Owner, s.AssetID = owner, assetID
	s.initialized = true

	if err := s.Props.load(ctx, s.m, s.kind, s.id, h); err != nil {
		return err
	}
	s.m.logger.Debug("Supply synced", "id", s.id, "hash", h.Hash.Short())
	return nil
}

// RepairOffChain re-stores props if they hash to the supply's on-ledger
// commitment.
func (s *Supply) RepairOffChain(ctx context.Context, props SupplyProperties) error {
	if !s.initialized {
		return fmt.Errorf("repair Supply(%d): not synced", s.id)
	}
	return s.Props.repair(ctx, s.m, s.kind, s.id, props)
}

// AllSupplies syncs every supply id.
func (m *Market) AllSupplies(ctx context.Context) ([]*Supply, error) {
	return enumerate(ctx, m, ledger.KindSupply, m.Supply)
}
