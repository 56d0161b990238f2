package market

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/powermarket/internal/ledger"
	"github.com/roach88/powermarket/internal/offchain"
	"github.com/roach88/powermarket/internal/schema"
)

// Demand is a buyer's standing order.
type Demand struct {
	core
	Owner common.Address
	Props OffChain[DemandProperties]
}

// CreateDemand validates props, commits their hash on the ledger, stores
// the document and returns the synced demand.
//
// If the ledger accepted the demand but the document write failed, the
// demand is returned together with an *OffChainWriteError.
func (m *Market) CreateDemand(ctx context.Context, props DemandProperties) (*Demand, error) {
	doc, err := m.prepare(schema.Demand, props)
	if err != nil {
		return nil, err
	}

	id, err := m.submitCreate(ctx, ledger.KindDemand, ledger.OpCreateDemand, ledger.EventCreatedNewDemand,
		doc.handle.Hash, doc.handle.Locator)
	if err != nil {
		return nil, err
	}

	d := m.Demand(id)
	if err := m.put(ctx, ledger.KindDemand, id, doc); err != nil {
		_ = d.Sync(ctx)
		return d, err
	}
	return d, d.Sync(ctx)
}

// Demand returns an unsynced handle to demand id.
func (m *Market) Demand(id uint64) *Demand {
	return &Demand{
		core:  newCore(m, ledger.KindDemand, id),
		Props: newOffChain[DemandProperties](schema.Demand),
	}
}

// Sync reloads the demand. A deleted or never created id returns an error
// matching ledger.ErrNotFound and withholds Props. A deleted demand keeps
// its historical Owner and Props.Handle. An integrity failure leaves the
// on-ledger fields populated and Props withheld.
func (d *Demand) Sync(ctx context.Context) error {
	rec, err := d.query(ctx)
	if err != nil {
		if ledger.IsNotFound(err) {
			d.initialized = false
			d.Owner = common.Address{}
			d.Props.Handle = offchain.Handle{}
			d.Props.withdraw(err)
		}
		return err
	}
	if rec == nil {
		return nil
	}

	owner, err := rec.Address(ledger.FieldOwner)
	if err != nil {
		return fmt.Errorf("sync Demand(%d): %w", d.id, err)
	}
	h, err := recordHandle(rec, ledger.FieldPropertiesHash, ledger.FieldDocumentURL)
	if err != nil {
		return fmt.Errorf("sync Demand(%d): %w", d.id, err)
	}
	d.Owner = owner

	if deleted, _ := rec.Bool(ledger.FieldDeleted); deleted {
		err := fmt.Errorf("sync Demand(%d): %w", d.id, ledger.Deleted(d.kind, d.id))
		d.initialized = false
		d.Props.Handle = h
		d.Props.withdraw(err)
		return err
	}
	d.initialized = true

	if err := d.Props.load(ctx, d.m, d.kind, d.id, h); err != nil {
		return err
	}
	d.m.logger.Debug("Demand synced", "id", d.id, "hash", h.Hash.Short())
	return nil
}

// Delete logically deletes the demand. Deleting an already deleted demand
// succeeds. The id stays counted.
func (d *Demand) Delete(ctx context.Context) error {
	if !d.hasID {
		return ErrNoID
	}
	if _, err := d.m.submit(ctx, ledger.KindDemand, ledger.OpDeleteDemand, d.id); err != nil {
		return err
	}
	d.initialized = false
	d.Props.withdraw(ledger.Deleted(d.kind, d.id))
	d.m.logger.Info("Demand deleted", "id", d.id)
	return nil
}

// DeleteDemand logically deletes demand id.
func (m *Market) DeleteDemand(ctx context.Context, id uint64) error {
	return m.Demand(id).Delete(ctx)
}

// RepairOffChain re-stores props if they hash to the demand's on-ledger
// commitment. The demand must have been synced.
func (d *Demand) RepairOffChain(ctx context.Context, props DemandProperties) error {
	if !d.initialized {
		return fmt.Errorf("repair Demand(%d): not synced", d.id)
	}
	return d.Props.repair(ctx, d.m, d.kind, d.id, props)
}

// AllDemands syncs every demand id and drops deleted ones.
func (m *Market) AllDemands(ctx context.Context) ([]*Demand, error) {
	return enumerate(ctx, m, ledger.KindDemand, m.Demand)
}
