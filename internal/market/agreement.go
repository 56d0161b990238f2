package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/powermarket/internal/ledger"
	"github.com/roach88/powermarket/internal/offchain"
	"github.com/roach88/powermarket/internal/schema"
)

// AgreementState is derived from the two approval flags; it is never
// stored.
type AgreementState int

const (
	Proposed AgreementState = iota
	ApprovedBySupply
	ApprovedByDemand
	FullyApproved
)

func (s AgreementState) String() string {
	switch s {
	case Proposed:
		return "Proposed"
	case ApprovedBySupply:
		return "ApprovedBySupply"
	case ApprovedByDemand:
		return "ApprovedByDemand"
	case FullyApproved:
		return "FullyApproved"
	default:
		return fmt.Sprintf("AgreementState(%d)", int(s))
	}
}

// Agreement links a demand and a supply. It carries the agreed terms and
// the matcher's settlement telemetry as two independently hashed
// documents.
type Agreement struct {
	core
	DemandID              uint64
	SupplyID              uint64
	ApprovedBySupplyOwner bool
	ApprovedByDemandOwner bool
	AllowedMatchers       []common.Address

	Props   OffChain[AgreementProperties]
	Matcher OffChain[MatcherProperties]
}

// State derives the approval state from the flags.
func (a *Agreement) State() AgreementState {
	switch {
	case a.ApprovedBySupplyOwner && a.ApprovedByDemandOwner:
		return FullyApproved
	case a.ApprovedBySupplyOwner:
		return ApprovedBySupply
	case a.ApprovedByDemandOwner:
		return ApprovedByDemand
	default:
		return Proposed
	}
}

// CreateAgreement proposes an agreement between demandID and supplyID.
// The active signer must own one of them; that side is approved by the
// ledger at creation. Both documents are written after the ledger accepts.
func (m *Market) CreateAgreement(ctx context.Context, demandID, supplyID uint64, props AgreementProperties, matcher MatcherProperties) (*Agreement, error) {
	terms, err := m.prepare(schema.Agreement, props)
	if err != nil {
		return nil, err
	}
	telemetry, err := m.prepare(schema.Matcher, matcher)
	if err != nil {
		return nil, err
	}

	id, err := m.submitCreate(ctx, ledger.KindAgreement, ledger.OpCreateAgreement, ledger.EventAgreementCreated,
		terms.handle.Hash, terms.handle.Locator,
		telemetry.handle.Hash, telemetry.handle.Locator,
		demandID, supplyID)
	if err != nil {
		return nil, err
	}

	a := m.Agreement(id)
	writeErr := errors.Join(
		m.put(ctx, ledger.KindAgreement, id, terms),
		m.put(ctx, ledger.KindAgreement, id, telemetry),
	)
	if writeErr != nil {
		_ = a.Sync(ctx)
		return a, writeErr
	}
	return a, a.Sync(ctx)
}

// Agreement returns an unsynced handle to agreement id.
func (m *Market) Agreement(id uint64) *Agreement {
	return &Agreement{
		core:    newCore(m, ledger.KindAgreement, id),
		Props:   newOffChain[AgreementProperties](schema.Agreement),
		Matcher: newOffChain[MatcherProperties](schema.Matcher),
	}
}

// Sync reloads the agreement and both of its documents. Each document is
// verified on its own; a failure of one does not withhold the other.
func (a *Agreement) Sync(ctx context.Context) error {
	rec, err := a.query(ctx)
	if err != nil {
		if ledger.IsNotFound(err) {
			a.initialized = false
			a.DemandID, a.SupplyID = 0, 0
			a.ApprovedBySupplyOwner, a.ApprovedByDemandOwner = false, false
			a.AllowedMatchers = nil
			a.Props.Handle, a.Matcher.Handle = offchain.Handle{}, offchain.Handle{}
			a.Props.withdraw(err)
			a.Matcher.withdraw(err)
		}
		return err
	}
	if rec == nil {
		return nil
	}

	if err := a.apply(rec); err != nil {
		return fmt.Errorf("sync Agreement(%d): %w", a.id, err)
	}
	terms, err := recordHandle(rec, ledger.FieldPropertiesHash, ledger.FieldDocumentURL)
	if err != nil {
		return fmt.Errorf("sync Agreement(%d): %w", a.id, err)
	}
	telemetry, err := recordHandle(rec, ledger.FieldMatcherPropertiesHash, ledger.FieldMatcherURL)
	if err != nil {
		return fmt.Errorf("sync Agreement(%d): %w", a.id, err)
	}
	a.initialized = true

	err = errors.Join(
		a.Props.load(ctx, a.m, a.kind, a.id, terms),
		a.Matcher.load(ctx, a.m, a.kind, a.id, telemetry),
	)
	if err != nil {
		return err
	}
	a.m.logger.Debug("Agreement synced", "id", a.id, "state", a.State())
	return nil
}

func (a *Agreement) apply(rec ledger.Record) error {
	demandID, err := rec.Uint(ledger.FieldDemandID)
	if err != nil {
		return err
	}
	supplyID, err := rec.Uint(ledger.FieldSupplyID)
	if err != nil {
		return err
	}
	bySupply, err := rec.Bool(ledger.FieldApprovedBySupplyOwner)
	if err != nil {
		return err
	}
	byDemand, err := rec.Bool(ledger.FieldApprovedByDemandOwner)
	if err != nil {
		return err
	}
	matchers, err := rec.Addresses(ledger.FieldAllowedMatcher)
	if err != nil {
		return err
	}
	a.DemandID, a.SupplyID = demandID, supplyID
	a.ApprovedBySupplyOwner, a.ApprovedByDemandOwner = bySupply, byDemand
	a.AllowedMatchers = matchers
	return nil
}

// ApproveSupply approves the agreement as the supply owner. Approving
// twice is a no-op. The agreement is re-synced afterwards.
func (a *Agreement) ApproveSupply(ctx context.Context) error {
	return a.approve(ctx, ledger.OpApproveAgreementSupply)
}

// ApproveDemand approves the agreement as the demand owner.
func (a *Agreement) ApproveDemand(ctx context.Context) error {
	return a.approve(ctx, ledger.OpApproveAgreementDemand)
}

func (a *Agreement) approve(ctx context.Context, op string) error {
	if !a.hasID {
		return ErrNoID
	}
	receipt, err := a.m.submit(ctx, ledger.KindAgreement, op, a.id)
	if err != nil {
		return err
	}
	if receipt.HasEvent(ledger.EventAgreementFullySigned) {
		a.m.logger.Info("Agreement fully approved", "id", a.id)
	}
	return a.Sync(ctx)
}

// SetMatcherProperties replaces the matcher document. Only addresses in
// AllowedMatchers may call it; the ledger enforces this. It is allowed in
// any approval state.
func (a *Agreement) SetMatcherProperties(ctx context.Context, props MatcherProperties) error {
	if !a.hasID {
		return ErrNoID
	}
	doc, err := a.m.prepare(schema.Matcher, props)
	if err != nil {
		return err
	}
	if _, err := a.m.submit(ctx, ledger.KindAgreement, ledger.OpSetMatcherProperties,
		a.id, doc.handle.Hash, doc.handle.Locator); err != nil {
		return err
	}
	if err := a.m.put(ctx, ledger.KindAgreement, a.id, doc); err != nil {
		_ = a.Sync(ctx)
		return err
	}
	a.m.logger.Info("Agreement matcher properties set", "id", a.id, "hash", doc.handle.Hash.Short())
	return a.Sync(ctx)
}

// RepairOffChain re-stores the agreement terms.
func (a *Agreement) RepairOffChain(ctx context.Context, props AgreementProperties) error {
	if !a.initialized {
		return fmt.Errorf("repair Agreement(%d): not synced", a.id)
	}
	return a.Props.repair(ctx, a.m, a.kind, a.id, props)
}

// RepairMatcherProperties re-stores the matcher document.
func (a *Agreement) RepairMatcherProperties(ctx context.Context, props MatcherProperties) error {
	if !a.initialized {
		return fmt.Errorf("repair Agreement(%d): not synced", a.id)
	}
	return a.Matcher.repair(ctx, a.m, a.kind, a.id, props)
}

// AllAgreements syncs every agreement id.
func (m *Market) AllAgreements(ctx context.Context) ([]*Agreement, error) {
	return enumerate(ctx, m, ledger.KindAgreement, m.Agreement)
}
