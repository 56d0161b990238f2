package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/powermarket/internal/ledger"
	"github.com/roach88/powermarket/internal/offchain"
	"github.com/roach88/powermarket/internal/schema"
)

// DefaultConcurrency bounds parallel syncs during enumeration.
const DefaultConcurrency = 8

// Config is the set of collaborators a Market works against.
type Config struct {
	// Gateway is the ledger. Required.
	Gateway ledger.Gateway

	// Store holds off-ledger documents. Required.
	Store offchain.Store

	// Signer is the active account for mutating operations.
	Signer ledger.Signer

	// BaseURL prefixes the collection locators recorded on the ledger.
	BaseURL string

	// Concurrency bounds parallel syncs in All*. Zero means
	// DefaultConcurrency.
	Concurrency int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Validator defaults to schema.Default().
	Validator *schema.Validator
}

// Market is the facade over the ledger and the document store.
type Market struct {
	gateway     ledger.Gateway
	store       offchain.Store
	signer      ledger.Signer
	baseURL     string
	concurrency int
	logger      *slog.Logger
	validator   *schema.Validator
}

// New checks cfg and fills defaults.
func New(cfg Config) (*Market, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("market: config has no ledger gateway")
	}
	if cfg.Store == nil {
		return nil, errors.New("market: config has no off-ledger store")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("market: config has no off-ledger base URL")
	}

	m := &Market{
		gateway:     cfg.Gateway,
		store:       cfg.Store,
		signer:      cfg.Signer,
		baseURL:     cfg.BaseURL,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
		validator:   cfg.Validator,
	}
	if m.concurrency <= 0 {
		m.concurrency = DefaultConcurrency
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.validator == nil {
		m.validator = schema.Default()
	}
	return m, nil
}

// WithSigner returns a Market sharing m's collaborators that submits as
// signer.
func (m *Market) WithSigner(signer ledger.Signer) *Market {
	cp := *m
	cp.signer = signer
	return &cp
}

// Signer returns the active account.
func (m *Market) Signer() ledger.Signer { return m.signer }

// Locator returns the collection locator for a payload schema.
func (m *Market) Locator(name schema.Name) string {
	return offchain.Locator(m.baseURL, string(name))
}

func (m *Market) submit(ctx context.Context, kind ledger.Kind, op string, args ...any) (*ledger.Receipt, error) {
	receipt, err := m.gateway.Submit(ctx, kind, op, args, m.signer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return receipt, nil
}

// submitCreate submits a creation and decodes the assigned id from the
// receipt's creation event.
func (m *Market) submitCreate(ctx context.Context, kind ledger.Kind, op, event string, args ...any) (uint64, error) {
	receipt, err := m.submit(ctx, kind, op, args...)
	if err != nil {
		return 0, err
	}
	id, err := ledger.DecodeCreatedID(receipt, event)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	m.logger.Info(string(kind)+" created", "id", id, "tx", receipt.TxID, "sender", receipt.Sender.Hex())
	return id, nil
}

// Count returns the list length of kind. Logically deleted entities are
// still counted.
func (m *Market) Count(ctx context.Context, kind ledger.Kind) (uint64, error) {
	n, err := m.gateway.Count(ctx, kind)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

// DemandCount returns the demand list length.
func (m *Market) DemandCount(ctx context.Context) (uint64, error) {
	return m.Count(ctx, ledger.KindDemand)
}

// SupplyCount returns the supply list length.
func (m *Market) SupplyCount(ctx context.Context) (uint64, error) {
	return m.Count(ctx, ledger.KindSupply)
}

// AgreementCount returns the agreement list length.
func (m *Market) AgreementCount(ctx context.Context) (uint64, error) {
	return m.Count(ctx, ledger.KindAgreement)
}
