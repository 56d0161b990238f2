package market

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/powermarket/internal/commit"
	"github.com/roach88/powermarket/internal/ledger"
	"github.com/roach88/powermarket/internal/offchain"
	"github.com/roach88/powermarket/internal/schema"
)

// core is the identity shared by every entity kind.
type core struct {
	m           *Market
	kind        ledger.Kind
	id          uint64
	hasID       bool
	initialized bool
}

func newCore(m *Market, kind ledger.Kind, id uint64) core {
	return core{m: m, kind: kind, id: id, hasID: true}
}

// ID returns the ledger id; ok is false for an entity never created.
func (c *core) ID() (id uint64, ok bool) { return c.id, c.hasID }

// Kind returns the entity kind.
func (c *core) Kind() ledger.Kind { return c.kind }

// Initialized reports whether the last Sync loaded a live ledger record.
func (c *core) Initialized() bool { return c.initialized }

// query fetches the ledger record. A missing id is a no-op: it returns a
// nil record and no error.
func (c *core) query(ctx context.Context) (ledger.Record, error) {
	if !c.hasID || c.m == nil {
		return nil, nil
	}
	rec, err := c.m.gateway.Query(ctx, c.kind, c.id)
	if err != nil {
		return nil, fmt.Errorf("sync %s(%d): %w", c.kind, c.id, err)
	}
	return rec, nil
}

// document is a validated payload ready to be written: the handle the
// ledger will commit to and the exact bytes that were hashed.
type document struct {
	handle    offchain.Handle
	canonical []byte
}

// prepare validates payload, hashes it and derives its handle. Nothing
// is written.
func (m *Market) prepare(name schema.Name, payload any) (document, error) {
	c, err := m.validator.Commit(name, payload)
	if err != nil {
		return document{}, err
	}
	return document{
		handle:    offchain.Handle{Locator: m.Locator(name), Hash: c.Hash},
		canonical: c.Canonical,
	}, nil
}

// put writes doc after the ledger accepted the operation that commits to
// it.
func (m *Market) put(ctx context.Context, kind ledger.Kind, id uint64, doc document) error {
	if err := m.store.Put(ctx, doc.handle, doc.canonical); err != nil {
		m.logger.Error("off-ledger write failed", "kind", kind, "id", id, "handle", doc.handle.URL(), "error", err)
		return &OffChainWriteError{Kind: kind, ID: id, Handle: doc.handle, Err: err}
	}
	return nil
}

// OffChain is one hash-bound off-ledger payload of an entity.
//
// Handle always reflects the last synced ledger record. Properties is
// non-nil only when the document was fetched and its hash matched
// Handle.Hash; otherwise Err says why it is withheld.
type OffChain[P any] struct {
	schema     schema.Name
	Handle     offchain.Handle
	Properties *P
	err        error
}

func newOffChain[P any](name schema.Name) OffChain[P] {
	return OffChain[P]{schema: name}
}

// Available reports whether verified properties are present.
func (o *OffChain[P]) Available() bool { return o.Properties != nil }

// Err is the reason Properties is withheld, or nil.
func (o *OffChain[P]) Err() error { return o.err }

// withdraw drops the verified properties and records err as the reason.
func (o *OffChain[P]) withdraw(err error) {
	o.Properties = nil
	o.err = err
}

// load points o at h and fetches the document. A zero hash means there is
// no payload. On any failure Properties is cleared; a stale payload is
// never kept.
func (o *OffChain[P]) load(ctx context.Context, m *Market, kind ledger.Kind, id uint64, h offchain.Handle) error {
	o.Handle = h
	o.Properties = nil
	o.err = nil
	if h.Hash.IsZero() {
		return nil
	}

	doc, err := m.store.Get(ctx, h)
	if err != nil {
		o.err = fmt.Errorf("fetch %s(%d) %s payload: %w", kind, id, o.schema, err)
		return o.err
	}

	_, actual, ok, err := commit.VerifyDocument(doc, h.Hash)
	if err != nil {
		actual = commit.Sum(doc)
	}
	if err != nil || !ok {
		ie := &IntegrityError{Kind: kind, ID: id, Payload: o.schema, Expected: h.Hash, Actual: actual}
		m.logger.Warn("off-ledger payload failed verification",
			"kind", kind,
			"id", id,
			"payload", o.schema,
			"expected", h.Hash,
			"actual", actual,
		)
		o.err = ie
		return ie
	}

	var props P
	if err := json.Unmarshal(doc, &props); err != nil {
		o.err = fmt.Errorf("decode %s(%d) %s payload: %w", kind, id, o.schema, err)
		return o.err
	}
	o.Properties = &props
	return nil
}

// repair re-writes props when they hash to the committed Handle.Hash and
// reloads the document.
func (o *OffChain[P]) repair(ctx context.Context, m *Market, kind ledger.Kind, id uint64, props P) error {
	if o.Handle.Hash.IsZero() {
		return fmt.Errorf("repair %s(%d) %s payload: ledger commits to no document", kind, id, o.schema)
	}
	doc, err := m.prepare(o.schema, props)
	if err != nil {
		return err
	}
	if doc.handle.Hash != o.Handle.Hash {
		return &IntegrityError{Kind: kind, ID: id, Payload: o.schema, Expected: o.Handle.Hash, Actual: doc.handle.Hash}
	}
	doc.handle = o.Handle
	if err := m.put(ctx, kind, id, doc); err != nil {
		return err
	}
	m.logger.Info("off-ledger payload repaired", "kind", kind, "id", id, "payload", o.schema, "handle", doc.handle.URL())
	return o.load(ctx, m, kind, id, o.Handle)
}

// recordHandle reads a hash/locator pair from a ledger record.
func recordHandle(rec ledger.Record, hashField, urlField string) (offchain.Handle, error) {
	h, err := rec.Hash(hashField)
	if err != nil {
		return offchain.Handle{}, err
	}
	url, err := rec.String(urlField)
	if err != nil {
		return offchain.Handle{}, err
	}
	return offchain.Handle{Locator: url, Hash: h}, nil
}
