// Package chain is a single-node market contract backed by SQLite.
//
// Chain implements ledger.Gateway. Every Submit is signed with the caller's
// key, the sender is recovered from the signature, and the operation runs
// inside one database transaction: it either commits together with its
// transaction-log row and events, or leaves no trace. Ids are assigned
// densely from 0 per kind and rows are never removed.
package chain

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/powermarket/internal/ledger"
	"github.com/roach88/powermarket/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

var migrations = []sqlitedb.Migration{
	{
		Version: 1,
		Name:    "agreement lookups by party",
		SQL: `CREATE INDEX IF NOT EXISTS idx_agreements_demand ON agreements(demand_id);
CREATE INDEX IF NOT EXISTS idx_agreements_supply ON agreements(supply_id)`,
	},
}

// Chain implements ledger.Gateway on SQLite.
type Chain struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ ledger.Gateway = (*Chain)(nil)

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the logger for accepted and rejected transactions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) { c.logger = logger }
}

// Open creates or opens the chain database at path.
func Open(path string, opts ...Option) (*Chain, error) {
	db, err := sqlitedb.Open(path, schemaSQL, migrations)
	if err != nil {
		return nil, fmt.Errorf("open chain: %w", err)
	}
	c := &Chain{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the database connection.
func (c *Chain) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Submit executes op as one transaction signed by signer.
func (c *Chain) Submit(ctx context.Context, kind ledger.Kind, op string, args []any, signer ledger.Signer) (*ledger.Receipt, error) {
	tx, err := ledger.NewTransaction(kind, op, args)
	if err != nil {
		return nil, err
	}

	if signer.PrivateKey == nil {
		return nil, ledger.NotAuthorized(kind, op, "signer %s has no private key", signer.Address.Hex())
	}
	sig, err := tx.Sign(signer)
	if err != nil {
		return nil, ledger.Rejected(kind, op, "%v", err)
	}
	sender, err := tx.RecoverSender(sig)
	if err != nil {
		return nil, ledger.NotAuthorized(kind, op, "%v", err)
	}
	if sender != signer.Address {
		return nil, ledger.NotAuthorized(kind, op, "signature is from %s, not %s", sender.Hex(), signer.Address.Hex())
	}

	canonicalArgs, err := tx.CanonicalArgs()
	if err != nil {
		return nil, ledger.Rejected(kind, op, "%v", err)
	}

	receipt, err := c.apply(ctx, tx, sender, canonicalArgs, sig)
	if err != nil {
		c.logger.Debug("transaction rejected", "op", op, "sender", sender.Hex(), "error", err)
		return nil, err
	}

	c.logger.Debug("transaction accepted",
		"op", op,
		"seq", receipt.Seq,
		"sender", sender.Hex(),
		"events", len(receipt.Events),
	)
	return receipt, nil
}

func (c *Chain) apply(ctx context.Context, tx ledger.Transaction, sender common.Address, canonicalArgs, sig []byte) (*ledger.Receipt, error) {
	dbtx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin %s: %w", tx.Op, err)
	}
	defer dbtx.Rollback()

	events, err := execute(ctx, dbtx, call{kind: tx.Kind, op: tx.Op, args: tx.Args}, sender)
	if err != nil {
		return nil, err
	}

	res, err := dbtx.ExecContext(ctx, `
		INSERT INTO transactions (tx_id, sender, kind, op, args, signature)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tx.ID.String(), sender.Hex(), string(tx.Kind), tx.Op, string(canonicalArgs), sig)
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", tx.Op, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", tx.Op, err)
	}

	for i, ev := range events {
		topics, err := json.Marshal(ev.Topics)
		if err != nil {
			return nil, fmt.Errorf("log %s event %s: %w", tx.Op, ev.Name, err)
		}
		if _, err := dbtx.ExecContext(ctx, `
			INSERT INTO events (tx_seq, idx, name, topics, data) VALUES (?, ?, ?, ?, ?)
		`, seq, i, ev.Name, string(topics), ev.Data); err != nil {
			return nil, fmt.Errorf("log %s event %s: %w", tx.Op, ev.Name, err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", tx.Op, err)
	}

	if events == nil {
		events = []ledger.Event{}
	}
	return &ledger.Receipt{
		TxID:   tx.ID,
		Seq:    uint64(seq),
		Sender: sender,
		Op:     tx.Op,
		Events: events,
	}, nil
}

// Query returns the current record of id.
func (c *Chain) Query(ctx context.Context, kind ledger.Kind, id uint64) (ledger.Record, error) {
	var (
		rec ledger.Record
		err error
	)
	switch kind {
	case ledger.KindAsset:
		rec, err = queryAsset(ctx, c.db, id)
	case ledger.KindDemand:
		rec, err = queryDemand(ctx, c.db, id)
	case ledger.KindSupply:
		rec, err = querySupply(ctx, c.db, id)
	case ledger.KindAgreement:
		rec, err = queryAgreement(ctx, c.db, id)
	default:
		return nil, ledger.Rejected(kind, "query", "unknown kind")
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFound(kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s(%d): %w", kind, id, err)
	}
	return rec, nil
}

// Count returns the number of ids ever assigned for kind.
func (c *Chain) Count(ctx context.Context, kind ledger.Kind) (uint64, error) {
	table, ok := tables[kind]
	if !ok {
		return 0, ledger.Rejected(kind, "count", "unknown kind")
	}
	n, err := count(ctx, c.db, table)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

var tables = map[ledger.Kind]string{
	ledger.KindAsset:     "assets",
	ledger.KindDemand:    "demands",
	ledger.KindSupply:    "supplies",
	ledger.KindAgreement: "agreements",
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func count(ctx context.Context, q querier, table string) (uint64, error) {
	var n uint64
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}
