package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/roach88/powermarket/internal/ledger"
)

// TxRecord is one accepted transaction as written to the log.
type TxRecord struct {
	Seq    uint64          `json:"seq"`
	TxID   uuid.UUID       `json:"tx_id"`
	Sender common.Address  `json:"sender"`
	Kind   ledger.Kind     `json:"kind"`
	Op     string          `json:"op"`
	Args   json.RawMessage `json:"args"`
	Events []ledger.Event  `json:"events"`
}

// Transactions returns the accepted transactions in sequence order.
// Returns an empty slice (not nil) for a fresh chain.
func (c *Chain) Transactions(ctx context.Context) ([]TxRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT seq, tx_id, sender, kind, op, args FROM transactions ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []TxRecord
	for rows.Next() {
		var (
			rec          TxRecord
			txID, sender string
			kind, args   string
		)
		if err := rows.Scan(&rec.Seq, &txID, &sender, &kind, &rec.Op, &args); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		rec.TxID, err = uuid.Parse(txID)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", rec.Seq, err)
		}
		rec.Sender = common.HexToAddress(sender)
		rec.Kind = ledger.Kind(kind)
		rec.Args = json.RawMessage(args)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	rows.Close()

	// Events are loaded after the rows are released; the pool holds a
	// single connection.
	for i := range out {
		events, err := c.events(ctx, out[i].Seq)
		if err != nil {
			return nil, err
		}
		out[i].Events = events
	}

	if out == nil {
		out = []TxRecord{}
	}
	return out, nil
}

func (c *Chain) events(ctx context.Context, seq uint64) ([]ledger.Event, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, topics, data FROM events WHERE tx_seq = ? ORDER BY idx ASC
	`, seq)
	if err != nil {
		return nil, fmt.Errorf("query events of transaction %d: %w", seq, err)
	}
	defer rows.Close()

	events := []ledger.Event{}
	for rows.Next() {
		var (
			ev     ledger.Event
			topics string
		)
		if err := rows.Scan(&ev.Name, &topics, &ev.Data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(topics), &ev.Topics); err != nil {
			return nil, fmt.Errorf("decode topics of %s: %w", ev.Name, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
