package market

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/powermarket/internal/ledger"
)

type syncable interface {
	Sync(ctx context.Context) error
	Initialized() bool
}

// enumerate syncs ids 0..count-1 in parallel and returns them in id
// order. Ids without a live record are skipped. Entities whose ledger
// record loaded but whose payload did not are kept with the payload
// withheld. Any other failure aborts the enumeration.
func enumerate[E syncable](ctx context.Context, m *Market, kind ledger.Kind, open func(uint64) E) ([]E, error) {
	n, err := m.Count(ctx, kind)
	if err != nil {
		return nil, err
	}

	slots := make([]E, n)
	live := make([]bool, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i := uint64(0); i < n; i++ {
		i := i
		g.Go(func() error {
			e := open(i)
			if err := e.Sync(gctx); err != nil {
				if ledger.IsNotFound(err) {
					return nil
				}
				if !e.Initialized() {
					return err
				}
			}
			slots[i], live[i] = e, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]E, 0, n)
	for i, e := range slots {
		if live[i] {
			out = append(out, e)
		}
	}
	m.logger.Debug("enumerated "+string(kind), "count", n, "live", len(out))
	return out, nil
}
