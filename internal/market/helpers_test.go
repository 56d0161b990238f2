package market

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/roach88/powermarket/internal/chain"
	"github.com/roach88/powermarket/internal/offchain"
	"github.com/roach88/powermarket/internal/testutil"
)

var (
	producer = testutil.Producer
	consumer = testutil.Consumer
	matcher  = testutil.Matcher
	outsider = testutil.Outsider
)

const testBaseURL = "http://localhost:3030"

// memStore is an in-memory offchain.Store that can be told to fail.
type memStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	puts    int
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]byte)}
}

func (s *memStore) Put(_ context.Context, h offchain.Handle, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut {
		return offchain.ErrUnavailable
	}
	s.puts++
	s.docs[h.URL()] = append([]byte(nil), doc...)
	return nil
}

func (s *memStore) Get(_ context.Context, h offchain.Handle) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[h.URL()]
	if !ok {
		return nil, offchain.ErrNotFound
	}
	return append([]byte(nil), doc...), nil
}

// overwrite replaces a stored document behind the market's back.
func (s *memStore) overwrite(h offchain.Handle, doc []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[h.URL()] = doc
}

func (s *memStore) setFailPut(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut = fail
}

func (s *memStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

type testMarket struct {
	store    *memStore
	chain    *chain.Chain
	producer *Market
	consumer *Market
	matcher  *Market
	outsider *Market
}

func newTestMarket(t *testing.T) *testMarket {
	t.Helper()
	c, err := chain.Open(filepath.Join(t.TempDir(), "chain.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	store := newMemStore()
	m, err := New(Config{
		Gateway: c,
		Store:   store,
		Signer:  producer,
		BaseURL: testBaseURL,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	return &testMarket{
		store:    store,
		chain:    c,
		producer: m,
		consumer: m.WithSigner(consumer),
		matcher:  m.WithSigner(matcher),
		outsider: m.WithSigner(outsider),
	}
}

func sampleDemand() DemandProperties {
	return DemandProperties{
		Timeframe:         Hourly,
		MaxPricePerMwh:    1.5,
		Currency:          EUR,
		TargetWhPerPeriod: 10,
	}
}

func sampleSupply() SupplyProperties {
	return SupplyProperties{Price: 1.2, Currency: EUR, AvailableWh: 5000, Timeframe: Hourly}
}

func sampleTerms() AgreementProperties {
	return AgreementProperties{Start: 1700000000, End: 1700086400, Price: 1.3, Currency: EUR, Period: 0, Timeframe: Hourly}
}

// seed creates asset 0 (producer, matched by matcher), supply 0 and
// demand 0 (consumer).
func (tm *testMarket) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := tm.producer.CreateAsset(ctx, []common.Address{matcher.Address})
	require.NoError(t, err)
	_, err = tm.producer.CreateSupply(ctx, 0, sampleSupply())
	require.NoError(t, err)
	_, err = tm.consumer.CreateDemand(ctx, sampleDemand())
	require.NoError(t, err)
}

func requireErrorAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	require.True(t, errors.As(err, &target), "want %T, got %v", target, err)
	return target
}
