package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/powermarket/internal/ledger"
	"github.com/roach88/powermarket/internal/market"
)

// AssertionError describes one failed assertion.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the market and
// returns one message per failure.
func EvaluateAssertions(ctx context.Context, m *market.Market, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertState:
			err = assertState(ctx, m, a)
		case AssertCount:
			err = assertCount(ctx, m, a)
		case AssertListed:
			err = assertListed(ctx, m, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func assertState(ctx context.Context, m *market.Market, a Assertion) error {
	agreement := m.Agreement(a.ID)
	if err := agreement.Sync(ctx); err != nil && !agreement.Initialized() {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("Agreement(%d) in state %s", a.ID, a.State),
			Actual:   err.Error(),
		}
	}
	if got := agreement.State().String(); got != a.State {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("Agreement(%d) in state %s", a.ID, a.State),
			Actual:   got,
		}
	}
	return nil
}

func assertCount(ctx context.Context, m *market.Market, a Assertion) error {
	n, err := m.Count(ctx, a.Kind)
	if err != nil {
		return err
	}
	if n != uint64(a.Count) {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%s list length %d", a.Kind, a.Count),
			Actual:   fmt.Sprintf("%d", n),
		}
	}
	return nil
}

func assertListed(ctx context.Context, m *market.Market, a Assertion) error {
	ids, err := listIDs(ctx, m, a.Kind)
	if err != nil {
		return err
	}
	if len(ids) != a.Count {
		return &AssertionError{
			Type:     AssertListed,
			Expected: fmt.Sprintf("%d live %s entities", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d: %v", len(ids), ids),
		}
	}
	for _, excluded := range a.Excluded {
		if slices.Contains(ids, excluded) {
			return &AssertionError{
				Type:     AssertListed,
				Expected: fmt.Sprintf("%s(%d) not enumerated", a.Kind, excluded),
				Actual:   fmt.Sprintf("enumerated ids %v", ids),
			}
		}
	}
	return nil
}

func listIDs(ctx context.Context, m *market.Market, kind ledger.Kind) ([]uint64, error) {
	var ids []uint64
	collect := func(id uint64, _ bool) { ids = append(ids, id) }

	switch kind {
	case ledger.KindDemand:
		all, err := m.AllDemands(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range all {
			collect(e.ID())
		}
	case ledger.KindSupply:
		all, err := m.AllSupplies(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range all {
			collect(e.ID())
		}
	case ledger.KindAgreement:
		all, err := m.AllAgreements(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range all {
			collect(e.ID())
		}
	default:
		return nil, fmt.Errorf("cannot enumerate %s", kind)
	}
	return ids, nil
}
