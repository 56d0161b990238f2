package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/powermarket/internal/chain"
	"github.com/roach88/powermarket/internal/ledger"
	"github.com/roach88/powermarket/internal/market"
	"github.com/roach88/powermarket/internal/offchain/docstore"
	"github.com/roach88/powermarket/internal/schema"
	"github.com/roach88/powermarket/internal/testutil"
)

// Error codes reported in traces for failures that are not ledger errors.
const (
	CodeValidation    = "VALIDATION"
	CodeIntegrity     = "INTEGRITY"
	CodeOffChainWrite = "OFFCHAIN_WRITE"
	CodeBadProps      = "BAD_PROPS"
	CodeOther         = "ERROR"
)

// scenarioBaseURL only shapes locators; documents live in the in-memory
// store.
const scenarioBaseURL = "http://scenario.local"

// Harness executes one scenario against its own chain and store.
type Harness struct {
	chain   *chain.Chain
	docs    *docstore.Store
	base    *market.Market
	markets map[string]*market.Market
	signers map[string]ledger.Signer
	seq     *testutil.Sequence
	logger  *slog.Logger
}

// Run executes scenario in a fresh in-memory market and evaluates its
// assertions. The returned error is reserved for harness failures;
// unexpected step outcomes are recorded in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}
	defer h.close()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	for _, errMsg := range EvaluateAssertions(ctx, h.base, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := chain.Open(":memory:", chain.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory chain: %w", err)
	}
	docs, err := docstore.Open(":memory:")
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create in-memory document store: %w", err)
	}

	base, err := market.New(market.Config{
		Gateway: c,
		Store:   docs,
		BaseURL: scenarioBaseURL,
		Logger:  logger,
	})
	if err != nil {
		c.Close()
		docs.Close()
		return nil, err
	}

	h := &Harness{
		chain:   c,
		docs:    docs,
		base:    base,
		markets: make(map[string]*market.Market),
		signers: make(map[string]ledger.Signer),
		seq:     testutil.NewSequence(),
		logger:  logger,
	}
	for name, key := range scenario.Actors {
		signer, err := resolveActor(name, key)
		if err != nil {
			h.close()
			return nil, err
		}
		h.signers[name] = signer
		h.markets[name] = base.WithSigner(signer)
	}
	return h, nil
}

func resolveActor(name, key string) (ledger.Signer, error) {
	if key == "" {
		signer, err := testutil.DevSigner(name)
		if err != nil {
			return ledger.Signer{}, fmt.Errorf("actor %s: %w", name, err)
		}
		return signer, nil
	}
	signer, err := ledger.NewSigner(key)
	if err != nil {
		return ledger.Signer{}, fmt.Errorf("actor %s: %w", name, err)
	}
	return signer, nil
}

func (h *Harness) close() {
	h.docs.Close()
	h.chain.Close()
}

// execute runs one step and records its trace line. A step whose outcome
// differs from ExpectError is recorded as a result error.
func (h *Harness) execute(ctx context.Context, step Step, result *Result) error {
	m, ok := h.markets[step.Actor]
	if !ok {
		return fmt.Errorf("unknown actor %q", step.Actor)
	}

	seq := h.seq.Next()
	prefix := fmt.Sprintf("%d %s %s%s", seq, step.Actor, step.Op, target(step))

	outcome, err := h.apply(ctx, m, step)
	code := ""
	if err != nil {
		code = ErrorCode(err)
		outcome = "error " + code
	}
	result.AddTrace(prefix + " -> " + outcome)

	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", seq, step.Op, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("step %d (%s): expected %s, got success", seq, step.Op, step.ExpectError))
	case step.ExpectError != "" && code != step.ExpectError:
		result.AddError(fmt.Sprintf("step %d (%s): expected %s, got %s: %v", seq, step.Op, step.ExpectError, code, err))
	}

	h.logger.Debug("scenario step", "seq", seq, "op", step.Op, "actor", step.Actor, "outcome", outcome)
	return nil
}

func target(step Step) string {
	switch step.Op {
	case OpDeleteDemand:
		return fmt.Sprintf(" Demand(%d)", *step.ID)
	case OpApproveSupply, OpApproveDemand, OpSetMatcher:
		return fmt.Sprintf(" Agreement(%d)", *step.ID)
	case OpCreateSupply:
		return fmt.Sprintf(" asset=%d", *step.Asset)
	case OpCreateAgreement:
		return fmt.Sprintf(" demand=%d supply=%d", *step.Demand, *step.Supply)
	default:
		return ""
	}
}

// apply performs the step and describes its outcome.
func (h *Harness) apply(ctx context.Context, m *market.Market, step Step) (string, error) {
	switch step.Op {
	case OpCreateAsset:
		matchers := make([]common.Address, 0, len(step.Matchers))
		for _, name := range step.Matchers {
			matchers = append(matchers, h.signers[name].Address)
		}
		a, err := m.CreateAsset(ctx, matchers)
		if err != nil {
			return "", err
		}
		return describe(a.Kind(), a.ID), nil

	case OpCreateDemand:
		props, err := decodeProps[market.DemandProperties](step.Props)
		if err != nil {
			return "", err
		}
		d, err := m.CreateDemand(ctx, props)
		if err != nil {
			return "", err
		}
		return describe(d.Kind(), d.ID), nil

	case OpDeleteDemand:
		return "ok", m.DeleteDemand(ctx, *step.ID)

	case OpCreateSupply:
		props, err := decodeProps[market.SupplyProperties](step.Props)
		if err != nil {
			return "", err
		}
		s, err := m.CreateSupply(ctx, *step.Asset, props)
		if err != nil {
			return "", err
		}
		return describe(s.Kind(), s.ID), nil

	case OpCreateAgreement:
		terms, err := decodeProps[market.AgreementProperties](step.Props)
		if err != nil {
			return "", err
		}
		telemetry, err := decodeProps[market.MatcherProperties](step.MatcherProps)
		if err != nil {
			return "", err
		}
		a, err := m.CreateAgreement(ctx, *step.Demand, *step.Supply, terms, telemetry)
		if err != nil {
			return "", err
		}
		return describe(a.Kind(), a.ID) + " " + a.State().String(), nil

	case OpApproveSupply, OpApproveDemand:
		a := m.Agreement(*step.ID)
		approve := a.ApproveSupply
		if step.Op == OpApproveDemand {
			approve = a.ApproveDemand
		}
		if err := approve(ctx); err != nil {
			return "", err
		}
		return a.State().String(), nil

	case OpSetMatcher:
		props, err := decodeProps[market.MatcherProperties](step.Props)
		if err != nil {
			return "", err
		}
		return "ok", m.Agreement(*step.ID).SetMatcherProperties(ctx, props)

	default:
		return "", fmt.Errorf("unknown op %q", step.Op)
	}
}

func describe(kind ledger.Kind, id func() (uint64, bool)) string {
	n, _ := id()
	return fmt.Sprintf("%s(%d)", kind, n)
}

// propsError marks a payload that could not be decoded into its Go type.
type propsError struct{ err error }

func (e *propsError) Error() string { return "decode props: " + e.err.Error() }
func (e *propsError) Unwrap() error { return e.err }

// decodeProps converts a YAML map into a payload struct, rejecting
// unknown members.
func decodeProps[P any](raw map[string]any) (P, error) {
	var props P
	if raw == nil {
		return props, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return props, &propsError{err}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&props); err != nil {
		return props, &propsError{err}
	}
	return props, nil
}

// ErrorCode classifies err for traces and expect_error.
func ErrorCode(err error) string {
	var (
		le *ledger.Error
		pe *propsError
	)
	switch {
	case errors.As(err, &le):
		return string(le.Code)
	case errors.As(err, &pe):
		return CodeBadProps
	case schema.IsValidationError(err):
		return CodeValidation
	case market.IsOffChainWriteError(err):
		return CodeOffChainWrite
	case market.IsIntegrityError(err):
		return CodeIntegrity
	default:
		return CodeOther
	}
}
