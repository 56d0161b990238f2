package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/powermarket/internal/chain"
	"github.com/roach88/powermarket/internal/config"
	"github.com/roach88/powermarket/internal/harness"
	"github.com/roach88/powermarket/internal/ledger"
	"github.com/roach88/powermarket/internal/market"
	"github.com/roach88/powermarket/internal/offchain"
	"github.com/roach88/powermarket/internal/offchain/docstore"
	"github.com/roach88/powermarket/internal/offchain/httpstore"
)

// httpTimeout bounds a single document request in http mode.
const httpTimeout = 30 * time.Second

// session is the set of resources one command works against.
type session struct {
	cfg    config.Config
	chain  *chain.Chain
	docs   *docstore.Store
	market *market.Market
}

func openSession(opts *RootOptions) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	opts.Logger.Debug("config loaded", "file", cfg.File, "ledger", cfg.Ledger.Path, "offchain_mode", cfg.OffChain.Mode)

	c, err := chain.Open(cfg.Ledger.Path, chain.WithLogger(opts.Logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	s := &session{cfg: cfg, chain: c}

	var store offchain.Store
	switch cfg.OffChain.Mode {
	case config.ModeHTTP:
		store = httpstore.NewClient(&http.Client{Timeout: httpTimeout})
	default:
		docs, err := docstore.Open(cfg.OffChain.Path)
		if err != nil {
			s.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open document store", err)
		}
		s.docs = docs
		store = docs
	}

	var signer ledger.Signer
	if cfg.Signer.Key != "" {
		signer, err = ledger.NewSigner(cfg.Signer.Key)
		if err != nil {
			s.Close()
			return nil, WrapExitError(ExitCommandError, "invalid signer.key", err)
		}
	}

	m, err := market.New(market.Config{
		Gateway:     c,
		Store:       store,
		Signer:      signer,
		BaseURL:     cfg.OffChain.BaseURL,
		Concurrency: cfg.Market.Concurrency,
		Logger:      opts.Logger,
	})
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create market", err)
	}
	s.market = m
	return s, nil
}

// Close releases the ledger and the local document store.
func (s *session) Close() error {
	var errs []error
	if s.docs != nil {
		errs = append(errs, s.docs.Close())
	}
	if s.chain != nil {
		errs = append(errs, s.chain.Close())
	}
	return errors.Join(errs...)
}

func (s *session) requireSigner() error {
	if s.market.Signer().PrivateKey == nil {
		return NewExitError(ExitCommandError, "signer.key is not set (config file or POWERMARKET_SIGNER_KEY)")
	}
	return nil
}

// action is the body of a market command. The returned value is written
// with OutputFormatter.Success.
type action func(ctx context.Context, m *market.Market) (any, error)

// runAction opens a session, runs fn and writes its result. Failures of fn
// are classified and written in the selected format.
func runAction(cmd *cobra.Command, opts *RootOptions, signed bool, fn action) error {
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			opts.Logger.Error("error closing session", "error", closeErr)
		}
	}()

	if signed {
		if err := s.requireSigner(); err != nil {
			return err
		}
	}

	out := opts.formatter(cmd)
	result, err := fn(cmd.Context(), s.market)
	if err != nil {
		return out.Fail(ExitFailure, harness.ErrorCode(err), err)
	}
	return out.Success(result)
}

func parseID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q: must be a non-negative integer", arg))
	}
	return id, nil
}

// readProps decodes a JSON payload file into P, rejecting unknown
// members. "-" reads from in.
func readProps[P any](path string, in io.Reader) (P, error) {
	var props P
	if path == "" {
		return props, NewExitError(ExitCommandError, "--props is required")
	}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return props, WrapExitError(ExitCommandError, "failed to read props", err)
	}

	if err := decodeStrict(data, &props); err != nil {
		return props, WrapExitError(ExitCommandError, fmt.Sprintf("invalid props in %s", path), err)
	}
	return props, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
