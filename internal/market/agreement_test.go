package market

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/powermarket/internal/commit"
	"github.com/roach88/powermarket/internal/ledger"
	"github.com/roach88/powermarket/internal/schema"
)

func TestAgreementState(t *testing.T) {
	tests := []struct {
		bySupply, byDemand bool
		want               AgreementState
	}{
		{false, false, Proposed},
		{true, false, ApprovedBySupply},
		{false, true, ApprovedByDemand},
		{true, true, FullyApproved},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			a := Agreement{ApprovedBySupplyOwner: tt.bySupply, ApprovedByDemandOwner: tt.byDemand}
			assert.Equal(t, tt.want, a.State())
		})
	}
}

func TestCreateAgreement(t *testing.T) {
	tm := newTestMarket(t)
	tm.seed(t)
	ctx := context.Background()

	a, err := tm.consumer.CreateAgreement(ctx, 0, 0, sampleTerms(), MatcherProperties{})
	require.NoError(t, err)

	assert.Equal(t, ApprovedByDemand, a.State(), "the creator's side is approved")
	assert.Equal(t, []common.Address{matcher.Address}, a.AllowedMatchers)
	require.True(t, a.Props.Available())
	assert.Equal(t, sampleTerms(), *a.Props.Properties)
	require.True(t, a.Matcher.Available())
	assert.Equal(t, MatcherProperties{}, *a.Matcher.Properties)
	assert.Equal(t, testBaseURL+"/Agreement", a.Props.Handle.Locator)
	assert.Equal(t, testBaseURL+"/Matcher", a.Matcher.Handle.Locator)

	t.Run("by the supply owner", func(t *testing.T) {
		a, err := tm.producer.CreateAgreement(ctx, 0, 0, sampleTerms(), MatcherProperties{})
		require.NoError(t, err)
		assert.Equal(t, ApprovedBySupply, a.State())
	})

	t.Run("by an outsider", func(t *testing.T) {
		_, err := tm.outsider.CreateAgreement(ctx, 0, 0, sampleTerms(), MatcherProperties{})
		assert.True(t, ledger.IsNotAuthorized(err))
	})

	t.Run("invalid terms", func(t *testing.T) {
		terms := sampleTerms()
		terms.End = terms.Start - 1
		_, err := tm.consumer.CreateAgreement(ctx, 0, 0, terms, MatcherProperties{})
		assert.True(t, schema.IsValidationError(err))
	})
}

func TestApprovalCommutativeAndIdempotent(t *testing.T) {
	orders := map[string][]string{
		"supply then demand": {"supply", "demand"},
		"demand then supply": {"demand", "supply"},
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			tm := newTestMarket(t)
			tm.seed(t)
			ctx := context.Background()

			// The demand owner proposes, so approving the demand side is a
			// no-op on the ledger.
			created, err := tm.consumer.CreateAgreement(ctx, 0, 0, sampleTerms(), MatcherProperties{})
			require.NoError(t, err)
			id, _ := created.ID()

			approve := func(side string) {
				if side == "supply" {
					require.NoError(t, tm.producer.Agreement(id).ApproveSupply(ctx))
				} else {
					require.NoError(t, tm.consumer.Agreement(id).ApproveDemand(ctx))
				}
			}
			for _, side := range order {
				approve(side)
			}

			a := tm.matcher.Agreement(id)
			require.NoError(t, a.Sync(ctx))
			assert.True(t, a.ApprovedBySupplyOwner)
			assert.True(t, a.ApprovedByDemandOwner)
			assert.Equal(t, FullyApproved, a.State())

			for _, side := range order {
				approve(side)
			}
			require.NoError(t, a.Sync(ctx))
			assert.Equal(t, FullyApproved, a.State())
		})
	}
}

func TestApprovalRequiresOwner(t *testing.T) {
	tm := newTestMarket(t)
	tm.seed(t)
	ctx := context.Background()

	_, err := tm.consumer.CreateAgreement(ctx, 0, 0, sampleTerms(), MatcherProperties{})
	require.NoError(t, err)

	err = tm.consumer.Agreement(0).ApproveSupply(ctx)
	assert.True(t, ledger.IsNotAuthorized(err))

	err = tm.matcher.Agreement(0).ApproveSupply(ctx)
	assert.True(t, ledger.IsNotAuthorized(err))

	a := tm.producer.Agreement(0)
	require.NoError(t, a.Sync(ctx))
	assert.Equal(t, ApprovedByDemand, a.State())
}

func TestSetMatcherProperties(t *testing.T) {
	tm := newTestMarket(t)
	tm.seed(t)
	ctx := context.Background()

	created, err := tm.consumer.CreateAgreement(ctx, 0, 0, sampleTerms(), MatcherProperties{})
	require.NoError(t, err)
	before := created.Matcher.Handle
	update := MatcherProperties{CurrentWh: 1200, CurrentPeriod: 3}

	for _, m := range []*Market{tm.producer, tm.consumer, tm.outsider} {
		err := m.Agreement(0).SetMatcherProperties(ctx, update)
		assert.True(t, ledger.IsNotAuthorized(err), "signer %s", m.Signer().Address.Hex())
	}

	a := tm.producer.Agreement(0)
	require.NoError(t, a.Sync(ctx))
	assert.Equal(t, before, a.Matcher.Handle, "rejected updates leave matcher fields unchanged")

	t.Run("allowed matcher before full approval", func(t *testing.T) {
		a := tm.matcher.Agreement(0)
		require.NoError(t, a.SetMatcherProperties(ctx, update))
		assert.Equal(t, ApprovedByDemand, a.State())
		require.True(t, a.Matcher.Available())
		assert.Equal(t, update, *a.Matcher.Properties)
		assert.Equal(t, commit.MustCommit(update).Hash, a.Matcher.Handle.Hash)

		require.True(t, a.Props.Available(), "terms are untouched")
		assert.Equal(t, sampleTerms(), *a.Props.Properties)
	})
}

func TestAgreementTamperedMatcherKeepsTerms(t *testing.T) {
	tm := newTestMarket(t)
	tm.seed(t)
	ctx := context.Background()

	created, err := tm.consumer.CreateAgreement(ctx, 0, 0, sampleTerms(), MatcherProperties{CurrentWh: 5})
	require.NoError(t, err)
	tm.store.overwrite(created.Matcher.Handle, []byte(`{"currentPeriod":0,"currentWh":6}`))

	a := tm.consumer.Agreement(0)
	err = a.Sync(ctx)
	ie := requireErrorAs[*IntegrityError](t, err)
	assert.Equal(t, schema.Matcher, ie.Payload)

	assert.True(t, a.Props.Available())
	assert.False(t, a.Matcher.Available())

	require.NoError(t, a.RepairMatcherProperties(ctx, MatcherProperties{CurrentWh: 5}))
	assert.True(t, a.Matcher.Available())
}

func TestAllAgreements(t *testing.T) {
	tm := newTestMarket(t)
	tm.seed(t)
	ctx := context.Background()

	_, err := tm.consumer.CreateAgreement(ctx, 0, 0, sampleTerms(), MatcherProperties{})
	require.NoError(t, err)
	_, err = tm.producer.CreateAgreement(ctx, 0, 0, sampleTerms(), MatcherProperties{})
	require.NoError(t, err)

	n, err := tm.matcher.AgreementCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	all, err := tm.matcher.AllAgreements(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ApprovedByDemand, all[0].State())
	assert.Equal(t, ApprovedBySupply, all[1].State())
}

func TestCreateAgreementWriteFailure(t *testing.T) {
	tm := newTestMarket(t)
	tm.seed(t)
	ctx := context.Background()

	tm.store.setFailPut(true)
	a, err := tm.consumer.CreateAgreement(ctx, 0, 0, sampleTerms(), MatcherProperties{})
	assert.True(t, IsOffChainWriteError(err))
	require.NotNil(t, a)
	assert.True(t, a.Initialized())
	assert.Equal(t, ApprovedByDemand, a.State())

	tm.store.setFailPut(false)
	require.NoError(t, a.RepairOffChain(ctx, sampleTerms()))
	require.NoError(t, a.RepairMatcherProperties(ctx, MatcherProperties{}))
	require.NoError(t, a.Sync(ctx))
}

func TestAgreementResyncMissingClearsState(t *testing.T) {
	tm := newTestMarket(t)
	tm.seed(t)
	ctx := context.Background()

	a, err := tm.consumer.CreateAgreement(ctx, 0, 0, sampleTerms(), MatcherProperties{})
	require.NoError(t, err)
	require.True(t, a.Props.Available())

	a.id = 4
	err = a.Sync(ctx)
	assert.True(t, ledger.IsNotFound(err))
	assert.False(t, a.Initialized())
	assert.Equal(t, Proposed, a.State())
	assert.Empty(t, a.AllowedMatchers)
	assert.False(t, a.Props.Available())
	assert.False(t, a.Matcher.Available())
}
