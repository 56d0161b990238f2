package testutil

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevAccounts(t *testing.T) {
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), Producer.Address)
	assert.Equal(t, common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), Consumer.Address)

	seen := map[common.Address]bool{}
	for _, s := range []common.Address{Producer.Address, Consumer.Address, Matcher.Address, Outsider.Address} {
		assert.False(t, seen[s], "accounts are distinct")
		seen[s] = true
	}
}

func TestDevSigner(t *testing.T) {
	s, err := DevSigner("matcher")
	require.NoError(t, err)
	assert.Equal(t, Matcher.Address, s.Address)

	_, err = DevSigner("nobody")
	assert.ErrorContains(t, err, "consumer")
}

func TestSequence(t *testing.T) {
	seq := NewSequence()
	assert.Equal(t, uint64(0), seq.Current())
	assert.Equal(t, uint64(1), seq.Next())
	assert.Equal(t, uint64(2), seq.Next())
	assert.Equal(t, uint64(2), seq.Current())

	seq.Reset()
	assert.Equal(t, uint64(1), seq.Next())
}

func TestSequenceConcurrent(t *testing.T) {
	seq := NewSequence()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq.Next()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), seq.Current())
}
