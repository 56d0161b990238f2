package commit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitIsOrderIndependent(t *testing.T) {
	a, err := Parse([]byte(`{"price":1.5,"quantity":10,"meta":{"x":1,"y":2}}`))
	require.NoError(t, err)
	b, err := Parse([]byte(`{ "meta": {"y":2, "x":1}, "quantity": 10, "price": 1.50 }`))
	require.NoError(t, err)

	ca, err := Commit(a)
	require.NoError(t, err)
	cb, err := Commit(b)
	require.NoError(t, err)

	assert.Equal(t, ca.Hash, cb.Hash)
	assert.Equal(t, string(ca.Canonical), string(cb.Canonical))
}

func TestCommitIntAndIntegralFloatAgree(t *testing.T) {
	assert.Equal(t,
		MustCommit(Object{"q": Int(10)}).Hash,
		MustCommit(Object{"q": Float(10)}).Hash)
}

func TestCommitHashShape(t *testing.T) {
	c := MustCommit(Object{"price": Float(1.5), "quantity": Int(10)})
	assert.Len(t, string(c.Hash), 64)

	parsed, err := ParseHash(string(c.Hash))
	require.NoError(t, err)
	assert.Equal(t, c.Hash, parsed)
	assert.Equal(t, string(c.Hash)[:12], c.Hash.Short())
}

func TestCommitUsesDomainSeparation(t *testing.T) {
	c := MustCommit(Object{"a": Int(1)})
	assert.Equal(t, Sum([]byte(`{"a":1}`)), c.Hash)
	assert.NotEqual(t, Sum([]byte(`{"a":1} `)), c.Hash)
}

func TestVerify(t *testing.T) {
	payload := map[string]any{"price": 1.5, "quantity": 10}
	h := MustCommit(payload).Hash

	assert.True(t, Verify(payload, h))
	assert.False(t, Verify(map[string]any{"price": 1.5, "quantity": 11}, h))
	assert.False(t, Verify(map[string]any{"price": 1.5}, h))
	assert.False(t, Verify(payload, ""))
}

func TestVerifyDetectsSingleBitMutation(t *testing.T) {
	doc := []byte(`{"currency":"USD","price":1.5,"quantity":10}`)
	_, h, ok, err := VerifyDocument(doc, Sum(doc))
	require.NoError(t, err)
	require.True(t, ok)

	// Flip the low bit of every byte. Mutations that still parse must
	// break verification.
	for i := range doc {
		mutated := append([]byte(nil), doc...)
		mutated[i] ^= 0x01
		if _, err := Parse(mutated); err != nil {
			continue
		}
		_, actual, ok, err := VerifyDocument(mutated, h)
		require.NoError(t, err)
		assert.False(t, ok, "mutation at byte %d (%q) verified", i, mutated)
		assert.NotEqual(t, h, actual)
	}
}

func TestParseHashRejectsGarbage(t *testing.T) {
	_, err := ParseHash("zz")
	require.Error(t, err)

	_, err = ParseHash(strings.Repeat("ab", 16))
	require.Error(t, err)

	h, err := ParseHash("")
	require.NoError(t, err)
	assert.True(t, h.IsZero())
}
