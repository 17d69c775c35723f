package conclusion

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nfa-builder/internal/types"
)

type fixedSource int

func (f fixedSource) IntN(int) int { return int(f) }

func TestSynthesize_Reimbursement(t *testing.T) {
	for i := range Pool(types.DocumentReimbursement) {
		got := Synthesize(types.DocumentReimbursement, fixedSource(i))
		assert.NotEmpty(t, got)
		assert.Contains(t, got, "reimbursed")
	}
}

func TestSynthesize_Advance(t *testing.T) {
	for i := range Pool(types.DocumentAdvance) {
		got := Synthesize(types.DocumentAdvance, fixedSource(i))
		assert.Contains(t, strings.ToLower(got), "advance")
		assert.NotContains(t, got, "reimbursed")
	}
}

func TestSynthesize_UnknownTypeFailsClosed(t *testing.T) {
	assert.Equal(t, Generic, Synthesize("loan", nil))
	assert.Equal(t, Generic, Synthesize("", fixedSource(0)))
}

func TestSynthesize_OutOfRangeSource(t *testing.T) {
	assert.Equal(t, Generic, Synthesize(types.DocumentAdvance, fixedSource(99)))
	assert.Equal(t, Generic, Synthesize(types.DocumentAdvance, fixedSource(-1)))
}

func TestSynthesize_SeededIsDeterministic(t *testing.T) {
	a := rand.New(rand.NewPCG(7, 11))
	b := rand.New(rand.NewPCG(7, 11))

	for range 10 {
		assert.Equal(t,
			Synthesize(types.DocumentReimbursement, a),
			Synthesize(types.DocumentReimbursement, b))
	}
}

func TestSynthesize_NilSourceStaysInPool(t *testing.T) {
	pool := Pool(types.DocumentAdvance)
	for range 20 {
		assert.Contains(t, pool, Synthesize(types.DocumentAdvance, nil))
	}
}

func TestPool(t *testing.T) {
	require.Len(t, Pool(types.DocumentReimbursement), 5)
	require.Len(t, Pool(types.DocumentAdvance), 5)
	assert.Nil(t, Pool("loan"))

	// Mutating the copy must not leak into the package pool.
	p := Pool(types.DocumentAdvance)
	p[0] = "changed"
	assert.NotEqual(t, "changed", Pool(types.DocumentAdvance)[0])
}
