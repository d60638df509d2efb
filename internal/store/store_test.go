package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePair(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	x1, y1 := NormalizePair(a, b)
	x2, y2 := NormalizePair(b, a)

	require.Equal(t, x1, x2, "pair order must not depend on argument order")
	require.Equal(t, y1, y2)
	assert.Equal(t, a, x1)
	assert.Equal(t, b, y1)
}

func TestNormalizePairIdentical(t *testing.T) {
	a := uuid.New()
	x, y := NormalizePair(a, a)
	assert.Equal(t, a, x)
	assert.Equal(t, a, y)
}

func TestNormalizePairRandom(t *testing.T) {
	for i := 0; i < 100; i++ {
		a, b := uuid.New(), uuid.New()
		x1, y1 := NormalizePair(a, b)
		x2, y2 := NormalizePair(b, a)
		require.Equal(t, x1, x2)
		require.Equal(t, y1, y2)
	}
}
