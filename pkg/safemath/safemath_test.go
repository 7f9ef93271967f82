package safemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckedArithmetic(t *testing.T) {
	sum, err := CheckedAddU64(1, 2)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), sum)

	_, err = CheckedAddU64(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = CheckedSubU64(1, 2)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = CheckedMulU64(math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrOverflow)

	prod, err := CheckedMulU64(3480, 2)
	assert.NoError(t, err)
	assert.Equal(t, uint64(6960), prod)
}

func TestSaturatingArithmetic(t *testing.T) {
	assert.Equal(t, uint64(0), SaturatingSubU64(1, 5))
	assert.Equal(t, uint64(4), SaturatingSubU64(5, 1))
	assert.Equal(t, uint64(math.MaxUint64), SaturatingAddU64(math.MaxUint64, 5))
}
