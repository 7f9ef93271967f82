package cu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMeter_Consume(t *testing.T) {
	cm := NewComputeMeter(1000)
	require.NoError(t, cm.Consume(400))
	assert.Equal(t, uint64(400), cm.Used())
	assert.Equal(t, uint64(600), cm.Remaining())

	err := cm.Consume(601)
	assert.ErrorIs(t, err, ErrComputeExceeded)
	assert.True(t, cm.Exceeded())
	assert.Equal(t, uint64(0), cm.Remaining())
	assert.Equal(t, uint64(1000), cm.Used())
}

func TestComputeMeter_Disabled(t *testing.T) {
	cm := NewComputeMeterDefault()
	cm.Disable()
	assert.NoError(t, cm.Consume(DefaultComputeBudget+1))
	assert.True(t, cm.Exceeded())
}
