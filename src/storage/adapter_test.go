package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapterRoundTrip(t *testing.T) {
	adapter := NewMemoryAdapter()

	_, found, err := adapter.Get("missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, adapter.Set("k", "v1"))
	require.NoError(t, adapter.Set("k", "v2"))

	value, found, err := adapter.Get("k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v2", value)
}

func TestMemoryAdapterInjectedSetError(t *testing.T) {
	adapter := NewMemoryAdapter()
	adapter.SetErr = errors.New("boom")

	err := adapter.Set("k", "v")
	assert.Error(t, err)

	_, found, err := adapter.Get("k")
	require.NoError(t, err)
	assert.False(t, found, "failed Set must not store the value")
}
