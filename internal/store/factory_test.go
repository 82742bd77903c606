package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatchsim/engine/internal/config"
)

func TestNewBackend_Memory(t *testing.T) {
	b, err := NewBackend(config.StorageConfig{Type: "memory"}, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestNewBackend_SQLite(t *testing.T) {
	b, err := NewBackend(config.StorageConfig{Type: "sqlite"}, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := NewBackend(config.StorageConfig{Type: "etcd"}, nil, nil)
	assert.Error(t, err)
}
