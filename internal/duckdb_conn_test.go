package internal

import (
	"context"
	"testing"

	"github.com/lychee-technology/datamimic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDuckDBClient_RejectsNegativeMemoryLimit(t *testing.T) {
	_, err := NewDuckDBClient(datamimic.DuckDBConfig{MemoryLimitMB: -1})
	assert.Error(t, err)
}

func TestDuckDBClient_HealthCheck(t *testing.T) {
	client, err := NewDuckDBClient(datamimic.DuckDBConfig{})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestDuckDBClient_NilIsSafe(t *testing.T) {
	var client *DuckDBClient
	assert.NoError(t, client.Close())
	assert.Error(t, client.HealthCheck(context.Background()))
}
