package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() NodeConfig {
	return NodeConfig{
		NodeID:       0,
		N:            3,
		F:            1,
		BasePort:     9000,
		InitialValue: 1,
		Peers: []PeerConfig{
			{ID: 0, Address: "localhost:9000"},
			{ID: 1, Address: "localhost:9001"},
			{ID: 2, Address: "localhost:9002"},
		},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsOutOfRangeNodeID(t *testing.T) {
	c := validConfig()
	c.NodeID = 3
	assert.Error(t, c.Validate())
}

func TestValidateRejectsBadInitialValue(t *testing.T) {
	c := validConfig()
	c.InitialValue = 2
	assert.Error(t, c.Validate())
}

func TestValidateRejectsFOutOfRange(t *testing.T) {
	c := validConfig()
	c.F = 3
	assert.Error(t, c.Validate())
}

func TestAddressLookup(t *testing.T) {
	c := validConfig()
	addr, ok := c.Address(1)
	require.True(t, ok)
	assert.Equal(t, "localhost:9001", addr)

	_, ok = c.Address(99)
	assert.False(t, ok)
}

func TestLoadReadsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.json")

	data, err := json.Marshal(validConfig())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.N)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.json")

	bad := validConfig()
	bad.N = 0
	data, err := json.Marshal(bad)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Load(path)
	assert.Error(t, err)
}
