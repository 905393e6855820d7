// Package config describes the JSON configuration shape for a single
// Ben-Or agreement node and its peers.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// PeerConfig is one entry in the fully connected peer set.
type PeerConfig struct {
	ID      int    `json:"id"`
	Address string `json:"address"`
}

// NodeConfig is the full construction input for a node.
type NodeConfig struct {
	NodeID       int          `json:"nodeId"`
	N            int          `json:"n"`
	F            int          `json:"f"`
	BasePort     int          `json:"basePort"`
	InitialValue int          `json:"initialValue"`
	IsFaulty     bool         `json:"isFaulty"`
	Peers        []PeerConfig `json:"peers"`
}

// Validate checks the invariants placed on the configuration inputs:
// 0 <= nodeId < N, N >= 1, 0 <= F < N, initialValue in {0,1}.
func (c NodeConfig) Validate() error {
	if c.N < 1 {
		return fmt.Errorf("n must be >= 1, got %d", c.N)
	}
	if c.NodeID < 0 || c.NodeID >= c.N {
		return fmt.Errorf("nodeId %d out of range [0, %d)", c.NodeID, c.N)
	}
	if c.F < 0 || c.F >= c.N {
		return fmt.Errorf("f %d out of range [0, %d)", c.F, c.N)
	}
	if c.InitialValue != 0 && c.InitialValue != 1 {
		return fmt.Errorf("initialValue must be 0 or 1, got %d", c.InitialValue)
	}
	return nil
}

// Load reads and validates a NodeConfig from a JSON file.
func Load(path string) (NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("read config: %w", err)
	}
	var c NodeConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return NodeConfig{}, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return NodeConfig{}, err
	}
	return c, nil
}

// Address returns the address of the peer with the given id, if configured.
func (c NodeConfig) Address(id int) (string, bool) {
	for _, p := range c.Peers {
		if p.ID == id {
			return p.Address, true
		}
	}
	return "", false
}
