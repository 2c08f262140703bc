package chain

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ethereum/go-ethereum/common"
)

// CollectionDefinitions models the structure of configs/collections.yaml.
// The list order is preserved: collections are verified in the order they
// appear here.
type CollectionDefinitions struct {
	Collections []CollectionDefinition `yaml:"collections"`
}

// CollectionDefinition describes one gating NFT collection.
type CollectionDefinition struct {
	Address     string `yaml:"address"`
	Description string `yaml:"description"`
}

// LoadCollectionDefinitions parses the YAML file listing gating collections.
func LoadCollectionDefinitions(path string) (CollectionDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return CollectionDefinitions{}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return CollectionDefinitions{}, fmt.Errorf("read collections file: %w", err)
	}

	var defs CollectionDefinitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return CollectionDefinitions{}, fmt.Errorf("parse collections file: %w", err)
	}

	for i, def := range defs.Collections {
		if !common.IsHexAddress(def.Address) {
			return CollectionDefinitions{}, fmt.Errorf("collection %d: invalid address %q", i, def.Address)
		}
	}
	return defs, nil
}

// Addresses returns the collection contract addresses in definition order.
func (d CollectionDefinitions) Addresses() []string {
	out := make([]string, 0, len(d.Collections))
	for _, def := range d.Collections {
		out = append(out, def.Address)
	}
	return out
}
