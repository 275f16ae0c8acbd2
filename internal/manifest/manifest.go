// Package manifest defines the declarative data-source input this core
// consumes. Loading a manifest from storage is an external collaborator;
// this package owns only the shape of what that loader yields
// (decoded from YAML, the format graph-node subgraph manifests use) and the
// small amount of derivation (event/function signature hashing) needed to
// turn a manifest into filter edges.
package manifest

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"
)

// BlockHandlerKind distinguishes an unconditional block handler from one
// that only fires for blocks containing a call to the data source's address.
type BlockHandlerKind int

const (
	BlockHandlerNoFilter BlockHandlerKind = iota
	BlockHandlerCallFilter
)

// UnmarshalYAML lets manifests spell this as `filter: call` or omit it.
func (k *BlockHandlerKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "", "none":
		*k = BlockHandlerNoFilter
	case "call":
		*k = BlockHandlerCallFilter
	default:
		return fmt.Errorf("manifest: unknown block handler filter %q", s)
	}
	return nil
}

// BlockHandler is a single block-level handler declaration.
type BlockHandler struct {
	Filter BlockHandlerKind `yaml:"filter"`
}

// DataSource is one declared (address, handler-set, start_block) unit of
// interest.
type DataSource struct {
	Name          string         `yaml:"name"`
	Address       *common.Address `yaml:"-"`
	AddressHex    string         `yaml:"address"`
	StartBlock    uint64         `yaml:"startBlock"`
	EventSigs     []string       `yaml:"eventHandlers"`
	CallSigs      []string       `yaml:"callHandlers"`
	BlockHandlers []BlockHandler `yaml:"blockHandlers"`
}

// EventSignatures returns the data source's event handler topics, hashing
// each canonical Solidity event signature with keccak256.
func (d DataSource) EventSignatures() []common.Hash {
	out := make([]common.Hash, 0, len(d.EventSigs))
	for _, sig := range d.EventSigs {
		out = append(out, crypto.Keccak256Hash([]byte(sig)))
	}
	return out
}

// FunctionSelector is the 4-byte prefix of keccak256(function signature).
type FunctionSelector [4]byte

// Selector computes the 4-byte selector for a canonical Solidity function
// signature string, e.g. "transfer(address,uint256)".
func Selector(signature string) FunctionSelector {
	hash := crypto.Keccak256([]byte(signature))
	var sel FunctionSelector
	copy(sel[:], hash[:4])
	return sel
}

// CallSelectors returns the data source's call handler selectors.
func (d DataSource) CallSelectors() []FunctionSelector {
	out := make([]FunctionSelector, 0, len(d.CallSigs))
	for _, sig := range d.CallSigs {
		out = append(out, Selector(sig))
	}
	return out
}

// HasCallFilterBlockHandler reports whether any block handler is scoped to
// calls targeting this data source's address.
func (d DataSource) HasCallFilterBlockHandler() bool {
	for _, h := range d.BlockHandlers {
		if h.Filter == BlockHandlerCallFilter {
			return true
		}
	}
	return false
}

// HasUnfilteredBlockHandler reports whether any block handler fires on every
// block regardless of its contents.
func (d DataSource) HasUnfilteredBlockHandler() bool {
	for _, h := range d.BlockHandlers {
		if h.Filter == BlockHandlerNoFilter {
			return true
		}
	}
	return false
}

// manifestFile is the on-disk shape a subgraph manifest takes.
type manifestFile struct {
	DataSources []DataSource `yaml:"dataSources"`
}

// Load decodes a manifest file and resolves each data source's address.
func Load(path string) ([]DataSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes manifest YAML from memory, useful for tests and for callers
// that already have the bytes (e.g. fetched from IPFS by an external loader).
func Parse(raw []byte) ([]DataSource, error) {
	var mf manifestFile
	if err := yaml.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	for i := range mf.DataSources {
		ds := &mf.DataSources[i]
		if ds.AddressHex != "" {
			addr := common.HexToAddress(ds.AddressHex)
			ds.Address = &addr
		}
	}
	return mf.DataSources, nil
}
