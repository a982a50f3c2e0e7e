package vaa

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ChainID of a Wormhole chain
type ChainID uint16

// NOTE: Please keep these in numerical order.
const (
	ChainIDUnset     ChainID = 0
	ChainIDSolana    ChainID = 1
	ChainIDEthereum  ChainID = 2
	ChainIDBSC       ChainID = 4
	ChainIDPolygon   ChainID = 5
	ChainIDAvalanche ChainID = 6
	ChainIDFantom    ChainID = 10
	ChainIDCelo      ChainID = 14
	ChainIDMoonbeam  ChainID = 16
	ChainIDSui       ChainID = 21
	ChainIDAptos     ChainID = 22
	ChainIDArbitrum  ChainID = 23
	ChainIDOptimism  ChainID = 24
	ChainIDBase      ChainID = 30
)

var chainNames = map[ChainID]string{
	ChainIDUnset:     "unset",
	ChainIDSolana:    "solana",
	ChainIDEthereum:  "ethereum",
	ChainIDBSC:       "bsc",
	ChainIDPolygon:   "polygon",
	ChainIDAvalanche: "avalanche",
	ChainIDFantom:    "fantom",
	ChainIDCelo:      "celo",
	ChainIDMoonbeam:  "moonbeam",
	ChainIDSui:       "sui",
	ChainIDAptos:     "aptos",
	ChainIDArbitrum:  "arbitrum",
	ChainIDOptimism:  "optimism",
	ChainIDBase:      "base",
}

func (c ChainID) String() string {
	if name, ok := chainNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown chain ID: %d", c)
}

// IsEVM reports whether the chain runs the EVM token bridge contracts.
func (c ChainID) IsEVM() bool {
	switch c {
	case ChainIDEthereum, ChainIDBSC, ChainIDPolygon, ChainIDAvalanche, ChainIDFantom, ChainIDCelo,
		ChainIDMoonbeam, ChainIDArbitrum, ChainIDOptimism, ChainIDBase:
		return true
	}
	return false
}

// KnownChains returns the chains this module has names for, excluding ChainIDUnset.
func KnownChains() []ChainID {
	out := make([]ChainID, 0, len(chainNames)-1)
	for id := range chainNames {
		if id != ChainIDUnset {
			out = append(out, id)
		}
	}
	return out
}

// ChainIDFromString converts either a chain name ("aptos") or a decimal chain id ("22") into a known ChainID.
func ChainIDFromString(s string) (ChainID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for id, name := range chainNames {
		if id != ChainIDUnset && name == s {
			return id, nil
		}
	}

	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return ChainIDUnset, fmt.Errorf("unknown chain: %q", s)
	}
	if n == 0 || n > math.MaxUint16 {
		return ChainIDUnset, fmt.Errorf("chain id out of range: %d", n)
	}
	if _, ok := chainNames[ChainID(n)]; !ok {
		return ChainIDUnset, fmt.Errorf("no known chain for id %d", n)
	}
	return ChainID(n), nil
}
