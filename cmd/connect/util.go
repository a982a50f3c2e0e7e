package connect

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/certusone/wormhole/connect/pkg/connect"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

const nativeTokenName = "native"

func parseChain(name string) (vaa.ChainID, error) {
	if name == "" {
		return vaa.ChainIDUnset, fmt.Errorf("chain is required")
	}
	return vaa.ChainIDFromString(name)
}

// parseToken reads a token given as a chain and an address on it, or the word "native".
func parseToken(chainName string, address string) (connect.TokenID, error) {
	if address == "" || strings.EqualFold(address, nativeTokenName) {
		return connect.NativeToken, nil
	}
	chain, err := parseChain(chainName)
	if err != nil {
		return connect.TokenID{}, fmt.Errorf("token chain: %w", err)
	}
	return connect.TokenID{Chain: chain, Address: address}, nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
