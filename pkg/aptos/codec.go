package aptos

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
	"golang.org/x/crypto/sha3"
)

const (
	AptosCoin = "0x1::aptos_coin::AptosCoin"

	// nativeDecimals is the precision of AptosCoin (octas).
	nativeDecimals = 8
)

var coinTypeRegex = regexp.MustCompile(`^(0x)?[0-9a-fA-F]+::\w+::\w+$`)

// IsValidCoinType reports whether s looks like a fully qualified Move struct type, address::module::name.
func IsValidCoinType(s string) bool {
	return coinTypeRegex.MatchString(s)
}

// FormatAddress left-pads an account address to 32 bytes.
func FormatAddress(address string) (vaa.Address, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(address), "0x")
	if trimmed == "" || len(trimmed) > 64 {
		return vaa.Address{}, fmt.Errorf("invalid aptos address %q", address)
	}
	if _, err := hex.DecodeString(evenHex(trimmed)); err != nil {
		return vaa.Address{}, fmt.Errorf("invalid aptos address %q: %w", address, err)
	}
	return vaa.StringToAddress(trimmed)
}

// ParseAddress returns the canonical form of an account address: 0x prefixed, lower-case, even length and without
// leading zero bytes. 0x000...01 becomes 0x01 and the zero address becomes 0x00. Only addresses already in that
// form round-trip through FormatAddress unchanged; 0x1 and 0xABCD come back as 0x01 and 0xabcd.
func ParseAddress(address vaa.Address) string {
	stripped := bytes.TrimLeft(address[:], "\x00")
	if len(stripped) == 0 {
		return "0x00"
	}
	return "0x" + hex.EncodeToString(stripped)
}

// FormatAssetAddress hashes a coin type into the 32 byte form the token bridge uses to refer to it. The hash cannot
// be reversed; the bridge keeps a registry for that.
func FormatAssetAddress(coinType string) (vaa.Address, error) {
	if !IsValidCoinType(coinType) {
		return vaa.Address{}, fmt.Errorf("%w: %q is not an aptos coin type", common.ErrInvalidAssetFormat, coinType)
	}
	return sha3.Sum256([]byte(coinType)), nil
}

// DeriveWrappedAssetAddress computes the account the token bridge creates to hold the coin wrapping the asset
// (originChain, originAddress): sha3_256(bridge | chain | "::" | origin | 0xff).
func DeriveWrappedAssetAddress(tokenBridge string, originChain vaa.ChainID, originAddress vaa.Address) (vaa.Address, error) {
	bridge, err := FormatAddress(tokenBridge)
	if err != nil {
		return vaa.Address{}, fmt.Errorf("%w: token bridge address: %w", common.ErrNotConfigured, err)
	}

	seed := new(bytes.Buffer)
	seed.Write(bridge[:])
	vaa.MustWrite(seed, binary.BigEndian, originChain)
	seed.WriteString("::")
	seed.Write(originAddress[:])
	// The resource account scheme suffix.
	seed.WriteByte(0xff)
	return sha3.Sum256(seed.Bytes()), nil
}

// wrappedCoinType is the coin type the token bridge deploys at a derived wrapped asset address.
func wrappedCoinType(account vaa.Address) string {
	return fmt.Sprintf("0x%s::coin::T", account)
}

// coinAccount returns the address part of a coin type.
func coinAccount(coinType string) string {
	return strings.SplitN(coinType, "::", 2)[0]
}

// sameAddress compares two account addresses regardless of zero padding and case.
func sameAddress(a, b string) bool {
	x, errA := FormatAddress(a)
	y, errB := FormatAddress(b)
	return errA == nil && errB == nil && x == y
}

func evenHex(s string) string {
	if len(s)%2 == 1 {
		return "0" + s
	}
	return s
}
