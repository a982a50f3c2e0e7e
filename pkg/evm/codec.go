package evm

import (
	"bytes"
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

const (
	// nativeDecimals is the precision of ether and every EVM gas token the bridge supports.
	nativeDecimals = 18

	addressLength = 20
)

var zeroAddress = ethCommon.Address{}

// FormatAddress left-pads a 20 byte hex address to 32 bytes.
func FormatAddress(address string) (vaa.Address, error) {
	if !ethCommon.IsHexAddress(address) {
		return vaa.Address{}, fmt.Errorf("invalid evm address %q", address)
	}
	return vaa.BytesToAddress(ethCommon.HexToAddress(address).Bytes())
}

// ParseAddress returns the EIP-55 checksummed form of the low 20 bytes. Addresses with non-zero high bytes did not
// come from an EVM chain.
func ParseAddress(address vaa.Address) (string, error) {
	if !bytes.Equal(address[:32-addressLength], make([]byte, 32-addressLength)) {
		return "", fmt.Errorf("%s is not a padded evm address", address)
	}
	return ethCommon.BytesToAddress(address[32-addressLength:]).Hex(), nil
}

// FormatAssetAddress is FormatAddress, reporting failures as an invalid asset.
func FormatAssetAddress(asset string) (vaa.Address, error) {
	a, err := FormatAddress(asset)
	if err != nil {
		return vaa.Address{}, fmt.Errorf("%w: %w", common.ErrInvalidAssetFormat, err)
	}
	return a, nil
}
