package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

const (
	// nativeDecimals is the precision of SOL (lamports).
	nativeDecimals = 9

	publicKeyLength = 32
)

// FormatAddress decodes a base58 public key. Solana keys already are 32 bytes.
func FormatAddress(address string) (vaa.Address, error) {
	b, err := base58.Decode(address)
	if err != nil {
		return vaa.Address{}, fmt.Errorf("invalid solana address %q: %w", address, err)
	}
	if len(b) != publicKeyLength {
		return vaa.Address{}, fmt.Errorf("invalid solana address %q: decoded to %d bytes", address, len(b))
	}
	return vaa.BytesToAddress(b)
}

func ParseAddress(address vaa.Address) string {
	return solana.PublicKeyFromBytes(address[:]).String()
}

// FormatAssetAddress decodes a mint address.
func FormatAssetAddress(mint string) (vaa.Address, error) {
	a, err := FormatAddress(mint)
	if err != nil {
		return vaa.Address{}, fmt.Errorf("%w: %w", common.ErrInvalidAssetFormat, err)
	}
	return a, nil
}

func publicKey(address string) (solana.PublicKey, error) {
	a, err := FormatAddress(address)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(a[:]), nil
}
