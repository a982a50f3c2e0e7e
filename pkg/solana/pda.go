package solana

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/certusone/wormhole/connect/pkg/vaa"
)

// WrappedMint derives the mint the token bridge creates for a foreign asset.
func WrappedMint(tokenBridge solana.PublicKey, originChain vaa.ChainID, originAddress vaa.Address) (solana.PublicKey, error) {
	chain := make([]byte, 2)
	binary.BigEndian.PutUint16(chain, uint16(originChain))
	mint, _, err := solana.FindProgramAddress([][]byte{[]byte("wrapped"), chain, originAddress[:]}, tokenBridge)
	return mint, err
}

// ClaimAddress derives the account the token bridge creates when it redeems a VAA. Its existence marks the
// transfer as completed.
func ClaimAddress(tokenBridge solana.PublicKey, emitterChain vaa.ChainID, emitter vaa.Address, sequence uint64) (solana.PublicKey, error) {
	chain := make([]byte, 2)
	binary.BigEndian.PutUint16(chain, uint16(emitterChain))
	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, sequence)
	claim, _, err := solana.FindProgramAddress([][]byte{emitter[:], chain, seq}, tokenBridge)
	return claim, err
}
