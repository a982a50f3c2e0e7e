package connect

import (
	"context"
	"fmt"
	"math/big"

	"github.com/certusone/wormhole/connect/pkg/vaa"
)

// ParseTransferMessage decodes the token bridge transfer carried by info. The token address is resolved through
// the token chain's adapter, since on some chains the 32 byte form is a one-way hash of the asset identifier.
func ParseTransferMessage(ctx context.Context, resolver Resolver, info *VaaInfo) (*ParsedMessage, error) {
	v := info.Vaa
	if v == nil {
		var err error
		if v, err = vaa.Unmarshal(info.RawVaa); err != nil {
			return nil, err
		}
	}

	p, err := vaa.DecodeTransferPayload(v.Payload)
	if err != nil {
		return nil, err
	}

	tokenCtx, err := resolver.Get(p.TokenChain)
	if err != nil {
		return nil, err
	}
	destCtx, err := resolver.Get(p.ToChain)
	if err != nil {
		return nil, err
	}

	tokenAddress, err := tokenCtx.ParseAssetAddress(ctx, p.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token address: %w", err)
	}
	recipient, err := destCtx.ParseAddress(p.To)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipient: %w", err)
	}

	return &ParsedMessage{
		SendTx:         info.Tx.Hash,
		Sender:         info.Tx.Sender,
		Amount:         p.Amount,
		PayloadID:      p.PayloadID,
		Recipient:      recipient,
		FromChain:      v.EmitterChain,
		ToChain:        p.ToChain,
		TokenAddress:   tokenAddress,
		TokenChain:     p.TokenChain,
		TokenID:        TokenID{Chain: p.TokenChain, Address: tokenAddress},
		Sequence:       new(big.Int).SetUint64(v.Sequence),
		EmitterAddress: v.EmitterAddress,
		Block:          info.Tx.Block,
		GasFee:         info.Tx.GasFee(),
		Payload:        p.Payload,
	}, nil
}
