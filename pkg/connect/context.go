// Package connect defines the chain adapter contract shared by every supported chain, plus the pieces of the token
// bridge flow that do not depend on a particular chain: foreign asset resolution and transfer message parsing.
package connect

import (
	"context"
	"math/big"

	"github.com/certusone/wormhole/connect/pkg/vaa"
)

// Capabilities lets callers branch on what an adapter supports instead of calling and checking for
// common.ErrUnsupportedOperation.
type Capabilities struct {
	Send            bool
	SendWithPayload bool
	Redeem          bool
	GetVaa          bool
	ParseMessage    bool
	Relay           bool
}

// UnsignedTx is a chain-native transaction payload. Signing and broadcasting it is left to the caller.
type UnsignedTx interface {
	Chain() vaa.ChainID
}

// TransferRequest describes a token bridge send. When both RelayerFee and Payload are set the payload wins and the
// fee is ignored, since the bridge encodes them as different transfer variants.
type TransferRequest struct {
	Token      TokenID
	Amount     *big.Int
	FromChain  vaa.ChainID
	Sender     string
	ToChain    vaa.ChainID
	Recipient  string
	RelayerFee *big.Int
	Payload    []byte
}

// WithPayload reports whether the request maps to the transfer-with-payload variant.
func (r TransferRequest) WithPayload() bool {
	return len(r.Payload) > 0
}

// OriginTx is the part of the origin chain transaction that the message parser needs.
type OriginTx struct {
	Hash     string
	Sender   string
	Block    uint64
	GasUsed  *big.Int
	GasPrice *big.Int
}

// GasFee returns GasUsed * GasPrice in the origin chain's native fee units.
func (t OriginTx) GasFee() *big.Int {
	if t.GasUsed == nil || t.GasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(t.GasUsed, t.GasPrice)
}

// VaaInfo bundles a signed VAA with the origin transaction that emitted it.
type VaaInfo struct {
	Tx     OriginTx
	RawVaa []byte
	Vaa    *vaa.VAA
}

// ParsedMessage is a decoded token bridge transfer.
type ParsedMessage struct {
	SendTx         string
	Sender         string
	Amount         *big.Int
	PayloadID      uint8
	Recipient      string
	FromChain      vaa.ChainID
	ToChain        vaa.ChainID
	TokenAddress   string
	TokenChain     vaa.ChainID
	TokenID        TokenID
	Sequence       *big.Int
	EmitterAddress vaa.Address
	Block          uint64
	GasFee         *big.Int
	Payload        []byte
}

// AddressCodec maps between a chain's native address format and the 32 byte Wormhole form.
type AddressCodec interface {
	FormatAddress(address string) (vaa.Address, error)
	ParseAddress(address vaa.Address) (string, error)
	// FormatAssetAddress maps an asset identifier to the 32 byte form the token bridge uses for it.
	FormatAssetAddress(asset string) (vaa.Address, error)
	// ParseAssetAddress is the inverse of FormatAssetAddress. It may require an on-chain lookup.
	ParseAssetAddress(ctx context.Context, address vaa.Address) (string, error)
}

// Context is implemented once per chain.
type Context interface {
	AddressCodec

	Chain() vaa.ChainID
	Capabilities() Capabilities

	Send(ctx context.Context, req TransferRequest) (UnsignedTx, error)
	SendWithPayload(ctx context.Context, req TransferRequest) (UnsignedTx, error)

	// GetForeignAsset returns the address of token's representation on this chain, or false if it was never
	// bridged here.
	GetForeignAsset(ctx context.Context, token TokenID) (string, bool, error)
	MustGetForeignAsset(ctx context.Context, token TokenID) (string, error)
	FetchTokenDecimals(ctx context.Context, token TokenID) (uint8, error)

	GetVaa(ctx context.Context, txHash string) (*VaaInfo, error)
	ParseMessage(ctx context.Context, info *VaaInfo) (*ParsedMessage, error)

	GetNativeBalance(ctx context.Context, wallet string) (*big.Int, error)
	GetTokenBalance(ctx context.Context, wallet string, token TokenID) (*big.Int, error)
	// CheckBalance queries the balance of a chain-native asset. Accounts that never held the asset report zero.
	CheckBalance(ctx context.Context, wallet string, asset string) (*big.Int, error)

	Redeem(ctx context.Context, rawVaa []byte, payer string) (UnsignedTx, error)
	IsTransferCompleted(ctx context.Context, rawVaa []byte) (bool, error)

	GetTxIdFromReceipt(receipt any) (string, error)
	GetCurrentBlock(ctx context.Context) (uint64, error)
}

// RecipientAccountResolver is implemented by chains where a token can only be received into an account dedicated
// to that token. Senders targeting such a chain transfer to the resolved account instead of the wallet.
type RecipientAccountResolver interface {
	ResolveRecipientAccount(ctx context.Context, token TokenID, wallet string) (string, error)
}

// VaaRetriever fetches the signed VAA for a message once the guardians have attested to it.
type VaaRetriever interface {
	Retrieve(ctx context.Context, chain vaa.ChainID, emitter vaa.Address, sequence uint64) ([]byte, error)
}

// Resolver finds the adapter for a chain. Adapters use it to reach the other side of a transfer.
type Resolver interface {
	Get(chain vaa.ChainID) (Context, error)
}
