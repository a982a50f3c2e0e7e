// Package solana implements the read side of the token bridge chain adapter for Solana: foreign asset lookup,
// associated token account resolution for transfers into Solana, balances and completion checks.
package solana

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/certusone/wormhole/connect/pkg/assetcache"
	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/connect"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

const rpcTimeout = 10 * time.Second

var (
	_ connect.Context                  = (*Context)(nil)
	_ connect.RecipientAccountResolver = (*Context)(nil)
)

// RPC is the subset of rpc.Client the context needs.
type RPC interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetTokenSupply(ctx context.Context, tokenMint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
	GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

var _ RPC = (*rpc.Client)(nil)

type Config struct {
	TokenBridge string
	// Commitment defaults to confirmed.
	Commitment rpc.CommitmentType
}

type Context struct {
	logger      *zap.Logger
	rpc         RPC
	tokenBridge solana.PublicKey
	commitment  rpc.CommitmentType
	assets      *connect.ForeignAssets
}

func NewContext(logger *zap.Logger, client RPC, cfg Config, resolver connect.Resolver, cache *assetcache.Cache) (*Context, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: solana rpc", common.ErrNotConfigured)
	}
	tokenBridge, err := publicKey(cfg.TokenBridge)
	if err != nil {
		return nil, fmt.Errorf("%w: solana token bridge: %w", common.ErrNotConfigured, err)
	}
	commitment := cfg.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}

	c := &Context{
		logger:      logger.With(zap.String("component", "solana_context")),
		rpc:         client,
		tokenBridge: tokenBridge,
		commitment:  commitment,
	}
	c.assets = connect.NewForeignAssets(vaa.ChainIDSolana, cache, resolver, c.lookupWrappedAsset)
	return c, nil
}

func (c *Context) Chain() vaa.ChainID {
	return vaa.ChainIDSolana
}

func (c *Context) Capabilities() connect.Capabilities {
	return connect.Capabilities{}
}

func (c *Context) FormatAddress(address string) (vaa.Address, error) {
	return FormatAddress(address)
}

func (c *Context) ParseAddress(address vaa.Address) (string, error) {
	return ParseAddress(address), nil
}

func (c *Context) FormatAssetAddress(asset string) (vaa.Address, error) {
	return FormatAssetAddress(asset)
}

func (c *Context) ParseAssetAddress(_ context.Context, address vaa.Address) (string, error) {
	return ParseAddress(address), nil
}

// accountExists reports whether the account has been created.
func (c *Context) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	timeout, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	_, err := c.rpc.GetAccountInfoWithOpts(timeout, account, &rpc.GetAccountInfoOpts{Commitment: c.commitment})
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: account %s: %w", common.ErrRpcFailure, account, err)
	}
	return true, nil
}

func (c *Context) lookupWrappedAsset(ctx context.Context, originChain vaa.ChainID, originAddress vaa.Address) (string, bool, error) {
	mint, err := WrappedMint(c.tokenBridge, originChain, originAddress)
	if err != nil {
		return "", false, err
	}
	ok, err := c.accountExists(ctx, mint)
	if err != nil || !ok {
		return "", false, err
	}
	return mint.String(), true, nil
}

func (c *Context) GetForeignAsset(ctx context.Context, token connect.TokenID) (string, bool, error) {
	return c.assets.Get(ctx, token)
}

func (c *Context) MustGetForeignAsset(ctx context.Context, token connect.TokenID) (string, error) {
	return c.assets.MustGet(ctx, token)
}

// mint resolves a token to its SPL mint. The native marker maps to wrapped SOL.
func (c *Context) mint(ctx context.Context, token connect.TokenID) (solana.PublicKey, error) {
	if token.IsNative() {
		return solana.SolMint, nil
	}
	mint, err := c.MustGetForeignAsset(ctx, token)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return publicKey(mint)
}

// ResolveRecipientAccount returns the wallet's associated token account for the token's Solana mint.
func (c *Context) ResolveRecipientAccount(ctx context.Context, token connect.TokenID, wallet string) (string, error) {
	owner, err := publicKey(wallet)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrRecipientAccountUnresolved, err)
	}
	mint, err := c.mint(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrRecipientAccountUnresolved, err)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrRecipientAccountUnresolved, err)
	}
	c.logger.Debug("resolved recipient account", zap.String("wallet", wallet), zap.Stringer("mint", mint), zap.Stringer("account", ata))
	return ata.String(), nil
}

func (c *Context) FetchTokenDecimals(ctx context.Context, token connect.TokenID) (uint8, error) {
	if token.IsNative() {
		return nativeDecimals, nil
	}
	mint, err := c.mint(ctx, token)
	if err != nil {
		return 0, err
	}
	timeout, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	supply, err := c.rpc.GetTokenSupply(timeout, mint, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("%w: token supply of %s: %w", common.ErrRpcFailure, mint, err)
	}
	if supply.Value == nil {
		return 0, fmt.Errorf("%w: token supply of %s is empty", common.ErrRpcFailure, mint)
	}
	return supply.Value.Decimals, nil
}

func (c *Context) GetNativeBalance(ctx context.Context, wallet string) (*big.Int, error) {
	owner, err := publicKey(wallet)
	if err != nil {
		return nil, err
	}
	timeout, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	balance, err := c.rpc.GetBalance(timeout, owner, c.commitment)
	if err != nil {
		return nil, fmt.Errorf("%w: balance of %s: %w", common.ErrRpcFailure, wallet, err)
	}
	return new(big.Int).SetUint64(balance.Value), nil
}

// GetTokenBalance returns zero for tokens that were never bridged to Solana.
func (c *Context) GetTokenBalance(ctx context.Context, wallet string, token connect.TokenID) (*big.Int, error) {
	if token.IsNative() {
		return c.GetNativeBalance(ctx, wallet)
	}
	mint, ok, err := c.GetForeignAsset(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int), nil
	}
	return c.CheckBalance(ctx, wallet, mint)
}

// CheckBalance reads the wallet's associated token account for the mint. Missing accounts report zero.
func (c *Context) CheckBalance(ctx context.Context, wallet string, asset string) (*big.Int, error) {
	owner, err := publicKey(wallet)
	if err != nil {
		return nil, err
	}
	mint, err := publicKey(asset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidAssetFormat, err)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}

	exists, err := c.accountExists(ctx, ata)
	if err != nil {
		return nil, err
	}
	if !exists {
		return new(big.Int), nil
	}

	timeout, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	result, err := c.rpc.GetTokenAccountBalance(timeout, ata, c.commitment)
	if err != nil {
		return nil, fmt.Errorf("%w: token balance of %s: %w", common.ErrRpcFailure, ata, err)
	}
	if result.Value == nil {
		return new(big.Int), nil
	}
	balance, ok := new(big.Int).SetString(result.Value.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid token amount %q", common.ErrRpcFailure, result.Value.Amount)
	}
	return balance, nil
}

// IsTransferCompleted checks for the claim account the token bridge creates on redemption.
func (c *Context) IsTransferCompleted(ctx context.Context, rawVaa []byte) (bool, error) {
	v, err := vaa.Unmarshal(rawVaa)
	if err != nil {
		return false, err
	}
	claim, err := ClaimAddress(c.tokenBridge, v.EmitterChain, v.EmitterAddress, v.Sequence)
	if err != nil {
		return false, err
	}
	return c.accountExists(ctx, claim)
}

func (c *Context) Send(context.Context, connect.TransferRequest) (connect.UnsignedTx, error) {
	return nil, fmt.Errorf("%w: solana send", common.ErrUnsupportedOperation)
}

func (c *Context) SendWithPayload(context.Context, connect.TransferRequest) (connect.UnsignedTx, error) {
	return nil, fmt.Errorf("%w: solana send with payload", common.ErrUnsupportedOperation)
}

func (c *Context) Redeem(context.Context, []byte, string) (connect.UnsignedTx, error) {
	return nil, fmt.Errorf("%w: solana redeem", common.ErrUnsupportedOperation)
}

func (c *Context) GetVaa(context.Context, string) (*connect.VaaInfo, error) {
	return nil, fmt.Errorf("%w: solana message lookup", common.ErrUnsupportedOperation)
}

func (c *Context) ParseMessage(context.Context, *connect.VaaInfo) (*connect.ParsedMessage, error) {
	return nil, fmt.Errorf("%w: solana message parsing", common.ErrUnsupportedOperation)
}

// GetTxIdFromReceipt accepts a base58 signature string or a solana.Signature.
func (c *Context) GetTxIdFromReceipt(receipt any) (string, error) {
	switch r := receipt.(type) {
	case string:
		return r, nil
	case solana.Signature:
		return r.String(), nil
	}
	return "", fmt.Errorf("unsupported solana receipt type %T", receipt)
}

func (c *Context) GetCurrentBlock(ctx context.Context) (uint64, error) {
	timeout, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	slot, err := c.rpc.GetSlot(timeout, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("%w: slot: %w", common.ErrRpcFailure, err)
	}
	return slot, nil
}
