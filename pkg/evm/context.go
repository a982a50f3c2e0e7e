// Package evm implements the token bridge chain adapter shared by Ethereum and the other EVM chains.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand"

	ethereum "github.com/ethereum/go-ethereum"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/certusone/wormhole/connect/pkg/assetcache"
	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/connect"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

var _ connect.Context = (*Context)(nil)

type Config struct {
	Chain       vaa.ChainID
	TokenBridge string
	CoreBridge  string
	// WrappedNative is the chain's WETH-style token. Optional: without it native sends to account-per-asset chains
	// and unwrapping redeems are unavailable.
	WrappedNative string
}

// Tx is an unsigned EVM transaction.
type Tx struct {
	ChainID vaa.ChainID       `json:"chain"`
	From    ethCommon.Address `json:"from"`
	To      ethCommon.Address `json:"to"`
	Value   *big.Int          `json:"value"`
	Data    hexutil.Bytes     `json:"data"`
}

func (t *Tx) Chain() vaa.ChainID {
	return t.ChainID
}

// TransferTx is a token transfer together with the ERC20 approval that must be mined before it.
type TransferTx struct {
	Approve  *Tx `json:"approve,omitempty"`
	Transfer *Tx `json:"transfer"`
}

func (t *TransferTx) Chain() vaa.ChainID {
	return t.Transfer.ChainID
}

type Context struct {
	logger        *zap.Logger
	client        Client
	chain         vaa.ChainID
	tokenBridge   ethCommon.Address
	coreBridge    ethCommon.Address
	wrappedNative ethCommon.Address
	retriever     connect.VaaRetriever
	resolver      connect.Resolver
	assets        *connect.ForeignAssets
	nonce         func() uint32
}

type Option func(*Context)

// WithNonceSource replaces the random nonce attached to transfers.
func WithNonceSource(f func() uint32) Option {
	return func(c *Context) {
		c.nonce = f
	}
}

func NewContext(
	logger *zap.Logger,
	client Client,
	cfg Config,
	retriever connect.VaaRetriever,
	resolver connect.Resolver,
	cache *assetcache.Cache,
	opts ...Option,
) (*Context, error) {
	if !cfg.Chain.IsEVM() {
		return nil, fmt.Errorf("%w: %s is not an evm chain", common.ErrNotConfigured, cfg.Chain)
	}
	if client == nil {
		return nil, fmt.Errorf("%w: %s rpc", common.ErrNotConfigured, cfg.Chain)
	}
	if !ethCommon.IsHexAddress(cfg.TokenBridge) {
		return nil, fmt.Errorf("%w: %s token bridge %q", common.ErrNotConfigured, cfg.Chain, cfg.TokenBridge)
	}
	if !ethCommon.IsHexAddress(cfg.CoreBridge) {
		return nil, fmt.Errorf("%w: %s core bridge %q", common.ErrNotConfigured, cfg.Chain, cfg.CoreBridge)
	}
	var wrappedNative ethCommon.Address
	if cfg.WrappedNative != "" {
		if !ethCommon.IsHexAddress(cfg.WrappedNative) {
			return nil, fmt.Errorf("%w: %s wrapped native token %q", common.ErrNotConfigured, cfg.Chain, cfg.WrappedNative)
		}
		wrappedNative = ethCommon.HexToAddress(cfg.WrappedNative)
	}

	c := &Context{
		logger:        logger.With(zap.String("component", "evm_context"), zap.Stringer("chain", cfg.Chain)),
		client:        client,
		chain:         cfg.Chain,
		tokenBridge:   ethCommon.HexToAddress(cfg.TokenBridge),
		coreBridge:    ethCommon.HexToAddress(cfg.CoreBridge),
		wrappedNative: wrappedNative,
		retriever:     retriever,
		resolver:      resolver,
		nonce:         rand.Uint32,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.assets = connect.NewForeignAssets(cfg.Chain, cache, resolver, c.lookupWrappedAsset)
	return c, nil
}

func (c *Context) Chain() vaa.ChainID {
	return c.chain
}

func (c *Context) Capabilities() connect.Capabilities {
	return connect.Capabilities{
		Send:            true,
		SendWithPayload: true,
		Redeem:          true,
		GetVaa:          c.retriever != nil,
		ParseMessage:    true,
	}
}

func (c *Context) FormatAddress(address string) (vaa.Address, error) {
	return FormatAddress(address)
}

func (c *Context) ParseAddress(address vaa.Address) (string, error) {
	return ParseAddress(address)
}

func (c *Context) FormatAssetAddress(asset string) (vaa.Address, error) {
	return FormatAssetAddress(asset)
}

// ParseAssetAddress needs no lookup on EVM chains: the asset is its contract address.
func (c *Context) ParseAssetAddress(_ context.Context, address vaa.Address) (string, error) {
	asset, err := ParseAddress(address)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrInvalidAssetFormat, err)
	}
	return asset, nil
}

// call runs a read-only contract call and unpacks its outputs.
func (c *Context) call(ctx context.Context, to ethCommon.Address, contract abiPacker, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	timeout, cancel := context.WithTimeout(ctx, RPCTimeout)
	defer cancel()
	result, err := c.client.CallContract(timeout, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s on %s: %w", common.ErrRpcFailure, method, to.Hex(), err)
	}
	if len(result) == 0 {
		return nil, errEmptyResult
	}

	out, err := contract.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unpack %s: %w", common.ErrRpcFailure, method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s returned nothing", common.ErrRpcFailure, method)
	}
	return out, nil
}

// errEmptyResult is returned by calls to accounts without code.
var errEmptyResult = errors.New("call returned no data")

type abiPacker interface {
	Pack(name string, args ...interface{}) ([]byte, error)
	Unpack(name string, data []byte) ([]interface{}, error)
}

func (c *Context) lookupWrappedAsset(ctx context.Context, originChain vaa.ChainID, originAddress vaa.Address) (string, bool, error) {
	out, err := c.call(ctx, c.tokenBridge, tokenBridgeABI, "wrappedAsset", uint16(originChain), [32]byte(originAddress))
	if err != nil {
		return "", false, err
	}
	wrapped, ok := out[0].(ethCommon.Address)
	if !ok {
		return "", false, fmt.Errorf("%w: wrappedAsset returned %T", common.ErrRpcFailure, out[0])
	}
	if wrapped == zeroAddress {
		return "", false, nil
	}
	return wrapped.Hex(), true, nil
}

func (c *Context) GetForeignAsset(ctx context.Context, token connect.TokenID) (string, bool, error) {
	return c.assets.Get(ctx, token)
}

func (c *Context) MustGetForeignAsset(ctx context.Context, token connect.TokenID) (string, error) {
	return c.assets.MustGet(ctx, token)
}

func (c *Context) FetchTokenDecimals(ctx context.Context, token connect.TokenID) (uint8, error) {
	if token.IsNative() {
		return nativeDecimals, nil
	}
	asset, err := c.MustGetForeignAsset(ctx, token)
	if err != nil {
		return 0, err
	}
	out, err := c.call(ctx, ethCommon.HexToAddress(asset), erc20ABI, "decimals")
	if errors.Is(err, errEmptyResult) {
		return 0, fmt.Errorf("%w: %s has no code on %s", common.ErrAssetNotRegistered, asset, c.chain)
	}
	if err != nil {
		return 0, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: decimals returned %T", common.ErrRpcFailure, out[0])
	}
	return decimals, nil
}

// Send builds a token bridge transfer. A request carrying a payload becomes a transfer with payload and its relayer
// fee is dropped.
func (c *Context) Send(ctx context.Context, req connect.TransferRequest) (connect.UnsignedTx, error) {
	if req.WithPayload() && req.RelayerFee != nil && req.RelayerFee.Sign() != 0 {
		c.logger.Debug("ignoring relayer fee on transfer with payload", zap.Stringer("relayer_fee", req.RelayerFee))
	}
	return c.transfer(ctx, req)
}

func (c *Context) SendWithPayload(ctx context.Context, req connect.TransferRequest) (connect.UnsignedTx, error) {
	if !req.WithPayload() {
		return nil, errors.New("transfer with payload requires a payload")
	}
	return c.transfer(ctx, req)
}

func (c *Context) transfer(ctx context.Context, req connect.TransferRequest) (connect.UnsignedTx, error) {
	if req.FromChain != vaa.ChainIDUnset && req.FromChain != c.chain {
		return nil, fmt.Errorf("cannot send from %s with the %s context", req.FromChain, c.chain)
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}
	fee := req.RelayerFee
	if fee == nil || req.WithPayload() {
		fee = new(big.Int)
	}
	if fee.Sign() < 0 {
		return nil, errors.New("relayer fee must not be negative")
	}

	var from ethCommon.Address
	if req.Sender != "" {
		if !ethCommon.IsHexAddress(req.Sender) {
			return nil, fmt.Errorf("invalid sender %q", req.Sender)
		}
		from = ethCommon.HexToAddress(req.Sender)
	}

	dest, err := c.resolver.Get(req.ToChain)
	if err != nil {
		return nil, err
	}

	recipientAccount := req.Recipient
	if r, ok := dest.(connect.RecipientAccountResolver); ok {
		token := req.Token
		if token.IsNative() {
			if c.wrappedNative == zeroAddress {
				return nil, fmt.Errorf("%w: %s wrapped native token", common.ErrNotConfigured, c.chain)
			}
			token = connect.TokenID{Chain: c.chain, Address: c.wrappedNative.Hex()}
		}
		if recipientAccount, err = r.ResolveRecipientAccount(ctx, token, req.Recipient); err != nil {
			if !errors.Is(err, common.ErrRecipientAccountUnresolved) {
				err = fmt.Errorf("%w: %w", common.ErrRecipientAccountUnresolved, err)
			}
			return nil, err
		}
	}
	recipient, err := dest.FormatAddress(recipientAccount)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", recipientAccount, err)
	}

	nonce := c.nonce()
	toChain := uint16(req.ToChain)
	c.logger.Debug("building transfer",
		zap.Stringer("token", req.Token),
		zap.Stringer("amount", req.Amount),
		zap.Stringer("to_chain", req.ToChain),
		zap.Stringer("recipient", recipient),
		zap.Bool("with_payload", req.WithPayload()),
	)

	if req.Token.IsNative() {
		var data []byte
		if req.WithPayload() {
			data, err = tokenBridgeABI.Pack("wrapAndTransferETHWithPayload", toChain, [32]byte(recipient), nonce, req.Payload)
		} else {
			data, err = tokenBridgeABI.Pack("wrapAndTransferETH", toChain, [32]byte(recipient), fee, nonce)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to pack native transfer: %w", err)
		}
		return &Tx{ChainID: c.chain, From: from, To: c.tokenBridge, Value: new(big.Int).Set(req.Amount), Data: data}, nil
	}

	asset, err := c.MustGetForeignAsset(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	token := ethCommon.HexToAddress(asset)

	approve, err := erc20ABI.Pack("approve", c.tokenBridge, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve: %w", err)
	}
	var data []byte
	if req.WithPayload() {
		data, err = tokenBridgeABI.Pack("transferTokensWithPayload", token, req.Amount, toChain, [32]byte(recipient), nonce, req.Payload)
	} else {
		data, err = tokenBridgeABI.Pack("transferTokens", token, req.Amount, toChain, [32]byte(recipient), fee, nonce)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pack token transfer: %w", err)
	}

	return &TransferTx{
		Approve:  &Tx{ChainID: c.chain, From: from, To: token, Value: new(big.Int), Data: approve},
		Transfer: &Tx{ChainID: c.chain, From: from, To: c.tokenBridge, Value: new(big.Int), Data: data},
	}, nil
}

// GetVaa finds the LogMessagePublished event the core bridge emitted in the transaction and waits for its signed VAA.
func (c *Context) GetVaa(ctx context.Context, txHash string) (*connect.VaaInfo, error) {
	if c.retriever == nil {
		return nil, fmt.Errorf("%w: guardian hosts", common.ErrNotConfigured)
	}
	hash := ethCommon.HexToHash(txHash)

	timeout, cancel := context.WithTimeout(ctx, RPCTimeout)
	defer cancel()
	receipt, err := c.client.TransactionReceipt(timeout, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch receipt %s: %w", common.ErrRpcFailure, txHash, err)
	}
	tx, _, err := c.client.TransactionByHash(timeout, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch transaction %s: %w", common.ErrRpcFailure, txHash, err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return nil, fmt.Errorf("failed to recover sender of %s: %w", txHash, err)
	}

	emitter, sequence, err := c.findMessage(receipt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, txHash)
	}

	c.logger.Debug("found wormhole message",
		zap.String("tx_hash", txHash),
		zap.Stringer("emitter", emitter),
		zap.Uint64("sequence", sequence),
	)

	raw, err := c.retriever.Retrieve(ctx, c.chain, emitter, sequence)
	if err != nil {
		return nil, err
	}
	v, err := vaa.Unmarshal(raw)
	if err != nil {
		return nil, err
	}

	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}
	return &connect.VaaInfo{
		Tx: connect.OriginTx{
			Hash:     receipt.TxHash.Hex(),
			Sender:   sender.Hex(),
			Block:    block,
			GasUsed:  new(big.Int).SetUint64(receipt.GasUsed),
			GasPrice: receipt.EffectiveGasPrice,
		},
		RawVaa: raw,
		Vaa:    v,
	}, nil
}

// findMessage returns the emitter and sequence of the first message the core bridge published in the receipt.
func (c *Context) findMessage(receipt *types.Receipt) (vaa.Address, uint64, error) {
	for _, l := range receipt.Logs {
		if l.Address != c.coreBridge || len(l.Topics) < 2 || l.Topics[0] != logMessagePublishedTopic {
			continue
		}
		out, err := coreBridgeABI.Unpack("LogMessagePublished", l.Data)
		if err != nil || len(out) == 0 {
			return vaa.Address{}, 0, fmt.Errorf("%w: undecodable LogMessagePublished", common.ErrMessageNotFound)
		}
		sequence, ok := out[0].(uint64)
		if !ok {
			return vaa.Address{}, 0, fmt.Errorf("%w: LogMessagePublished sequence is %T", common.ErrMessageNotFound, out[0])
		}
		// The indexed sender topic is already the left-padded emitter.
		return vaa.Address(l.Topics[1]), sequence, nil
	}
	return vaa.Address{}, 0, common.ErrMessageNotFound
}

func (c *Context) ParseMessage(ctx context.Context, info *connect.VaaInfo) (*connect.ParsedMessage, error) {
	return connect.ParseTransferMessage(ctx, c.resolver, info)
}

func (c *Context) GetNativeBalance(ctx context.Context, wallet string) (*big.Int, error) {
	if !ethCommon.IsHexAddress(wallet) {
		return nil, fmt.Errorf("invalid evm address %q", wallet)
	}
	timeout, cancel := context.WithTimeout(ctx, RPCTimeout)
	defer cancel()
	balance, err := c.client.BalanceAt(timeout, ethCommon.HexToAddress(wallet), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: balance of %s: %w", common.ErrRpcFailure, wallet, err)
	}
	return balance, nil
}

// GetTokenBalance returns zero for tokens that were never bridged to this chain.
func (c *Context) GetTokenBalance(ctx context.Context, wallet string, token connect.TokenID) (*big.Int, error) {
	if token.IsNative() {
		return c.GetNativeBalance(ctx, wallet)
	}
	asset, ok, err := c.GetForeignAsset(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int), nil
	}
	return c.CheckBalance(ctx, wallet, asset)
}

// CheckBalance calls balanceOf on the ERC20 asset. Assets without code report zero.
func (c *Context) CheckBalance(ctx context.Context, wallet string, asset string) (*big.Int, error) {
	if !ethCommon.IsHexAddress(wallet) {
		return nil, fmt.Errorf("invalid evm address %q", wallet)
	}
	if !ethCommon.IsHexAddress(asset) {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidAssetFormat, asset)
	}
	out, err := c.call(ctx, ethCommon.HexToAddress(asset), erc20ABI, "balanceOf", ethCommon.HexToAddress(wallet))
	if errors.Is(err, errEmptyResult) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: balanceOf returned %T", common.ErrRpcFailure, out[0])
	}
	return balance, nil
}

// Redeem builds completeTransfer, or completeTransferAndUnwrapETH when the VAA moves the chain's wrapped native
// token back home.
func (c *Context) Redeem(_ context.Context, rawVaa []byte, payer string) (connect.UnsignedTx, error) {
	v, err := vaa.Unmarshal(rawVaa)
	if err != nil {
		return nil, err
	}
	p, err := vaa.DecodeTransferPayload(v.Payload)
	if err != nil {
		return nil, err
	}
	if p.ToChain != c.chain {
		return nil, fmt.Errorf("transfer %s targets %s, not %s", v.MessageID(), p.ToChain, c.chain)
	}

	var from ethCommon.Address
	if payer != "" {
		if !ethCommon.IsHexAddress(payer) {
			return nil, fmt.Errorf("invalid payer %q", payer)
		}
		from = ethCommon.HexToAddress(payer)
	}

	method := "completeTransfer"
	if c.wrappedNative != zeroAddress && p.TokenChain == c.chain && p.PayloadID == vaa.PayloadTransfer &&
		ethCommon.BytesToAddress(p.TokenAddress[32-addressLength:]) == c.wrappedNative {
		method = "completeTransferAndUnwrapETH"
	}
	data, err := tokenBridgeABI.Pack(method, rawVaa)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	c.logger.Debug("building redeem", zap.String("message_id", v.MessageID()), zap.String("method", method))
	return &Tx{ChainID: c.chain, From: from, To: c.tokenBridge, Value: new(big.Int), Data: data}, nil
}

func (c *Context) IsTransferCompleted(ctx context.Context, rawVaa []byte) (bool, error) {
	v, err := vaa.Unmarshal(rawVaa)
	if err != nil {
		return false, err
	}
	out, err := c.call(ctx, c.tokenBridge, tokenBridgeABI, "isTransferCompleted", [32]byte(v.SigningDigest()))
	if err != nil {
		return false, err
	}
	completed, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%w: isTransferCompleted returned %T", common.ErrRpcFailure, out[0])
	}
	return completed, nil
}

// GetTxIdFromReceipt accepts a transaction hash, a *types.Receipt or a *types.Transaction.
func (c *Context) GetTxIdFromReceipt(receipt any) (string, error) {
	switch r := receipt.(type) {
	case string:
		return r, nil
	case *types.Receipt:
		return r.TxHash.Hex(), nil
	case *types.Transaction:
		return r.Hash().Hex(), nil
	}
	return "", fmt.Errorf("unsupported evm receipt type %T", receipt)
}

func (c *Context) GetCurrentBlock(ctx context.Context) (uint64, error) {
	timeout, cancel := context.WithTimeout(ctx, RPCTimeout)
	defer cancel()
	n, err := c.client.BlockNumber(timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: block number: %w", common.ErrRpcFailure, err)
	}
	return n, nil
}
