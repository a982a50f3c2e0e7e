// Package aptos implements the token bridge chain adapter for Aptos on top of the fullnode REST API.
package aptos

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"strings"

	"github.com/certusone/wormhole/connect/pkg/assetcache"
	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/connect"
	"github.com/certusone/wormhole/connect/pkg/vaa"
	"go.uber.org/zap"
)

var _ connect.Context = (*Context)(nil)

type Config struct {
	TokenBridge string
	CoreBridge  string
}

type Context struct {
	logger      *zap.Logger
	api         AptosApi
	tokenBridge string
	coreBridge  string
	retriever   connect.VaaRetriever
	resolver    connect.Resolver
	assets      *connect.ForeignAssets
	nonce       func() uint32
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
	api AptosApi,
	cfg Config,
	retriever connect.VaaRetriever,
	resolver connect.Resolver,
	cache *assetcache.Cache,
	opts ...Option,
) (*Context, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: aptos rpc", common.ErrNotConfigured)
	}
	tokenBridge, err := normalizeAccount(cfg.TokenBridge)
	if err != nil {
		return nil, fmt.Errorf("%w: aptos token bridge: %w", common.ErrNotConfigured, err)
	}
	coreBridge, err := normalizeAccount(cfg.CoreBridge)
	if err != nil {
		return nil, fmt.Errorf("%w: aptos core bridge: %w", common.ErrNotConfigured, err)
	}

	c := &Context{
		logger:      logger.With(zap.String("component", "aptos_context")),
		api:         api,
		tokenBridge: tokenBridge,
		coreBridge:  coreBridge,
		retriever:   retriever,
		resolver:    resolver,
		nonce:       rand.Uint32,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.assets = connect.NewForeignAssets(vaa.ChainIDAptos, cache, resolver, c.lookupWrappedAsset)
	return c, nil
}

func normalizeAccount(address string) (string, error) {
	if address == "" {
		return "", errors.New("address is empty")
	}
	if _, err := FormatAddress(address); err != nil {
		return "", err
	}
	return "0x" + strings.TrimPrefix(strings.ToLower(address), "0x"), nil
}

func (c *Context) Chain() vaa.ChainID {
	return vaa.ChainIDAptos
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
	return ParseAddress(address), nil
}

func (c *Context) FormatAssetAddress(asset string) (vaa.Address, error) {
	return FormatAssetAddress(asset)
}

func (c *Context) ParseAssetAddress(ctx context.Context, address vaa.Address) (string, error) {
	coinType, ok, err := c.GetTypeFromExternalAddress(ctx, address)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: no aptos coin type for %s", common.ErrAssetNotRegistered, address)
	}
	return coinType, nil
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
	coinType, err := c.MustGetForeignAsset(ctx, token)
	if err != nil {
		return 0, err
	}

	info, err := c.api.GetAccountResource(ctx, coinAccount(coinType), coinInfoResource(coinType))
	if err != nil {
		return 0, err
	}
	decimals := info.Get("data.decimals")
	if !decimals.Exists() {
		return 0, fmt.Errorf("%w: coin info for %s has no decimals", common.ErrRpcFailure, coinType)
	}
	return uint8(decimals.Uint()), nil // #nosec G115 -- Move stores decimals as u8
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
	if req.FromChain != vaa.ChainIDUnset && req.FromChain != vaa.ChainIDAptos {
		return nil, fmt.Errorf("cannot send from %s with the aptos context", req.FromChain)
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}
	amount, err := u64String(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}

	dest, err := c.resolver.Get(req.ToChain)
	if err != nil {
		return nil, err
	}

	recipientAccount := req.Recipient
	if r, ok := dest.(connect.RecipientAccountResolver); ok {
		token := req.Token
		if token.IsNative() {
			token = connect.TokenID{Chain: vaa.ChainIDAptos, Address: AptosCoin}
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

	coinType := AptosCoin
	if !req.Token.IsNative() {
		if coinType, err = c.MustGetForeignAsset(ctx, req.Token); err != nil {
			return nil, err
		}
	}

	nonce := c.nonce()
	c.logger.Debug("building transfer",
		zap.String("coin_type", coinType),
		zap.String("amount", amount),
		zap.Stringer("to_chain", req.ToChain),
		zap.Stringer("recipient", recipient),
		zap.Bool("with_payload", req.WithPayload()),
	)

	if req.WithPayload() {
		return newEntryFunctionPayload(
			c.tokenBridge+"::transfer_tokens::transfer_tokens_with_payload_entry",
			[]string{coinType},
			amount, uint16(req.ToChain), hexBytes(recipient[:]), nonce, hexBytes(req.Payload),
		), nil
	}

	fee, err := u64String(req.RelayerFee)
	if err != nil {
		return nil, fmt.Errorf("relayer fee: %w", err)
	}
	return newEntryFunctionPayload(
		c.tokenBridge+"::transfer_tokens::transfer_tokens_entry",
		[]string{coinType},
		amount, uint16(req.ToChain), hexBytes(recipient[:]), fee, nonce,
	), nil
}

// u64String encodes a Move u64 argument. Nil is zero.
func u64String(v *big.Int) (string, error) {
	if v == nil {
		return "0", nil
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return "", fmt.Errorf("%s does not fit in a u64", v)
	}
	return v.String(), nil
}

func (c *Context) isMessageEvent(eventType string) bool {
	if !strings.HasSuffix(eventType, "::state::WormholeMessage") {
		return false
	}
	return sameAddress(coinAccount(eventType), c.coreBridge)
}

// GetVaa finds the WormholeMessage event emitted by the transaction and waits for its signed VAA.
func (c *Context) GetVaa(ctx context.Context, txHash string) (*connect.VaaInfo, error) {
	if c.retriever == nil {
		return nil, fmt.Errorf("%w: guardian hosts", common.ErrNotConfigured)
	}

	tx, err := c.api.GetTransactionByHash(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", txHash, err)
	}
	if tx.Type != userTransactionType {
		return nil, fmt.Errorf("%w: %s is a %s", common.ErrNotUserTransaction, txHash, tx.Type)
	}

	var msg *Event
	for i := range tx.Events {
		if c.isMessageEvent(tx.Events[i].Type) {
			msg = &tx.Events[i]
			break
		}
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrMessageNotFound, txHash)
	}

	sender := msg.Data.Get("sender")
	sequence := msg.Data.Get("sequence")
	if !sender.Exists() || !sequence.Exists() {
		return nil, fmt.Errorf("%w: WormholeMessage in %s is missing sender or sequence", common.ErrMessageNotFound, txHash)
	}

	// The emitter is the u64 id of the sender's emitter capability.
	var emitter vaa.Address
	binary.BigEndian.PutUint64(emitter[24:], sender.Uint())

	c.logger.Debug("found wormhole message",
		zap.String("tx_hash", txHash),
		zap.Stringer("emitter", emitter),
		zap.Uint64("sequence", sequence.Uint()),
	)

	raw, err := c.retriever.Retrieve(ctx, vaa.ChainIDAptos, emitter, sequence.Uint())
	if err != nil {
		return nil, err
	}
	v, err := vaa.Unmarshal(raw)
	if err != nil {
		return nil, err
	}

	return &connect.VaaInfo{
		Tx: connect.OriginTx{
			Hash:     tx.Hash,
			Sender:   tx.Sender,
			Block:    tx.Version,
			GasUsed:  tx.GasUsed,
			GasPrice: tx.GasUnitPrice,
		},
		RawVaa: raw,
		Vaa:    v,
	}, nil
}

func (c *Context) ParseMessage(ctx context.Context, info *connect.VaaInfo) (*connect.ParsedMessage, error) {
	return connect.ParseTransferMessage(ctx, c.resolver, info)
}

func (c *Context) GetNativeBalance(ctx context.Context, wallet string) (*big.Int, error) {
	return c.CheckBalance(ctx, wallet, AptosCoin)
}

// GetTokenBalance returns zero for tokens that were never bridged to Aptos.
func (c *Context) GetTokenBalance(ctx context.Context, wallet string, token connect.TokenID) (*big.Int, error) {
	if token.IsNative() {
		return c.GetNativeBalance(ctx, wallet)
	}
	coinType, ok, err := c.GetForeignAsset(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int), nil
	}
	return c.CheckBalance(ctx, wallet, coinType)
}

// CheckBalance reads the wallet's CoinStore for coinType. Wallets without a CoinStore have never held the coin.
func (c *Context) CheckBalance(ctx context.Context, wallet string, coinType string) (*big.Int, error) {
	store, err := c.api.GetAccountResource(ctx, wallet, coinStoreResource(coinType))
	if IsNotFound(err) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}

	value := store.Get("data.coin.value").String()
	balance, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid coin value %q", common.ErrRpcFailure, value)
	}
	return balance, nil
}

// Redeem builds the complete-transfer call. The coin type argument is recovered from the transfer in the VAA.
func (c *Context) Redeem(ctx context.Context, rawVaa []byte, payer string) (connect.UnsignedTx, error) {
	v, err := vaa.Unmarshal(rawVaa)
	if err != nil {
		return nil, err
	}
	p, err := vaa.DecodeTransferPayload(v.Payload)
	if err != nil {
		return nil, err
	}
	if p.ToChain != vaa.ChainIDAptos {
		return nil, fmt.Errorf("transfer %s targets %s, not aptos", v.MessageID(), p.ToChain)
	}

	var coinType string
	if p.TokenChain == vaa.ChainIDAptos {
		if coinType, err = c.ParseAssetAddress(ctx, p.TokenAddress); err != nil {
			return nil, err
		}
	} else {
		account, err := DeriveWrappedAssetAddress(c.tokenBridge, p.TokenChain, p.TokenAddress)
		if err != nil {
			return nil, err
		}
		coinType = wrappedCoinType(account)
	}

	c.logger.Debug("building redeem", zap.String("message_id", v.MessageID()), zap.String("coin_type", coinType), zap.String("payer", payer))
	return newEntryFunctionPayload(
		c.tokenBridge+"::complete_transfer::submit_vaa_and_register_entry",
		[]string{coinType},
		hexBytes(rawVaa),
	), nil
}

func (c *Context) IsTransferCompleted(ctx context.Context, rawVaa []byte) (bool, error) {
	v, err := vaa.Unmarshal(rawVaa)
	if err != nil {
		return false, err
	}
	return c.isVaaConsumed(ctx, v)
}

// GetTxIdFromReceipt accepts a transaction hash or a *Transaction.
func (c *Context) GetTxIdFromReceipt(receipt any) (string, error) {
	switch r := receipt.(type) {
	case string:
		return r, nil
	case *Transaction:
		return r.Hash, nil
	case Transaction:
		return r.Hash, nil
	}
	return "", fmt.Errorf("unsupported aptos receipt type %T", receipt)
}

func (c *Context) GetCurrentBlock(ctx context.Context) (uint64, error) {
	info, err := c.api.GetLedgerInfo(ctx)
	if err != nil {
		return 0, err
	}
	height := info.Get("block_height")
	if !height.Exists() {
		return 0, fmt.Errorf("%w: ledger info has no block_height", common.ErrRpcFailure)
	}
	return height.Uint(), nil
}
