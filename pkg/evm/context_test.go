package evm

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	ipfslog "github.com/ipfs/go-log/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certusone/wormhole/connect/pkg/assetcache"
	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/connect"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

// Ethereum mainnet values.
var (
	coreBridgeAddr  = ethCommon.HexToAddress("0x98f3c9e6E3fAce36bAAd05FE09d375Ef1464288B")
	tokenBridgeAddr = ethCommon.HexToAddress("0x3ee18B2214AFF97000D974cf647E7C347E8fa585")
	wethAddr        = ethCommon.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdcAddr        = ethCommon.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	eoaAddr         = ethCommon.HexToAddress("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1")

	// A made up wrapped asset for a token originating on another chain.
	wrappedAddr = ethCommon.HexToAddress("0x1111111111111111111111111111111111111111")
)

const testNonce = uint32(7)

type callHandler func(to ethCommon.Address, args []any) ([]byte, error)

// mockClient answers contract calls by method name. Calls without a handler return no data, like an account
// without code.
type mockClient struct {
	handlers map[string]callHandler
	calls    map[string]int
	balances map[ethCommon.Address]*big.Int
	receipts map[ethCommon.Hash]*types.Receipt
	txs      map[ethCommon.Hash]*types.Transaction
	block    uint64
	err      error
}

func newMockClient() *mockClient {
	return &mockClient{
		handlers: map[string]callHandler{},
		calls:    map[string]int{},
		balances: map[ethCommon.Address]*big.Int{},
		receipts: map[ethCommon.Hash]*types.Receipt{},
		txs:      map[ethCommon.Hash]*types.Transaction{},
	}
}

func (m *mockClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, contract := range []abi.ABI{tokenBridgeABI, erc20ABI} {
		method, err := contract.MethodById(msg.Data[:4])
		if err != nil {
			continue
		}
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		m.calls[method.Name]++
		h, ok := m.handlers[method.Name]
		if !ok {
			return nil, nil
		}
		return h(*msg.To, args)
	}
	return nil, errors.New("unknown selector")
}

func (m *mockClient) BalanceAt(ctx context.Context, account ethCommon.Address, blockNumber *big.Int) (*big.Int, error) {
	if m.err != nil {
		return nil, m.err
	}
	if b, ok := m.balances[account]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

func (m *mockClient) TransactionReceipt(ctx context.Context, txHash ethCommon.Hash) (*types.Receipt, error) {
	if r, ok := m.receipts[txHash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (m *mockClient) TransactionByHash(ctx context.Context, hash ethCommon.Hash) (*types.Transaction, bool, error) {
	if tx, ok := m.txs[hash]; ok {
		return tx, false, nil
	}
	return nil, false, ethereum.NotFound
}

func (m *mockClient) BlockNumber(ctx context.Context) (uint64, error) {
	return m.block, m.err
}

func (m *mockClient) returns(method string, contract abi.ABI, values ...any) {
	m.handlers[method] = func(ethCommon.Address, []any) ([]byte, error) {
		return contract.Methods[method].Outputs.Pack(values...)
	}
}

// stubChain is a foreign chain adapter with a plain hex address codec.
type stubChain struct {
	connect.Context
	chain vaa.ChainID
}

func (s *stubChain) Chain() vaa.ChainID { return s.chain }

func (s *stubChain) FormatAddress(address string) (vaa.Address, error) {
	return vaa.StringToAddress(address)
}

func (s *stubChain) ParseAddress(address vaa.Address) (string, error) {
	return "0x" + address.String(), nil
}

func (s *stubChain) FormatAssetAddress(asset string) (vaa.Address, error) {
	return vaa.StringToAddress(asset)
}

func (s *stubChain) ParseAssetAddress(ctx context.Context, address vaa.Address) (string, error) {
	return s.ParseAddress(address)
}

type stubAccountChain struct {
	stubChain
	gotToken connect.TokenID
}

func (s *stubAccountChain) ResolveRecipientAccount(ctx context.Context, token connect.TokenID, wallet string) (string, error) {
	s.gotToken = token
	return "0x0c0c", nil
}

type fakeRetriever struct {
	raw      []byte
	chain    vaa.ChainID
	emitter  vaa.Address
	sequence uint64
}

func (f *fakeRetriever) Retrieve(ctx context.Context, chain vaa.ChainID, emitter vaa.Address, sequence uint64) ([]byte, error) {
	f.chain, f.emitter, f.sequence = chain, emitter, sequence
	return f.raw, nil
}

type testEnv struct {
	ctx       *Context
	client    *mockClient
	retriever *fakeRetriever
	solana    *stubAccountChain
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client := newMockClient()
	retriever := &fakeRetriever{}
	registry := connect.NewRegistry()
	cache, err := assetcache.New()
	require.NoError(t, err)

	logger := ipfslog.Logger("evm-test").Desugar()
	c, err := NewContext(logger, client, Config{
		Chain:         vaa.ChainIDEthereum,
		TokenBridge:   tokenBridgeAddr.Hex(),
		CoreBridge:    coreBridgeAddr.Hex(),
		WrappedNative: wethAddr.Hex(),
	}, retriever, registry, cache, WithNonceSource(func() uint32 { return testNonce }))
	require.NoError(t, err)

	solana := &stubAccountChain{stubChain: stubChain{chain: vaa.ChainIDSolana}}
	require.NoError(t, registry.Register(c))
	require.NoError(t, registry.Register(&stubChain{chain: vaa.ChainIDAptos}))
	require.NoError(t, registry.Register(solana))
	return &testEnv{ctx: c, client: client, retriever: retriever, solana: solana}
}

func padded(a ethCommon.Address) vaa.Address {
	addr, _ := vaa.BytesToAddress(a.Bytes())
	return addr
}

func buildTransferVAA(t *testing.T, p *vaa.TransferPayload) []byte {
	t.Helper()
	payload, err := p.Marshal()
	require.NoError(t, err)
	v := &vaa.VAA{
		Version:          vaa.SupportedVAAVersion,
		GuardianSetIndex: 4,
		Signatures:       []*vaa.Signature{{Index: 0}},
		Timestamp:        time.Unix(1700000000, 0),
		EmitterChain:     vaa.ChainIDSolana,
		EmitterAddress:   vaa.Address{31: 1},
		Sequence:         3,
		ConsistencyLevel: 1,
		Payload:          payload,
	}
	raw, err := v.Marshal()
	require.NoError(t, err)
	return raw
}

func TestLogMessagePublishedTopic(t *testing.T) {
	assert.Equal(t, logMessagePublishedTopic, coreBridgeABI.Events["LogMessagePublished"].ID)
}

func TestNewContextRequiresConfig(t *testing.T) {
	logger := ipfslog.Logger("evm-test").Desugar()
	cache, err := assetcache.New()
	require.NoError(t, err)
	good := Config{Chain: vaa.ChainIDEthereum, TokenBridge: tokenBridgeAddr.Hex(), CoreBridge: coreBridgeAddr.Hex()}

	tests := []struct {
		name   string
		client Client
		mutate func(*Config)
	}{
		{name: "no client", client: nil, mutate: func(*Config) {}},
		{name: "non evm chain", client: newMockClient(), mutate: func(c *Config) { c.Chain = vaa.ChainIDSolana }},
		{name: "bad token bridge", client: newMockClient(), mutate: func(c *Config) { c.TokenBridge = "0x1234" }},
		{name: "missing core bridge", client: newMockClient(), mutate: func(c *Config) { c.CoreBridge = "" }},
		{name: "bad wrapped native", client: newMockClient(), mutate: func(c *Config) { c.WrappedNative = "weth" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := good
			tc.mutate(&cfg)
			_, err := NewContext(logger, tc.client, cfg, nil, connect.NewRegistry(), cache)
			assert.ErrorIs(t, err, common.ErrNotConfigured)
		})
	}
}

func TestGetForeignAsset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	aptosToken := connect.TokenID{Chain: vaa.ChainIDAptos, Address: "0xa867703f5395cb2965feb7ebff5cdf39b771fc6156085da3ae4147a00be91b38"}

	var gotChain uint16
	var gotAddress [32]byte
	env.client.handlers["wrappedAsset"] = func(to ethCommon.Address, args []any) ([]byte, error) {
		assert.Equal(t, tokenBridgeAddr, to)
		gotChain = args[0].(uint16)
		gotAddress = args[1].([32]byte)
		return tokenBridgeABI.Methods["wrappedAsset"].Outputs.Pack(wrappedAddr)
	}

	t.Run("native to this chain", func(t *testing.T) {
		asset, ok, err := env.ctx.GetForeignAsset(ctx, connect.TokenID{Chain: vaa.ChainIDEthereum, Address: usdcAddr.Hex()})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, usdcAddr.Hex(), asset)
		assert.Zero(t, env.client.calls["wrappedAsset"])
	})

	t.Run("wrapped and cached", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			asset, ok, err := env.ctx.GetForeignAsset(ctx, aptosToken)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, wrappedAddr.Hex(), asset)
		}
		assert.Equal(t, 1, env.client.calls["wrappedAsset"])
		assert.Equal(t, uint16(vaa.ChainIDAptos), gotChain)
		assert.Equal(t, "a867703f5395cb2965feb7ebff5cdf39b771fc6156085da3ae4147a00be91b38", hex.EncodeToString(gotAddress[:]))
	})

	t.Run("not registered", func(t *testing.T) {
		env.client.returns("wrappedAsset", tokenBridgeABI, ethCommon.Address{})
		token := connect.TokenID{Chain: vaa.ChainIDAptos, Address: "0x01"}
		_, ok, err := env.ctx.GetForeignAsset(ctx, token)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = env.ctx.MustGetForeignAsset(ctx, token)
		assert.ErrorIs(t, err, common.ErrAssetNotRegistered)
	})

	t.Run("native marker", func(t *testing.T) {
		_, _, err := env.ctx.GetForeignAsset(ctx, connect.NativeToken)
		assert.ErrorIs(t, err, common.ErrInvalidAssetFormat)
	})

	t.Run("rpc failure", func(t *testing.T) {
		env.client.err = errors.New("connection refused")
		defer func() { env.client.err = nil }()
		_, _, err := env.ctx.GetForeignAsset(ctx, connect.TokenID{Chain: vaa.ChainIDAptos, Address: "0x02"})
		assert.ErrorIs(t, err, common.ErrRpcFailure)
	})
}

func TestSendToken(t *testing.T) {
	env := newTestEnv(t)
	amount := big.NewInt(1_000_000)

	tx, err := env.ctx.Send(context.Background(), connect.TransferRequest{
		Token:      connect.TokenID{Chain: vaa.ChainIDEthereum, Address: usdcAddr.Hex()},
		Amount:     amount,
		Sender:     eoaAddr.Hex(),
		ToChain:    vaa.ChainIDAptos,
		Recipient:  "0x7a1b2c3d",
		RelayerFee: big.NewInt(5),
	})
	require.NoError(t, err)
	require.IsType(t, &TransferTx{}, tx)
	transfer := tx.(*TransferTx)
	assert.Equal(t, vaa.ChainIDEthereum, transfer.Chain())

	approve, err := erc20ABI.Methods["approve"].Inputs.Unpack(transfer.Approve.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, usdcAddr, transfer.Approve.To)
	assert.Equal(t, tokenBridgeAddr, approve[0])
	assert.Equal(t, amount, approve[1])

	method, err := tokenBridgeABI.MethodById(transfer.Transfer.Data[:4])
	require.NoError(t, err)
	assert.Equal(t, "transferTokens", method.Name)
	args, err := method.Inputs.Unpack(transfer.Transfer.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, usdcAddr, args[0])
	assert.Equal(t, amount, args[1])
	assert.Equal(t, uint16(vaa.ChainIDAptos), args[2])
	recipient := args[3].([32]byte)
	assert.Equal(t, "000000000000000000000000000000000000000000000000000000007a1b2c3d", hex.EncodeToString(recipient[:]))
	assert.Equal(t, big.NewInt(5), args[4])
	assert.Equal(t, testNonce, args[5])
	assert.Equal(t, eoaAddr, transfer.Transfer.From)
	assert.Equal(t, tokenBridgeAddr, transfer.Transfer.To)
	assert.Zero(t, transfer.Transfer.Value.Sign())
}

func TestSendNative(t *testing.T) {
	env := newTestEnv(t)
	amount := big.NewInt(1e18)

	t.Run("plain", func(t *testing.T) {
		tx, err := env.ctx.Send(context.Background(), connect.TransferRequest{
			Token: connect.NativeToken, Amount: amount, ToChain: vaa.ChainIDAptos, Recipient: "0x01",
		})
		require.NoError(t, err)
		evmTx := tx.(*Tx)
		assert.Equal(t, amount, evmTx.Value)
		method, err := tokenBridgeABI.MethodById(evmTx.Data[:4])
		require.NoError(t, err)
		assert.Equal(t, "wrapAndTransferETH", method.Name)
	})

	t.Run("payload wins over fee", func(t *testing.T) {
		tx, err := env.ctx.Send(context.Background(), connect.TransferRequest{
			Token: connect.NativeToken, Amount: amount, ToChain: vaa.ChainIDAptos, Recipient: "0x01",
			RelayerFee: big.NewInt(9), Payload: []byte("hello"),
		})
		require.NoError(t, err)
		evmTx := tx.(*Tx)
		method, err := tokenBridgeABI.MethodById(evmTx.Data[:4])
		require.NoError(t, err)
		assert.Equal(t, "wrapAndTransferETHWithPayload", method.Name)
		args, err := method.Inputs.Unpack(evmTx.Data[4:])
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), args[3])
	})

	t.Run("account chain resolves wrapped native", func(t *testing.T) {
		tx, err := env.ctx.Send(context.Background(), connect.TransferRequest{
			Token: connect.NativeToken, Amount: amount, ToChain: vaa.ChainIDSolana, Recipient: "wallet",
		})
		require.NoError(t, err)
		assert.Equal(t, connect.TokenID{Chain: vaa.ChainIDEthereum, Address: wethAddr.Hex()}, env.solana.gotToken)
		args, err := tokenBridgeABI.Methods["wrapAndTransferETH"].Inputs.Unpack(tx.(*Tx).Data[4:])
		require.NoError(t, err)
		recipient := args[1].([32]byte)
		assert.Equal(t, byte(0x0c), recipient[31])
	})
}

func TestSendErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ctx.SendWithPayload(ctx, connect.TransferRequest{Token: connect.NativeToken, Amount: big.NewInt(1), ToChain: vaa.ChainIDAptos, Recipient: "0x01"})
	assert.Error(t, err)

	_, err = env.ctx.Send(ctx, connect.TransferRequest{Token: connect.NativeToken, Amount: big.NewInt(0), ToChain: vaa.ChainIDAptos, Recipient: "0x01"})
	assert.Error(t, err)

	_, err = env.ctx.Send(ctx, connect.TransferRequest{Token: connect.NativeToken, Amount: big.NewInt(1), ToChain: vaa.ChainIDBase, Recipient: "0x01"})
	assert.ErrorIs(t, err, common.ErrNotConfigured)

	_, err = env.ctx.Send(ctx, connect.TransferRequest{Token: connect.NativeToken, Amount: big.NewInt(1), FromChain: vaa.ChainIDAptos, ToChain: vaa.ChainIDAptos, Recipient: "0x01"})
	assert.Error(t, err)

	env.client.returns("wrappedAsset", tokenBridgeABI, ethCommon.Address{})
	_, err = env.ctx.Send(ctx, connect.TransferRequest{
		Token: connect.TokenID{Chain: vaa.ChainIDAptos, Address: "0x05"}, Amount: big.NewInt(1), ToChain: vaa.ChainIDAptos, Recipient: "0x01",
	})
	assert.ErrorIs(t, err, common.ErrAssetNotRegistered)
}

func TestGetVaa(t *testing.T) {
	env := newTestEnv(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signed, err := types.SignTx(types.NewTransaction(0, tokenBridgeAddr, big.NewInt(0), 21000, big.NewInt(1), nil),
		types.NewEIP155Signer(big.NewInt(1)), key)
	require.NoError(t, err)

	data, err := coreBridgeABI.Events["LogMessagePublished"].Inputs.NonIndexed().Pack(uint64(1234), uint32(5), []byte{1, 2}, uint8(1))
	require.NoError(t, err)
	emitterTopic := ethCommon.BytesToHash(tokenBridgeAddr.Bytes())
	env.client.txs[signed.Hash()] = signed
	env.client.receipts[signed.Hash()] = &types.Receipt{
		TxHash:            signed.Hash(),
		BlockNumber:       big.NewInt(18_000_000),
		GasUsed:           100_000,
		EffectiveGasPrice: big.NewInt(30_000_000_000),
		Logs: []*types.Log{
			{Address: usdcAddr, Topics: []ethCommon.Hash{logMessagePublishedTopic, emitterTopic}, Data: data},
			{Address: coreBridgeAddr, Topics: []ethCommon.Hash{logMessagePublishedTopic, emitterTopic}, Data: data},
		},
	}

	raw := buildTransferVAA(t, &vaa.TransferPayload{
		PayloadID: vaa.PayloadTransfer, Amount: big.NewInt(1), TokenAddress: padded(usdcAddr), TokenChain: vaa.ChainIDEthereum,
		To: vaa.Address{31: 9}, ToChain: vaa.ChainIDAptos, Fee: big.NewInt(0),
	})
	env.retriever.raw = raw

	info, err := env.ctx.GetVaa(context.Background(), signed.Hash().Hex())
	require.NoError(t, err)
	assert.Equal(t, vaa.ChainIDEthereum, env.retriever.chain)
	assert.Equal(t, padded(tokenBridgeAddr), env.retriever.emitter)
	assert.Equal(t, uint64(1234), env.retriever.sequence)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), info.Tx.Sender)
	assert.Equal(t, uint64(18_000_000), info.Tx.Block)
	assert.Equal(t, big.NewInt(3_000_000_000_000_000), info.Tx.GasFee())
	assert.Equal(t, raw, info.RawVaa)

	msg, err := env.ctx.ParseMessage(context.Background(), info)
	require.NoError(t, err)
	assert.Equal(t, usdcAddr.Hex(), msg.TokenAddress)
	assert.Equal(t, info.Tx.Sender, msg.Sender)

	t.Run("no message", func(t *testing.T) {
		env.client.receipts[signed.Hash()].Logs = nil
		_, err := env.ctx.GetVaa(context.Background(), signed.Hash().Hex())
		assert.ErrorIs(t, err, common.ErrMessageNotFound)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := env.ctx.GetVaa(context.Background(), "0x01")
		assert.ErrorIs(t, err, common.ErrRpcFailure)
	})
}

func TestBalances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.client.balances[eoaAddr] = big.NewInt(42)
	env.client.returns("wrappedAsset", tokenBridgeABI, ethCommon.Address{})
	env.client.handlers["balanceOf"] = func(to ethCommon.Address, args []any) ([]byte, error) {
		if to != usdcAddr {
			return nil, nil
		}
		assert.Equal(t, eoaAddr, args[0])
		return erc20ABI.Methods["balanceOf"].Outputs.Pack(big.NewInt(500))
	}

	balance, err := env.ctx.GetNativeBalance(ctx, eoaAddr.Hex())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), balance)

	balance, err = env.ctx.GetTokenBalance(ctx, eoaAddr.Hex(), connect.TokenID{Chain: vaa.ChainIDEthereum, Address: usdcAddr.Hex()})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), balance)

	balance, err = env.ctx.CheckBalance(ctx, eoaAddr.Hex(), wrappedAddr.Hex())
	require.NoError(t, err)
	assert.Zero(t, balance.Sign())

	balance, err = env.ctx.GetTokenBalance(ctx, eoaAddr.Hex(), connect.TokenID{Chain: vaa.ChainIDAptos, Address: "0x03"})
	require.NoError(t, err)
	assert.Zero(t, balance.Sign())

	_, err = env.ctx.CheckBalance(ctx, eoaAddr.Hex(), "usdc")
	assert.ErrorIs(t, err, common.ErrInvalidAssetFormat)
}

func TestFetchTokenDecimals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.client.returns("decimals", erc20ABI, uint8(6))

	d, err := env.ctx.FetchTokenDecimals(ctx, connect.NativeToken)
	require.NoError(t, err)
	assert.Equal(t, uint8(18), d)

	d, err = env.ctx.FetchTokenDecimals(ctx, connect.TokenID{Chain: vaa.ChainIDEthereum, Address: usdcAddr.Hex()})
	require.NoError(t, err)
	assert.Equal(t, uint8(6), d)
}

func TestRedeem(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		token  ethCommon.Address
		method string
	}{
		{name: "token", token: usdcAddr, method: "completeTransfer"},
		{name: "wrapped native unwraps", token: wethAddr, method: "completeTransferAndUnwrapETH"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := buildTransferVAA(t, &vaa.TransferPayload{
				PayloadID: vaa.PayloadTransfer, Amount: big.NewInt(1), TokenAddress: padded(tc.token), TokenChain: vaa.ChainIDEthereum,
				To: padded(eoaAddr), ToChain: vaa.ChainIDEthereum, Fee: big.NewInt(0),
			})
			tx, err := env.ctx.Redeem(context.Background(), raw, eoaAddr.Hex())
			require.NoError(t, err)
			evmTx := tx.(*Tx)
			method, err := tokenBridgeABI.MethodById(evmTx.Data[:4])
			require.NoError(t, err)
			assert.Equal(t, tc.method, method.Name)
			args, err := method.Inputs.Unpack(evmTx.Data[4:])
			require.NoError(t, err)
			assert.Equal(t, raw, args[0])
			assert.Equal(t, eoaAddr, evmTx.From)
		})
	}

	t.Run("wrong destination", func(t *testing.T) {
		raw := buildTransferVAA(t, &vaa.TransferPayload{
			PayloadID: vaa.PayloadTransfer, Amount: big.NewInt(1), TokenAddress: padded(usdcAddr), TokenChain: vaa.ChainIDEthereum,
			To: padded(eoaAddr), ToChain: vaa.ChainIDAptos, Fee: big.NewInt(0),
		})
		_, err := env.ctx.Redeem(context.Background(), raw, "")
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := env.ctx.Redeem(context.Background(), []byte{1, 2, 3}, "")
		assert.ErrorIs(t, err, common.ErrMalformedVaa)
	})
}

func TestIsTransferCompleted(t *testing.T) {
	env := newTestEnv(t)
	raw := buildTransferVAA(t, &vaa.TransferPayload{
		PayloadID: vaa.PayloadTransfer, Amount: big.NewInt(1), TokenAddress: padded(usdcAddr), TokenChain: vaa.ChainIDEthereum,
		To: padded(eoaAddr), ToChain: vaa.ChainIDEthereum, Fee: big.NewInt(0),
	})
	v, err := vaa.Unmarshal(raw)
	require.NoError(t, err)

	env.client.handlers["isTransferCompleted"] = func(to ethCommon.Address, args []any) ([]byte, error) {
		assert.Equal(t, [32]byte(v.SigningDigest()), args[0])
		return tokenBridgeABI.Methods["isTransferCompleted"].Outputs.Pack(true)
	}
	done, err := env.ctx.IsTransferCompleted(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestMiscellaneous(t *testing.T) {
	env := newTestEnv(t)
	env.client.block = 19_000_000

	n, err := env.ctx.GetCurrentBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(19_000_000), n)

	hash := ethCommon.HexToHash("0xabc")
	id, err := env.ctx.GetTxIdFromReceipt(&types.Receipt{TxHash: hash})
	require.NoError(t, err)
	assert.Equal(t, hash.Hex(), id)

	_, err = env.ctx.GetTxIdFromReceipt(42)
	assert.Error(t, err)

	caps := env.ctx.Capabilities()
	assert.True(t, caps.Send)
	assert.True(t, caps.GetVaa)
	assert.False(t, caps.Relay)
}
