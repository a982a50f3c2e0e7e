package evm

import (
	"context"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// RPCTimeout bounds every JSON-RPC call made by the context.
const RPCTimeout = 10 * time.Second

// Client is the subset of ethclient.Client the context needs.
type Client interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account ethCommon.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash ethCommon.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash ethCommon.Hash) (tx *types.Transaction, isPending bool, err error)
	BlockNumber(ctx context.Context) (uint64, error)
}

var _ Client = (*ethclient.Client)(nil)

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, rpc string) (*ethclient.Client, error) {
	timeout, cancel := context.WithTimeout(ctx, RPCTimeout)
	defer cancel()
	return ethclient.DialContext(timeout, rpc)
}
