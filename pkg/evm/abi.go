package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// LogMessagePublished(address indexed sender, uint64 sequence, uint32 nonce, bytes payload, uint8 consistencyLevel)
var logMessagePublishedTopic = common.HexToHash("0x6eb224fb001ed210e379b335e35efe88672a8ce935d981a6896b27ffdf52a3b2")

const tokenBridgeABIJSON = `[
	{"type":"function","name":"transferTokens","stateMutability":"payable","inputs":[
		{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"recipientChain","type":"uint16"},
		{"name":"recipient","type":"bytes32"},{"name":"arbiterFee","type":"uint256"},{"name":"nonce","type":"uint32"}],
		"outputs":[{"name":"sequence","type":"uint64"}]},
	{"type":"function","name":"transferTokensWithPayload","stateMutability":"payable","inputs":[
		{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"recipientChain","type":"uint16"},
		{"name":"recipient","type":"bytes32"},{"name":"nonce","type":"uint32"},{"name":"payload","type":"bytes"}],
		"outputs":[{"name":"sequence","type":"uint64"}]},
	{"type":"function","name":"wrapAndTransferETH","stateMutability":"payable","inputs":[
		{"name":"recipientChain","type":"uint16"},{"name":"recipient","type":"bytes32"},{"name":"arbiterFee","type":"uint256"},
		{"name":"nonce","type":"uint32"}],
		"outputs":[{"name":"sequence","type":"uint64"}]},
	{"type":"function","name":"wrapAndTransferETHWithPayload","stateMutability":"payable","inputs":[
		{"name":"recipientChain","type":"uint16"},{"name":"recipient","type":"bytes32"},{"name":"nonce","type":"uint32"},
		{"name":"payload","type":"bytes"}],
		"outputs":[{"name":"sequence","type":"uint64"}]},
	{"type":"function","name":"completeTransfer","stateMutability":"nonpayable","inputs":[{"name":"encodedVm","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"completeTransferAndUnwrapETH","stateMutability":"nonpayable","inputs":[{"name":"encodedVm","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"wrappedAsset","stateMutability":"view","inputs":[
		{"name":"tokenChainId","type":"uint16"},{"name":"tokenAddress","type":"bytes32"}],
		"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"isTransferCompleted","stateMutability":"view","inputs":[{"name":"hash","type":"bytes32"}],
		"outputs":[{"name":"","type":"bool"}]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[
		{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
		"outputs":[{"name":"","type":"bool"}]}
]`

const coreBridgeABIJSON = `[
	{"type":"event","name":"LogMessagePublished","anonymous":false,"inputs":[
		{"name":"sender","type":"address","indexed":true},{"name":"sequence","type":"uint64","indexed":false},
		{"name":"nonce","type":"uint32","indexed":false},{"name":"payload","type":"bytes","indexed":false},
		{"name":"consistencyLevel","type":"uint8","indexed":false}]}
]`

var (
	tokenBridgeABI = mustParseABI(tokenBridgeABIJSON)
	erc20ABI       = mustParseABI(erc20ABIJSON)
	coreBridgeABI  = mustParseABI(coreBridgeABIJSON)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}
	return parsed
}
