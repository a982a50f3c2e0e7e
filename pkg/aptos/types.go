package aptos

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
	"github.com/tidwall/gjson"
)

const userTransactionType = "user_transaction"

// Transaction is the subset of an Aptos transaction the adapter reads.
type Transaction struct {
	Type         string
	Hash         string
	Sender       string
	Version      uint64
	GasUsed      *big.Int
	GasUnitPrice *big.Int
	Events       []Event
}

type Event struct {
	Type string
	Data gjson.Result
}

func parseTransaction(r gjson.Result) (*Transaction, error) {
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: transaction is not a json object", common.ErrRpcFailure)
	}

	tx := &Transaction{
		Type:    r.Get("type").String(),
		Hash:    r.Get("hash").String(),
		Sender:  r.Get("sender").String(),
		Version: r.Get("version").Uint(),
	}

	var ok bool
	// u64 values are encoded as decimal strings.
	if tx.GasUsed, ok = new(big.Int).SetString(orZero(r.Get("gas_used").String()), 10); !ok {
		return nil, fmt.Errorf("%w: invalid gas_used %q", common.ErrRpcFailure, r.Get("gas_used").String())
	}
	if tx.GasUnitPrice, ok = new(big.Int).SetString(orZero(r.Get("gas_unit_price").String()), 10); !ok {
		return nil, fmt.Errorf("%w: invalid gas_unit_price %q", common.ErrRpcFailure, r.Get("gas_unit_price").String())
	}

	for _, ev := range r.Get("events").Array() {
		tx.Events = append(tx.Events, Event{Type: ev.Get("type").String(), Data: ev.Get("data")})
	}
	return tx, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// EntryFunctionPayload is an unsigned call of a Move entry function, in the JSON shape the fullnode accepts for
// transaction submission.
type EntryFunctionPayload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

func (EntryFunctionPayload) Chain() vaa.ChainID {
	return vaa.ChainIDAptos
}

func newEntryFunctionPayload(function string, typeArgs []string, args ...any) *EntryFunctionPayload {
	if typeArgs == nil {
		typeArgs = []string{}
	}
	return &EntryFunctionPayload{
		Type:          "entry_function_payload",
		Function:      function,
		TypeArguments: typeArgs,
		Arguments:     args,
	}
}

type TableItemRequest struct {
	KeyType   string `json:"key_type"`
	ValueType string `json:"value_type"`
	Key       any    `json:"key"`
}

// hexBytes encodes a vector<u8> argument.
func hexBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// decodeMoveString decodes a Move vector<u8> holding utf8 text, as returned by the fullnode ("0x6170746f73").
func decodeMoveString(s string) (string, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
