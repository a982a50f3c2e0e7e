package aptos

import (
	"context"
	"fmt"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

// Reads of the token bridge's on-chain state.

func (c *Context) stateResource() string {
	return c.tokenBridge + "::state::State"
}

// GetTypeFromExternalAddress looks up the coin type of an Aptos-native asset from its 32 byte token bridge address.
// It returns false if the bridge has never seen the asset.
func (c *Context) GetTypeFromExternalAddress(ctx context.Context, address vaa.Address) (string, bool, error) {
	state, err := c.api.GetAccountResource(ctx, c.tokenBridge, c.stateResource())
	if err != nil {
		return "", false, fmt.Errorf("failed to read token bridge state: %w", err)
	}
	handle := state.Get("data.native_infos.handle")
	if !handle.Exists() {
		return "", false, fmt.Errorf("%w: token bridge state has no native_infos table", common.ErrRpcFailure)
	}

	info, err := c.api.GetTableItem(ctx, handle.String(), TableItemRequest{
		KeyType:   c.tokenBridge + "::token_hash::TokenHash",
		ValueType: "0x1::type_info::TypeInfo",
		Key:       map[string]string{"hash": "0x" + address.String()},
	})
	if IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	moduleName, err := decodeMoveString(info.Get("module_name").String())
	if err != nil {
		return "", false, fmt.Errorf("%w: invalid module_name: %w", common.ErrRpcFailure, err)
	}
	structName, err := decodeMoveString(info.Get("struct_name").String())
	if err != nil {
		return "", false, fmt.Errorf("%w: invalid struct_name: %w", common.ErrRpcFailure, err)
	}
	return fmt.Sprintf("%s::%s::%s", info.Get("account_address").String(), moduleName, structName), true, nil
}

// coinExists checks whether the coin type has been initialized.
func (c *Context) coinExists(ctx context.Context, coinType string) (bool, error) {
	_, err := c.api.GetAccountResource(ctx, coinAccount(coinType), coinInfoResource(coinType))
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// lookupWrappedAsset finds the coin type representing (originChain, originAddress) on Aptos.
func (c *Context) lookupWrappedAsset(ctx context.Context, originChain vaa.ChainID, originAddress vaa.Address) (string, bool, error) {
	if originChain == vaa.ChainIDAptos {
		return c.GetTypeFromExternalAddress(ctx, originAddress)
	}

	account, err := DeriveWrappedAssetAddress(c.tokenBridge, originChain, originAddress)
	if err != nil {
		return "", false, err
	}
	coinType := wrappedCoinType(account)
	exists, err := c.coinExists(ctx, coinType)
	if err != nil || !exists {
		return "", false, err
	}
	return coinType, true, nil
}

// isVaaConsumed checks the token bridge's replay protection set, keyed by the VAA signing digest.
func (c *Context) isVaaConsumed(ctx context.Context, v *vaa.VAA) (bool, error) {
	state, err := c.api.GetAccountResource(ctx, c.tokenBridge, c.stateResource())
	if err != nil {
		return false, fmt.Errorf("failed to read token bridge state: %w", err)
	}
	handle := state.Get("data.consumed_vaas.elems.handle")
	if !handle.Exists() {
		return false, fmt.Errorf("%w: token bridge state has no consumed_vaas table", common.ErrRpcFailure)
	}

	_, err = c.api.GetTableItem(ctx, handle.String(), TableItemRequest{
		KeyType:   "vector<u8>",
		ValueType: "u8",
		Key:       v.HexDigest(),
	})
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func coinInfoResource(coinType string) string {
	return fmt.Sprintf("0x1::coin::CoinInfo<%s>", coinType)
}

func coinStoreResource(coinType string) string {
	return fmt.Sprintf("0x1::coin::CoinStore<%s>", coinType)
}
