package connect

import (
	"context"
	"fmt"

	"github.com/certusone/wormhole/connect/pkg/assetcache"
	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

// WrappedAssetLookup asks a chain's token bridge which local asset wraps the asset with the given origin. It
// returns false when nothing was ever registered.
type WrappedAssetLookup func(ctx context.Context, originChain vaa.ChainID, originAddress vaa.Address) (string, bool, error)

// ForeignAssets resolves tokens to their representation on one chain, memoizing positive answers in a cache that
// may be shared by all adapters.
type ForeignAssets struct {
	chain    vaa.ChainID
	cache    *assetcache.Cache
	resolver Resolver
	lookup   WrappedAssetLookup
}

func NewForeignAssets(chain vaa.ChainID, cache *assetcache.Cache, resolver Resolver, lookup WrappedAssetLookup) *ForeignAssets {
	return &ForeignAssets{chain: chain, cache: cache, resolver: resolver, lookup: lookup}
}

func (f *ForeignAssets) Get(ctx context.Context, token TokenID) (string, bool, error) {
	if token.IsNative() {
		return "", false, fmt.Errorf("%w: the native marker has no foreign asset", common.ErrInvalidAssetFormat)
	}
	if token.Chain == f.chain {
		return token.Address, true, nil
	}

	key := assetcache.Key{OriginChain: token.Chain, OriginAddress: token.Address, DestChain: f.chain}
	if v, ok := f.cache.Get(key); ok {
		return v, true, nil
	}

	origin, err := f.resolver.Get(token.Chain)
	if err != nil {
		return "", false, err
	}
	originAddress, err := origin.FormatAssetAddress(token.Address)
	if err != nil {
		return "", false, err
	}

	asset, ok, err := f.lookup(ctx, token.Chain, originAddress)
	if err != nil || !ok {
		return "", false, observeRpcFailure(f.chain, err)
	}
	return f.cache.Add(key, asset), true, nil
}

func (f *ForeignAssets) MustGet(ctx context.Context, token TokenID) (string, error) {
	asset, ok, err := f.Get(ctx, token)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s on %s", common.ErrAssetNotRegistered, token, f.chain)
	}
	return asset, nil
}
