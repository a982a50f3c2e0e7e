package connect

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

// Registry dispatches calls to the adapter registered for a chain. Adapters are registered once at startup, after
// construction, because they hold a reference back to the registry.
type Registry struct {
	mu       sync.RWMutex
	contexts map[vaa.ChainID]Context
}

func NewRegistry() *Registry {
	return &Registry{contexts: make(map[vaa.ChainID]Context)}
}

func (r *Registry) Register(c Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.contexts[c.Chain()]; exists {
		return fmt.Errorf("context for %s already registered", c.Chain())
	}
	r.contexts[c.Chain()] = c
	return nil
}

func (r *Registry) Get(chain vaa.ChainID) (Context, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contexts[chain]
	if !ok {
		return nil, fmt.Errorf("%w: no context for chain %s", common.ErrNotConfigured, chain)
	}
	return c, nil
}

// Chains returns the registered chains in ascending chain id order.
func (r *Registry) Chains() []vaa.ChainID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]vaa.ChainID, 0, len(r.contexts))
	for id := range r.contexts {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GetForeignAsset resolves token on destChain through the destination chain's adapter.
func (r *Registry) GetForeignAsset(ctx context.Context, token TokenID, destChain vaa.ChainID) (string, bool, error) {
	if token.Chain == destChain {
		return token.Address, true, nil
	}
	dest, err := r.Get(destChain)
	if err != nil {
		return "", false, err
	}
	return dest.GetForeignAsset(ctx, token)
}

func (r *Registry) MustGetForeignAsset(ctx context.Context, token TokenID, destChain vaa.ChainID) (string, error) {
	if token.Chain == destChain {
		return token.Address, nil
	}
	dest, err := r.Get(destChain)
	if err != nil {
		return "", err
	}
	return dest.MustGetForeignAsset(ctx, token)
}

// GetVaa locates the message emitted by txHash on chain and retrieves its signed VAA.
func (r *Registry) GetVaa(ctx context.Context, chain vaa.ChainID, txHash string) (*VaaInfo, error) {
	c, err := r.Get(chain)
	if err != nil {
		return nil, err
	}
	if !c.Capabilities().GetVaa {
		return nil, fmt.Errorf("%w: get vaa on %s", common.ErrUnsupportedOperation, chain)
	}
	info, err := c.GetVaa(ctx, txHash)
	return info, observeRpcFailure(chain, err)
}

// IsTransferCompleted checks redemption on the chain the VAA's transfer targets.
func (r *Registry) IsTransferCompleted(ctx context.Context, rawVaa []byte) (bool, error) {
	v, err := vaa.Unmarshal(rawVaa)
	if err != nil {
		return false, err
	}
	p, err := vaa.DecodeTransferPayload(v.Payload)
	if err != nil {
		return false, err
	}
	dest, err := r.Get(p.ToChain)
	if err != nil {
		return false, err
	}
	done, err := dest.IsTransferCompleted(ctx, rawVaa)
	return done, observeRpcFailure(p.ToChain, err)
}
