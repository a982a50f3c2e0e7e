package assetcache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/certusone/wormhole/connect/pkg/vaa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = Key{
	OriginChain:   vaa.ChainIDEthereum,
	OriginAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	DestChain:     vaa.ChainIDAptos,
}

func TestCacheGetAdd(t *testing.T) {
	for _, size := range []int{0, 16} {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			c, err := New(WithSize(size))
			require.NoError(t, err)

			_, ok := c.Get(testKey)
			assert.False(t, ok)

			assert.Equal(t, "0xabc::coin::T", c.Add(testKey, "0xabc::coin::T"))
			v, ok := c.Get(testKey)
			assert.True(t, ok)
			assert.Equal(t, "0xabc::coin::T", v)

			// Entries are never overwritten.
			assert.Equal(t, "0xabc::coin::T", c.Add(testKey, "0xdef::coin::T"))
			v, _ = c.Get(testKey)
			assert.Equal(t, "0xabc::coin::T", v)
			assert.Equal(t, 1, c.Len())

			other := testKey
			other.DestChain = vaa.ChainIDSolana
			_, ok = c.Get(other)
			assert.False(t, ok)
		})
	}
}

func TestCacheBoundedEvicts(t *testing.T) {
	c, err := New(WithSize(2))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		k := testKey
		k.OriginAddress = fmt.Sprintf("0x%d", i)
		c.Add(k, fmt.Sprintf("v%d", i))
	}
	assert.Equal(t, 2, c.Len())

	first := testKey
	first.OriginAddress = "0x0"
	_, ok := c.Get(first)
	assert.False(t, ok)
}

func TestCacheConcurrentWritersConverge(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Add(testKey, fmt.Sprintf("writer-%d", i))
		}(i)
	}
	wg.Wait()

	stored, ok := c.Get(testKey)
	require.True(t, ok)
	for _, r := range results {
		assert.Equal(t, stored, r)
	}
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "ethereum/0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2->aptos", testKey.String())
}
