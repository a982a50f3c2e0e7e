package connect

import (
	"fmt"

	"github.com/certusone/wormhole/connect/pkg/vaa"
)

// TokenID identifies a token by its home chain and its address in that chain's native format.
type TokenID struct {
	Chain   vaa.ChainID
	Address string
}

// NativeToken denotes the native currency of whichever chain it is used on.
var NativeToken = TokenID{}

func (t TokenID) IsNative() bool {
	return t == NativeToken
}

func (t TokenID) String() string {
	if t.IsNative() {
		return "native"
	}
	return fmt.Sprintf("%s/%s", t.Chain, t.Address)
}
