package vaa

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/holiman/uint256"
)

// Token bridge payload ids.
const (
	PayloadTransfer            uint8 = 1
	PayloadTransferWithPayload uint8 = 3
)

// Both transfer variants share a 101 byte prefix followed by a 32 byte word (fee or sender).
const transferPayloadLength = 133

// TransferPayload is the token bridge transfer message carried in a VAA payload.
type TransferPayload struct {
	PayloadID    uint8
	Amount       *big.Int
	TokenAddress Address
	TokenChain   ChainID
	To           Address
	ToChain      ChainID

	// Fee is only set for PayloadTransfer.
	Fee *big.Int

	// FromAddress and Payload are only set for PayloadTransferWithPayload.
	FromAddress Address
	Payload     []byte
}

// NOTE: This function assumes that the caller has verified that the VAA is from the token bridge.
func IsTransfer(payload []byte) bool {
	return len(payload) > 0 && (payload[0] == PayloadTransfer || payload[0] == PayloadTransferWithPayload)
}

// DecodeTransferPayload parses a token bridge transfer. Unknown payload ids and short buffers are reported as
// common.ErrMalformedTransferPayload.
func DecodeTransferPayload(payload []byte) (*TransferPayload, error) {
	if !IsTransfer(payload) {
		if len(payload) == 0 {
			return nil, fmt.Errorf("%w: empty payload", common.ErrMalformedTransferPayload)
		}
		return nil, fmt.Errorf("%w: unsupported payload type %d", common.ErrMalformedTransferPayload, payload[0])
	}
	if len(payload) < transferPayloadLength {
		return nil, fmt.Errorf("%w: buffer too short, expected at least %d bytes but got %d",
			common.ErrMalformedTransferPayload, transferPayloadLength, len(payload))
	}

	p := &TransferPayload{
		PayloadID: payload[0],
		Amount:    new(uint256.Int).SetBytes(payload[1:33]).ToBig(),
	}
	copy(p.TokenAddress[:], payload[33:65])
	p.TokenChain = ChainID(binary.BigEndian.Uint16(payload[65:67]))
	copy(p.To[:], payload[67:99])
	p.ToChain = ChainID(binary.BigEndian.Uint16(payload[99:101]))

	switch p.PayloadID {
	case PayloadTransfer:
		p.Fee = new(uint256.Int).SetBytes(payload[101:133]).ToBig()
	case PayloadTransferWithPayload:
		copy(p.FromAddress[:], payload[101:133])
		p.Payload = make([]byte, len(payload)-transferPayloadLength)
		copy(p.Payload, payload[transferPayloadLength:])
	}
	return p, nil
}

// Marshal encodes the transfer. Amounts and fees must fit in 256 bits.
func (p *TransferPayload) Marshal() ([]byte, error) {
	if !IsTransfer([]byte{p.PayloadID}) {
		return nil, fmt.Errorf("unsupported payload type %d", p.PayloadID)
	}
	amount, err := toUint256(p.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}

	buf := new(bytes.Buffer)
	buf.WriteByte(p.PayloadID)
	word := amount.Bytes32()
	buf.Write(word[:])
	buf.Write(p.TokenAddress[:])
	MustWrite(buf, binary.BigEndian, p.TokenChain)
	buf.Write(p.To[:])
	MustWrite(buf, binary.BigEndian, p.ToChain)

	if p.PayloadID == PayloadTransfer {
		fee, err := toUint256(p.Fee)
		if err != nil {
			return nil, fmt.Errorf("fee: %w", err)
		}
		word = fee.Bytes32()
		buf.Write(word[:])
	} else {
		buf.Write(p.FromAddress[:])
		buf.Write(p.Payload)
	}
	return buf.Bytes(), nil
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", v)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("value %s overflows 256 bits", v)
	}
	return u, nil
}
