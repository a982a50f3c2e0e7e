package vaa

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/certusone/wormhole/connect/pkg/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type (
	// VAA is a guardian-signed cross-chain message envelope.
	VAA struct {
		Version          uint8
		GuardianSetIndex uint32
		Signatures       []*Signature

		Timestamp        time.Time
		Nonce            uint32
		Sequence         uint64
		ConsistencyLevel uint8
		EmitterChain     ChainID
		EmitterAddress   Address
		Payload          []byte
	}

	// Address is a Wormhole protocol address. Chains with addresses shorter than 32 bytes are zero-padded on the left.
	Address [32]byte

	// Signature of a single guardian
	Signature struct {
		Index     uint8
		Signature SignatureData
	}

	SignatureData [65]byte
)

const (
	SupportedVAAVersion = 0x01

	signatureLength = 65
	headerLength    = 1 + 4 + 1
	bodyLength      = 4 + 4 + 2 + 32 + 8 + 1
	minVAALength    = headerLength + bodyLength
)

func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, a)), nil
}

func (a *Address) UnmarshalJSON(data []byte) error {
	addr, err := StringToAddress(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a SignatureData) String() string {
	return hex.EncodeToString(a[:])
}

// Unmarshal decodes a v1 VAA. Every structural violation is reported as common.ErrMalformedVaa.
func Unmarshal(data []byte) (*VAA, error) {
	if len(data) < minVAALength {
		return nil, fmt.Errorf("%w: VAA is too short (%d bytes)", common.ErrMalformedVaa, len(data))
	}
	if data[0] != SupportedVAAVersion {
		return nil, fmt.Errorf("%w: unsupported VAA version: %d", common.ErrMalformedVaa, data[0])
	}

	v := &VAA{Version: data[0]}
	v.GuardianSetIndex = binary.BigEndian.Uint32(data[1:5])

	numSigs := int(data[5])
	bodyStart := headerLength + numSigs*(1+signatureLength)
	if len(data) < bodyStart+bodyLength {
		return nil, fmt.Errorf("%w: truncated signature set, %d signatures need %d bytes but got %d",
			common.ErrMalformedVaa, numSigs, bodyStart+bodyLength, len(data))
	}

	v.Signatures = make([]*Signature, numSigs)
	for i := 0; i < numSigs; i++ {
		off := headerLength + i*(1+signatureLength)
		sig := &Signature{Index: data[off]}
		copy(sig.Signature[:], data[off+1:off+1+signatureLength])
		v.Signatures[i] = sig
	}

	v.unmarshalBody(data[bodyStart:])
	return v, nil
}

// unmarshalBody decodes the signed portion of the VAA. The caller guarantees len(body) >= bodyLength.
func (v *VAA) unmarshalBody(body []byte) {
	v.Timestamp = time.Unix(int64(binary.BigEndian.Uint32(body[0:4])), 0)
	v.Nonce = binary.BigEndian.Uint32(body[4:8])
	v.EmitterChain = ChainID(binary.BigEndian.Uint16(body[8:10]))
	copy(v.EmitterAddress[:], body[10:42])
	v.Sequence = binary.BigEndian.Uint64(body[42:50])
	v.ConsistencyLevel = body[50]

	// VAAs may carry an empty payload.
	v.Payload = make([]byte, len(body)-bodyLength)
	copy(v.Payload, body[bodyLength:])
}

// Marshal returns the binary representation of the VAA
func (v *VAA) Marshal() ([]byte, error) {
	if len(v.Signatures) > 255 {
		return nil, fmt.Errorf("too many signatures: %d", len(v.Signatures))
	}
	buf := new(bytes.Buffer)
	MustWrite(buf, binary.BigEndian, v.Version)
	MustWrite(buf, binary.BigEndian, v.GuardianSetIndex)
	MustWrite(buf, binary.BigEndian, uint8(len(v.Signatures))) // #nosec G115 -- checked above
	for _, sig := range v.Signatures {
		MustWrite(buf, binary.BigEndian, sig.Index)
		buf.Write(sig.Signature[:])
	}
	buf.Write(v.serializeBody())
	return buf.Bytes(), nil
}

func (v *VAA) serializeBody() []byte {
	buf := new(bytes.Buffer)
	MustWrite(buf, binary.BigEndian, uint32(v.Timestamp.Unix())) // #nosec G115 -- This conversion is safe until year 2106
	MustWrite(buf, binary.BigEndian, v.Nonce)
	MustWrite(buf, binary.BigEndian, v.EmitterChain)
	buf.Write(v.EmitterAddress[:])
	MustWrite(buf, binary.BigEndian, v.Sequence)
	MustWrite(buf, binary.BigEndian, v.ConsistencyLevel)
	buf.Write(v.Payload)
	return buf.Bytes()
}

// SigningDigest returns keccak256(keccak256(body)). The token bridges key their replay protection on it.
func (v *VAA) SigningDigest() ethcommon.Hash {
	return crypto.Keccak256Hash(crypto.Keccak256Hash(v.serializeBody()).Bytes())
}

// HexDigest returns the hex-encoded signing digest without a 0x prefix.
func (v *VAA) HexDigest() string {
	return hex.EncodeToString(v.SigningDigest().Bytes())
}

// MessageID returns a human-readable emitter_chain/emitter_address/sequence tuple.
func (v *VAA) MessageID() string {
	return MessageID(v.EmitterChain, v.EmitterAddress, v.Sequence)
}

func MessageID(chain ChainID, emitter Address, sequence uint64) string {
	return fmt.Sprintf("%d/%s/%d", chain, emitter, sequence)
}

// MustWrite calls binary.Write and panics on errors
func MustWrite(w io.Writer, order binary.ByteOrder, data interface{}) {
	if err := binary.Write(w, order, data); err != nil {
		panic(fmt.Errorf("failed to write binary data: %v", data).Error())
	}
}

// StringToAddress converts a hex-encoded address, with or without 0x prefix, into a left-padded Address.
func StringToAddress(value string) (Address, error) {
	var address Address

	value = strings.TrimPrefix(value, "0x")
	if len(value) == 0 {
		return address, fmt.Errorf("value must be at least 1 byte")
	}
	if len(value)%2 == 1 {
		value = "0" + value
	}

	res, err := hex.DecodeString(value)
	if err != nil {
		return address, err
	}
	return BytesToAddress(res)
}

func BytesToAddress(b []byte) (Address, error) {
	var address Address
	if len(b) > 32 {
		return address, fmt.Errorf("value must be no more than 32 bytes")
	}

	copy(address[32-len(b):], b)
	return address, nil
}
