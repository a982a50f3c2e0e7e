package connect

import (
	"encoding/hex"
	"time"

	"github.com/certusone/wormhole/connect/pkg/connect"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

type transferView struct {
	PayloadID    uint8       `json:"payloadId"`
	Amount       string      `json:"amount"`
	TokenAddress vaa.Address `json:"tokenAddress"`
	TokenChain   string      `json:"tokenChain"`
	To           vaa.Address `json:"to"`
	ToChain      string      `json:"toChain"`
	Fee          string      `json:"fee,omitempty"`
	FromAddress  string      `json:"fromAddress,omitempty"`
	Payload      string      `json:"payload,omitempty"`
}

type vaaView struct {
	MessageID        string        `json:"messageId"`
	Digest           string        `json:"digest"`
	Version          uint8         `json:"version"`
	GuardianSetIndex uint32        `json:"guardianSetIndex"`
	Signatures       int           `json:"signatures"`
	Timestamp        time.Time     `json:"timestamp"`
	Nonce            uint32        `json:"nonce"`
	EmitterChain     string        `json:"emitterChain"`
	EmitterAddress   vaa.Address   `json:"emitterAddress"`
	Sequence         uint64        `json:"sequence"`
	ConsistencyLevel uint8         `json:"consistencyLevel"`
	Payload          string        `json:"payload"`
	Transfer         *transferView `json:"transfer,omitempty"`
	Raw              string        `json:"raw,omitempty"`
}

func newVaaView(v *vaa.VAA, raw []byte) *vaaView {
	view := &vaaView{
		MessageID:        v.MessageID(),
		Digest:           v.HexDigest(),
		Version:          v.Version,
		GuardianSetIndex: v.GuardianSetIndex,
		Signatures:       len(v.Signatures),
		Timestamp:        v.Timestamp.UTC(),
		Nonce:            v.Nonce,
		EmitterChain:     v.EmitterChain.String(),
		EmitterAddress:   v.EmitterAddress,
		Sequence:         v.Sequence,
		ConsistencyLevel: v.ConsistencyLevel,
		Payload:          hex.EncodeToString(v.Payload),
	}
	if len(raw) > 0 {
		view.Raw = hex.EncodeToString(raw)
	}
	if vaa.IsTransfer(v.Payload) {
		if p, err := vaa.DecodeTransferPayload(v.Payload); err == nil {
			view.Transfer = newTransferView(p)
		}
	}
	return view
}

func newTransferView(p *vaa.TransferPayload) *transferView {
	view := &transferView{
		PayloadID:    p.PayloadID,
		Amount:       p.Amount.String(),
		TokenAddress: p.TokenAddress,
		TokenChain:   p.TokenChain.String(),
		To:           p.To,
		ToChain:      p.ToChain.String(),
	}
	if p.Fee != nil {
		view.Fee = p.Fee.String()
	}
	if p.PayloadID == vaa.PayloadTransferWithPayload {
		view.FromAddress = p.FromAddress.String()
		view.Payload = hex.EncodeToString(p.Payload)
	}
	return view
}

type messageView struct {
	SendTx         string      `json:"sendTx"`
	Sender         string      `json:"sender"`
	Amount         string      `json:"amount"`
	PayloadID      uint8       `json:"payloadId"`
	Recipient      string      `json:"recipient"`
	FromChain      string      `json:"fromChain"`
	ToChain        string      `json:"toChain"`
	TokenAddress   string      `json:"tokenAddress"`
	TokenChain     string      `json:"tokenChain"`
	Sequence       string      `json:"sequence"`
	EmitterAddress vaa.Address `json:"emitterAddress"`
	Block          uint64      `json:"block"`
	GasFee         string      `json:"gasFee"`
	Payload        string      `json:"payload,omitempty"`
}

func newMessageView(m *connect.ParsedMessage) *messageView {
	return &messageView{
		SendTx:         m.SendTx,
		Sender:         m.Sender,
		Amount:         m.Amount.String(),
		PayloadID:      m.PayloadID,
		Recipient:      m.Recipient,
		FromChain:      m.FromChain.String(),
		ToChain:        m.ToChain.String(),
		TokenAddress:   m.TokenAddress,
		TokenChain:     m.TokenChain.String(),
		Sequence:       m.Sequence.String(),
		EmitterAddress: m.EmitterAddress,
		Block:          m.Block,
		GasFee:         m.GasFee.String(),
		Payload:        hex.EncodeToString(m.Payload),
	}
}
