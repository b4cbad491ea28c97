package escrow

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Payment messages carry one of two byte-exact markers. A text marker is a
// 32-bit zero opcode followed by a UTF-8 tag. A purchase marker is a fixed
// 32-bit opcode followed by typed fields in a defined order: beneficiary
// address (workchain byte + 32-byte hash), amount (uint64), id (uint64).
// All integers are big-endian. Off-chain callers must produce these bytes
// exactly or the contract bounces the transfer.
const (
	// OpTextComment is the opcode for plain text markers.
	OpTextComment uint32 = 0x00000000
	// OpPurchase is the opcode for structured purchase markers ("pass").
	OpPurchase uint32 = 0x70617373
)

const purchasePayloadSize = 4 + 1 + 32 + 8 + 8

// Payload is the decoded form of a payment message body.
type Payload interface {
	isPayload()
}

// CommentPayload is a text marker: zero opcode plus UTF-8 tag.
type CommentPayload struct {
	Tag string
}

func (CommentPayload) isPayload() {}

// PurchasePayload is the structured binary marker.
type PurchasePayload struct {
	Beneficiary Address
	Amount      uint64
	ID          uint64
}

func (PurchasePayload) isPayload() {}

// EncodeComment encodes a text marker.
func EncodeComment(tag string) []byte {
	buf := make([]byte, 4, 4+len(tag))
	binary.BigEndian.PutUint32(buf, OpTextComment)
	return append(buf, tag...)
}

// EncodePurchase encodes a structured purchase marker.
func EncodePurchase(p PurchasePayload) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, purchasePayloadSize))
	binary.Write(buf, binary.BigEndian, OpPurchase)
	buf.WriteByte(byte(p.Beneficiary.Workchain()))
	hash := p.Beneficiary.Hash()
	buf.Write(hash[:])
	binary.Write(buf, binary.BigEndian, p.Amount)
	binary.Write(buf, binary.BigEndian, p.ID)
	return buf.Bytes()
}

// DecodePayload decodes a payment message body into one of the two marker
// forms. Anything else fails with ErrUnknownPayload.
func DecodePayload(body []byte) (Payload, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("%w: body too short", ErrUnknownPayload)
	}

	op := binary.BigEndian.Uint32(body[:4])
	switch op {
	case OpTextComment:
		tag := body[4:]
		if !utf8.Valid(tag) {
			return nil, fmt.Errorf("%w: comment is not valid UTF-8", ErrUnknownPayload)
		}
		return CommentPayload{Tag: string(tag)}, nil

	case OpPurchase:
		if len(body) != purchasePayloadSize {
			return nil, fmt.Errorf("%w: purchase body is %d bytes, want %d",
				ErrUnknownPayload, len(body), purchasePayloadSize)
		}
		var hash [32]byte
		copy(hash[:], body[5:37])
		return PurchasePayload{
			Beneficiary: NewAddress(int8(body[4]), hash),
			Amount:      binary.BigEndian.Uint64(body[37:45]),
			ID:          binary.BigEndian.Uint64(body[45:53]),
		}, nil

	default:
		return nil, fmt.Errorf("%w: opcode 0x%08x", ErrUnknownPayload, op)
	}
}
