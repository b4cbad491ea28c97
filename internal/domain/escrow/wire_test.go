package escrow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeComment(t *testing.T) {
	body := EncodeComment("pass:42")
	assert.Equal(t, []byte{0, 0, 0, 0, 'p', 'a', 's', 's', ':', '4', '2'}, body)
}

func TestEncodePurchase_GoldenBytes(t *testing.T) {
	var hash [32]byte
	for i := range hash {
		hash[i] = byte(i)
	}
	body := EncodePurchase(PurchasePayload{
		Beneficiary: NewAddress(-1, hash),
		Amount:      0x0102030405060708,
		ID:          42,
	})

	require.Len(t, body, 53)
	assert.Equal(t, []byte{0x70, 0x61, 0x73, 0x73}, body[:4], "opcode")
	assert.Equal(t, byte(0xff), body[4], "workchain byte")
	assert.Equal(t, hash[:], body[5:37], "account hash")
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, body[37:45], "amount big-endian")
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 42}, body[45:53], "id big-endian")
}

func TestDecodePayload(t *testing.T) {
	t.Run("comment round trip", func(t *testing.T) {
		p, err := DecodePayload(EncodeComment("monthly"))
		require.NoError(t, err)
		comment, ok := p.(CommentPayload)
		require.True(t, ok)
		assert.Equal(t, "monthly", comment.Tag)
	})

	t.Run("purchase round trip", func(t *testing.T) {
		want := PurchasePayload{
			Beneficiary: testBeneficiary,
			Amount:      5_000_000_000,
			ID:          7,
		}
		p, err := DecodePayload(EncodePurchase(want))
		require.NoError(t, err)
		assert.Equal(t, want, p)
	})

	t.Run("empty comment is a valid tag-less marker", func(t *testing.T) {
		p, err := DecodePayload([]byte{0, 0, 0, 0})
		require.NoError(t, err)
		assert.Equal(t, CommentPayload{}, p)
	})

	t.Run("body shorter than an opcode", func(t *testing.T) {
		_, err := DecodePayload([]byte{0, 0})
		assert.ErrorIs(t, err, ErrUnknownPayload)
	})

	t.Run("invalid UTF-8 comment", func(t *testing.T) {
		_, err := DecodePayload([]byte{0, 0, 0, 0, 0xff, 0xfe})
		assert.ErrorIs(t, err, ErrUnknownPayload)
	})

	t.Run("truncated purchase", func(t *testing.T) {
		body := EncodePurchase(PurchasePayload{Beneficiary: testBeneficiary, Amount: 1, ID: 1})
		_, err := DecodePayload(body[:len(body)-1])
		assert.ErrorIs(t, err, ErrUnknownPayload)
	})

	t.Run("oversized purchase", func(t *testing.T) {
		body := EncodePurchase(PurchasePayload{Beneficiary: testBeneficiary, Amount: 1, ID: 1})
		_, err := DecodePayload(append(body, 0))
		assert.ErrorIs(t, err, ErrUnknownPayload)
	})

	t.Run("unknown opcode", func(t *testing.T) {
		_, err := DecodePayload([]byte{0x12, 0x34, 0x56, 0x78})
		assert.ErrorIs(t, err, ErrUnknownPayload)
	})
}

func TestParseAddress(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		s := "-1:abcdef" + strings.Repeat("00", 29)
		a, err := ParseAddress(s)
		require.NoError(t, err)
		assert.Equal(t, s, a.String())
		assert.Equal(t, int8(-1), a.Workchain())
	})

	t.Run("missing separator", func(t *testing.T) {
		_, err := ParseAddress("0aaaa")
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("short hash", func(t *testing.T) {
		_, err := ParseAddress("0:abcd")
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("non-hex hash", func(t *testing.T) {
		_, err := ParseAddress("0:zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("workchain out of int8 range", func(t *testing.T) {
		_, err := ParseAddress("300:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})
}
