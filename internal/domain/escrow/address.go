package escrow

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Address identifies an account on the ledger in raw form: a signed 8-bit
// workchain and a 32-byte account hash, rendered as "<wc>:<hex64>".
type Address struct {
	workchain int8
	hash      [32]byte
}

// NewAddress constructs an address from its raw parts.
func NewAddress(workchain int8, hash [32]byte) Address {
	return Address{workchain: workchain, hash: hash}
}

// ParseAddress parses the raw "<wc>:<hex64>" form.
func ParseAddress(s string) (Address, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	wc, err := strconv.ParseInt(parts[0], 10, 8)
	if err != nil {
		return Address{}, fmt.Errorf("%w: bad workchain in %q", ErrInvalidAddress, s)
	}

	raw, err := hex.DecodeString(parts[1])
	if err != nil || len(raw) != 32 {
		return Address{}, fmt.Errorf("%w: bad account hash in %q", ErrInvalidAddress, s)
	}

	var hash [32]byte
	copy(hash[:], raw)
	return Address{workchain: int8(wc), hash: hash}, nil
}

// MustParseAddress parses s and panics on failure. For tests and constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) Workchain() int8 {
	return a.workchain
}

func (a Address) Hash() [32]byte {
	return a.hash
}

func (a Address) String() string {
	return fmt.Sprintf("%d:%s", a.workchain, hex.EncodeToString(a.hash[:]))
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}
