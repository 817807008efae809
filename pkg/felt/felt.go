// Package felt implements the chain's opaque field element type F.
//
// F is treated as opaque per the agent's contract with the chain: callers
// get equality, a hex/bytes codec, a domain hash H, and division-with-
// remainder against a non-zero F. The actual curve and hash primitives are
// an external collaborator (see the package doc on Hash); this package only
// carries the modular integer and a stand-in for the chain's native hash.
package felt

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Prime is the Starknet-style field modulus: 2^251 + 17*2^192 + 1.
var Prime, _ = new(big.Int).SetString(
	"3618502788666131213697322783095070105623107215331596699973092056135872020481", 10,
)

// Felt is an element of Z/PrimeZ.
type Felt struct {
	v big.Int
}

// Zero is the additive identity.
func Zero() Felt { return Felt{} }

// FromUint64 builds a Felt from a u64, reducing modulo Prime (a no-op since
// Prime vastly exceeds 2^64, but kept for symmetry with FromBigInt).
func FromUint64(n uint64) Felt {
	var v big.Int
	v.SetUint64(n)
	return Felt{v: v}
}

// FromBigInt reduces an arbitrary big.Int modulo Prime.
func FromBigInt(n *big.Int) Felt {
	var v big.Int
	v.Mod(n, Prime)
	return Felt{v: v}
}

// FromBytes reduces a big-endian byte string modulo Prime.
func FromBytes(b []byte) Felt {
	var v big.Int
	v.SetBytes(b)
	v.Mod(&v, Prime)
	return Felt{v: v}
}

// FromHex parses a 0x-prefixed hex string into a Felt. Starknet encodes
// felts as minimal-digit quantities, not byte strings, so odd-length
// values such as "0x1" are common and must parse cleanly; this uses
// big.Int's quantity semantics (SetString) rather than hexutil.Decode's
// byte-string semantics (which rejects odd-length input).
func FromHex(s string) (Felt, error) {
	v, ok := new(big.Int).SetString(trimHexPrefix(s), 16)
	if !ok {
		return Felt{}, fmt.Errorf("felt: decode hex %q", s)
	}
	v.Mod(v, Prime)
	return Felt{v: *v}, nil
}

func trimHexPrefix(s string) string {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Bytes returns the big-endian minimal-length byte encoding.
func (f Felt) Bytes() []byte { return f.v.Bytes() }

// Hex returns the 0x-prefixed minimal-digit hex encoding.
func (f Felt) Hex() string { return hexutil.EncodeBig(&f.v) }

func (f Felt) String() string { return f.Hex() }

// Equal reports whether two Felts denote the same field element.
func (f Felt) Equal(other Felt) bool { return f.v.Cmp(&other.v) == 0 }

// IsZero reports whether f is the additive identity.
func (f Felt) IsZero() bool { return len(f.v.Bits()) == 0 }

// Uint64 returns the low 64 bits of f, for values known to fit (e.g. block
// numbers derived via DivMod against a small modulus).
func (f Felt) Uint64() uint64 { return f.v.Uint64() }

// DivMod divides f by a non-zero modulus m and returns (quotient,
// remainder). It panics if m is zero: per the spec, a zero modulus here is
// always a configuration bug (epoch_len <= attestation_window), never a
// runtime condition to report to the user.
func (f Felt) DivMod(m Felt) (q, r Felt) {
	if m.IsZero() {
		panic("felt: DivMod by zero modulus")
	}
	var qq, rr big.Int
	qq.DivMod(&f.v, &m.v, &rr)
	return Felt{v: qq}, Felt{v: rr}
}

// MarshalJSON encodes a Felt as its hex string, the wire shape used by the
// remote signer and the RPC client.
func (f Felt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.Hex() + `"`), nil
}

// UnmarshalJSON decodes a Felt from its hex string.
func (f *Felt) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("felt: invalid JSON felt %s", data)
	}
	parsed, err := FromHex(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
