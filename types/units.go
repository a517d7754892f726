package types

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// EvmDecimals is the resolution of the EVM-side balance unit (wei).
const EvmDecimals = 18

// Scaler converts between the ledger's native smallest unit and the EVM's
// 18-decimal wei unit. Native to wei is exact by construction (a multiply by
// a power of ten). Wei to native rejects amounts that are not whole multiples of
// the scaling factor instead of truncating, so no sub-unit value can be
// silently created or destroyed at the boundary.
type Scaler struct {
	factor *uint256.Int
}

// NewScaler builds a scaler for a native token with the given number of
// decimals (must be <= 18, the wei resolution).
func NewScaler(nativeDecimals uint8) (*Scaler, error) {
	if nativeDecimals > 18 {
		return nil, fmt.Errorf("native decimals %d exceed wei resolution", nativeDecimals)
	}
	factor := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(18-nativeDecimals)))
	return &Scaler{factor: factor}, nil
}

// ToWei converts a native-unit amount to wei. Exact for any balance whose
// wei value fits in 256 bits; amounts beyond that are rejected rather than
// wrapped.
func (s *Scaler) ToWei(native *big.Int) (*uint256.Int, error) {
	if native == nil || native.Sign() <= 0 {
		return new(uint256.Int), nil
	}
	n, overflow := uint256.FromBig(native)
	if overflow {
		return nil, fmt.Errorf("native amount %s overflows 256 bits", native)
	}
	wei, overflow := new(uint256.Int).MulOverflow(n, s.factor)
	if overflow {
		return nil, fmt.Errorf("native amount %s overflows 256 bits in wei", native)
	}
	return wei, nil
}

// ToNative converts a wei amount to native units. Amounts carrying a
// sub-native-unit remainder are rejected with ErrInvalidValueScale.
func (s *Scaler) ToNative(wei *uint256.Int) (*big.Int, error) {
	if wei == nil || wei.IsZero() {
		return new(big.Int), nil
	}
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(wei, s.factor, r)
	if !r.IsZero() {
		return nil, ErrInvalidValueScale
	}
	return q.ToBig(), nil
}

// Factor returns the wei-per-native-unit multiplier.
func (s *Scaler) Factor() *uint256.Int {
	return new(uint256.Int).Set(s.factor)
}
