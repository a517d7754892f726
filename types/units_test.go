package types

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func mustToWei(t *testing.T, s *Scaler, native *big.Int) *uint256.Int {
	t.Helper()
	wei, err := s.ToWei(native)
	if err != nil {
		t.Fatalf("failed to scale %s to wei: %v", native, err)
	}
	return wei
}

func TestScalerToWei(t *testing.T) {
	scaler, err := NewScaler(12)
	if err != nil {
		t.Fatalf("failed to build scaler: %v", err)
	}

	// 1 native unit at 12 decimals is 10^6 wei.
	wei := mustToWei(t, scaler, big.NewInt(1))
	if wei.Cmp(uint256.NewInt(1_000_000)) != 0 {
		t.Fatalf("expected 1000000 wei, got %s", wei.String())
	}

	if !mustToWei(t, scaler, nil).IsZero() {
		t.Fatal("nil input should scale to zero")
	}
	if !mustToWei(t, scaler, big.NewInt(0)).IsZero() {
		t.Fatal("zero input should scale to zero")
	}
}

func TestScalerToWeiRejectsOverflow(t *testing.T) {
	scaler, _ := NewScaler(12)

	// Larger than 2^256 on the native side already.
	huge := new(big.Int).Lsh(big.NewInt(1), 260)
	if _, err := scaler.ToWei(huge); err == nil {
		t.Fatal("expected overflow error for native amount above 256 bits")
	}

	// Fits in 256 bits natively but not once multiplied by 10^6.
	edge := new(big.Int).Lsh(big.NewInt(1), 255)
	if _, err := scaler.ToWei(edge); err == nil {
		t.Fatal("expected overflow error for wei amount above 256 bits")
	}
}

func TestScalerToNativeExact(t *testing.T) {
	scaler, _ := NewScaler(12)

	native, err := scaler.ToNative(uint256.NewInt(5_000_000))
	if err != nil {
		t.Fatalf("exact conversion failed: %v", err)
	}
	if native.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("expected 5 native units, got %s", native.String())
	}
}

func TestScalerToNativeRejectsRemainder(t *testing.T) {
	scaler, _ := NewScaler(12)

	// 10^6 + 1 wei cannot be represented in 12-decimal native units.
	_, err := scaler.ToNative(uint256.NewInt(1_000_001))
	if !errors.Is(err, ErrInvalidValueScale) {
		t.Fatalf("expected ErrInvalidValueScale, got %v", err)
	}
}

func TestScalerRoundTrip(t *testing.T) {
	scaler, _ := NewScaler(12)

	for _, amount := range []int64{1, 7, 1_000_000, 123_456_789} {
		wei := mustToWei(t, scaler, big.NewInt(amount))
		back, err := scaler.ToNative(wei)
		if err != nil {
			t.Fatalf("round trip of %d failed: %v", amount, err)
		}
		if back.Cmp(big.NewInt(amount)) != 0 {
			t.Fatalf("round trip of %d gave %s", amount, back.String())
		}
	}
}

func TestScalerIdentityAt18Decimals(t *testing.T) {
	scaler, err := NewScaler(18)
	if err != nil {
		t.Fatalf("failed to build scaler: %v", err)
	}
	if scaler.Factor().Cmp(uint256.NewInt(1)) != 0 {
		t.Fatalf("expected factor 1, got %s", scaler.Factor().String())
	}

	wei := mustToWei(t, scaler, big.NewInt(42))
	if wei.Cmp(uint256.NewInt(42)) != 0 {
		t.Fatalf("expected identity scaling, got %s", wei.String())
	}
}

func TestScalerRejectsTooManyDecimals(t *testing.T) {
	if _, err := NewScaler(19); err == nil {
		t.Fatal("expected error for decimals above wei resolution")
	}
}
