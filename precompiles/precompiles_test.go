package precompiles

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lumenchain/evm-engine/types"
)

func TestDispatchTable(t *testing.T) {
	for i := byte(1); i <= 4; i++ {
		addr := addressOf(i)
		if !IsPrecompile(addr) {
			t.Fatalf("address %d missing from the table", i)
		}
		if _, ok := Lookup(addr); !ok {
			t.Fatalf("lookup failed for address %d", i)
		}
	}
	if IsPrecompile(addressOf(5)) {
		t.Fatal("address 5 must not be reserved")
	}
	if IsPrecompile(common.HexToAddress("0x1111111111111111111111111111111111111111")) {
		t.Fatal("ordinary address must not be reserved")
	}

	addrs := Addresses()
	if len(addrs) != 4 {
		t.Fatalf("expected 4 reserved addresses, got %d", len(addrs))
	}
	for i, addr := range addrs {
		if addr != addressOf(byte(i+1)) {
			t.Fatal("addresses must come back in ascending order")
		}
	}
}

func TestSha256Vectors(t *testing.T) {
	c, _ := Lookup(addressOf(2))

	out, err := c.Run(nil)
	if err != nil {
		t.Fatalf("sha256 of empty input failed: %v", err)
	}
	want, _ := hex.DecodeString("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")
	if !bytes.Equal(out, want) {
		t.Fatalf("sha256(\"\") = %x", out)
	}

	out, err = c.Run([]byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	want, _ = hex.DecodeString("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	if !bytes.Equal(out, want) {
		t.Fatalf("sha256(\"abc\") = %x", out)
	}

	if got := c.Gas(nil); got != 60 {
		t.Fatalf("empty input must cost 60, got %d", got)
	}
	if got := c.Gas(make([]byte, 33)); got != 60+2*12 {
		t.Fatalf("33 bytes are two words, got cost %d", got)
	}
}

func TestRipemd160Vectors(t *testing.T) {
	c, _ := Lookup(addressOf(3))

	out, err := c.Run([]byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	digest, _ := hex.DecodeString("8eb208f7e05d987a9b044a8e98c6b087f15a0bfc")
	want := common.LeftPadBytes(digest, 32)
	if !bytes.Equal(out, want) {
		t.Fatalf("ripemd160(\"abc\") = %x", out)
	}
	if len(out) != 32 {
		t.Fatal("digest must be padded to a word")
	}

	if got := c.Gas(nil); got != 600 {
		t.Fatalf("empty input must cost 600, got %d", got)
	}
	if got := c.Gas(make([]byte, 64)); got != 600+2*120 {
		t.Fatalf("64 bytes are two words, got cost %d", got)
	}
}

func TestIdentity(t *testing.T) {
	c, _ := Lookup(addressOf(4))

	input := []byte{1, 2, 3, 4, 5}
	out, err := c.Run(input)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, input) {
		t.Fatalf("identity returned %x", out)
	}
	// The output must be a copy, not an alias.
	out[0] = 0xff
	if input[0] != 1 {
		t.Fatal("identity must not alias its input")
	}

	if got := c.Gas(input); got != 15+3 {
		t.Fatalf("one word must cost 18, got %d", got)
	}
}

func TestEcrecover(t *testing.T) {
	c, _ := Lookup(addressOf(1))

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	msgHash := crypto.Keccak256([]byte("claim message"))

	sig, err := crypto.Sign(msgHash, key)
	if err != nil {
		t.Fatal(err)
	}

	input := make([]byte, 128)
	copy(input[0:32], msgHash)
	input[63] = sig[64] + 27
	copy(input[64:96], sig[0:32])
	copy(input[96:128], sig[32:64])

	out, err := c.Run(input)
	if err != nil {
		t.Fatalf("ecrecover failed: %v", err)
	}
	want := common.LeftPadBytes(addr.Bytes(), 32)
	if !bytes.Equal(out, want) {
		t.Fatalf("recovered %x, want %x", out, want)
	}

	if got := c.Gas(input); got != 3000 {
		t.Fatalf("ecrecover must cost 3000, got %d", got)
	}
}

func TestEcrecoverRejectsMalformedInput(t *testing.T) {
	c, _ := Lookup(addressOf(1))

	// Oversized input.
	if _, err := c.Run(make([]byte, 129)); !errors.Is(err, types.ErrPrecompileInput) {
		t.Fatalf("expected ErrPrecompileInput for oversized input, got %v", err)
	}

	// v outside 27/28.
	input := make([]byte, 128)
	input[63] = 29
	input[95] = 1
	input[127] = 1
	if _, err := c.Run(input); !errors.Is(err, types.ErrPrecompileInput) {
		t.Fatalf("expected ErrPrecompileInput for bad v, got %v", err)
	}

	// Garbage in the upper bytes of the v word.
	input[63] = 27
	input[40] = 1
	if _, err := c.Run(input); !errors.Is(err, types.ErrPrecompileInput) {
		t.Fatalf("expected ErrPrecompileInput for dirty v word, got %v", err)
	}

	// Zero r/s never validate.
	zero := make([]byte, 128)
	zero[63] = 27
	if _, err := c.Run(zero); !errors.Is(err, types.ErrPrecompileInput) {
		t.Fatalf("expected ErrPrecompileInput for zero signature, got %v", err)
	}
}

func TestShortInputIsZeroPadded(t *testing.T) {
	c, _ := Lookup(addressOf(1))

	// Truncated input is padded with zeros, which then fails signature
	// validation like any zero signature.
	if _, err := c.Run([]byte{0x01}); !errors.Is(err, types.ErrPrecompileInput) {
		t.Fatalf("expected ErrPrecompileInput, got %v", err)
	}
}
