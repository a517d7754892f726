// Package addrmap maps native ledger account identifiers to 20-byte EVM
// addresses and back. The derived direction is a pure truncated hash with a
// domain-separation prefix; the reverse direction is best-effort, falling
// back to a synthesized default account so that every EVM address resolves
// to a valid native account.
package addrmap

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/lumenchain/evm-engine/db"
	"github.com/lumenchain/evm-engine/types"
)

const (
	linkAccountPrefix = "link:e2a:" // evm address -> native account id
	linkAddressPrefix = "link:a2e:" // native account id -> evm address
)

// domainPrefix separates EVM-derived identifiers from every other hash in
// the system.
var domainPrefix = []byte("evm:")

// EvmAddress derives the default EVM address for a native account:
// blake2b_256("evm:" || account_id) truncated to 20 bytes. Pure and
// collision-free within the scheme.
func EvmAddress(id types.AccountID) common.Address {
	payload := make([]byte, 0, len(domainPrefix)+len(id))
	payload = append(payload, domainPrefix...)
	payload = append(payload, id[:]...)
	sum := blake2b.Sum256(payload)
	return common.BytesToAddress(sum[:20])
}

// DefaultAccountID synthesizes the native account owned by an EVM address
// that was never claimed: "evm:" || address || zero padding.
func DefaultAccountID(addr common.Address) types.AccountID {
	var id types.AccountID
	copy(id[:4], domainPrefix)
	copy(id[4:24], addr[:])
	return id
}

// IsDefaultAccount reports whether id is a synthesized default account and,
// if so, returns the EVM address it belongs to.
func IsDefaultAccount(id types.AccountID) (common.Address, bool) {
	if !bytes.HasPrefix(id[:], domainPrefix) {
		return common.Address{}, false
	}
	for _, b := range id[24:] {
		if b != 0 {
			return common.Address{}, false
		}
	}
	return common.BytesToAddress(id[4:24]), true
}

// BalanceMigrator merges the free balance of one native account into
// another. Supplied by the state layer so funds that accrued on an
// account's derived address follow the account to its claimed address.
type BalanceMigrator interface {
	MergeAccount(from, to types.AccountID) error
}

// Mapper resolves addresses in both directions, consulting the persisted
// claim index before falling back to the derived forms.
type Mapper struct {
	store db.DB
	log   *logrus.Logger
}

// NewMapper creates a mapper over the given store.
func NewMapper(store db.DB, log *logrus.Logger) *Mapper {
	return &Mapper{store: store, log: log}
}

// EvmAddressOf returns the EVM address bound to a native account: the
// claimed address if one was registered, otherwise the derived default.
func (m *Mapper) EvmAddressOf(id types.AccountID) (common.Address, error) {
	data, err := m.store.Get(linkAddressKey(id))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to read address link: %v", err)
	}
	if len(data) == common.AddressLength {
		return common.BytesToAddress(data), nil
	}
	// A synthesized default account embeds the address it was created for.
	if addr, ok := IsDefaultAccount(id); ok {
		return addr, nil
	}
	return EvmAddress(id), nil
}

// NativeID resolves an EVM address to its native account. Claimed addresses
// map to their registered owner; everything else maps to the synthesized
// default account, so the lookup never fails.
func (m *Mapper) NativeID(addr common.Address) (types.AccountID, error) {
	data, err := m.store.Get(linkAccountKey(addr))
	if err != nil {
		return types.AccountID{}, fmt.Errorf("failed to read account link: %v", err)
	}
	if len(data) == len(types.AccountID{}) {
		id, err := types.AccountIDFromBytes(data)
		if err != nil {
			return types.AccountID{}, err
		}
		return id, nil
	}
	return DefaultAccountID(addr), nil
}

// IsLinked reports whether id and addr belong together, either through a
// claim or through the default derivation.
func (m *Mapper) IsLinked(id types.AccountID, addr common.Address) bool {
	bound, err := m.EvmAddressOf(id)
	if err == nil && bound == addr {
		return true
	}
	return EvmAddress(id) == addr
}

// Claim binds an EVM address to a native account. The caller proves control
// of the address with a personal_sign signature over the ASCII-hex account
// id. Both sides must be unmapped. Any balance that accrued on the
// account's derived address is moved to the claimed address so the account
// keeps its funds across the remapping.
func (m *Mapper) Claim(id types.AccountID, addr common.Address, sig [65]byte, migrator BalanceMigrator) error {
	if existing, err := m.store.Get(linkAddressKey(id)); err != nil {
		return fmt.Errorf("failed to read address link: %v", err)
	} else if len(existing) != 0 {
		return ErrAccountIDHasMapped
	}
	if existing, err := m.store.Get(linkAccountKey(addr)); err != nil {
		return fmt.Errorf("failed to read account link: %v", err)
	} else if len(existing) != 0 {
		return ErrEthAddressHasMapped
	}

	recovered, err := RecoverSigner(sig, toASCIIHex(id[:]), nil)
	if err != nil {
		return ErrBadSignature
	}
	if recovered != addr {
		return ErrInvalidSignature
	}

	// Must run before the links are stored: id still resolves to its
	// derived address here, addr's default account resolves to addr.
	if migrator != nil {
		if err := migrator.MergeAccount(id, DefaultAccountID(addr)); err != nil {
			return fmt.Errorf("failed to migrate balance: %v", err)
		}
	}

	if err := m.store.Put(linkAddressKey(id), addr.Bytes()); err != nil {
		return fmt.Errorf("failed to store address link: %v", err)
	}
	if err := m.store.Put(linkAccountKey(addr), id[:]); err != nil {
		return fmt.Errorf("failed to store account link: %v", err)
	}
	if m.log != nil {
		m.log.Infof("Claimed EVM address %s for account %s", addr.Hex(), id.Hex())
	}
	return nil
}

// Unlink removes the claim records for a killed account, including the
// reverse entry for its default address.
func (m *Mapper) Unlink(id types.AccountID) error {
	if err := m.store.Delete(linkAccountKey(EvmAddress(id))); err != nil {
		return fmt.Errorf("failed to delete default link: %v", err)
	}
	data, err := m.store.Get(linkAddressKey(id))
	if err != nil {
		return fmt.Errorf("failed to read address link: %v", err)
	}
	if len(data) == common.AddressLength {
		if err := m.store.Delete(linkAccountKey(common.BytesToAddress(data))); err != nil {
			return fmt.Errorf("failed to delete account link: %v", err)
		}
		if err := m.store.Delete(linkAddressKey(id)); err != nil {
			return fmt.Errorf("failed to delete address link: %v", err)
		}
	}
	return nil
}

// SignableMessage builds the byte string that Ethereum wallets sign through
// personal_sign for a claim: the standard signed-message envelope around
// "lumen evm:" plus the payload.
func SignableMessage(what, extra []byte) []byte {
	prefix := []byte("lumen evm:")
	length := strconv.Itoa(len(prefix) + len(what) + len(extra))
	msg := []byte("\x19Ethereum Signed Message:\n")
	msg = append(msg, length...)
	msg = append(msg, prefix...)
	msg = append(msg, what...)
	msg = append(msg, extra...)
	return msg
}

// RecoverSigner recovers the EVM address that produced sig over the claim
// message for the given payload.
func RecoverSigner(sig [65]byte, what, extra []byte) (common.Address, error) {
	msgHash := crypto.Keccak256(SignableMessage(what, extra))
	// Wallets hand back v as 27/28; recovery wants 0/1.
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pubkey, err := crypto.SigToPub(msgHash, sig[:])
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %v", err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}

func linkAccountKey(addr common.Address) []byte {
	return append([]byte(linkAccountPrefix), addr.Bytes()...)
}

func linkAddressKey(id types.AccountID) []byte {
	return append([]byte(linkAddressPrefix), id[:]...)
}

// toASCIIHex renders data as lowercase hex bytes, matching what wallets are
// asked to sign.
func toASCIIHex(data []byte) []byte {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, len(data)*2)
	for _, b := range data {
		out = append(out, digits[b>>4], digits[b&0x0f])
	}
	return out
}
