package addrmap

import "errors"

var (
	// ErrAccountIDHasMapped is returned when the native account already
	// claimed an EVM address.
	ErrAccountIDHasMapped = errors.New("account id has been mapped")
	// ErrEthAddressHasMapped is returned when the EVM address already
	// belongs to another native account.
	ErrEthAddressHasMapped = errors.New("evm address has been mapped")
	// ErrBadSignature is returned when signature recovery fails outright.
	ErrBadSignature = errors.New("bad claim signature")
	// ErrInvalidSignature is returned when the recovered signer does not
	// match the claimed address.
	ErrInvalidSignature = errors.New("claim signature does not match address")
)
