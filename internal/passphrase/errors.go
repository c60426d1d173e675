package passphrase

import "errors"

var (
	// ErrUnsupportedMethod is returned when the cipher suite is not implemented.
	ErrUnsupportedMethod = errors.New("unsupported encryption method")

	// ErrPassphraseRequired is returned by decode when no passphrase was given
	// and the prompt produced none.
	ErrPassphraseRequired = errors.New("passphrase is required to open the file")

	// ErrInvalidPassphrase covers every decode failure after the passphrase is
	// known: malformed input, wrong passphrase, and tampered ciphertext all
	// look the same to the caller.
	ErrInvalidPassphrase = errors.New("invalid passphrase")
)
