package krypto

import (
	"context"
	"crypto/sha256"
	"errors"
)

// DeriveKeyFromPassphrase derives a 256-bit key with a single SHA-256 pass over
// the passphrase bytes. Empty passphrases are allowed.
//
// This is not a password hashing function and is weak against offline guessing
// of low entropy passphrases. It is kept because existing exports depend on it.
func DeriveKeyFromPassphrase(ctx context.Context, utf8Passphrase []byte) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if utf8Passphrase == nil {
		return nil, errors.New("passphrase cannot be nil")
	}

	sum := sha256.Sum256(utf8Passphrase)
	return sum[:], nil
}
