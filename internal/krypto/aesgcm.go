package krypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

const (
	AESGCMKeySize   = 32
	AESGCMNonceSize = 12
	AESGCMTagSize   = 16
)

var _ Krypto = (*AESGCMCrypto)(nil)

type AESGCMCrypto struct {
	cipher cipher.AEAD
}

// NewAESGCMCrypto creates a new AES-256-GCM cipher with the given key.
func NewAESGCMCrypto(key []byte) (*AESGCMCrypto, error) {
	if key == nil {
		return nil, fmt.Errorf("key cannot be nil")
	}

	if len(key) != AESGCMKeySize {
		return nil, fmt.Errorf("key size must be %d bytes, got %d", AESGCMKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create aes block cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create aes-gcm cipher: %w", err)
	}

	return &AESGCMCrypto{
		cipher: aead,
	}, nil
}

// Encrypt seals the plaintext under a fresh random 96-bit nonce.
// The returned ciphertext has the 16 byte authentication tag appended.
func (c *AESGCMCrypto) Encrypt(ctx context.Context, plainText []byte, additionalData []byte) (cipherText []byte, nonce []byte, err error) {
	if plainText == nil {
		return nil, nil, fmt.Errorf("plaintext cannot be nil")
	}

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	default:
	}

	nonce = make([]byte, c.cipher.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("random nonce: %w", err)
	}

	return c.cipher.Seal(nil, nonce, plainText, additionalData), nonce, nil
}

// Decrypt opens a tag-appended ciphertext, verifying the tag.
func (c *AESGCMCrypto) Decrypt(ctx context.Context, cipherText []byte, nonce []byte, additionalData []byte) (plainText []byte, err error) {
	if cipherText == nil {
		return nil, fmt.Errorf("ciphertext cannot be nil")
	}

	if nonce == nil {
		return nil, fmt.Errorf("nonce cannot be nil")
	}

	if len(nonce) != c.cipher.NonceSize() {
		return nil, fmt.Errorf("nonce size must be %d bytes, got %d", c.cipher.NonceSize(), len(nonce))
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	plaintext, err := c.cipher.Open(nil, nonce, cipherText, additionalData)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	return plaintext, nil
}
