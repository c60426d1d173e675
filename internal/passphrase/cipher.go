package passphrase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/HallyG/clientcerts/internal/format"
	"github.com/HallyG/clientcerts/internal/krypto"
)

// NonceHexLen is the length of the hex encoded nonce that prefixes every ciphertext.
const NonceHexLen = krypto.AESGCMNonceSize * 2

// Prompter asks the user for a passphrase. ok is false when the user declined.
type Prompter interface {
	PromptPassphrase(ctx context.Context) (passphrase string, ok bool, err error)
}

// PrompterFunc adapts a function to the [Prompter] interface.
type PrompterFunc func(ctx context.Context) (string, bool, error)

func (f PrompterFunc) PromptPassphrase(ctx context.Context) (string, bool, error) {
	return f(ctx)
}

// Cipher turns text into self-describing ciphertext strings and back.
// It holds no per-call state and is safe for concurrent use.
type Cipher struct {
	logger   *slog.Logger
	prompter Prompter
}

func WithLogger(logger *slog.Logger) func(*Cipher) {
	return func(c *Cipher) {
		c.logger = logger
	}
}

// WithPrompter sets the prompt used by Decode when no passphrase is given.
func WithPrompter(prompter Prompter) func(*Cipher) {
	return func(c *Cipher) {
		c.prompter = prompter
	}
}

func New(opts ...func(*Cipher)) *Cipher {
	c := &Cipher{}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c.logger = c.logger.WithGroup("passphrase")
	return c
}

// Encode encrypts data with a key derived from passphrase.
// The result is the hex nonce followed by the base64 tag-appended ciphertext.
// Invalid UTF-8 in data or passphrase is replaced with U+FFFD before use, so
// the result always decodes.
func (c *Cipher) Encode(ctx context.Context, method Method, data string, passphrase string) (string, error) {
	if !method.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	data = toValidUTF8(data)
	passphrase = toValidUTF8(passphrase)

	key, err := krypto.DeriveKeyFromPassphrase(ctx, []byte(passphrase))
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	aead, err := krypto.NewAESGCMCrypto(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	cipherText, nonce, err := aead.Encrypt(ctx, []byte(data), nil)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}

	c.logger.DebugContext(ctx, "encoded data",
		slog.String("method", method.String()),
		slog.Int("plaintext.size", len(data)),
		slog.Int("ciphertext.size", len(cipherText)),
	)

	return format.EncodeCipherText(nonce, cipherText), nil
}

// Decode reverses [Cipher.Encode]. A nil passphrase asks the configured
// [Prompter] for one.
func (c *Cipher) Decode(ctx context.Context, method Method, data string, passphrase *string) (string, error) {
	if !method.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	if passphrase == nil {
		prompted, err := c.prompt(ctx)
		if err != nil {
			return "", err
		}
		passphrase = &prompted
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	plainText, err := c.decodeAES(ctx, data, *passphrase)
	if err != nil {
		c.logger.DebugContext(ctx, "decode failed", slog.String("method", method.String()), slog.Any("err", err))
		return "", ErrInvalidPassphrase
	}

	return plainText, nil
}

func (c *Cipher) prompt(ctx context.Context) (string, error) {
	if c.prompter == nil {
		return "", ErrPassphraseRequired
	}

	passphrase, ok, err := c.prompter.PromptPassphrase(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPassphraseRequired, err)
	}

	if !ok {
		return "", ErrPassphraseRequired
	}

	return passphrase, nil
}

func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}

func (c *Cipher) decodeAES(ctx context.Context, data string, passphrase string) (string, error) {
	key, err := krypto.DeriveKeyFromPassphrase(ctx, []byte(toValidUTF8(passphrase)))
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	nonce, cipherText, err := format.DecodeCipherText(data, krypto.AESGCMNonceSize)
	if err != nil {
		return "", err
	}

	aead, err := krypto.NewAESGCMCrypto(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	plainText, err := aead.Decrypt(ctx, cipherText, nonce, nil)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(plainText) {
		return "", fmt.Errorf("plaintext is not valid utf-8")
	}

	c.logger.DebugContext(ctx, "decoded data", slog.Int("ciphertext.size", len(cipherText)), slog.Int("plaintext.size", len(plainText)))

	return string(plainText), nil
}
