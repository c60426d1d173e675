// Package format holds the text encodings used by encrypted exports: the
// ciphertext string produced by the passphrase cipher and the export envelope
// that names the cipher method on its first line.
package format

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrNotEnveloped = errors.New("content is not an encrypted envelope")

// EncodeCipherText renders nonce as lowercase hex followed by the padded
// standard base64 of cipherText.
func EncodeCipherText(nonce []byte, cipherText []byte) string {
	return hex.EncodeToString(nonce) + base64.StdEncoding.EncodeToString(cipherText)
}

// DecodeCipherText splits s into a nonce of nonceLen bytes and the ciphertext
// that follows it.
func DecodeCipherText(s string, nonceLen int) ([]byte, []byte, error) {
	if nonceLen <= 0 {
		return nil, nil, fmt.Errorf("nonce length must be positive, got %d", nonceLen)
	}

	hexLen := hex.EncodedLen(nonceLen)
	if len(s) < hexLen {
		return nil, nil, fmt.Errorf("ciphertext must be at least %d characters, got %d", hexLen, len(s))
	}

	nonce, err := hex.DecodeString(s[:hexLen])
	if err != nil {
		return nil, nil, fmt.Errorf("decode nonce: %w", err)
	}

	// strict so that altered padding bits are rejected
	cipherText, err := base64.StdEncoding.Strict().DecodeString(s[hexLen:])
	if err != nil {
		return nil, nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	return nonce, cipherText, nil
}

// Seal wraps body in an envelope whose first line is method.
func Seal(method string, body string) []byte {
	return []byte(method + "\n" + body)
}

// Open reverses [Seal]. Content whose first line opens a JSON document, or
// that has a single line, returns [ErrNotEnveloped].
func Open(content []byte) (string, string, error) {
	data := bytes.TrimSpace(content)

	method, body, ok := strings.Cut(string(data), "\n")
	if !ok || strings.HasPrefix(method, "{") || strings.HasPrefix(method, "[") {
		return "", "", ErrNotEnveloped
	}

	return strings.TrimSpace(method), strings.TrimSpace(body), nil
}
