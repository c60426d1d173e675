package certstore

import (
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// Summary describes the leaf certificate inside a stored record.
type Summary struct {
	CommonName    string
	Issuer        string
	SerialNumber  string
	NotBefore     time.Time
	NotAfter      time.Time
	ChainLength   int
	HasPrivateKey bool
}

// Expired reports whether the leaf is outside its validity window at t.
func (s Summary) Expired(t time.Time) bool {
	return t.Before(s.NotBefore) || t.After(s.NotAfter)
}

// Inspect parses the certificate material of c.
// P12 bundles are opened with the stored certificate passphrase.
func Inspect(c Certificate) (*Summary, error) {
	switch c.Type {
	case TypePEM:
		return inspectPEM(c)
	case TypeP12:
		return inspectP12(c)
	default:
		return nil, fmt.Errorf("unsupported certificate type %q", c.Type)
	}
}

func inspectPEM(c Certificate) (*Summary, error) {
	var chain []*x509.Certificate
	hasKey := c.HasKey()

	rest := c.Cert.Data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		switch {
		case block.Type == "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parse certificate: %w", err)
			}
			chain = append(chain, cert)
		case strings.HasSuffix(block.Type, "PRIVATE KEY"):
			hasKey = true
		}
	}

	if len(chain) == 0 {
		return nil, errors.New("no PEM certificate found")
	}

	return summarize(chain[0], len(chain), hasKey), nil
}

func inspectP12(c Certificate) (*Summary, error) {
	var password string
	if c.Cert.Passphrase != nil {
		password = *c.Cert.Passphrase
	}

	key, leaf, caCerts, err := gopkcs12.DecodeChain(c.Cert.Data, password)
	if err != nil {
		return nil, fmt.Errorf("decode PKCS#12: %w", err)
	}

	return summarize(leaf, 1+len(caCerts), key != nil), nil
}

func summarize(leaf *x509.Certificate, chainLength int, hasKey bool) *Summary {
	return &Summary{
		CommonName:    leaf.Subject.CommonName,
		Issuer:        leaf.Issuer.String(),
		SerialNumber:  hex.EncodeToString(leaf.SerialNumber.Bytes()),
		NotBefore:     leaf.NotBefore.UTC(),
		NotAfter:      leaf.NotAfter.UTC(),
		ChainLength:   chainLength,
		HasPrivateKey: hasKey,
	}
}
