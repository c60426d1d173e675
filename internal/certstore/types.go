package certstore

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Type is the container format of an imported certificate.
type Type string

const (
	TypePEM Type = "pem"
	TypeP12 Type = "p12"
)

var ErrNotFound = errors.New("certificate not found")

// CertData is certificate or key material with the passphrase that protects it.
// PEM material is text, P12 material is the raw DER bundle.
type CertData struct {
	Data       []byte  `json:"data"`
	Passphrase *string `json:"passphrase,omitempty"`
}

func (d CertData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Data, validation.Required),
	)
}

// Certificate is a stored client certificate.
type Certificate struct {
	ID      string    `json:"_id"`
	Name    string    `json:"name"`
	Type    Type      `json:"type"`
	Created time.Time `json:"created"`
	Cert    CertData  `json:"cert"`
	Key     *CertData `json:"key,omitempty"`
}

func (c Certificate) HasKey() bool {
	return c.Key != nil
}

// ImportRequest is the payload accepted by [Store.Insert].
type ImportRequest struct {
	Cert CertData  `json:"cert"`
	Key  *CertData `json:"key,omitempty"`
	Name string    `json:"name"`
	Type Type      `json:"type"`
}

func (r ImportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, validation.In(TypePEM, TypeP12)),
		validation.Field(&r.Cert),
		validation.Field(&r.Key, validation.When(r.Type == TypeP12, validation.Nil.Error("is only supported for pem certificates"))),
		validation.Field(&r.Name, validation.Length(0, 256)),
	)
}
