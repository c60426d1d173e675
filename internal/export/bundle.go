package export

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/HallyG/clientcerts/internal/certstore"
)

const (
	DatasetClientCertificates = "client-certificates"
	KindClientCertificate     = "ARC#ClientCertificate"
)

// Bundle is the JSON document written by an export.
type Bundle struct {
	CreatedAt          time.Time `json:"createdAt"`
	Version            string    `json:"version"`
	Kind               string    `json:"kind"`
	ClientCertificates []Item    `json:"client-certificates"`
}

// Item is a certificate as it appears in an export. PEM material is kept as
// text, P12 material is base64 encoded.
type Item struct {
	ID      string    `json:"_id"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Created int64     `json:"created"`
	Cert    ItemData  `json:"cert"`
	Key     *ItemData `json:"key,omitempty"`
}

type ItemData struct {
	Data       string  `json:"data"`
	Passphrase *string `json:"passphrase,omitempty"`
}

func NewItem(c certstore.Certificate) Item {
	item := Item{
		ID:      c.ID,
		Name:    c.Name,
		Type:    string(c.Type),
		Created: c.Created.UnixMilli(),
		Cert:    newItemData(c.Type, c.Cert),
	}

	if c.Key != nil {
		key := newItemData(c.Type, *c.Key)
		item.Key = &key
	}

	return item
}

func newItemData(t certstore.Type, d certstore.CertData) ItemData {
	data := string(d.Data)
	if t == certstore.TypeP12 {
		data = base64.StdEncoding.EncodeToString(d.Data)
	}

	return ItemData{Data: data, Passphrase: d.Passphrase}
}

// ImportRequest converts the item back into a store insert payload.
func (i Item) ImportRequest() (certstore.ImportRequest, error) {
	t := certstore.Type(i.Type)

	cert, err := i.Cert.certData(t)
	if err != nil {
		return certstore.ImportRequest{}, fmt.Errorf("cert: %w", err)
	}

	req := certstore.ImportRequest{
		Cert: cert,
		Name: i.Name,
		Type: t,
	}

	if i.Key != nil {
		key, err := i.Key.certData(t)
		if err != nil {
			return certstore.ImportRequest{}, fmt.Errorf("key: %w", err)
		}
		req.Key = &key
	}

	return req, nil
}

func (d ItemData) certData(t certstore.Type) (certstore.CertData, error) {
	if t != certstore.TypeP12 {
		return certstore.CertData{Data: []byte(d.Data), Passphrase: d.Passphrase}, nil
	}

	raw, err := base64.StdEncoding.DecodeString(d.Data)
	if err != nil {
		return certstore.CertData{}, fmt.Errorf("decode p12 data: %w", err)
	}

	return certstore.CertData{Data: raw, Passphrase: d.Passphrase}, nil
}
