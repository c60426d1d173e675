// Package export writes client certificates to export bundles and reads them back.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/HallyG/clientcerts/internal/certstore"
	"github.com/HallyG/clientcerts/internal/format"
	"github.com/HallyG/clientcerts/internal/passphrase"
)

const DefaultFile = "arc-client-certificates.json"

type Options struct {
	File            string
	Provider        string
	ProviderOptions ProviderOptions
	Kind            string
	Encrypt         bool
	Passphrase      string
}

type Result struct {
	Location  string
	Count     int
	Encrypted bool
}

type Exporter struct {
	logger    *slog.Logger
	cipher    *passphrase.Cipher
	providers map[string]Provider
	version   string
	now       func() time.Time
}

func WithLogger(logger *slog.Logger) func(*Exporter) {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// WithCipher sets the cipher used for encrypted exports and previews.
func WithCipher(c *passphrase.Cipher) func(*Exporter) {
	return func(e *Exporter) {
		e.cipher = c
	}
}

func WithProvider(name string, p Provider) func(*Exporter) {
	return func(e *Exporter) {
		e.providers[name] = p
	}
}

// WithVersion sets the application version recorded in bundles.
func WithVersion(version string) func(*Exporter) {
	return func(e *Exporter) {
		e.version = version
	}
}

func WithClock(now func() time.Time) func(*Exporter) {
	return func(e *Exporter) {
		e.now = now
	}
}

func New(opts ...func(*Exporter)) *Exporter {
	e := &Exporter{
		providers: map[string]Provider{
			ProviderFile: FileProvider{Dir: "."},
		},
		version: "(missing)",
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e.logger = e.logger.WithGroup("export")

	if e.cipher == nil {
		e.cipher = passphrase.New(passphrase.WithLogger(e.logger))
	}

	return e
}

// Export encodes certs and hands the content to the provider named in opts.
func (e *Exporter) Export(ctx context.Context, certs []certstore.Certificate, opts Options) (*Result, error) {
	if opts.Provider == "" {
		opts.Provider = ProviderFile
	}

	provider, ok := e.providers[opts.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, opts.Provider)
	}

	if opts.File == "" {
		opts.File = DefaultFile
	}

	content, err := e.Encode(ctx, certs, opts)
	if err != nil {
		return nil, err
	}

	location, err := provider.Save(ctx, opts.File, content, opts.ProviderOptions)
	if err != nil {
		return nil, fmt.Errorf("save export with %s provider: %w", opts.Provider, err)
	}

	e.logger.DebugContext(ctx, "exported client certificates",
		slog.String("provider", opts.Provider),
		slog.String("location", location),
		slog.Int("count", len(certs)),
		slog.Bool("encrypted", opts.Encrypt),
	)

	return &Result{Location: location, Count: len(certs), Encrypted: opts.Encrypt}, nil
}

// Encode builds the export file content. Encrypted content is the method name
// on the first line followed by the ciphertext.
func (e *Exporter) Encode(ctx context.Context, certs []certstore.Certificate, opts Options) ([]byte, error) {
	kind := opts.Kind
	if kind == "" {
		kind = KindClientCertificate
	}

	bundle := Bundle{
		CreatedAt:          e.now().UTC(),
		Version:            e.version,
		Kind:               kind,
		ClientCertificates: make([]Item, 0, len(certs)),
	}
	for _, c := range certs {
		bundle.ClientCertificates = append(bundle.ClientCertificates, NewItem(c))
	}

	data, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}

	if !opts.Encrypt {
		return data, nil
	}

	encoded, err := e.cipher.Encode(ctx, passphrase.MethodAES, string(data), opts.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("encrypt bundle: %w", err)
	}

	return format.Seal(passphrase.MethodAES.String(), encoded), nil
}

// Preview reads export file content. Encrypted content is decrypted with
// passphrase, or with a prompted passphrase when it is nil.
func (e *Exporter) Preview(ctx context.Context, content []byte, secret *string) (*Bundle, error) {
	data := content

	if method, body, err := format.Open(content); err == nil {
		decoded, err := e.cipher.Decode(ctx, passphrase.Method(method), body, secret)
		if err != nil {
			return nil, fmt.Errorf("decrypt export: %w", err)
		}
		data = []byte(decoded)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}

	return &bundle, nil
}
