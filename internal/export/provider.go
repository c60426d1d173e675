package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	ProviderFile  = "file"
	ProviderDrive = "drive"
)

var ErrUnsupportedProvider = errors.New("unsupported export provider")

// ProviderOptions are passed through to the destination.
type ProviderOptions struct {
	// Parents are destination folders for providers that have them.
	Parents []string `json:"parents,omitempty" yaml:"parents,omitempty"`
}

// Provider stores export content somewhere and returns where it went.
type Provider interface {
	Save(ctx context.Context, file string, content []byte, opts ProviderOptions) (location string, err error)
}

const defaultFilePermissions = 0600

// FileProvider writes exports into a local directory.
type FileProvider struct {
	Dir string
}

func (p FileProvider) Save(ctx context.Context, file string, content []byte, _ ProviderOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := filepath.Base(filepath.Clean(file))
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid export file name %q", file)
	}

	dir := p.Dir
	if dir == "" {
		dir = "."
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, defaultFilePermissions); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}

	return path, nil
}
