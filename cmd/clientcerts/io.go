package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	defaultFilePermissions = 0600
)

// readInput reads path, or in when path is "-".
func readInput(path string, in io.Reader) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("input file is required")
	}

	if path == "-" {
		return io.ReadAll(in)
	}

	return os.ReadFile(filepath.Clean(path))
}

// checkOutput refuses an existing output file unless force is set.
func checkOutput(path string, force bool) error {
	if path == "" || force {
		return nil
	}

	path = filepath.Clean(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("output file %q already exists; use --force to overwrite", path)
	}

	return nil
}

func openOutput(path string, force bool, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	if err := checkOutput(path, force); err != nil {
		return nil, nil, err
	}

	path = filepath.Clean(path)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, defaultFilePermissions)
	if err != nil {
		return nil, nil, err
	}

	return f, func() error { return f.Close() }, nil
}
