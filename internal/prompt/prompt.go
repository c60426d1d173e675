// Package prompt reads passphrases from the controlling terminal.
package prompt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/HallyG/clientcerts/internal/passphrase"
	"golang.org/x/term"
)

// EnvPassphrase, when set, is used instead of prompting.
const EnvPassphrase = "CLIENTCERTS_PASSPHRASE"

// PasswordReader defines an interface for reading passwords from a terminal-like input.
type PasswordReader interface {
	// IsTerminal reports whether a terminal is available for input.
	IsTerminal() bool
	// ReadPassword writes the prompt to the output and reads a password from the input.
	ReadPassword(prompt string, output io.Writer) ([]byte, error)
}

// ttyReader reads from stdin when it is a terminal, and from /dev/tty when
// stdin carries piped data.
type ttyReader struct{}

func (ttyReader) IsTerminal() bool {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}

	tty, err := os.Open("/dev/tty")
	if err != nil {
		return false
	}
	_ = tty.Close()

	return true
}

func (ttyReader) ReadPassword(prompt string, output io.Writer) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		tty, err := os.Open("/dev/tty")
		if err != nil {
			return nil, fmt.Errorf("allocating terminal for password input: %w", err)
		}
		defer func() { _ = tty.Close() }()

		fd = int(tty.Fd())
	}

	if _, err := fmt.Fprint(output, prompt); err != nil {
		return nil, fmt.Errorf("write prompt: %w", err)
	}

	password, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(output)
	if err != nil {
		return nil, err
	}

	return password, nil
}

// PromptPassword reads a passphrase, optionally asking for it twice.
// If reader is nil the process terminal is used. Empty passphrases are accepted.
func PromptPassword(reader PasswordReader, output io.Writer, confirm bool) ([]byte, error) {
	if reader == nil {
		reader = ttyReader{}
	}

	if output == nil {
		return nil, errors.New("output writer cannot be nil")
	}

	if !reader.IsTerminal() {
		return nil, errors.New("passphrase input requires a terminal (input is not a TTY)")
	}

	password, err := reader.ReadPassword("Enter passphrase: ", output)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}

	if !confirm {
		return password, nil
	}

	confirmPassword, err := reader.ReadPassword("Confirm passphrase: ", output)
	if err != nil {
		ZeroPassword(password)
		return nil, fmt.Errorf("read passphrase confirmation: %w", err)
	}
	defer ZeroPassword(confirmPassword)

	if !bytes.Equal(password, confirmPassword) {
		ZeroPassword(password)
		return nil, errors.New("passphrases do not match")
	}

	return password, nil
}

func ZeroPassword(password []byte) {
	for i := range password {
		password[i] = 0
	}
}

var _ passphrase.Prompter = (*Terminal)(nil)

// Terminal asks for decode passphrases on the terminal.
type Terminal struct {
	Reader PasswordReader
	Output io.Writer
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// PromptPassphrase returns the passphrase from [EnvPassphrase] if set,
// otherwise prompts once. End of input counts as the user declining.
func (t *Terminal) PromptPassphrase(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	lookup := t.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if value, ok := lookup(EnvPassphrase); ok {
		return value, true, nil
	}

	output := t.Output
	if output == nil {
		output = os.Stderr
	}

	password, err := PromptPassword(t.Reader, output, false)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", false, nil
		}
		return "", false, err
	}
	defer ZeroPassword(password)

	return string(password), true, nil
}
