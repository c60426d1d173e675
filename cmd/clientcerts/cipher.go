package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/HallyG/clientcerts/internal/passphrase"
	"github.com/HallyG/clientcerts/internal/prompt"
	"github.com/spf13/cobra"
)

type processFunc func(ctx context.Context, c *passphrase.Cipher, method passphrase.Method, input []byte, output io.Writer) error

func newEncodeCommand(a *app) *cobra.Command {
	return newCipherCommand(a, "encode", "encrypt text with a passphrase",
		"clientcerts encode --input export.json --output export.aes",
		func(ctx context.Context, c *passphrase.Cipher, method passphrase.Method, input []byte, output io.Writer) error {
			if !method.IsValid() {
				return fmt.Errorf("encode failed: %w: %q", passphrase.ErrUnsupportedMethod, method)
			}

			secret, err := a.passphraseForEncrypt()
			if err != nil {
				return err
			}

			encoded, err := c.Encode(ctx, method, string(input), secret)
			if err != nil {
				return fmt.Errorf("encode failed: %w", err)
			}

			if _, err := fmt.Fprintln(output, encoded); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}

			return nil
		})
}

func newDecodeCommand(a *app) *cobra.Command {
	return newCipherCommand(a, "decode", "decrypt text produced by encode",
		"clientcerts decode --input export.aes --output export.json",
		func(ctx context.Context, c *passphrase.Cipher, method passphrase.Method, input []byte, output io.Writer) error {
			// nil lets the cipher prompt, which also honours the environment
			var secret *string
			if value, ok := os.LookupEnv(prompt.EnvPassphrase); ok {
				secret = &value
			}

			decoded, err := c.Decode(ctx, method, strings.TrimSpace(string(input)), secret)
			if err != nil {
				return fmt.Errorf("decode failed: %w", err)
			}

			if _, err := io.WriteString(output, decoded); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}

			return nil
		})
}

func newCipherCommand(a *app, name string, short string, example string, runFn processFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:     name,
		Short:   short,
		Example: example,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := cmd.Flags().GetString("input")
			if err != nil {
				return fmt.Errorf("failed to get input flag: %w", err)
			}

			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return fmt.Errorf("failed to get output flag: %w", err)
			}

			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return fmt.Errorf("failed to get force flag: %w", err)
			}

			method, err := cmd.Flags().GetString("method")
			if err != nil {
				return fmt.Errorf("failed to get method flag: %w", err)
			}

			if force && output == "" {
				return fmt.Errorf("--force can only be used with --output")
			}

			if err := checkOutput(output, force); err != nil {
				return err
			}

			inputBytes, err := readInput(input, cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			// output is only touched once the cipher has succeeded
			var result bytes.Buffer
			if err := runFn(cmd.Context(), a.cipher(), passphrase.Method(method), inputBytes, &result); err != nil {
				return err
			}

			w, closeOutput, err := openOutput(output, force, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("failed to open output: %w", err)
			}
			defer func() {
				if err := closeOutput(); err != nil {
					a.logger.ErrorContext(cmd.Context(), "failed to close file", slog.String("file", output))
				}
			}()

			if _, err := result.WriteTo(w); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "Input `file` (- for stdin)")
	cmd.Flags().StringP("output", "o", "", "Output `file` (default: stdout)")
	cmd.Flags().BoolP("force", "f", false, "Overwrite existing output file")
	cmd.Flags().StringP("method", "m", passphrase.MethodAES.String(), "Encryption method")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
