package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/HallyG/clientcerts/internal/certstore"
	"github.com/HallyG/clientcerts/internal/export"
	"github.com/HallyG/clientcerts/internal/prompt"
	"github.com/spf13/cobra"
)

func newExportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "export",
		Short:   "export every client certificate",
		Example: "clientcerts export --encrypt --dir backups",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			file, err := flags.GetString("file")
			if err != nil {
				return fmt.Errorf("failed to get file flag: %w", err)
			}

			encrypt, err := flags.GetBool("encrypt")
			if err != nil {
				return fmt.Errorf("failed to get encrypt flag: %w", err)
			}

			if flags.Changed("dir") {
				if a.cfg.Export.Dir, err = flags.GetString("dir"); err != nil {
					return fmt.Errorf("failed to get dir flag: %w", err)
				}
			}

			provider := a.cfg.Export.Provider
			if flags.Changed("provider") {
				if provider, err = flags.GetString("provider"); err != nil {
					return fmt.Errorf("failed to get provider flag: %w", err)
				}
			}

			opts := export.Options{
				File:            file,
				Provider:        provider,
				ProviderOptions: a.cfg.Export.ProviderOptions,
				Kind:            export.KindClientCertificate,
				Encrypt:         encrypt,
			}

			if encrypt {
				secret, err := a.passphraseForEncrypt()
				if err != nil {
					return err
				}
				opts.Passphrase = secret
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, store)

			certs, err := store.List(ctx)
			if err != nil {
				return err
			}

			result, err := a.exporter().Export(ctx, certs, opts)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d certificates to %s\n", result.Count, result.Location)
			return err
		},
	}

	cmd.Flags().String("file", export.DefaultFile, "Export file name")
	cmd.Flags().String("dir", "", "Directory for the file provider (overrides config)")
	cmd.Flags().String("provider", export.ProviderFile, "Export provider")
	cmd.Flags().BoolP("encrypt", "e", false, "Encrypt the export with a passphrase")

	return cmd
}

// readExport opens an export file, prompting for the passphrase when the file
// is encrypted and the environment does not provide one.
func (a *app) readExport(ctx context.Context, path string) (*export.Bundle, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	var secret *string
	if value, ok := os.LookupEnv(prompt.EnvPassphrase); ok {
		secret = &value
	}

	return a.exporter().Preview(ctx, content, secret)
}

func newPreviewCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <file>",
		Short: "print the contents of an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := a.readExport(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(bundle)
		},
	}
}

func newRestoreCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "import every certificate from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			bundle, err := a.readExport(ctx, args[0])
			if err != nil {
				return err
			}

			reqs := make([]certstore.ImportRequest, 0, len(bundle.ClientCertificates))
			for i, item := range bundle.ClientCertificates {
				req, err := item.ImportRequest()
				if err != nil {
					return fmt.Errorf("item %d: %w", i, err)
				}
				reqs = append(reqs, req)
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, store)

			restored, err := store.InsertAll(ctx, reqs)
			if err != nil {
				return fmt.Errorf("restore certificates: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Restored %d certificates.\n", len(restored))
			return err
		},
	}
}
