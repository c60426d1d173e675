package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/HallyG/clientcerts/internal/certstore"
	"github.com/spf13/cobra"
)

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored client certificates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, store)

			certs, err := store.List(ctx)
			if err != nil {
				return err
			}

			if len(certs) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No client certificates.")
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tTYPE\tKEY\tCREATED")
			for _, c := range certs {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", c.ID, c.Name, c.Type, c.HasKey(), c.Created.Format(time.RFC3339))
			}

			return w.Flush()
		},
	}
}

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "show details of a client certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, store)

			c, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "Name:\t%s\n", c.Name)
			_, _ = fmt.Fprintf(w, "Type:\t%s\n", c.Type)
			_, _ = fmt.Fprintf(w, "Created:\t%s\n", c.Created.Format(time.RFC3339))
			_, _ = fmt.Fprintf(w, "Key:\t%t\n", c.HasKey())

			summary, err := certstore.Inspect(*c)
			if err != nil {
				a.logger.DebugContext(ctx, "certificate details unavailable", slog.String("id", c.ID), slog.Any("err", err))
				_, _ = fmt.Fprintf(w, "Details:\tunavailable\n")
				return w.Flush()
			}

			_, _ = fmt.Fprintf(w, "Subject:\t%s\n", summary.CommonName)
			_, _ = fmt.Fprintf(w, "Issuer:\t%s\n", summary.Issuer)
			_, _ = fmt.Fprintf(w, "Serial:\t%s\n", summary.SerialNumber)
			_, _ = fmt.Fprintf(w, "Valid:\t%s - %s\n", summary.NotBefore.Format(time.RFC3339), summary.NotAfter.Format(time.RFC3339))
			_, _ = fmt.Fprintf(w, "Expired:\t%t\n", summary.Expired(time.Now()))

			return w.Flush()
		},
	}
}

func newImportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "import",
		Short:   "import a client certificate",
		Example: "clientcerts import --type pem --cert client.crt --key client.key --name staging",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			importType, err := flags.GetString("type")
			if err != nil {
				return fmt.Errorf("failed to get type flag: %w", err)
			}

			certPath, err := flags.GetString("cert")
			if err != nil {
				return fmt.Errorf("failed to get cert flag: %w", err)
			}

			keyPath, err := flags.GetString("key")
			if err != nil {
				return fmt.Errorf("failed to get key flag: %w", err)
			}

			name, err := flags.GetString("name")
			if err != nil {
				return fmt.Errorf("failed to get name flag: %w", err)
			}

			certData, err := os.ReadFile(filepath.Clean(certPath))
			if err != nil {
				return fmt.Errorf("failed to read certificate: %w", err)
			}

			req := certstore.ImportRequest{
				Cert: certstore.CertData{Data: certData},
				Name: name,
				Type: certstore.Type(importType),
			}
			if flags.Changed("cert-passphrase") {
				value, err := flags.GetString("cert-passphrase")
				if err != nil {
					return fmt.Errorf("failed to get cert-passphrase flag: %w", err)
				}
				req.Cert.Passphrase = &value
			}

			if keyPath != "" {
				keyData, err := os.ReadFile(filepath.Clean(keyPath))
				if err != nil {
					return fmt.Errorf("failed to read key: %w", err)
				}

				req.Key = &certstore.CertData{Data: keyData}
				if flags.Changed("key-passphrase") {
					value, err := flags.GetString("key-passphrase")
					if err != nil {
						return fmt.Errorf("failed to get key-passphrase flag: %w", err)
					}
					req.Key.Passphrase = &value
				}
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, store)

			stored, err := store.Insert(ctx, req)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), stored.ID)
			return err
		},
	}

	cmd.Flags().StringP("type", "t", string(certstore.TypePEM), "Certificate type: pem or p12")
	cmd.Flags().String("cert", "", "Certificate `file`")
	cmd.Flags().String("key", "", "Private key `file` (pem only)")
	cmd.Flags().StringP("name", "n", "", "Certificate name (default: subject common name)")
	cmd.Flags().String("cert-passphrase", "", "Passphrase protecting the certificate")
	cmd.Flags().String("key-passphrase", "", "Passphrase protecting the key")
	_ = cmd.MarkFlagRequired("cert")

	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "delete client certificates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, store)

			var errs []error
			for _, id := range args {
				if err := store.Delete(ctx, id); err != nil {
					errs = append(errs, err)
				}
			}

			return errors.Join(errs...)
		},
	}
}

func newClearCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "delete every client certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			yes, err := cmd.Flags().GetBool("yes")
			if err != nil {
				return err
			}

			if !yes {
				return errors.New("refusing to delete all certificates without --yes")
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, store)

			n, err := store.DeleteAll(ctx)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d certificates.\n", n)
			return err
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Confirm deletion")

	return cmd
}
