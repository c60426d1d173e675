package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/HallyG/clientcerts/internal/certstore"
	"github.com/HallyG/clientcerts/internal/config"
	"github.com/HallyG/clientcerts/internal/export"
	"github.com/HallyG/clientcerts/internal/passphrase"
	"github.com/HallyG/clientcerts/internal/prompt"
	"github.com/spf13/cobra"
)

var (
	BuildVersion  = `(missing)`
	BuildShortSHA = `(missing)`
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	prompter *prompt.Terminal
	stderr   io.Writer
}

func (a *app) cipher() *passphrase.Cipher {
	return passphrase.New(
		passphrase.WithLogger(a.logger),
		passphrase.WithPrompter(a.prompter),
	)
}

func (a *app) exporter() *export.Exporter {
	return export.New(
		export.WithLogger(a.logger),
		export.WithCipher(a.cipher()),
		export.WithVersion(BuildVersion),
		export.WithProvider(export.ProviderFile, export.FileProvider{Dir: a.cfg.Export.Dir}),
	)
}

func (a *app) openStore(ctx context.Context) (*certstore.Store, error) {
	store, err := certstore.Open(ctx, a.cfg.Database, certstore.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("open certificate store: %w", err)
	}
	return store, nil
}

func (a *app) closeStore(ctx context.Context, store *certstore.Store) {
	if err := store.Close(); err != nil {
		a.logger.WarnContext(ctx, "failed to close certificate store", slog.Any("err", err))
	}
}

// passphraseForEncrypt returns the passphrase from the environment, or asks
// for it twice on the terminal.
func (a *app) passphraseForEncrypt() (string, error) {
	if value, ok := os.LookupEnv(prompt.EnvPassphrase); ok {
		return value, nil
	}

	password, err := prompt.PromptPassword(a.prompter.Reader, a.stderr, true)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	defer prompt.ZeroPassword(password)

	return string(password), nil
}

func Main(ctx context.Context, args []string, output io.Writer) error {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "clientcerts",
		Short:   "Manage client TLS certificates and their encrypted exports.",
		Version: BuildShortSHA,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.SetOut(output)
	rootCmd.SetErr(output)
	rootCmd.SetArgs(args[1:])
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "config `file`")
	rootCmd.PersistentFlags().String("db", "", "SQLite database `file` (overrides config)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(
		newEncodeCommand(a),
		newDecodeCommand(a),
		newListCommand(a),
		newShowCommand(a),
		newImportCommand(a),
		newDeleteCommand(a),
		newClearCommand(a),
		newExportCommand(a),
		newPreviewCommand(a),
		newRestoreCommand(a),
	)

	return rootCmd.ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("db") {
		if cfg.Database, err = cmd.Flags().GetString("db"); err != nil {
			return err
		}
	}

	level := config.ParseLogLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}

	a.cfg = cfg
	a.stderr = cmd.ErrOrStderr()
	a.logger = setupLogging(level, a.stderr)
	a.prompter = &prompt.Terminal{Output: a.stderr}

	return nil
}

func setupLogging(level slog.Level, output io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
