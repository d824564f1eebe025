package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"calc-assistant/internal/app"
	"calc-assistant/internal/config"
	"calc-assistant/internal/credential"
	"calc-assistant/internal/logging"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "calc",
	Short: "Fill in the AWS Pricing Calculator from a plain-language description",
	Long: `calc turns a description such as "2 EC2 instances and 100GB S3 in Tokyo"
into services configured in the AWS Pricing Calculator.

Descriptions are parsed locally first. Only when nothing is recognised is the
text sent to the configured language model, which needs an API key
(see "calc credential set").`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run <description>",
	Short: "Configure the described services in the calculator",
	Example: `  calc run "2 t3.medium EC2 instances, RDS MySQL 200GB in Virginia"
  calc run "Lambda memory 512MB, DynamoDB read 10 write 5"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

var parseCmd = &cobra.Command{
	Use:   "parse <description>",
	Short: "Show how a description is interpreted without touching the browser",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser and serve the HTTP and websocket API",
	RunE:  runServe,
}

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage the API key used for remote parsing",
}

var credentialSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the API key (read from the terminal without echo)",
	Args:  cobra.NoArgs,
	RunE:  runCredentialSet,
}

var credentialStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether an API key is stored",
	Args:  cobra.NoArgs,
	RunE:  runCredentialStatus,
}

var credentialClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE:  runCredentialClear,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	credentialCmd.AddCommand(credentialSetCmd, credentialStatusCmd, credentialClearCmd)
	rootCmd.AddCommand(runCmd, parseCmd, serveCmd, credentialCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func description(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	text := description(args)
	fmt.Printf("Request: %s\n\n", text)

	res := a.Assistant.Run(ctx, text)
	if !res.Success {
		return errors.New(res.Error)
	}
	fmt.Print(res.Data.Summary())
	if res.Data.SuccessCount < res.Data.Total() {
		return fmt.Errorf("%d of %d services failed", res.Data.Total()-res.Data.SuccessCount, res.Data.Total())
	}
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	creds, err := credential.New(cfg.Credential)
	if err != nil {
		return err
	}
	interp, err := app.NewInterpreter(cfg, creds, logger)
	if err != nil {
		return err
	}
	req, err := interp.Interpret(cmd.Context(), description(args))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(req)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := a.Server()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownWait())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runCredentialSet(cmd *cobra.Command, args []string) error {
	store, err := credential.New(cfg.Credential)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), "API key: ")
	key, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	if strings.TrimSpace(string(key)) == "" {
		return errors.New("no key entered")
	}
	if err := store.Set(cmd.Context(), string(key)); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "API key saved")
	return nil
}

func runCredentialStatus(cmd *cobra.Command, args []string) error {
	store, err := credential.New(cfg.Credential)
	if err != nil {
		return err
	}
	key, err := store.Get(cmd.Context())
	if err != nil {
		return err
	}
	if key == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "No API key configured (%s backend)\n", cfg.Credential.Backend)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "API key configured (%s backend)\n", cfg.Credential.Backend)
	return nil
}

func runCredentialClear(cmd *cobra.Command, args []string) error {
	store, err := credential.New(cfg.Credential)
	if err != nil {
		return err
	}
	clearer, ok := store.(credential.Clearer)
	if !ok {
		return fmt.Errorf("the %s backend cannot be cleared", cfg.Credential.Backend)
	}
	if err := clearer.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
	return nil
}
