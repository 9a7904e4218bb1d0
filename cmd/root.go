package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/hance08/purse/cmd/account"
	"github.com/hance08/purse/cmd/transaction"
	"github.com/hance08/purse/internal/app"
	"github.com/hance08/purse/internal/config"
	"github.com/hance08/purse/internal/constants"
	"github.com/hance08/purse/internal/errhandler"
	"github.com/hance08/purse/internal/ui/prompts"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *config.Config
)

func Execute(migrations fs.FS) {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " ERROR ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	// A missing .env is fine; it only feeds the PURSE_ overrides.
	_ = godotenv.Load()

	preParseConfigFlag(os.Args[1:])

	if err := initConfig(); err != nil {
		errhandler.HandleError(err)
	}

	if err := ensureCurrency(); err != nil {
		errhandler.HandleError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	application, cleanup, err := app.NewApp(ctx, cfg, migrations)
	if err != nil {
		errhandler.HandleError(err)
	}

	rootCmd := &cobra.Command{
		Use:   "purse",
		Short: "purse is a peer-to-peer balance ledger",
		Long: `purse holds balances for accounts and moves money between them.

Every transfer is applied exactly once, never drives a balance below zero
and never creates or destroys money.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "set the config file path")

	svc := application.Service
	rootCmd.AddCommand(account.NewAccountCmd(svc))
	rootCmd.AddCommand(transaction.NewTransactionCmd(svc))
	rootCmd.AddCommand(NewSendCmd(svc))
	rootCmd.AddCommand(NewTopUpCmd(svc))
	rootCmd.AddCommand(NewBalanceCmd(svc))
	rootCmd.AddCommand(NewInfoCmd(application))

	err = rootCmd.ExecuteContext(ctx)
	cleanup()
	if err != nil {
		errhandler.HandleError(err)
	}
}

// preParseConfigFlag reads --config before the app is built, since the
// commands are constructed with an already configured service.
func preParseConfigFlag(args []string) {
	flags := pflag.NewFlagSet("purse", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.SetOutput(io.Discard)
	flags.StringVarP(&cfgFile, "config", "c", "", "")
	_ = flags.Parse(args)
}

func initConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		appDir, err := app.AppDataDir()
		if err != nil {
			return fmt.Errorf("error getting app dir: %w", err)
		}

		viper.AddConfigPath(appDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if err := createDefaultConfig(appDir); err != nil {
			return fmt.Errorf("failed to ensure config file: %w", err)
		}
	}

	viper.SetEnvPrefix("PURSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // allow using environment variables to override

	if err := viper.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return fmt.Errorf("failed to read config file: %w", err)
		}

		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return fmt.Errorf("config file error: %w", err)
		}
	}

	cfg = config.NewDefault()
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode into struct, %v", err)
	}

	cfg.ConfigPath = viper.ConfigFileUsed()
	return nil
}

// ensureCurrency runs the first-run wizard when no default currency is set.
func ensureCurrency() error {
	if cfg.Defaults.Currency != "" {
		cfg.Defaults.Currency = strings.ToUpper(cfg.Defaults.Currency)
		return nil
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) {
		cfg.Defaults.Currency = constants.DefaultCurrency
		return nil
	}

	currency, err := prompts.PromptInitCurrency(constants.DefaultCurrency)
	if err != nil {
		return err
	}
	cfg.Defaults.Currency = currency

	viper.Set("defaults.currency", currency)
	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save config to file: %w", err)
	}

	pterm.Success.Printf("Configuration saved. Default currency set to: %s\n", currency)
	return nil
}

func createDefaultConfig(appDir string) error {
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(appDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
