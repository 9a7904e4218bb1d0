package cmd

import (
	"os"

	"github.com/hance08/purse/internal/app"
	"github.com/hance08/purse/internal/config"
	"github.com/hance08/purse/internal/ui/views"
	"github.com/spf13/cobra"
)

type infoRunner struct {
	app *app.App
}

func NewInfoCmd(application *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Display application information",
		Long:  `Display current configuration, database, event sink and system details.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := &infoRunner{
				app: application,
			}

			return runner.Run()
		},
	}
}

func (r *infoRunner) Run() error {
	cfg := r.app.Service.Config

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = "(None, using defaults)"
	}

	item := views.SystemInfoItem{
		ConfigPath:      configPath,
		DBDriver:        cfg.Database.Driver,
		DefaultCurrency: cfg.Defaults.Currency,
		ReferencePrefix: cfg.Ledger.ReferencePrefix,
		EventSink:       r.app.EventSink,
		LogLevel:        cfg.Log.Level,
		MetricsFile:     cfg.Metrics.Textfile,
		AppDataDir:      appDataDirOrUnknown(),
	}

	if item.MetricsFile == "" {
		item.MetricsFile = "(disabled)"
	}

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		dbPath, err := app.ResolveDBPath(cfg)
		if err != nil {
			return err
		}
		item.DBPath = dbPath
		if _, err := os.Stat(dbPath); err == nil {
			item.DBExists = true
		}
	case config.DriverPostgres:
		item.DBPath = "(from database.dsn)"
	default:
		item.DBPath = "(in memory, discarded on exit)"
	}

	return views.RenderSystemInfo(item)
}

func appDataDirOrUnknown() string {
	dir, err := app.AppDataDir()
	if err != nil {
		return "Unknown"
	}
	return dir
}
