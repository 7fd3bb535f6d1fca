package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/bookscout/internal/config"
)

// CLI represents the complete command structure for the bookscout application
type CLI struct {
	// Global flags
	Debug    bool          `help:"Enable debug logging"`
	Headless bool          `help:"Run the browser headless" default:"true" negatable:""`
	Timeout  time.Duration `help:"Per-store time budget (e.g. 30s); 0 uses the config value"`
	Retries  int           `help:"Retries per store on transient network failure; -1 uses the config value" default:"-1"`

	Search SearchCmd `cmd:"" help:"Search for a book across bookstores and compare prices"`
	Stores StoresCmd `cmd:"" help:"List the registered bookstores"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(false)
	initConfig()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("bookscout"),
		kong.Description("Compare book prices across Blackwells, Kennys, Libristo and Wordery."),
		kong.UsageOnError(),
	)

	updateGlobalConfig(&cli)

	if err := ctx.Run(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("scout.timeout", "30s")
	viper.SetDefault("scout.retries", 1)
	viper.SetDefault("matcher.threshold", 0.5)
	viper.SetDefault("matcher.validateisbn", true)
	viper.SetDefault("output.dbfile", "./bookscout.db")

	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Debug("No config file found, using defaults")
		} else {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}

	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	config.SetHeadless(cli.Headless)
	if cli.Timeout > 0 {
		config.Timeout = cli.Timeout
	}
	if cli.Retries >= 0 {
		config.Retries = cli.Retries
	}
	if cli.Debug {
		initLogging(true)
	}
}

func initLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}
