package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/perdiem-go/cmd/check"
	configcmd "github.com/tphakala/perdiem-go/cmd/config"
	"github.com/tphakala/perdiem-go/cmd/notify"
	"github.com/tphakala/perdiem-go/cmd/rates"
	"github.com/tphakala/perdiem-go/cmd/reconcile"
	"github.com/tphakala/perdiem-go/cmd/serve"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/logging"
)

// RootCommand creates and returns the root command. Subcommands share
// settings, which are reloaded after flag parsing so flags take precedence
// over the config file and environment.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "perdiem",
		Short:         "Per diem travel expense reconciliation",
		Long:          "Reconcile inspector travel expense submissions against GSA per diem rates and reimbursement policy.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings, &configFile); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	subcommands := []*cobra.Command{
		reconcile.Command(settings),
		serve.Command(settings),
		check.Command(settings),
		rates.Command(settings),
		notify.Command(settings),
		configcmd.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(settings, configFile)
	}

	return rootCmd
}

// initialize reloads settings with command line flags applied and sets up
// logging. It runs before every subcommand.
func initialize(settings *conf.Settings, configFile string) error {
	loaded, err := conf.LoadFrom(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	logging.Init()
	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings, configFile *string) error {
	rootCmd.PersistentFlags().StringVarP(configFile, "config", "c", "", "Path to config file (default: search ./config.yaml, ~/.config/perdiem-go, /etc/perdiem-go)")
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Sources.Dir, "data", viper.GetString("sources.dir"), "Directory containing the source tables")
	rootCmd.PersistentFlags().StringVar(&settings.GSA.APIKey, "apikey", viper.GetString("gsa.apikey"), "GSA per diem API key")

	for key, flag := range map[string]string{
		"debug":       "debug",
		"sources.dir": "data",
		"gsa.apikey":  "apikey",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}

	return nil
}
