package serve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/perdiem-go/internal/api"
	"github.com/tphakala/perdiem-go/internal/app"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/logging"
)

// Command creates the serve command, which runs the HTTP report server until
// SIGINT or SIGTERM.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports over HTTP",
		Long:  "Start the HTTP server exposing submission reports, a health check and Prometheus metrics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			// report unreadable sources at startup, the health endpoint keeps checking
			if err := a.Service.CheckAccess(); err != nil {
				logging.ForService("serve").Warn("Source files not accessible", "error", err)
			}

			server, err := api.New(api.ConfigFromSettings(settings), a.Service,
				api.WithMetrics(a.Metrics),
				api.WithVersion(app.Version),
				api.WithLogFile(settings.Main.Log),
			)
			if err != nil {
				return err
			}
			return server.StartWithGracefulShutdown()
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Listen, "listen", viper.GetString("webserver.listen"), "Listen address and port")
	cmd.Flags().BoolVar(&settings.WebServer.Debug, "webdebug", viper.GetBool("webserver.debug"), "Enable HTTP debug mode")

	if err := viper.BindPFlag("webserver.listen", cmd.Flags().Lookup("listen")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("webserver.debug", cmd.Flags().Lookup("webdebug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
