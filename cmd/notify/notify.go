package notify

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/notify"
)

// Command returns a cobra command that sends a test notification to every
// configured service
func Command(settings *conf.Settings) *cobra.Command {
	var (
		title   string
		message string
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test notification",
		Long: `Send a test notification to the services configured under notify.urls.

Examples:
  perdiem notify
  perdiem notify --title="Test" --message="Hello from perdiem-go"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := notify.New(settings.Notify)
			if err != nil {
				return err
			}
			if n == nil {
				return fmt.Errorf("notifications are disabled, set notify.enabled to true")
			}

			if message == "" {
				message = fmt.Sprintf("Test notification from %s at %s", settings.Main.Name, time.Now().Format(time.RFC3339))
			}
			if err := n.SendTest(cmd.Context(), title, message); err != nil {
				return err
			}

			for _, target := range n.Targets() {
				fmt.Fprintf(cmd.OutOrStdout(), "sent to %s\n", target)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "perdiem-go test notification", "Notification title")
	cmd.Flags().StringVar(&message, "message", "", "Notification message")

	return cmd
}
