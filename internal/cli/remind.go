package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/srsengine/internal/config"
)

// NewRemindCommand creates the remind command.
func NewRemindCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run one reminder pass for the current hour",
		Long: `Send due-card reminders to users subscribed for the current UTC hour.

Without TELEGRAM_BOT_TOKEN the reminders are written to the log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.notifier()
			if err != nil {
				return err
			}
			sent, err := a.reminderScheduler(n).RunOnce(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reminders sent: %d\n", sent)
			return nil
		},
	}
}
