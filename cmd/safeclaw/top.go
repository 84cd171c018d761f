package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"safeclaw/internal/session"
	"safeclaw/internal/telemetry"
	"safeclaw/internal/ui"
	"safeclaw/internal/watcher"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Interactive live session table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Logs would draw over the full-screen table; keep only the file sink.
		slog.SetDefault(telemetry.NewLogger(viper.GetBool("verbose"), viper.GetString("log_file"), true))

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		changes := make(chan session.Change, 16)
		w := watcher.New(a.runtime, a.settings.Prefix, []watcher.Sink{watcher.SinkFunc(func(c session.Change) {
			select {
			case changes <- c:
			default:
			}
		})}, watcher.WithBackoff(a.settings.WatchBackoff), watcher.WithLogger(a.logger))
		go w.Run(ctx)

		return ui.StartDashboard(ui.NewDashboardModel(a.registry, a.commander, changes, a.settings.Prefix))
	},
}

func init() {
	rootCmd.AddCommand(topCmd)
}
