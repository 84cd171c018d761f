package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"safeclaw/internal/hub"
	"safeclaw/internal/notify"
	"safeclaw/internal/telemetry"
	"safeclaw/internal/watcher"
	"safeclaw/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard and live session sync",
	Long: `Serve the dashboard on the configured address. The runtime event feed is
watched continuously and every session change is pushed to connected
browsers, which then re-fetch the session list.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "127.0.0.1", "Address to bind the dashboard to")
	serveCmd.Flags().Int("port", 7680, "Dashboard port")
	serveCmd.Flags().Int("metrics-port", 0, "Serve /metrics on a separate port (0 disables)")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("metrics_port", serveCmd.Flags().Lookup("metrics-port"))
}

// serveStack is everything serve runs, wired but not started.
type serveStack struct {
	hub      *hub.Hub
	watcher  *watcher.Watcher
	server   *web.Server
	notifier *notify.Manager
}

func newServeStack(a *app) *serveStack {
	h := hub.New(a.logger, a.settings.HubBuffer, a.metrics.Observers)

	notifier := notify.NewManager(a.logger, a.settings.SlackEnabled, os.Getenv("SLACK_BOT_USER_TOKEN"), a.settings.SlackChannel, a.settings.Prefix)

	sinks := []watcher.Sink{h}
	if notifier != nil {
		sinks = append(sinks, notifier)
	}

	w := watcher.New(a.runtime, a.settings.Prefix, sinks,
		watcher.WithBackoff(a.settings.WatchBackoff),
		watcher.WithRecorder(a.metrics),
		watcher.WithLogger(a.logger),
	)

	srv := web.NewServer(a.registry, a.commander, h,
		web.WithMetrics(a.metrics.Handler(), a.metrics.RequestTrackingMiddleware),
		web.WithLogger(a.logger),
	)

	return &serveStack{hub: h, watcher: w, server: srv, notifier: notifier}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := a.runtime.CheckDaemon(ctx); err != nil {
		a.logger.Warn("container runtime not reachable, sessions will be empty until it is", "error", err)
	}

	stack := newServeStack(a)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		stack.watcher.Run(ctx)
	}()

	if port := a.settings.MetricsPort; port > 0 {
		addr := net.JoinHostPort(a.settings.Host, strconv.Itoa(port))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := telemetry.StartMetricsServer(ctx, addr, a.metrics.Handler()); err != nil {
				a.logger.Warn("Failed to start metrics server", "addr", addr, "error", err)
			}
		}()
	}

	addr := net.JoinHostPort(a.settings.Host, strconv.Itoa(a.settings.Port))
	fmt.Fprintf(cmd.OutOrStdout(), "http://localhost:%d\n", a.settings.Port)

	err = stack.server.ListenAndServe(ctx, addr)
	cancel()
	wg.Wait()
	stack.notifier.Wait()
	return err
}
