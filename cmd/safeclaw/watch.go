package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"safeclaw/internal/session"
	"safeclaw/internal/watcher"
)

var watchJSON bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print session changes as they happen",
	Long: `Follow the runtime event feed and print one line per session change
(started, stopped, died, destroyed). The feed is re-established automatically
if it drops. Press Ctrl+C to exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		w := watcher.New(a.runtime, a.settings.Prefix,
			[]watcher.Sink{changePrinter(cmd.OutOrStdout(), a.settings.Prefix, watchJSON)},
			watcher.WithBackoff(a.settings.WatchBackoff),
			watcher.WithRecorder(a.metrics),
			watcher.WithLogger(a.logger),
		)
		w.Run(cmd.Context())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Print one JSON object per change")
}

type changeLine struct {
	Action      session.Action `json:"action"`
	Name        string         `json:"name"`
	DisplayName string         `json:"displayName"`
}

func changePrinter(out io.Writer, prefix string, asJSON bool) watcher.Sink {
	var mu sync.Mutex
	return watcher.SinkFunc(func(c session.Change) {
		mu.Lock()
		defer mu.Unlock()
		display := session.DisplayName(prefix, c.Name)
		if asJSON {
			json.NewEncoder(out).Encode(changeLine{Action: c.Action, Name: c.Name, DisplayName: display})
			return
		}
		fmt.Fprintf(out, "%-10s %s\n", c.Action, display)
	})
}
