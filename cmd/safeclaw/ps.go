package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"safeclaw/internal/session"
	"safeclaw/internal/ui"
)

var (
	psJSON    bool
	psNoColor bool
)

var psCmd = &cobra.Command{
	Use:     "ps",
	Aliases: []string{"list", "ls"},
	Short:   "List sessions",
	Long:    `List every session container, running ones first, with its terminal URL and mounted volumes.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sessions := a.registry.Snapshot(cmd.Context())

		if psJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sessions)
		}

		if psNoColor {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
		printSessions(cmd, sessions)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(psCmd)
	psCmd.Flags().BoolVar(&psJSON, "json", false, "Print the session list as JSON")
	psCmd.Flags().BoolVar(&psNoColor, "no-color", false, "Disable colored output")
}

func printSessions(cmd *cobra.Command, sessions []session.Session) {
	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions found. Create one with 'safeclaw create --name NAME'.")
		return
	}

	// State goes last: its escape codes would otherwise skew column widths.
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tURL\tVOLUME\tSTATE")
	for _, s := range sessions {
		url := "-"
		if s.URL != nil {
			url = *s.URL
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.DisplayName, url, s.Volume, ui.RenderState(s.State))
	}
	w.Flush()
}
