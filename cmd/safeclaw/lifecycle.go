package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"safeclaw/internal/session"
)

var startCmd = &cobra.Command{
	Use:   "start NAME",
	Short: "Start a stopped session and its terminal server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		name := containerName(a.settings.Prefix, args[0])
		res := a.commander.Start(cmd.Context(), name)
		if !res.Success {
			return fmt.Errorf("failed to start session %s", name)
		}
		if res.URL != "" {
			fmt.Fprintln(cmd.OutOrStdout(), res.URL)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s started (no terminal port published yet)\n", name)
		}
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop NAME",
	Short: "Stop a running session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		name := containerName(a.settings.Prefix, args[0])
		if !a.commander.Stop(cmd.Context(), name) {
			return fmt.Errorf("failed to stop session %s", name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %s stopped\n", name)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm NAME...",
	Aliases: []string{"delete"},
	Short:   "Delete stopped sessions",
	Long:    `Delete one or more stopped sessions. Running sessions are refused by the runtime; stop them first.`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var failed []string
		for _, arg := range args {
			name := containerName(a.settings.Prefix, arg)
			if !a.commander.Delete(cmd.Context(), name) {
				failed = append(failed, name)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted\n", name)
		}
		if len(failed) > 0 {
			return fmt.Errorf("failed to delete: %s", strings.Join(failed, ", "))
		}
		return nil
	},
}

var (
	createName   string
	createVolume string
	createQuery  string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new session through the launch script",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.commander.Create(cmd.Context(), session.CreateOptions{
			Name:   createName,
			Volume: createVolume,
			Query:  createQuery,
		})
		if !res.Success {
			return errors.New(res.Error)
		}
		if res.URL != "" {
			fmt.Fprintln(cmd.OutOrStdout(), res.URL)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Session created")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd, stopCmd, rmCmd, createCmd)

	createCmd.Flags().StringVarP(&createName, "name", "s", "", "Session name (prefix is added by the launch script)")
	createCmd.Flags().StringVarP(&createVolume, "volume", "V", "", "Host directory to mount, host:container")
	createCmd.Flags().StringVarP(&createQuery, "query", "q", "", "Initial query for the agent")
}

// containerName accepts either a display name or the full container name.
func containerName(prefix, arg string) string {
	switch {
	case arg == session.DefaultLabel:
		return prefix
	case arg == prefix || strings.HasPrefix(arg, prefix+"-"):
		return arg
	default:
		return prefix + "-" + arg
	}
}
