package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"safeclaw/internal/config"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:          "doctor",
	Short:        "Diagnose potential issues with the environment",
	SilenceUsage: true, // Prevents printing usage on error
	Long: `The doctor command verifies that the container runtime is reachable, the
configuration is valid, the launch script is executable and the secrets
directory is private.`,
	Args: cobra.NoArgs,
	RunE: runChecks,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// runChecks executes all the doctor checks and prints a summary.
func runChecks(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	checkPassed := true

	fmt.Fprintln(out, "🩺 Running doctor checks...")

	if !runRuntimeChecks(cmd) {
		checkPassed = false
	}
	if !runConfigChecks(cmd) {
		checkPassed = false
	}

	// Summary
	fmt.Fprintln(out, "\n🩺 Doctor Summary:")
	if checkPassed {
		fmt.Fprintln(out, "✅ All checks passed!")
		return nil
	}

	fmt.Fprintln(out, "❌ Some checks failed. Please review the output above.")
	return fmt.Errorf("doctor checks failed")
}

func runRuntimeChecks(cmd *cobra.Command) bool {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "\n🔎 Checking container runtime connectivity...")
	client, err := newRuntimeClient()
	if err != nil {
		fmt.Fprintf(out, "❌ Error creating runtime client: %v\n", err)
		return false
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if err := client.CheckDaemon(ctx); err != nil {
		fmt.Fprintf(out, "❌ Container runtime is not reachable: %v\n", err)
		return false
	}
	fmt.Fprintln(out, "✅ Container runtime is reachable")

	sessions, err := client.ListAll(ctx, config.Get().Prefix)
	if err != nil {
		fmt.Fprintf(out, "❌ Failed to list session containers: %v\n", err)
		return false
	}
	fmt.Fprintf(out, "✅ %d session container(s) found\n", len(sessions))
	return true
}

func runConfigChecks(cmd *cobra.Command) bool {
	out := cmd.OutOrStdout()
	passed := true
	s := config.Get()

	fmt.Fprintln(out, "\n🔎 Checking configuration...")
	if err := config.Validate(s); err != nil {
		fmt.Fprintf(out, "❌ %v\n", err)
		passed = false
	} else {
		fmt.Fprintln(out, "✅ Configuration is valid")
	}

	fmt.Fprintln(out, "\n🔎 Checking launch script...")
	if info, err := os.Stat(s.CreateScript); err != nil {
		fmt.Fprintf(out, "❌ Launch script %s not found: %v\n", s.CreateScript, err)
		passed = false
	} else if info.Mode().Perm()&0111 == 0 {
		fmt.Fprintf(out, "❌ Launch script %s is not executable\n", s.CreateScript)
		passed = false
	} else {
		fmt.Fprintf(out, "✅ Launch script %s is executable\n", s.CreateScript)
	}

	fmt.Fprintln(out, "\n🔎 Checking secrets directory...")
	store := newSecretsStore(s)
	info, err := os.Stat(store.Dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(out, "ℹ️  No secrets directory at %s (sessions start without extra environment)\n", store.Dir)
	case err != nil:
		fmt.Fprintf(out, "❌ Cannot read secrets directory %s: %v\n", store.Dir, err)
		passed = false
	case info.Mode().Perm()&0077 != 0:
		fmt.Fprintf(out, "⚠️  Secrets directory %s is accessible by other users (mode %o); run chmod 700\n", store.Dir, info.Mode().Perm())
	default:
		fmt.Fprintf(out, "✅ Secrets directory %s is private\n", store.Dir)
	}

	return passed
}
