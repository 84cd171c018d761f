package main

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"safeclaw/internal/config"
	"safeclaw/internal/secrets"
)

var envYes bool

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage secrets injected into session terminals",
	Long: `Secrets are stored one per file in the safeclaw secrets directory and are
passed as environment variables to the terminal server whenever a session is
started.`,
}

var envListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored secret names",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := newSecretsStore(config.Get())
		keys, err := store.List()
		if err != nil {
			return fmt.Errorf("failed to list secrets: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(keys) == 0 {
			fmt.Fprintf(out, "No secrets stored in %s\n", store.Dir)
			return nil
		}
		for _, k := range keys {
			fmt.Fprintln(out, k)
		}
		return nil
	},
}

var envAddCmd = &cobra.Command{
	Use:   "add KEY [VALUE]",
	Short: "Store a secret, prompting for the value when omitted",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if !secrets.ValidKey(key) {
			return fmt.Errorf("%w: %q", secrets.ErrInvalidKey, key)
		}

		var value string
		if len(args) == 2 {
			value = args[1]
		} else if err := askOneFunc(&survey.Password{Message: fmt.Sprintf("Value for %s:", key)}, &value, survey.WithValidator(survey.Required)); err != nil {
			return err
		}

		store := newSecretsStore(config.Get())
		if err := store.Set(key, value); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", key)
		return nil
	},
}

var envRmCmd = &cobra.Command{
	Use:   "rm KEY",
	Short: "Remove a stored secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if !envYes {
			confirm := false
			if err := askOneFunc(&survey.Confirm{Message: fmt.Sprintf("Remove %s?", key), Default: false}, &confirm); err != nil {
				return err
			}
			if !confirm {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}
		}

		store := newSecretsStore(config.Get())
		if err := store.Delete(key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.AddCommand(envListCmd, envAddCmd, envRmCmd)
	envRmCmd.Flags().BoolVarP(&envYes, "yes", "y", false, "Do not ask for confirmation")
}
