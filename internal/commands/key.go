package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"outliner/internal/domain/models"
)

func addKey(topLevel *cobra.Command, g *globalOptions) {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage provider API keys stored for the local user.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set PROVIDER KEY",
		Short: "Store an API key.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			status, err := e.credentials.SetCredential(cmd.Context(), models.LocalUserID, args[0], &models.SetCredentialRequest{APIKey: args[1]})
			if err != nil {
				return err
			}
			printStatus(cmd, status)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get [PROVIDER]",
		Short: "Show which keys are configured. Keys are masked.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				status, err := e.credentials.GetCredential(cmd.Context(), models.LocalUserID, args[0])
				if err != nil {
					return err
				}
				printStatus(cmd, status)
				return nil
			}
			statuses, err := e.credentials.ListCredentials(cmd.Context(), models.LocalUserID)
			if err != nil {
				return err
			}
			for i := range statuses {
				printStatus(cmd, &statuses[i])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete PROVIDER",
		Short: "Remove a stored key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			if err := e.credentials.DeleteCredential(cmd.Context(), models.LocalUserID, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s key deleted\n", args[0])
			return nil
		},
	})

	topLevel.AddCommand(cmd)
}

func printStatus(cmd *cobra.Command, s *models.CredentialStatus) {
	out := output(cmd)
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(out, "%-10s", s.Provider)

	switch {
	case !s.RequiresKey:
		_, _ = color.New(color.Faint).Fprintln(out, "no key needed")
	case s.Source == models.KeySourceUser:
		_, _ = color.New(color.FgGreen).Fprintf(out, "%s (stored)\n", s.MaskedKey)
	case s.Source == models.KeySourceEnvironment:
		_, _ = color.New(color.FgGreen).Fprintln(out, "from environment")
	default:
		_, _ = color.New(color.FgRed).Fprintln(out, "not configured")
	}
}
