package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"outliner/internal/config"
	"outliner/internal/service/llm/prompts"
)

func addSuggest(topLevel *cobra.Command, _ *globalOptions) {
	var count int

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Print topic suggestions for a new outline.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 || count > config.MaxSuggestionCount {
				return fmt.Errorf("-n must be between 1 and %d", config.MaxSuggestionCount)
			}
			library, err := prompts.Load()
			if err != nil {
				return err
			}
			for _, s := range library.Sample(count) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", prompts.DefaultSuggestionCount, "number of suggestions")

	topLevel.AddCommand(cmd)
}
