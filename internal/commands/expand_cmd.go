package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"outliner/internal/config"
	"outliner/internal/domain"
	"outliner/internal/domain/models"
	"outliner/internal/domain/services"
	serviceOutline "outliner/internal/service/outline"
)

type expandOptions struct {
	ExpandOptions
	model     string
	showPaths bool
}

func addExpand(topLevel *cobra.Command, g *globalOptions) {
	o := &expandOptions{}

	cmd := &cobra.Command{
		Use:   "expand TOPIC",
		Short: "Generate an outline for TOPIC, breadth-first.",
		Example: `
outliner expand "Solar System"
outliner expand "Jazz history" --depth 3 --model anthropic/claude-haiku-4-5
outliner expand "Cooking" --model lorem-instant --concurrency 8
`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if o.Depth < 1 || o.Depth > config.MaxExpandDepth {
				return fmt.Errorf("--depth must be between 1 and %d", config.MaxExpandDepth)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			m, _, err := e.sessions()
			if err != nil {
				return err
			}
			defer m.Close()

			ctx := cmd.Context()
			view, err := m.CreateSession(ctx, models.LocalUserID, &services.CreateSessionRequest{
				Topic: args[0],
				Model: o.model,
			})
			if err != nil {
				return err
			}

			expandErr := Expand(ctx, m, models.LocalUserID, view.ID, o.ExpandOptions)
			if errors.Is(expandErr, domain.ErrMissingCredential) {
				return fmt.Errorf("%w: run `outliner key set PROVIDER KEY` or set the provider's environment variable", expandErr)
			}

			rendered, err := m.Outline(ctx, models.LocalUserID, view.ID, serviceOutline.RenderOptions{IncludeCollapsed: true})
			if err != nil {
				return err
			}
			pp := &PrettyPrint{Out: output(cmd), ShowPath: o.showPaths}
			pp.Outline(*rendered)
			return expandErr
		},
	}

	cmd.Flags().IntVarP(&o.Depth, "depth", "d", 2, "levels to generate below the topic")
	cmd.Flags().IntVarP(&o.Concurrency, "concurrency", "c", 4, "sibling nodes generated at the same time")
	cmd.Flags().StringVarP(&o.model, "model", "m", "", "model as provider/model or a bare model name (default: stored preference)")
	cmd.Flags().BoolVar(&o.showPaths, "paths", false, "print node paths")

	topLevel.AddCommand(cmd)
}
