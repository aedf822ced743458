package commands

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"outliner/internal/domain/models/outline"
	"outliner/internal/service/session"
)

// ExpandOptions controls a breadth-first expansion.
type ExpandOptions struct {
	Depth       int
	Concurrency int
}

// Expand generates children level by level from root to opts.Depth. Nodes of the same level
// are generated concurrently, at most opts.Concurrency at a time. A failed node stops the
// expansion; children merged before the failure stay in the session.
func Expand(ctx context.Context, m *session.Manager, userID, sessionID string, opts ExpandOptions) error {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	level := []string{outline.RootPath}
	for depth := 0; depth < opts.Depth && len(level) > 0; depth++ {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for _, path := range level {
			node, err := m.Controller(userID, sessionID, path)
			if err != nil {
				return err
			}
			g.Go(func() error {
				if err := node.GenerateChildren(gctx, "", false); err != nil {
					return fmt.Errorf("expand %s: %w", path, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		view, err := m.GetSession(ctx, userID, sessionID)
		if err != nil {
			return err
		}
		var next []string
		for _, path := range level {
			next = append(next, outline.ChildPaths(view.State, path)...)
		}
		slices.SortFunc(next, outline.ComparePaths)
		level = next
	}
	return nil
}
