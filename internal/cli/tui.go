package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joacominatel/telequery/internal/app"
	"github.com/joacominatel/telequery/internal/config"
	"github.com/joacominatel/telequery/internal/tui"
)

var errNotTerminal = errors.New("the TUI needs an interactive terminal")

func newTUICmd(s *session) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse workspaces and run queries interactively",
		Long: `Open the interactive explorer. With --target (a workspace ID list or a
PostgreSQL DSN) or --profile it connects immediately; otherwise it starts
on the saved profiles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := s.app.Stdout.(*os.File)
			if !ok || !term.IsTerminal(int(f.Fd())) {
				return usageError(errNotTerminal)
			}

			var initial *config.Profile
			switch {
			case target != "":
				p, err := config.ParseTarget(target)
				if err != nil {
					return usageError(err)
				}
				initial = &p
			case s.opts.profile != "":
				p, err := s.resolveProfile(config.Profile{})
				if err != nil {
					return err
				}
				initial = &p
			}

			return tui.Run(cmd.Context(), tui.Options{
				Config:    s.cfg,
				ConfigDir: s.dir,
				Profile:   initial,
				Open: func(ctx context.Context, p config.Profile) (*app.Service, error) {
					return s.openWithProfile(ctx, s.withEndpoints(p))
				},
			})
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Workspace ID(s) or PostgreSQL DSN to open")
	return cmd
}
