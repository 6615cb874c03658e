package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joacominatel/telequery/internal/app"
	"github.com/joacominatel/telequery/internal/config"
	"github.com/joacominatel/telequery/internal/render"
	"github.com/joacominatel/telequery/internal/telemetry"
)

func newConfigCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage profiles",
	}
	cmd.AddCommand(newConfigProfilesCmd(s), newConfigAddCmd(s))
	return cmd
}

func newConfigProfilesCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(s.cfg.Profiles) == 0 {
				_, _ = fmt.Fprintln(s.app.Stdout, "No profiles configured. Add one with `telequery config add`.")
				return nil
			}

			lines, err := render.RenderTable(profilesTable(s.cfg), render.DefaultOptions())
			if err != nil {
				return err
			}
			return writeLines(s.app.Stdout, lines)
		},
	}
}

func profilesTable(cfg *config.Config) telemetry.Table {
	table := telemetry.Table{
		Name: "profiles",
		Columns: []telemetry.Column{
			{Name: "name", Type: "string"},
			{Name: "backend", Type: "string"},
			{Name: "target", Type: "string"},
			{Name: "default", Type: "bool"},
		},
	}

	def := config.DefaultProfile(cfg)
	for _, p := range cfg.Profiles {
		backend := p.Backend
		if backend == "" {
			backend = config.BackendLogAnalytics
		}
		table.Rows = append(table.Rows, telemetry.Row{p.Name, backend, p.DisplayString(), def != nil && def.Name == p.Name})
	}
	return table
}

func newConfigAddCmd(s *session) *cobra.Command {
	var (
		p           config.Profile
		makeDefault bool
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Save a new profile",
		Example: `  telequery config add prod --workspace <workspace-id> --resource /subscriptions/.../sites/app
  telequery config add mirror --backend postgres --dsn postgres://reader@localhost/logs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			if p.Backend == "" {
				p.Backend = config.BackendLogAnalytics
			}
			if p.DSN != "" && !cmd.Flags().Changed("backend") {
				p.Backend = config.BackendPostgres
			}
			p.LogsEndpoint = s.opts.logsEndpoint
			p.MetricsEndpoint = s.opts.metricsEndpoint

			if err := p.Validate(); err != nil {
				return usageError(err)
			}
			if s.cfg.HasProfile(p.Name) {
				return usageError(fmt.Errorf("profile %q already exists", p.Name))
			}

			s.cfg.AddProfile(p)
			if makeDefault || len(s.cfg.Profiles) == 1 {
				s.cfg.Preferences.DefaultProfile = p.Name
			}
			if err := config.SaveTo(s.dir, s.cfg); err != nil {
				return &app.ErrConfig{Cause: err}
			}

			_, _ = fmt.Fprintf(s.app.Stdout, "Profile %s saved (%s)\n", p.Name, p.DisplayString())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&p.Backend, "backend", config.BackendLogAnalytics, "Backend: loganalytics|postgres")
	flags.StringVarP(&p.WorkspaceID, "workspace", "w", "", "Workspace ID")
	flags.StringSliceVar(&p.AdditionalWorkspaces, "additional-workspace", nil, "Extra workspace queried alongside (repeatable)")
	flags.StringVarP(&p.ResourceURI, "resource", "r", "", "Resource URI for metrics")
	flags.StringVarP(&p.MetricNamespace, "namespace", "n", "", "Metric namespace")
	flags.StringVar(&p.DSN, "dsn", "", "PostgreSQL connection string of a log mirror")
	flags.BoolVar(&makeDefault, "default", false, "Make this the default profile")
	return cmd
}
