package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/joacominatel/telequery/internal/config"
	"github.com/joacominatel/telequery/internal/render"
	"github.com/joacominatel/telequery/internal/telemetry"
)

func newMetricsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Read resource metrics",
	}
	cmd.AddCommand(newMetricsDefinitionsCmd(s), newMetricsQueryCmd(s))
	return cmd
}

func newMetricsDefinitionsCmd(s *session) *cobra.Command {
	var resource, namespace string

	cmd := &cobra.Command{
		Use:   "definitions",
		Short: "List the metrics a resource exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := s.openService(ctx, config.Profile{ResourceURI: resource, MetricNamespace: namespace})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			defs, err := svc.ListMetricDefinitions(ctx, resource, namespace)
			if err != nil {
				return err
			}

			lines, err := render.RenderTable(telemetry.DefinitionsTable(defs), render.DefaultOptions())
			if err != nil {
				return err
			}
			return writeLines(s.app.Stdout, lines)
		},
	}

	cmd.Flags().StringVarP(&resource, "resource", "r", "", "Resource URI (defaults to the profile's)")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Metric namespace")
	return cmd
}

func newMetricsQueryCmd(s *session) *cobra.Command {
	var q telemetry.MetricsQuery

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query metric values for a resource",
		Example: `  telequery metrics query -m Requests -m Http5xx --interval PT5M --aggregation Total
  telequery metrics query -r /subscriptions/.../sites/app -m CpuTime -t 2024-01-01T00:00:00Z/2024-01-02T00:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(q.MetricNames) == 0 {
				return usageError(errors.New("at least one --metric is required"))
			}

			ctx := cmd.Context()
			svc, err := s.openService(ctx, config.Profile{ResourceURI: q.ResourceURI, MetricNamespace: q.Namespace})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			result, err := svc.QueryMetrics(ctx, q)
			if err != nil {
				return err
			}

			lines, err := render.RenderTable(result.Table(), render.DefaultOptions())
			if err != nil {
				return err
			}
			return writeLines(s.app.Stdout, lines)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&q.ResourceURI, "resource", "r", "", "Resource URI (defaults to the profile's)")
	flags.StringSliceVarP(&q.MetricNames, "metric", "m", nil, "Metric name (repeatable)")
	flags.StringVarP(&q.Namespace, "namespace", "n", "", "Metric namespace")
	flags.StringVarP(&q.Timespan, "timespan", "t", "", "Timespan passed to the service as-is")
	flags.StringVar(&q.Interval, "interval", "", "Aggregation interval, e.g. PT1M")
	flags.StringSliceVar(&q.Aggregations, "aggregation", nil, "Aggregation type: Average|Minimum|Maximum|Total|Count (repeatable)")
	flags.StringVar(&q.Filter, "filter", "", "OData filter over dimensions")
	flags.IntVar(&q.Top, "top", 0, "Maximum number of series per dimension")
	return cmd
}
