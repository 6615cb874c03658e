package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joacominatel/telequery/internal/config"
	"github.com/joacominatel/telequery/internal/render"
	"github.com/joacominatel/telequery/internal/telemetry"
)

type logsOptions struct {
	workspace            string
	timespan             string
	additionalWorkspaces []string
}

func (o *logsOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.workspace, "workspace", "w", "", "Workspace ID (defaults to the profile's)")
	cmd.Flags().StringVarP(&o.timespan, "timespan", "t", "", "ISO 8601 timespan, e.g. PT1H or P1D")
	cmd.Flags().StringSliceVar(&o.additionalWorkspaces, "additional-workspace", nil, "Extra workspace for a cross-workspace query (repeatable)")
}

func (o *logsOptions) adhoc() config.Profile {
	return config.Profile{
		Backend:              config.BackendLogAnalytics,
		WorkspaceID:          o.workspace,
		AdditionalWorkspaces: o.additionalWorkspaces,
	}
}

func (o *logsOptions) query(text string) telemetry.LogsQuery {
	return telemetry.LogsQuery{
		WorkspaceID:          o.workspace,
		Query:                text,
		Timespan:             o.timespan,
		AdditionalWorkspaces: o.additionalWorkspaces,
	}
}

func newLogsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Run log queries",
	}
	cmd.AddCommand(newLogsQueryCmd(s), newLogsBatchCmd(s))
	return cmd
}

func newLogsQueryCmd(s *session) *cobra.Command {
	var (
		opts  logsOptions
		title bool
	)

	cmd := &cobra.Command{
		Use:   "query QUERY",
		Short: "Run one query and print its tables",
		Example: `  telequery logs query 'AppRequests | take 10'
  telequery logs query -w <workspace> -t PT1H 'Heartbeat | count'
  telequery logs query --title 'AppExceptions | take 5'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := s.openService(ctx, opts.adhoc())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			q := opts.query(args[0])
			result, err := svc.QueryLogs(ctx, q)
			if err != nil {
				return err
			}
			if result.PartialErr != nil {
				printWarning(s.app.Stderr, "partial results: "+result.PartialErr.Error())
			}

			var rc *render.Context
			if title {
				timespan := q.Timespan
				if timespan == "" {
					timespan = svc.Timespan()
				}
				rc = &render.Context{QueryText: q.Query, Timespan: timespan}
			}

			lines, err := render.RenderQueryResult(result, rc)
			if err != nil {
				return err
			}
			return writeLines(s.app.Stdout, lines)
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&title, "title", false, "Print a line naming the query and timespan before the tables")
	return cmd
}

func newLogsBatchCmd(s *session) *cobra.Command {
	var (
		opts    logsOptions
		queries []string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run several queries in one request",
		Long: `Run several queries in one request. Queries come from repeated --query
flags and/or a file with one query per line ('-' reads stdin). Blank lines
and lines starting with // are skipped.

A failed query is reported in place and does not stop the others.`,
		Example: `  telequery logs batch -q 'AppRequests | count' -q 'AppExceptions | count'
  telequery logs batch --file queries.kql -t P7D`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			texts := append([]string(nil), queries...)
			if file != "" {
				fromFile, err := readQueryFile(s.app.Stdin, file)
				if err != nil {
					return usageError(err)
				}
				texts = append(texts, fromFile...)
			}
			if len(texts) == 0 {
				return usageError(errors.New("no queries given; use --query or --file"))
			}

			ctx := cmd.Context()
			svc, err := s.openService(ctx, opts.adhoc())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			batch := make([]telemetry.BatchQuery, len(texts))
			for i, text := range texts {
				batch[i] = telemetry.BatchQuery{ID: fmt.Sprint(i + 1), LogsQuery: opts.query(text)}
			}

			results, err := svc.QueryBatch(ctx, batch)
			if err != nil {
				return err
			}

			timespan := opts.timespan
			if timespan == "" {
				timespan = svc.Timespan()
			}

			failed := 0
			for i := range results {
				rc := &render.Context{QueryText: texts[i], Timespan: timespan}
				lines, err := render.RenderQueryResult(&results[i], rc)
				if err != nil {
					// One malformed result must not hide the others.
					printError(s.app.Stderr, fmt.Errorf("query %s: %w", results[i].ID, err))
					failed++
					continue
				}
				if results[i].Err != nil {
					failed++
				}
				if err := writeLines(s.app.Stdout, lines); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d queries failed", failed, len(results))
			}
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "Query text (repeatable)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one query per line ('-' for stdin)")
	return cmd
}

func readQueryFile(stdin io.Reader, path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var queries []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return queries, nil
}
