package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joacominatel/telequery/internal/app"
	"github.com/joacominatel/telequery/internal/config"
	"github.com/joacominatel/telequery/internal/logging"
)

type globalOptions struct {
	profile         string
	configDir       string
	logLevel        string
	logJSON         bool
	logsEndpoint    string
	metricsEndpoint string
}

// session is the state shared by every subcommand of one invocation.
type session struct {
	app  *App
	opts globalOptions
	cfg  *config.Config
	dir  string
}

func newRootCmd(a *App) *cobra.Command {
	s := &session{app: a}

	rootCmd := &cobra.Command{
		Use:           "telequery",
		Short:         "Query logs and metrics from the terminal",
		Long:          "telequery runs log queries against workspaces (or a PostgreSQL log mirror) and reads resource metrics, printing results as plain-text tables.",
		Version:       a.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.init()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&s.opts.profile, "profile", "p", "", "Profile to use (defaults to the configured default profile)")
	flags.StringVar(&s.opts.configDir, "config-dir", "", "Configuration directory (default ~/.telequery)")
	flags.StringVar(&s.opts.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	flags.BoolVar(&s.opts.logJSON, "log-json", false, "Write logs as JSON")
	flags.StringVar(&s.opts.logsEndpoint, "logs-endpoint", "", "Override the logs query endpoint")
	flags.StringVar(&s.opts.metricsEndpoint, "metrics-endpoint", "", "Override the metrics endpoint")

	rootCmd.AddCommand(
		newLogsCmd(s),
		newMetricsCmd(s),
		newAuthCmd(s),
		newConfigCmd(s),
		newTUICmd(s),
	)

	return rootCmd
}

func (s *session) init() error {
	dir := s.opts.configDir
	if dir == "" {
		var err error
		dir, err = config.DirPath()
		if err != nil {
			return &app.ErrConfig{Cause: fmt.Errorf("config dir: %w", err)}
		}
	}
	s.dir = dir

	cfg, err := config.LoadFrom(dir)
	if err != nil {
		return &app.ErrConfig{Cause: err}
	}
	s.cfg = cfg

	levelName := s.opts.logLevel
	if levelName == "" {
		levelName = cfg.Preferences.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return usageError(err)
	}
	if s.opts.logJSON || strings.EqualFold(cfg.Preferences.LogFormat, "json") {
		logging.SetupJSON(level, s.app.Stderr)
	} else {
		logging.Setup(level, s.app.Stderr)
	}

	slog.Debug("config loaded", "dir", dir, "profiles", len(cfg.Profiles))
	return nil
}

// profileName returns the name the invocation targets, even when no such
// profile is saved.
func (s *session) profileName() string {
	if s.opts.profile != "" {
		return s.opts.profile
	}
	if p := config.DefaultProfile(s.cfg); p != nil {
		return p.Name
	}
	return "default"
}

// resolveProfile picks the saved profile for this invocation. Without
// saved profiles, adhoc is used so one-off flags like --workspace work
// before any configuration exists.
func (s *session) resolveProfile(adhoc config.Profile) (config.Profile, error) {
	var p config.Profile
	switch {
	case s.opts.profile != "":
		saved, ok := s.cfg.Profile(s.opts.profile)
		if !ok {
			return p, &app.ErrConfig{Cause: fmt.Errorf("profile %q not found", s.opts.profile)}
		}
		p = *saved
	case config.DefaultProfile(s.cfg) != nil:
		p = *config.DefaultProfile(s.cfg)
	default:
		p = adhoc
		p.Name = "default"
	}

	return s.withEndpoints(p), nil
}

func (s *session) withEndpoints(p config.Profile) config.Profile {
	if s.opts.logsEndpoint != "" {
		p.LogsEndpoint = s.opts.logsEndpoint
	}
	if s.opts.metricsEndpoint != "" {
		p.MetricsEndpoint = s.opts.metricsEndpoint
	}
	return p
}

func (s *session) openService(ctx context.Context, adhoc config.Profile) (*app.Service, error) {
	p, err := s.resolveProfile(adhoc)
	if err != nil {
		return nil, err
	}
	return s.openWithProfile(ctx, p)
}

func (s *session) openWithProfile(ctx context.Context, p config.Profile) (*app.Service, error) {
	svc, err := s.app.Open(ctx, p, s.app.Tokens(p.Name))
	if err != nil {
		return nil, err
	}
	if ts := s.cfg.Preferences.Timespan; ts != "" {
		svc.SetTimespan(ts)
	}
	return svc, nil
}

// errUsage marks invalid command line input.
var errUsage = errors.New("invalid usage")

func usageError(err error) error {
	return fmt.Errorf("%w: %w", errUsage, err)
}
