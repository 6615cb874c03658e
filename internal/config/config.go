package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Backend names accepted in a profile.
const (
	BackendLogAnalytics = "loganalytics"
	BackendPostgres     = "postgres"
)

// Config represents the application configuration.
type Config struct {
	Profiles    []Profile   `mapstructure:"profiles" yaml:"profiles"`
	Preferences Preferences `mapstructure:"preferences" yaml:"preferences"`
}

// Profile is a saved query target: a workspace (and optionally a resource
// for metrics) or a PostgreSQL log mirror.
type Profile struct {
	Name                 string   `mapstructure:"name" yaml:"name"`
	Backend              string   `mapstructure:"backend" yaml:"backend"`
	WorkspaceID          string   `mapstructure:"workspace_id" yaml:"workspace_id,omitempty"`
	AdditionalWorkspaces []string `mapstructure:"additional_workspaces" yaml:"additional_workspaces,omitempty"`
	ResourceURI          string   `mapstructure:"resource_uri" yaml:"resource_uri,omitempty"`
	MetricNamespace      string   `mapstructure:"metric_namespace" yaml:"metric_namespace,omitempty"`
	LogsEndpoint         string   `mapstructure:"logs_endpoint" yaml:"logs_endpoint,omitempty"`
	MetricsEndpoint      string   `mapstructure:"metrics_endpoint" yaml:"metrics_endpoint,omitempty"`
	DSN                  string   `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// Preferences holds user preferences.
type Preferences struct {
	Theme          string `mapstructure:"theme" yaml:"theme"`
	DefaultProfile string `mapstructure:"default_profile" yaml:"default_profile"`
	Timespan       string `mapstructure:"timespan" yaml:"timespan"`
	LogLevel       string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat      string `mapstructure:"log_format" yaml:"log_format"`
}

// IsPostgres reports whether the profile targets a PostgreSQL log mirror.
func (p Profile) IsPostgres() bool {
	return p.Backend == BackendPostgres
}

// Validate checks that the profile has what its backend needs.
func (p Profile) Validate() error {
	switch p.Backend {
	case "", BackendLogAnalytics:
		if p.WorkspaceID == "" && p.ResourceURI == "" {
			return fmt.Errorf("profile %q: workspace_id or resource_uri is required", p.Name)
		}
	case BackendPostgres:
		if p.DSN == "" {
			return fmt.Errorf("profile %q: dsn is required for the postgres backend", p.Name)
		}
	default:
		return fmt.Errorf("profile %q: unknown backend %q", p.Name, p.Backend)
	}
	return nil
}

// DisplayString returns a human-readable summary of the profile target.
// Passwords are never included.
func (p Profile) DisplayString() string {
	if p.IsPostgres() {
		u, err := url.Parse(p.DSN)
		if err != nil || u.Host == "" {
			return "postgres"
		}
		s := u.Host + u.Path
		if u.User != nil && u.User.Username() != "" {
			s = u.User.Username() + "@" + s
		}
		return s
	}

	s := p.WorkspaceID
	if s == "" {
		s = p.ResourceURI
	}
	if n := len(p.AdditionalWorkspaces); n > 0 {
		s += " +" + strconv.Itoa(n)
	}
	return s
}

// ParseDSN parses a PostgreSQL connection string into a profile.
func ParseDSN(dsn string) (Profile, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return Profile{}, fmt.Errorf("invalid DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return Profile{}, fmt.Errorf("invalid DSN: unsupported scheme %q", u.Scheme)
	}

	port := u.Port()
	if port == "" {
		port = "5432"
	}
	database := strings.TrimPrefix(u.Path, "/")

	return Profile{
		// Auto-generate a name
		Name:    fmt.Sprintf("postgres-%s-%s-%s", u.Hostname(), port, database),
		Backend: BackendPostgres,
		DSN:     dsn,
	}, nil
}

// ParseTarget turns manual input into a profile: a PostgreSQL DSN, or a
// workspace list accepted by ParseWorkspace.
func ParseTarget(input string) (Profile, error) {
	input = strings.TrimSpace(input)
	if strings.Contains(input, "://") {
		return ParseDSN(input)
	}
	return ParseWorkspace(input)
}

// ParseWorkspace builds a logs profile from a workspace ID, optionally
// followed by comma-separated additional workspaces.
func ParseWorkspace(input string) (Profile, error) {
	var ids []string
	for _, part := range strings.Split(input, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return Profile{}, fmt.Errorf("empty workspace")
	}

	p := Profile{
		Name:        "workspace-" + ids[0],
		Backend:     BackendLogAnalytics,
		WorkspaceID: ids[0],
	}
	if len(ids) > 1 {
		p.AdditionalWorkspaces = ids[1:]
	}
	return p, nil
}

// HasProfile checks if a profile with the given name already exists.
func (cfg *Config) HasProfile(name string) bool {
	_, ok := cfg.Profile(name)
	return ok
}

// Profile returns the profile with the given name.
func (cfg *Config) Profile(name string) (*Profile, bool) {
	for i := range cfg.Profiles {
		if cfg.Profiles[i].Name == name {
			return &cfg.Profiles[i], true
		}
	}
	return nil, false
}

// AddProfile appends a profile if it doesn't already exist.
func (cfg *Config) AddProfile(p Profile) {
	if !cfg.HasProfile(p.Name) {
		cfg.Profiles = append(cfg.Profiles, p)
	}
}
