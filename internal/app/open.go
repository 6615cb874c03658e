package app

import (
	"context"

	"github.com/joacominatel/telequery/internal/auth"
	"github.com/joacominatel/telequery/internal/config"
	"github.com/joacominatel/telequery/internal/telemetry/loganalytics"
	"github.com/joacominatel/telequery/internal/telemetry/monitor"
	"github.com/joacominatel/telequery/internal/telemetry/postgres"
)

// Open validates profile and builds the collaborators it needs. tokens
// authenticates the HTTP backends and is ignored for postgres.
func Open(ctx context.Context, profile config.Profile, tokens auth.TokenProvider) (*Service, error) {
	if err := profile.Validate(); err != nil {
		return nil, &ErrConfig{Cause: err}
	}

	if profile.IsPostgres() {
		driver, err := postgres.Open(ctx, profile.DSN)
		if err != nil {
			return nil, &ErrConnection{Cause: err}
		}
		return NewService(driver, nil, profile), nil
	}

	logs := loganalytics.New(profile.LogsEndpoint, tokens)
	metrics := monitor.New(profile.MetricsEndpoint, tokens)
	return NewService(logs, metrics, profile), nil
}
