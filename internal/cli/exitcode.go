package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/joacominatel/telequery/internal/app"
	"github.com/joacominatel/telequery/internal/auth"
	"github.com/joacominatel/telequery/internal/telemetry/restapi"
)

// Process exit codes returned by ExitCode.
const (
	ExitOK        = 0
	ExitSystem    = 1
	ExitUser      = 2
	ExitAuth      = 3
	ExitNotFound  = 4
	ExitRateLimit = 5
	ExitCanceled  = 130
)

// ExitCode maps a command error to a stable process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitCanceled
	}

	var authErr *app.ErrAuth
	if errors.As(err, &authErr) || errors.Is(err, auth.ErrNoToken) {
		return ExitAuth
	}

	switch status := restapi.StatusCode(err); {
	case status == http.StatusNotFound:
		return ExitNotFound
	case status == http.StatusTooManyRequests:
		return ExitRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ExitAuth
	case status >= 400 && status < 500:
		return ExitUser
	case status >= 500:
		return ExitSystem
	}

	var cfgErr *app.ErrConfig
	if errors.As(err, &cfgErr) || errors.Is(err, errUsage) {
		return ExitUser
	}

	return ExitSystem
}
