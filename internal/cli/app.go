// Package cli implements the telequery command line.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joacominatel/telequery/internal/app"
	"github.com/joacominatel/telequery/internal/auth"
	"github.com/joacominatel/telequery/internal/config"
)

// App owns CLI wiring and execution configuration.
type App struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Stdin   io.Reader
	Version string

	// Tokens returns the token provider for a profile name.
	Tokens func(profile string) auth.TokenProvider
	// Open builds the service for a resolved profile.
	Open func(ctx context.Context, profile config.Profile, tokens auth.TokenProvider) (*app.Service, error)
}

// NewApp constructs an App with default settings.
func NewApp() *App {
	return &App{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Stdin:   os.Stdin,
		Version: "dev",
		Tokens:  auth.ForProfile,
		Open:    app.Open,
	}
}

// Execute runs the CLI with the provided args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		printError(a.Stderr, err)
		return err
	}
	return nil
}

// RootCommand exposes the root command for tests.
func (a *App) RootCommand() *cobra.Command {
	return newRootCmd(a)
}
