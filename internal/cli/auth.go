package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joacominatel/telequery/internal/app"
	"github.com/joacominatel/telequery/internal/auth"
)

func newAuthCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage access tokens",
		Long: `Manage the bearer tokens telequery sends to the query services.

Tokens are looked up in the TELEQUERY_TOKEN environment variable first,
then in the OS keyring under the profile name.`,
	}
	cmd.AddCommand(newAuthSetTokenCmd(s), newAuthLogoutCmd(s), newAuthStatusCmd(s))
	return cmd
}

func newAuthSetTokenCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "set-token [TOKEN]",
		Short: "Store a token in the keyring for the profile",
		Long: `Store a token in the keyring for the profile. Without an argument the
token is read from stdin; on a terminal the input is hidden.`,
		Example: `  az account get-access-token --resource https://api.loganalytics.io --query accessToken -o tsv | telequery auth set-token`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				var err error
				token, err = readToken(s.app.Stdin, s.app.Stderr)
				if err != nil {
					return err
				}
			}

			name := s.profileName()
			if err := auth.StoreToken(name, strings.TrimSpace(token)); err != nil {
				return usageError(err)
			}
			_, _ = fmt.Fprintf(s.app.Stdout, "Token stored for profile %s\n", name)
			return nil
		},
	}
}

func newAuthLogoutCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token for the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := s.profileName()
			if err := auth.DeleteToken(name); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(s.app.Stdout, "Token removed for profile %s\n", name)
			return nil
		},
	}
}

func newAuthStatusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a token is available for the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := s.profileName()
			_, err := s.app.Tokens(name).Token(cmd.Context())
			if errors.Is(err, auth.ErrNoToken) {
				_, _ = fmt.Fprintf(s.app.Stdout, "profile %s: %s\n", name, red("no token"))
				return &app.ErrAuth{Cause: err}
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(s.app.Stdout, "profile %s: %s\n", name, green("token available"))
			return nil
		},
	}
}

func readToken(stdin io.Reader, prompt io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(prompt, "Token: ")
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return string(b), nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return string(b), nil
}
