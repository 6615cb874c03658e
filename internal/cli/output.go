package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/joacominatel/telequery/internal/app"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
)

func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, red("Error: "+err.Error()))

	var queryErr *app.ErrQuery
	if errors.As(err, &queryErr) && queryErr.Query != "" {
		_, _ = fmt.Fprintf(w, "Query: %s\n", queryErr.Query)
	}
	var authErr *app.ErrAuth
	if errors.As(err, &authErr) {
		_, _ = fmt.Fprintln(w, "Hint: store a token with `telequery auth set-token` or set TELEQUERY_TOKEN")
	}
}

func printWarning(w io.Writer, msg string) {
	_, _ = fmt.Fprintln(w, yellow("Warning: "+msg))
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
