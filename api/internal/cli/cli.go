// Package cli is the chartsignal command-line front-end.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/service"
)

var Version = "dev"

// Analyzer is what the analyze command runs against.
type Analyzer interface {
	Analyze(ctx context.Context, req service.Request) (service.Outcome, error)
}

// Factory builds the analyzer lazily, so prompt/schema/version work without
// any engine configured.
type Factory func() (Analyzer, error)

// Run starts the CLI application.
func Run(build Factory) {
	if err := execute(NewRootCmd(build)); err != nil {
		os.Exit(1)
	}
}

// execute runs root and prints an error that no command has shown yet.
func execute(root *cobra.Command) error {
	err := root.Execute()
	var r reported
	if err != nil && !errors.As(err, &r) {
		fmt.Fprintln(root.ErrOrStderr(), errorStyle.Render("✗ "+err.Error()))
	}
	return err
}

// reported marks an error that was already printed.
type reported struct{ error }

func (r reported) Unwrap() error { return r.error }

// report prints err once, in the form users may see: analysis failures as
// the fixed user message, configuration errors by name.
func report(cmd *cobra.Command, err error) error {
	msg := err.Error()
	if analysis.IsAnalysisError(err) || analysis.IsConfigurationError(err) {
		msg = analysis.UserFacing(err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("✗ "+msg))
	return reported{err}
}
