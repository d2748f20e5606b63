package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/intake"
	"chart-signal/api/internal/service"
)

func NewRootCmd(build Factory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chartsignal",
		Short: "chartsignal - next-candle signals from chart screenshots",
		Long: `chartsignal sends a candlestick chart screenshot to a vision model and prints
a CALL / PUT / NEUTRAL signal with its class, confidence and reasoning.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newAnalyzeCmd(build))
	rootCmd.AddCommand(newPromptCmd())
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

type analyzeOptions struct {
	engine    string
	model     string
	asJSON    bool
	fullLogic bool
	timeout   time.Duration
}

func newAnalyzeCmd(build Factory) *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze a chart screenshot (PNG, JPEG or WEBP)",
		Example: `  chartsignal analyze eurusd-m1.png
  chartsignal analyze chart.jpg --engine gpt --model gpt-4o --logic
  chartsignal analyze chart.webp --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runAnalyze(cmd, build, args[0], opts); err != nil {
				return report(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.engine, "engine", "", "engine: gemini, gpt or stub (default from DEFAULT_ENGINE)")
	cmd.Flags().StringVar(&opts.model, "model", "", "model override for the engine")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the raw result as JSON")
	cmd.Flags().BoolVar(&opts.fullLogic, "logic", false, "print the full logic instead of a preview")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "optional deadline for the model call, e.g. 90s")
	return cmd
}

type jsonOutput struct {
	ID         string          `json:"id"`
	Engine     string          `json:"engine"`
	Model      string          `json:"model"`
	Result     analysis.Result `json:"result"`
	Warnings   []string        `json:"warnings"`
	DurationMS int64           `json:"duration_ms"`
}

func runAnalyze(cmd *cobra.Command, build Factory, path string, opts analyzeOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	img, prev, err := intake.Load(data, mime.TypeByExtension(filepath.Ext(path)))
	if err != nil {
		return err
	}

	svc, err := build()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	if !opts.asJSON {
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%s · %s · analyzing…", filepath.Base(path), prev.String())))
	}

	res, err := svc.Analyze(ctx, service.Request{
		Image:  img,
		Engine: opts.engine,
		Model:  opts.model,
		Source: service.SourceCLI,
	})
	if err != nil {
		return err
	}

	if opts.asJSON {
		warnings := res.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonOutput{
			ID:         res.ID,
			Engine:     res.Engine,
			Model:      res.Model,
			Result:     res.Result,
			Warnings:   warnings,
			DurationMS: res.Duration.Milliseconds(),
		})
	}
	fmt.Fprintln(out, RenderResult(res, opts.fullLogic))
	return nil
}

func newPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print the instruction text sent with every chart",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), analysis.Prompt)
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema the model must answer with",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analysis.JSONSchema())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chartsignal %s\n", Version)
		},
	}
}
