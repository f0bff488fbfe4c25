package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hampton/progress-tracker/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS CODES
// ══════════════════════════════════════════════════════════════════════════════

func newCodeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Export, import and inspect progress codes",
	}
	cmd.AddCommand(newCodeExportCmd(opts), newCodeImportCmd(opts), newCodeInspectCmd(opts))
	return cmd
}

func newCodeExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the progress code for the current state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app) error {
				code := a.tracker.ExportCode()
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), map[string]string{"code": code})
				}
				fmt.Fprintln(cmd.OutOrStdout(), code)
				return nil
			})
		},
	}
}

func newCodeImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <code>",
		Short: "Replace the current progress with the state a code describes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out, err := a.tracker.ImportCode(ctx, args[0])
				if err != nil {
					return err
				}
				if !opts.jsonOutput {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("Imported"), args[0])
					printStatus(cmd.OutOrStdout(), out.State, out.State.ProgressPercentage(), a.tracker.ExportCode(), a.tracker.Now())
				}
				return commit(cmd, opts, out, nil)
			})
		},
	}
}

// newCodeInspectCmd разбирает коды без изменения состояния: один код даёт
// отчёт, несколько кодов - сводную аналитику.
func newCodeInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <code> [code...]",
		Short: "Report on one code, or summarize several",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if len(args) == 1 {
					report, err := query.NewProgressReportHandler(a.tracker.Codec(), a.tracker.Now).
						Handle(ctx, query.ProgressReportQuery{Code: args[0]})
					if err != nil {
						return err
					}
					if opts.jsonOutput {
						return printJSON(cmd.OutOrStdout(), report)
					}
					printReport(cmd.OutOrStdout(), report)
					return nil
				}

				summary, err := query.NewCodeAnalyticsHandler(a.tracker.Codec()).
					Handle(ctx, query.CodeAnalyticsQuery{Codes: args})
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), summary)
				}
				printAnalytics(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
}
