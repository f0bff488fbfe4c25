package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/infrastructure/content"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE CONTENT
// ══════════════════════════════════════════════════════════════════════════════

func newContentCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Show and validate course material",
	}
	cmd.AddCommand(newShowDayCmd(opts), newShowWeekCmd(opts), newValidateCmd(opts))
	return cmd
}

func newShowDayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show-day <day>",
		Short: "Show the lessons of a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("day must be an integer, got %q", args[0])
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				d, err := a.tracker.DayContent(ctx, day)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), d)
				}
				printDay(cmd.OutOrStdout(), d, a.tracker.Snapshot())
				return nil
			})
		},
	}
}

func newShowWeekCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show-week <week>",
		Short: "Show the modules of a week for the selected project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			week, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("week must be an integer, got %q", args[0])
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				w, err := a.tracker.WeekContent(ctx, week)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), w)
				}
				printWeek(cmd.OutOrStdout(), w, a.tracker.Snapshot())
				return nil
			})
		},
	}
}

// newValidateCmd проверяет настроенный источник материалов (каталог или
// удалённый хост) без подстановки значений по умолчанию.
func newValidateCmd(opts *rootOptions) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check course material for structure, XP balance and skill coverage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				source := a.source
				if source == nil {
					source = a.content
				}
				p := progress.Project(strings.ToLower(project))
				if p == progress.ProjectNone {
					p = a.tracker.Snapshot().SelectedProject
				}

				report, err := content.NewValidator(source, a.tracker.Curriculum(), a.log).Validate(ctx, p)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					if err := printJSON(cmd.OutOrStdout(), report); err != nil {
						return err
					}
				} else {
					fmt.Fprint(cmd.OutOrStdout(), report.String())
				}
				if !report.Valid() {
					return fmt.Errorf("content has %d error(s)", len(report.Errors))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project to validate (default: the selected one)")
	return cmd
}
