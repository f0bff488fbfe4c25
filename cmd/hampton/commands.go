package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hampton/progress-tracker/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show level, XP, streak and current position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app) error {
				st := a.tracker.Snapshot()
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), st)
				}
				printStatus(cmd.OutOrStdout(), st, a.tracker.ProgressPercentage(), a.tracker.ExportCode(), a.tracker.Now())
				return nil
			})
		},
	}
}

func newSelectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "select <project>",
		Short:     "Choose the course project",
		Long:      "Choose the course project: tictactoe, servicenow, automation or msgraph.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: projectNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out, err := a.tracker.SelectProject(ctx, progress.Project(strings.ToLower(args[0])))
				return commit(cmd, opts, out, err)
			})
		},
	}
}

func newLessonCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lesson <day> <lesson>",
		Short: "Complete a lesson of the daily course (lessons count from 0)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			nums, err := intArgs(args, "day", "lesson")
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out, err := a.tracker.CompleteLesson(ctx, nums[0], nums[1])
				return commit(cmd, opts, out, err)
			})
		},
	}
}

func newModuleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "module <week> <module>",
		Short: "Complete a module of the weekly course",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			nums, err := intArgs(args, "week", "module")
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if !a.tracker.CanAccessModule(nums[0], nums[1]) {
					a.log.Warn("module is ahead of the unlocked position", "week", nums[0], "module", nums[1])
				}
				out, err := a.tracker.CompleteModule(ctx, nums[0], nums[1])
				return commit(cmd, opts, out, err)
			})
		},
	}
}

func newSkillCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "skill <name> <delta>",
		Short: "Adjust a skill score; scores stay within 0..100",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("delta must be an integer, got %q", args[1])
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out, err := a.tracker.UpdateSkill(ctx, progress.Skill(args[0]), delta)
				if err == nil && !opts.jsonOutput {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", args[0], out.State.Skill(progress.Skill(args[0])))
				}
				return commit(cmd, opts, out, err)
			})
		},
	}
}

func newXPCmd(opts *rootOptions) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "xp <amount>",
		Short: "Award XP directly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("amount must be an integer, got %q", args[0])
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out, err := a.tracker.AddXP(ctx, amount, source)
				return commit(cmd, opts, out, err)
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "manual", "where the XP came from")
	return cmd
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all progress and start over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out, err := a.tracker.Reset(ctx, yes)
				if err != nil {
					return fmt.Errorf("%w (pass --yes to confirm)", err)
				}
				if !opts.jsonOutput {
					fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Progress reset."))
				}
				return commit(cmd, opts, out, nil)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent saves (bolt and sqlite stores)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				history, err := a.tracker.History(ctx, limit)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), history)
				}
				printHistory(cmd.OutOrStdout(), history, a.tracker.Now())
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY CHALLENGES
// ══════════════════════════════════════════════════════════════════════════════

func newChallengesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "challenges",
		Short: "Show today's challenges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app) error {
				today := a.tracker.TodayChallenges()
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), today)
				}
				printChallenges(cmd.OutOrStdout(), today)
				return nil
			})
		},
	}
}

func newChallengeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "challenge",
		Short: "Work with daily challenges",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "complete <id>",
		Short: "Mark one of today's challenges as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out, err := a.tracker.CompleteChallenge(ctx, args[0])
				return commit(cmd, opts, out, err)
			})
		},
	})
	return cmd
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func intArgs(args []string, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer, got %q", name, args[i])
		}
		out[i] = n
	}
	return out, nil
}

func projectNames() []string {
	all := progress.AllProjects()
	out := make([]string, 0, len(all))
	for _, p := range all {
		out = append(out, string(p))
	}
	return out
}
