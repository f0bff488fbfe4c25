package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/hampton/progress-tracker/internal/application/query"
	domcontent "github.com/hampton/progress-tracker/internal/domain/content"
	"github.com/hampton/progress-tracker/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// STYLES
// ══════════════════════════════════════════════════════════════════════════════

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// titleStyle раскрашивает титул цветом его диапазона уровней.
func titleStyle(level int) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(progress.TitleColor(level)))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func check(done bool) string {
	if done {
		return okStyle.Render("✓")
	}
	return dimStyle.Render("·")
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

func printStatus(w io.Writer, st *progress.State, percent int, code string, now time.Time) {
	title := progress.DisplayTitle(st.Level)
	next := progress.NextTitle(st.Level)

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle(st.Level).Render(title.Full), dimStyle.Render(title.Subtitle))
	fmt.Fprintf(&b, "Level %d  ·  %s XP (%s)  ·  %d%% to next level\n",
		st.Level, humanize.Comma(int64(st.XP)), progress.FormatXP(st.XP), st.LevelProgress())
	if next.LevelsToGo > 0 {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("Next title: %s in %d level(s)", next.Title.Title, next.LevelsToGo)))
	}

	project := "not selected"
	if st.SelectedProject.IsSet() {
		project = st.SelectedProject.DisplayName()
	}
	fmt.Fprintf(&b, "\nProject   %s\n", project)
	if st.IsDailyMode() {
		fmt.Fprintf(&b, "Position  day %d, lesson %d\n", st.CurrentDay, st.CurrentLesson)
	} else {
		fmt.Fprintf(&b, "Position  week %d, module %d\n", st.CurrentWeek, st.CurrentModule)
	}
	fmt.Fprintf(&b, "Progress  %d%%  %s\n", percent, dimStyle.Render(progress.MotivationalMessage(percent)))

	streak := fmt.Sprintf("%d day(s)", st.DailyStreak)
	if st.LastActivityDate != nil {
		streak += dimStyle.Render(", last activity " + humanize.RelTime(*st.LastActivityDate, now, "ago", "from now"))
	}
	fmt.Fprintf(&b, "Streak    %s\n", streak)
	fmt.Fprintf(&b, "Unlocked  %d achievement(s), %d badge(s)\n", len(st.Achievements), len(st.Badges))
	fmt.Fprintf(&b, "Code      %s", code)

	fmt.Fprintln(w, boxStyle.Render(b.String()))
}

func printCompletion(w io.Writer, c progress.Completion) {
	if c.AlreadyCompleted {
		fmt.Fprintln(w, dimStyle.Render("Already completed, nothing changed."))
		return
	}
	if gained := c.XPGained(); gained > 0 {
		fmt.Fprintf(w, "%s %s\n", okStyle.Render(fmt.Sprintf("+%s XP", humanize.Comma(int64(gained)))),
			dimStyle.Render(fmt.Sprintf("(%s total)", humanize.Comma(int64(c.XPAfter)))))
	}
	if c.LevelAfter > c.LevelBefore {
		fmt.Fprintf(w, "%s %d → %d  %s\n", headerStyle.Render("Level up!"), c.LevelBefore, c.LevelAfter,
			titleStyle(c.LevelAfter).Render(progress.DisplayTitle(c.LevelAfter).Full))
		fmt.Fprintln(w, dimStyle.Render(progress.LevelMessage(c.LevelAfter)))
	}
	for _, id := range c.Unlocked {
		name := id
		if def, ok := progress.LookupAchievement(id); ok {
			name = def.Icon + " " + def.Name
		}
		fmt.Fprintf(w, "%s %s\n", warnStyle.Render("Achievement unlocked:"), name)
	}
	for _, id := range c.Badges {
		name := id
		if def, ok := progress.LookupBadge(id); ok {
			name = def.Icon + " " + def.Name
		}
		fmt.Fprintf(w, "%s %s\n", warnStyle.Render("Badge earned:"), name)
	}
}

func printHistory(w io.Writer, history []progress.Snapshot, now time.Time) {
	if len(history) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No saves yet."))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-8s %-16s %8s %5s  %s", "REV", "SAVED", "XP", "LEVEL", "DIGEST")))
	for _, s := range history {
		fmt.Fprintf(w, "%-8d %-16s %8s %5d  %s\n",
			s.Revision, humanize.RelTime(s.SavedAt, now, "ago", "from now"), humanize.Comma(int64(s.XP)), s.Level, s.Digest)
	}
}

func printChallenges(w io.Writer, today []progress.DailyChallenge) {
	if len(today) > 0 {
		fmt.Fprintln(w, headerStyle.Render("Challenges for "+today[0].Date))
	}
	for _, c := range today {
		fmt.Fprintf(w, " %s %-16s %-22s %4d XP  %s\n", check(c.Completed), c.ID, c.Name, c.XP, dimStyle.Render(string(c.Difficulty)))
		fmt.Fprintf(w, "   %s\n", dimStyle.Render(c.Description))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CODES
// ══════════════════════════════════════════════════════════════════════════════

func printReport(w io.Writer, r *query.ProgressReportDTO) {
	verified := okStyle.Render("checksum ok")
	if !r.Verified {
		verified = warnStyle.Render("checksum does not match")
	}
	fmt.Fprintf(w, "%s  %s\n", headerStyle.Render(r.Code), verified)
	fmt.Fprintf(w, "Project   %s\n", r.Project)
	fmt.Fprintf(w, "Position  %s\n", r.Position.String())
	fmt.Fprintf(w, "Done      %d / %d (%.1f%%)\n", r.Stats.UnitsCompleted, r.Stats.UnitsTotal, r.Stats.CompletionPercent)
	fmt.Fprintf(w, "Estimate  %s XP, level %d, %s\n", humanize.Comma(int64(r.Stats.EstimatedXP)), r.Stats.EstimatedLevel,
		titleStyle(r.Stats.EstimatedLevel).Render(r.Stats.Title))
	if r.Next != nil {
		fmt.Fprintf(w, "Next      %s: %s (%d module(s) left)\n", r.Next.Name, r.Next.Description, r.Next.ModulesRemaining)
	}
	for _, p := range r.Pace {
		fmt.Fprintf(w, "  %-8s %s  %s\n", p.Pace, p.Date, dimStyle.Render(fmt.Sprintf("%d days", p.DaysRemaining)))
	}
	if len(r.Advice) > 0 {
		fmt.Fprintln(w, headerStyle.Render("Recommendations"))
		for _, a := range r.Advice {
			fmt.Fprintf(w, "  - %s\n", a)
		}
	}
}

func printAnalytics(w io.Writer, a *query.CodeAnalyticsDTO) {
	fmt.Fprintf(w, "%s %d total, %d valid, %d invalid\n", headerStyle.Render("Codes:"), a.TotalCodes, a.ValidCodes, a.InvalidCodes)
	fmt.Fprintf(w, "Formats: %d weekly, %d daily\n", a.WeeklyCodes, a.DailyCodes)
	for project, n := range a.ProjectDistribution {
		fmt.Fprintf(w, "  %-12s %d\n", project, n)
	}
	if a.WeeklyCodes > 0 {
		fmt.Fprintf(w, "Average position: week %.2f, module %.2f\n", a.AverageWeek, a.AverageModule)
		fmt.Fprintf(w, "Furthest: week %d, module %d\n", a.Furthest.Week, a.Furthest.Module)
		fmt.Fprintf(w, "Average completion: %.2f%%\n", a.CompletionRate)
	}
	if a.DailyCodes > 0 {
		fmt.Fprintf(w, "Average day: %.2f\n", a.AverageDay)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT
// ══════════════════════════════════════════════════════════════════════════════

func printDay(w io.Writer, d domcontent.Day, st *progress.State) {
	fmt.Fprintf(w, "%s  %s\n", headerStyle.Render(fmt.Sprintf("Day %d: %s", d.Day, d.Title)), dimStyle.Render(fmt.Sprintf("%d XP per lesson", d.XP)))
	for i, lesson := range d.Lessons {
		fmt.Fprintf(w, " %s %d. %s\n", check(st.IsLessonCompleted(d.Day, i)), i, lesson)
	}
	if d.Deliverable != "" {
		fmt.Fprintf(w, "Deliverable: %s\n", d.Deliverable)
	}
}

func printWeek(w io.Writer, wk domcontent.Week, st *progress.State) {
	fmt.Fprintf(w, "%s  %s\n", headerStyle.Render(fmt.Sprintf("Week %d: %s", wk.Week, wk.Title)),
		dimStyle.Render(fmt.Sprintf("%s XP", humanize.Comma(int64(wk.TotalXP())))))
	if wk.Description != "" {
		fmt.Fprintln(w, dimStyle.Render(wk.Description))
	}
	for _, m := range wk.Modules {
		fmt.Fprintf(w, " %s %d. %-40s %-12s %4d XP\n", check(st.IsModuleCompleted(wk.Week, m.Number)), m.Number, m.Title, m.Difficulty, m.XP)
	}
}
