//go:build property
// +build property

package progresscode_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/progresscode"
	"github.com/hampton/progress-tracker/internal/domain/shared"
)

var projects = []progress.Project{
	progress.ProjectNone,
	progress.ProjectTicTacToe,
	progress.ProjectServiceNow,
	progress.ProjectAutomation,
	progress.ProjectMSGraph,
}

// TestWeeklyCodeRoundTrip verifies that a restored weekly code re-encodes to itself.
// Property: Encode(Restore(Decode(Encode(s)))) == Encode(s)
func TestWeeklyCodeRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	properties.Property("weekly position and project survive", prop.ForAll(
		func(pi, week, module int) bool {
			s := progress.NewState("u", now)
			s.SelectedProject = projects[pi]
			s.CurrentWeek, s.CurrentModule = week, module

			code := progresscode.Encode(s)
			d, err := progresscode.Decode(code)
			if err != nil {
				return false
			}
			restored := progresscode.New().Restore(d, "u", now)
			return d.Position.Week == week &&
				d.Position.Module == module &&
				restored.SelectedProject == projects[pi] &&
				restored.XP == ((week-1)*5+module-1)*progress.ModuleXP &&
				progresscode.Encode(restored) == code
		},
		gen.IntRange(0, len(projects)-1),
		gen.IntRange(1, 8),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}

// TestDailyCodeRoundTrip verifies daily codes for every valid day and lesson.
func TestDailyCodeRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cur := progress.StandardCurriculum{}

	properties.Property("daily position survives and level follows xp", prop.ForAll(
		func(pi, day, lesson int) bool {
			lesson %= cur.LessonsPerDay(day)
			s := progress.NewState("u", now)
			s.SelectedProject = projects[pi]
			s.CurrentDay, s.CurrentLesson = day, lesson

			code := progresscode.Encode(s)
			d, err := progresscode.Decode(code)
			if err != nil {
				return false
			}
			restored := progresscode.New().Restore(d, "u", now)
			want := 0
			for dd := 1; dd < day; dd++ {
				want += cur.LessonsPerDay(dd)
			}
			want += lesson
			return len(restored.CompletedLessons) == want &&
				restored.Level == shared.LevelForXP(restored.XP) &&
				progresscode.Encode(restored) == code
		},
		gen.IntRange(0, len(projects)-1),
		gen.IntRange(1, 30),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
