package progress

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hampton/progress-tracker/internal/domain/shared"
)

func challengeIDs(list []Challenge) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func TestStringHash(t *testing.T) {
	tests := map[string]int64{
		"":                0,
		"hello":           99162322,
		"Fri Oct 16 2026": 82340954,
		"Mon Jan 01 2024": 188045470,
	}
	for in, want := range tests {
		assert.Equal(t, want, StringHash(in), "hash(%q)", in)
	}
}

func TestChallengesForDate(t *testing.T) {
	tests := []struct {
		date string
		want []string
	}{
		{"Fri Oct 16 2026", []string{"ai_efficiency", "daily_module", "documentation"}},
		{"Mon Jan 01 2024", []string{"git_commit", "perfect_code", "no_hints"}},
		{"Sat Oct 17 2026", []string{"daily_module", "ai_efficiency", "git_commit"}},
		{"Thu Jan 01 1970", []string{"documentation", "refactor", "speed_run"}},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			got := ChallengesForDate(tt.date)
			assert.Equal(t, tt.want, challengeIDs(got))
			assert.Equal(t, tt.want, challengeIDs(ChallengesForDate(tt.date)), "deterministic")
		})
	}
}

func TestDailyChallenges_UsesLocalCalendarDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC on Oct 17 is still Oct 16 in New York.
	now := time.Date(2026, 10, 17, 2, 0, 0, 0, time.UTC).In(ny)
	assert.Equal(t, []string{"ai_efficiency", "daily_module", "documentation"}, challengeIDs(DailyChallenges(now)))
	assert.Equal(t, "2026-10-16/refactor", ChallengeKey(now, "refactor"))
}

func TestSeededShuffle_DoesNotMutateInput(t *testing.T) {
	in := []int{1, 2, 3, 4, 5}
	out := SeededShuffle(in, 42)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, in)
	assert.ElementsMatch(t, in, out)
}

func TestChallengePool_IsCopy(t *testing.T) {
	pool := ChallengePool()
	require.Len(t, pool, 8)
	pool[0].XP = 0
	assert.Equal(t, 50, ChallengePool()[0].XP)
}

func TestLookupAchievement(t *testing.T) {
	def, ok := LookupAchievement("graduation_day")
	require.True(t, ok)
	assert.Equal(t, "Graduation Day", def.Name)

	_, ok = LookupAchievement("nope")
	assert.False(t, ok)

	assert.True(t, IsSystemAchievement("level_up_12"))
	assert.True(t, IsSystemAchievement("week_complete_3"))
	assert.True(t, IsSystemAchievement("master_css"))
	assert.False(t, IsSystemAchievement("first_blood"))
}

func TestBadgeLevels(t *testing.T) {
	s := NewState("u", day0)
	s.Level = 10
	got := []string{}
	for _, b := range QualifyingBadges(s) {
		got = append(got, b.ID)
	}
	assert.Equal(t, []string{"beginner", "novice", "intermediate"}, got)
}

func TestTitles(t *testing.T) {
	assert.Equal(t, "Keyboard Tourist", TitleForLevel(1).Title)
	assert.Equal(t, "Keyboard Tourist", TitleForLevel(0).Title)
	assert.Equal(t, "Answer to Everything", TitleForLevel(42).Title)
	assert.Equal(t, "Hampton Honorary", TitleForLevel(99).Title)

	next := NextTitle(6)
	assert.Equal(t, 7, next.Level)
	assert.Equal(t, 1, next.LevelsToGo)
	assert.Equal(t, "Maximum Level", NextTitle(50).Title.Title)

	d := DisplayTitle(12)
	assert.Equal(t, "🐥 Logic Builder", d.Full)
	assert.Equal(t, "#3B82F6", d.Color)

	assert.True(t, ShouldAnnounceTitle(4, 6))
	assert.False(t, ShouldAnnounceTitle(6, 9))
	assert.Equal(t, "Double digits! You're officially a coder now.", LevelMessage(12))

	st, ok := SpecialTitle("week_warrior")
	require.True(t, ok)
	assert.Equal(t, "Seven days strong", st.Subtitle)
}

func TestFormatXP(t *testing.T) {
	tests := map[int]string{
		0:         "0",
		999:       "999",
		1000:      "1.0K",
		1500:      "1.5K",
		1949:      "1.9K",
		1950:      "2.0K",
		999_999:   "1000.0K",
		2_500_000: "2.5M",
	}
	for xp, want := range tests {
		assert.Equal(t, want, FormatXP(xp), "FormatXP(%d)", xp)
	}
}

func TestMotivationalMessage(t *testing.T) {
	assert.Contains(t, MotivationalMessage(0), "Welcome")
	assert.Contains(t, MotivationalMessage(60), "halfway")
	assert.Contains(t, MotivationalMessage(100), "Congratulations")
}

func TestLeaderboardRank(t *testing.T) {
	peers := []Peer{{"a", 300}, {"b", 1000}, {"c", 500}}

	got := LeaderboardRank(500, peers)
	assert.Equal(t, shared.Rank(2), got.Rank, "ties rank ahead of the peer")
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 50, got.Percentile)

	last := LeaderboardRank(10, peers)
	assert.Equal(t, shared.Rank(4), last.Rank)
	assert.Equal(t, 0, last.Percentile)

	alone := LeaderboardRank(10, nil)
	assert.Equal(t, shared.Rank(1), alone.Rank)
	assert.Equal(t, 1, alone.Total)

	assert.Equal(t, "a", peers[0].UserID, "input is untouched")
}

func TestState_JSONRoundTrip(t *testing.T) {
	s := NewState("user_json", day0)
	_, _ = s.SelectProject(ProjectAutomation, day0)
	_, _ = s.CompleteModule(1, 1, day0)
	_, _ = s.CompleteLesson(1, 0, day0)
	_, _, _ = s.UpdateSkill(SkillGit, 40, day0)

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var back State
	require.NoError(t, json.Unmarshal(raw, &back))
	back.Repair()

	if diff := cmp.Diff(s, &back, cmpopts.IgnoreUnexported(State{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestState_DecodeBrowserDocument(t *testing.T) {
	doc := `{
		"userId": "user_1700000000000_abc123def",
		"selectedProject": null,
		"currentWeek": 2,
		"currentModule": 3,
		"completedModules": ["w1m1"],
		"weekProgress": {"week1": {"modules": [1], "completed": false}},
		"xp": 420,
		"level": 1,
		"skills": {"html": 140},
		"dailyStreak": 2,
		"lastActivityDate": null
	}`

	var s State
	require.NoError(t, json.Unmarshal([]byte(doc), &s))
	s.Repair()

	assert.Equal(t, ProjectNone, s.SelectedProject)
	assert.Equal(t, 3, s.Level, "level is derived from xp")
	assert.Equal(t, 100, s.Skills[SkillHTML])
	assert.Len(t, s.Skills, 17)
	assert.Len(t, s.WeekProgress, 4)
	assert.NotNil(t, s.CompletedLessons)
	assert.Nil(t, s.LastActivityDate)

	out, err := json.Marshal(&s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"selectedProject":null`)
}

func TestState_BrowserLessonIDsAreNotPaidTwice(t *testing.T) {
	doc := `{"xp": 55, "completedLessons": ["d1l0", "day1-0", "d2l3"]}`

	var s State
	require.NoError(t, json.Unmarshal([]byte(doc), &s))
	s.Repair()

	assert.Equal(t, []string{"day1-0", "day2-3"}, s.CompletedLessons)
	require.Contains(t, s.DailyProgress, DayKey(1))
	assert.Equal(t, []int{0}, s.DailyProgress[DayKey(1)].Lessons)

	res, err := s.CompleteLesson(1, 0, day0)
	require.NoError(t, err)
	assert.True(t, res.AlreadyCompleted)
	assert.Equal(t, 55, s.XP)

	res, err = s.CompleteLesson(2, 3, day0)
	require.NoError(t, err)
	assert.True(t, res.AlreadyCompleted)
}

func TestParseLessonID(t *testing.T) {
	for _, tc := range []struct {
		id          string
		day, lesson int
		ok          bool
	}{
		{"day12-3", 12, 3, true},
		{"d7l2", 7, 2, true},
		{"day1", 0, 0, false},
		{"w1m1", 0, 0, false},
		{"d1l", 0, 0, false},
	} {
		day, lesson, ok := ParseLessonID(tc.id)
		assert.Equal(t, tc.ok, ok, tc.id)
		assert.Equal(t, tc.day, day, tc.id)
		assert.Equal(t, tc.lesson, lesson, tc.id)
	}
}

func TestState_DecodeRejectsUnknownProject(t *testing.T) {
	var s State
	require.NoError(t, json.Unmarshal([]byte(`{"selectedProject":"dashboard"}`), &s))
	s.Repair()
	assert.Equal(t, ProjectNone, s.SelectedProject)
}

func TestNextMilestone(t *testing.T) {
	c := StandardCurriculum{}

	m := NextMilestone(c, 3, 2)
	assert.Equal(t, "Complete Week 3", m.Name)
	assert.Equal(t, "Core Functionality Done", m.Description)
	assert.Equal(t, 3, m.ModulesRemaining)

	m = NextMilestone(c, 3, 5)
	assert.Equal(t, 4, m.Week)
	assert.Equal(t, 5, m.ModulesRemaining)

	m = NextMilestone(c, 8, 5)
	assert.Equal(t, "Course Complete", m.Name)
	assert.Zero(t, m.ModulesRemaining)
}

func TestEstimateCompletion(t *testing.T) {
	got := EstimateCompletion(StandardCurriculum{}, 3, 2, day0)
	require.Len(t, got, 4)

	// 40 - 12 = 28 modules left.
	assert.Equal(t, "fast", got[0].Pace)
	assert.Equal(t, 56, got[0].DaysRemaining)
	assert.Equal(t, 8.0, got[0].WeeksRemaining)
	assert.Equal(t, 84, got[1].DaysRemaining)
	assert.Equal(t, "2027-01-08", got[1].Date)
	assert.Equal(t, 20.0, got[2].WeeksRemaining)
	assert.Equal(t, 196, got[3].DaysRemaining)

	done := EstimateCompletion(StandardCurriculum{}, 8, 5, day0)
	assert.Zero(t, done[0].DaysRemaining)
}

func TestRecommendations(t *testing.T) {
	recs := Recommendations(1, 1, ProjectAutomation)
	require.Len(t, recs, 4)
	assert.Contains(t, recs[0], "fundamentals")
	assert.Contains(t, recs[2], "bots")
	assert.Contains(t, recs[3], "plan")

	recs = Recommendations(7, 5, ProjectNone)
	require.Len(t, recs, 3)
	assert.Contains(t, recs[0], "final stretch")
	assert.Contains(t, recs[2], "weekly project")
}
