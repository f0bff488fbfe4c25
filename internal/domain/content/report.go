package content

import (
	"fmt"
	"sort"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// CURRICULUM VALIDATION REPORT
// ══════════════════════════════════════════════════════════════════════════════

// RequiredSkills - навыки, которые программа обязана покрыть.
var RequiredSkills = []string{
	"ai_prompting", "git", "html", "css", "javascript",
	"debugging", "deployment", "databases",
}

// Report - итог проверки набора недель.
type Report struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Info     []string `json:"info"`

	TotalXP        int            `json:"totalXp"`
	AveragePerWeek float64        `json:"averagePerWeek"`
	Distribution   map[string]int `json:"distribution"`

	// SkillCoverage - модули, в которых встречается каждый обязательный навык.
	SkillCoverage map[string][]string `json:"skillCoverage"`
}

// Valid возвращает true, если ошибок нет (предупреждения допустимы).
func (r Report) Valid() bool {
	return len(r.Errors) == 0
}

// Check проверяет недели: структуру, рост сложности, баланс XP и покрытие навыков.
// weeks - материалы по номеру недели; отсутствующие недели считаются ошибкой.
func Check(weeks map[int]Week, totalWeeks, modulesPerWeek int) Report {
	r := Report{
		Errors:        []string{},
		Warnings:      []string{},
		Info:          []string{},
		Distribution:  map[string]int{},
		SkillCoverage: map[string][]string{},
	}
	for _, sk := range RequiredSkills {
		r.SkillCoverage[sk] = []string{}
	}

	for n := 1; n <= totalWeeks; n++ {
		w, ok := weeks[n]
		if !ok {
			r.Errors = append(r.Errors, fmt.Sprintf("Week %d content not found", n))
			continue
		}
		r.checkStructure(n, w, modulesPerWeek)
		r.checkProgression(n, w, totalWeeks)
		r.checkXP(n, w)
		for _, m := range w.Modules {
			for _, sk := range m.Skills {
				if _, tracked := r.SkillCoverage[sk]; tracked {
					r.SkillCoverage[sk] = append(r.SkillCoverage[sk], fmt.Sprintf("w%dm%d", n, m.Number))
				}
			}
		}
	}

	r.checkBalance()
	r.checkCoverage()
	return r
}

func (r *Report) checkStructure(n int, w Week, modulesPerWeek int) {
	errs := Validate(w)
	for _, e := range errs {
		r.Errors = append(r.Errors, fmt.Sprintf("Week %d: %s: %s", n, e.Field, e.Message))
	}
	if len(w.Modules) != modulesPerWeek {
		r.Errors = append(r.Errors, fmt.Sprintf("Week %d has %d modules, expected %d", n, len(w.Modules), modulesPerWeek))
	}
	for _, m := range w.Modules {
		want := fmt.Sprintf("w%dm%d", n, m.Number)
		if m.ID != want {
			r.Errors = append(r.Errors, fmt.Sprintf("Week %d module id %q, expected %q", n, m.ID, want))
		}
	}
	if len(errs) == 0 && len(w.Modules) == modulesPerWeek {
		r.Info = append(r.Info, fmt.Sprintf("✓ week%d is valid", n))
	}
}

func (r *Report) checkProgression(n int, w Week, totalWeeks int) {
	allBeginner := len(w.Modules) > 0
	for _, m := range w.Modules {
		if n <= 2 && m.Difficulty == "advanced" {
			r.Warnings = append(r.Warnings, fmt.Sprintf("Week %d contains advanced content (might be too early)", n))
			return
		}
		if m.Difficulty != "beginner" {
			allBeginner = false
		}
	}
	if n >= totalWeeks-1 && allBeginner {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Week %d only contains beginner content (should be more advanced)", n))
	}
}

func (r *Report) checkXP(n int, w Week) {
	total := w.TotalXP()
	r.Distribution[fmt.Sprintf("week%d", n)] = total
	r.TotalXP += total
	summary := 0
	if w.Summary != nil {
		summary = w.Summary.TotalXP
	}
	if summary != total {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Week %d XP mismatch: calculated=%d, summary=%d", n, total, summary))
	}
}

func (r *Report) checkBalance() {
	if len(r.Distribution) == 0 {
		return
	}
	r.AveragePerWeek = float64(r.TotalXP) / float64(len(r.Distribution))
	keys := make([]string, 0, len(r.Distribution))
	for k := range r.Distribution {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		xp := float64(r.Distribution[k])
		switch {
		case xp < r.AveragePerWeek*0.5:
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s has unusually low XP (%d)", k, r.Distribution[k]))
		case xp > r.AveragePerWeek*2:
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s has unusually high XP (%d)", k, r.Distribution[k]))
		}
	}
}

func (r *Report) checkCoverage() {
	var uncovered []string
	for _, sk := range RequiredSkills {
		switch mods := r.SkillCoverage[sk]; len(mods) {
		case 0:
			uncovered = append(uncovered, sk)
			r.Errors = append(r.Errors, fmt.Sprintf("Skill '%s' is not taught in any module", sk))
		case 1:
			r.Warnings = append(r.Warnings, fmt.Sprintf("Skill '%s' is only taught once (%s)", sk, mods[0]))
		}
	}
	if len(uncovered) > 0 {
		r.Warnings = append(r.Warnings, "Skills not covered: "+strings.Join(uncovered, ", "))
	}
}

// String форматирует отчёт для терминала.
func (r Report) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\nCONTENT VALIDATION REPORT\n%s\n\n", line, line)
	fmt.Fprintf(&b, "SUMMARY\n%s\n", strings.Repeat("-", 30))
	fmt.Fprintf(&b, "✓ Info Messages: %d\n⚠ Warnings: %d\n✗ Errors: %d\n\n", len(r.Info), len(r.Warnings), len(r.Errors))
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "ERRORS (Must Fix)\n%s\n", strings.Repeat("-", 30))
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  ✗ %s\n", e)
		}
		b.WriteString("\n")
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "WARNINGS (Should Review)\n%s\n", strings.Repeat("-", 30))
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  ⚠ %s\n", w)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "XP: total=%d average/week=%.1f\n", r.TotalXP, r.AveragePerWeek)
	return b.String()
}
